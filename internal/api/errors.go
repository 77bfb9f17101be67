package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/frameforge/frameforge-agent/internal/export"
	"github.com/frameforge/frameforge-agent/internal/provider"
	"github.com/frameforge/frameforge-agent/internal/render"
	"github.com/frameforge/frameforge-agent/internal/studio"
)

// maxBodyBytes bounds request bodies. Nothing the UI sends comes close.
const maxBodyBytes = 1 << 20

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeRequest reads a JSON body into dst and validates it. An empty body
// is accepted when optional is set and leaves dst untouched.
func decodeRequest(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if errors.Is(err, io.EOF) && optional {
		err = nil
	}
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		WriteError(w, http.StatusBadRequest, validationMessage(err), "VALIDATION_ERROR")
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var apiErr *provider.APIError
	var netErr *provider.NetworkError

	switch {
	case errors.Is(err, studio.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, render.ErrTaskTerminal):
		WriteError(w, http.StatusConflict, err.Error(), "TASK_TERMINAL")
	case errors.Is(err, render.ErrInvalidType),
		errors.Is(err, render.ErrNoShots),
		errors.Is(err, render.ErrEmptyShotID),
		errors.Is(err, export.ErrInvalidOutputDir):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	case errors.Is(err, export.ErrNothingToExport):
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), "NOTHING_TO_EXPORT")
	case errors.As(err, &apiErr), errors.As(err, &netErr):
		WriteError(w, http.StatusBadGateway, err.Error(), "PROVIDER_ERROR")
	default:
		logger.Error("request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}
