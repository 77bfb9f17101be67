package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/frameforge/frameforge-agent/internal/export"
	"github.com/frameforge/frameforge-agent/internal/studio"
)

func getProviderSettingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := cfg.Credentials.Get(r.Context(), chi.URLParam(r, "artifact"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, ProviderSettingToResponse(s))
	}
}

// putProviderSettingHandler saves the provider for an artifact. An omitted
// api_key keeps the stored one.
func putProviderSettingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProviderSettingRequest
		if !decodeRequest(w, r, &req, false) {
			return
		}
		s := &studio.ProviderSetting{
			Artifact: chi.URLParam(r, "artifact"),
			Kind:     req.Kind,
			BaseURL:  req.BaseURL,
			APIKey:   req.APIKey,
			Model:    req.Model,
		}
		if err := cfg.Credentials.Save(r.Context(), s); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		cfg.Logger.Info("provider settings saved", "artifact", s.Artifact, "kind", s.Kind)
		WriteJSON(w, http.StatusOK, ProviderSettingToResponse(s))
	}
}

func assetHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		location := r.URL.Query().Get("path")
		if location == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}
		if err := cfg.Playback.ServeAsset(w, r, location); err != nil {
			cfg.Logger.Error("asset error", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to serve asset", "INTERNAL_ERROR")
		}
	}
}

func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.Request
		if !decodeRequest(w, r, &req, true) {
			return
		}
		resp, err := cfg.Exporter.ExportEDL(r.Context(), chi.URLParam(r, "id"), req)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}
