package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/frameforge/frameforge-agent/internal/batch"
	"github.com/frameforge/frameforge-agent/internal/provider"
	"github.com/frameforge/frameforge-agent/internal/studio"
)

type batchFunc func(ctx context.Context, projectID string, onlyMissing bool) (batch.Result, error)

func batchShotImagesHandler(cfg ServerConfig) http.HandlerFunc {
	return batchHandler(cfg, cfg.Batch.GenerateAllShotImages)
}

func batchSceneImagesHandler(cfg ServerConfig) http.HandlerFunc {
	return batchHandler(cfg, cfg.Batch.GenerateAllSceneImages)
}

func batchAvatarsHandler(cfg ServerConfig) http.HandlerFunc {
	return batchHandler(cfg, cfg.Batch.GenerateAllCharacterAvatars)
}

// batchHandler runs a "generate all" action to completion. Progress goes out
// on the batch's event channel while the request is open.
func batchHandler(cfg ServerConfig, run batchFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BatchRequest
		if !decodeRequest(w, r, &req, true) {
			return
		}
		res, err := run(r.Context(), chi.URLParam(r, "id"), req.OnlyMissing)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, res)
	}
}

type assetFunc func(ctx context.Context, id string, progress provider.ProgressFunc) error

func generateCharacterHandler(cfg ServerConfig, gen assetFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := gen(r.Context(), id, nil); err != nil {
			writeGenerationError(w, cfg, err)
			return
		}
		c, err := cfg.Studio.GetCharacter(r.Context(), id)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, c)
	}
}

func generateSceneImageHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.Generator.SceneImage(r.Context(), id, nil); err != nil {
			writeGenerationError(w, cfg, err)
			return
		}
		sc, err := cfg.Studio.GetScene(r.Context(), id)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, sc)
	}
}

// writeGenerationError reports anything but a missing entity as a failed
// generation, with the advisory text from the provider layer.
func writeGenerationError(w http.ResponseWriter, cfg ServerConfig, err error) {
	if errors.Is(err, studio.ErrNotFound) {
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
		return
	}
	cfg.Logger.Warn("generation failed", "error", err)
	WriteError(w, http.StatusBadGateway, err.Error(), "GENERATION_FAILED")
}
