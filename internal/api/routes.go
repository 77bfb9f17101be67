package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/frameforge/frameforge-agent/internal/generate"
	"github.com/frameforge/frameforge-agent/internal/studio"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/styles", stylesHandler())
		if cfg.Events != nil {
			r.Handle("/events", cfg.Events)
		}

		r.Route("/projects", func(r chi.Router) {
			r.Get("/", listProjectsHandler(cfg))
			r.Post("/", createProjectHandler(cfg))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", getProjectHandler(cfg))
				r.Put("/", updateProjectHandler(cfg))
				r.Delete("/", deleteProjectHandler(cfg))

				r.Get("/characters", listCharactersHandler(cfg))
				r.Post("/characters", createCharacterHandler(cfg))
				r.Get("/scenes", listScenesHandler(cfg))
				r.Post("/scenes", createSceneHandler(cfg))
				r.Get("/shots", listShotsHandler(cfg))
				r.Post("/shots", createShotHandler(cfg))
				r.Post("/shots/reorder", reorderShotsHandler(cfg))

				r.Get("/tasks", listTasksHandler(cfg))
				r.Post("/tasks", createTasksHandler(cfg))

				r.Post("/batch/shot-images", batchShotImagesHandler(cfg))
				r.Post("/batch/scene-images", batchSceneImagesHandler(cfg))
				r.Post("/batch/avatars", batchAvatarsHandler(cfg))

				r.Post("/export/edl", exportEDLHandler(cfg))
			})
		})

		r.Route("/characters/{id}", func(r chi.Router) {
			r.Get("/", getCharacterHandler(cfg))
			r.Put("/", updateCharacterHandler(cfg))
			r.Delete("/", deleteCharacterHandler(cfg))
			r.Post("/avatar", generateCharacterHandler(cfg, cfg.Generator.CharacterAvatar))
			r.Post("/appearance", generateCharacterHandler(cfg, cfg.Generator.CharacterAppearance))
			r.Post("/three-view", generateCharacterHandler(cfg, cfg.Generator.CharacterThreeView))
		})

		r.Route("/scenes/{id}", func(r chi.Router) {
			r.Get("/", getSceneHandler(cfg))
			r.Put("/", updateSceneHandler(cfg))
			r.Delete("/", deleteSceneHandler(cfg))
			r.Post("/image", generateSceneImageHandler(cfg))
		})

		r.Route("/shots/{id}", func(r chi.Router) {
			r.Get("/", getShotHandler(cfg))
			r.Put("/", updateShotHandler(cfg))
			r.Delete("/", deleteShotHandler(cfg))
		})

		r.Route("/tasks/{id}", func(r chi.Router) {
			r.Get("/", getTaskHandler(cfg))
			r.Delete("/", cancelTaskHandler(cfg))
			r.Post("/pause", pauseTaskHandler(cfg))
			r.Post("/resume", resumeTaskHandler(cfg))
		})

		r.Get("/queue", queueStatusHandler(cfg))
		r.Post("/queue/pause", pauseQueueHandler(cfg))
		r.Post("/queue/resume", resumeQueueHandler(cfg))

		r.Get("/settings/providers/{artifact}", getProviderSettingHandler(cfg))
		r.Put("/settings/providers/{artifact}", putProviderSettingHandler(cfg))

		r.Get("/assets/file", assetHandler(cfg))
		r.Head("/assets/file", assetHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs := cfg.Queue.QueueStatus()
		queued, err := cfg.Repository.CountRenderTasks(r.Context(), studio.TaskStatusQueued)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}

		state := "idle"
		switch {
		case qs.Paused:
			state = "paused"
		case qs.IsProcessing:
			state = "rendering"
		}

		WriteJSON(w, http.StatusOK, StatusResponse{
			State:       state,
			QueuedCount: queued,
			Queue:       qs,
		})
	}
}

func stylesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, StylesResponse{
			Categories: generate.Categories(),
			Styles:     generate.Styles(),
		})
	}
}
