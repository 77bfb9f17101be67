package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/frameforge/frameforge-agent/internal/studio"
)

const defaultTaskLimit = 100

// createTasksHandler queues one task when shot_id is given, otherwise one
// task per entry of shot_ids.
func createTasksHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTasksRequest
		if !decodeRequest(w, r, &req, false) {
			return
		}

		shotIDs := req.ShotIDs
		if shotID := strings.TrimSpace(req.ShotID); shotID != "" {
			shotIDs = []string{shotID}
		}
		if len(shotIDs) == 0 {
			WriteError(w, http.StatusBadRequest, "shot_id or shot_ids is required", "VALIDATION_ERROR")
			return
		}

		ids, err := cfg.Queue.CreateBatch(r.Context(), chi.URLParam(r, "id"), shotIDs, req.Type)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, CreateTasksResponse{TaskIDs: ids})
	}
}

func listTasksHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultTaskLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = n
		}

		tasks, err := cfg.Queue.ListTasks(r.Context(), chi.URLParam(r, "id"), limit)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if tasks == nil {
			tasks = []*studio.RenderTask{}
		}
		WriteJSON(w, http.StatusOK, TasksResponse{Tasks: tasks})
	}
}

func getTaskHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, err := cfg.Queue.GetTask(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, task)
	}
}

func cancelTaskHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Queue.CancelTask(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func pauseTaskHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, err := cfg.Queue.PauseTask(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, task)
	}
}

func resumeTaskHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, err := cfg.Queue.ResumeTask(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, task)
	}
}

func queueStatusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Queue.QueueStatus())
	}
}

func pauseQueueHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Queue.Pause()
		WriteJSON(w, http.StatusOK, cfg.Queue.QueueStatus())
	}
}

func resumeQueueHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg.Queue.Resume(r.Context())
		WriteJSON(w, http.StatusOK, cfg.Queue.QueueStatus())
	}
}
