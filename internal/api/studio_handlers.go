package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/frameforge/frameforge-agent/internal/studio"
)

// Projects

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := cfg.Studio.ListProjects(r.Context())
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if projects == nil {
			projects = []*studio.Project{}
		}
		WriteJSON(w, http.StatusOK, ProjectsResponse{Projects: projects})
	}
}

func createProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProjectRequest
		if !decodeRequest(w, r, &req, false) {
			return
		}
		p := &studio.Project{}
		req.apply(p)

		created, err := cfg.Studio.CreateProject(r.Context(), p)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, created)
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := cfg.Studio.GetProject(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	}
}

func updateProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ProjectRequest
		if !decodeRequest(w, r, &req, false) {
			return
		}
		p, err := cfg.Studio.GetProject(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		req.apply(p)
		if err := cfg.Studio.UpdateProject(r.Context(), p); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, p)
	}
}

func deleteProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Studio.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Characters

func listCharactersHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		chars, err := cfg.Studio.ListCharacters(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if chars == nil {
			chars = []*studio.Character{}
		}
		WriteJSON(w, http.StatusOK, CharactersResponse{Characters: chars})
	}
}

func createCharacterHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CharacterRequest
		if !decodeRequest(w, r, &req, false) {
			return
		}
		c := &studio.Character{ProjectID: chi.URLParam(r, "id")}
		req.apply(c)

		created, err := cfg.Studio.CreateCharacter(r.Context(), c)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, created)
	}
}

func getCharacterHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := cfg.Studio.GetCharacter(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, c)
	}
}

func updateCharacterHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CharacterRequest
		if !decodeRequest(w, r, &req, false) {
			return
		}
		c, err := cfg.Studio.GetCharacter(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		req.apply(c)
		if err := cfg.Studio.UpdateCharacter(r.Context(), c); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, c)
	}
}

func deleteCharacterHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Studio.DeleteCharacter(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Scenes

func listScenesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scenes, err := cfg.Studio.ListScenes(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if scenes == nil {
			scenes = []*studio.Scene{}
		}
		WriteJSON(w, http.StatusOK, ScenesResponse{Scenes: scenes})
	}
}

func createSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SceneRequest
		if !decodeRequest(w, r, &req, false) {
			return
		}
		sc := &studio.Scene{ProjectID: chi.URLParam(r, "id")}
		req.apply(sc)

		created, err := cfg.Studio.CreateScene(r.Context(), sc)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, created)
	}
}

func getSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc, err := cfg.Studio.GetScene(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, sc)
	}
}

func updateSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SceneRequest
		if !decodeRequest(w, r, &req, false) {
			return
		}
		sc, err := cfg.Studio.GetScene(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		req.apply(sc)
		if err := cfg.Studio.UpdateScene(r.Context(), sc); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, sc)
	}
}

func deleteSceneHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Studio.DeleteScene(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// Shots

func listShotsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shots, err := cfg.Studio.ListShots(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		if shots == nil {
			shots = []*studio.Shot{}
		}
		WriteJSON(w, http.StatusOK, ShotsResponse{Shots: shots})
	}
}

func createShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ShotRequest
		if !decodeRequest(w, r, &req, false) {
			return
		}
		sh := &studio.Shot{ProjectID: chi.URLParam(r, "id")}
		req.apply(sh)

		created, err := cfg.Studio.CreateShot(r.Context(), sh)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, created)
	}
}

func getShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sh, err := cfg.Studio.GetShot(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, sh)
	}
}

// updateShotHandler edits the storyboard fields. Media paths and status are
// owned by generation.
func updateShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ShotRequest
		if !decodeRequest(w, r, &req, false) {
			return
		}
		sh, err := cfg.Studio.GetShot(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		req.apply(sh)
		if err := cfg.Studio.UpdateShot(r.Context(), sh); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, sh)
	}
}

func deleteShotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Studio.DeleteShot(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func reorderShotsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReorderShotsRequest
		if !decodeRequest(w, r, &req, false) {
			return
		}
		projectID := chi.URLParam(r, "id")
		if err := cfg.Studio.ReorderShots(r.Context(), projectID, req.ShotIDs); err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		shots, err := cfg.Studio.ListShots(r.Context(), projectID)
		if err != nil {
			writeServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, ShotsResponse{Shots: shots})
	}
}
