package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cliplab/cliplab-agent/internal/export"
	"github.com/cliplab/cliplab-agent/internal/filters"
	"github.com/cliplab/cliplab-agent/internal/jobs"
	"github.com/cliplab/cliplab-agent/internal/render"
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

		r.Get("/presets", listPresetsHandler())
		r.Get("/luts", listLUTsHandler())

		r.Post("/projects", openProjectHandler(cfg))
		r.Get("/projects", listProjectsHandler(cfg))
		r.Get("/projects/{id}", getProjectHandler(cfg))
		r.Delete("/projects/{id}", closeProjectHandler(cfg))
		r.Get("/projects/{id}/clip", clipHandler(cfg))
		r.Get("/projects/{id}/edl", edlHandler(cfg))

		r.Post("/projects/{id}/actions", applyActionHandler(cfg))
		r.Post("/projects/{id}/undo", undoHandler(cfg))
		r.Post("/projects/{id}/redo", redoHandler(cfg))
		r.Get("/projects/{id}/state", stateHandler(cfg))
		r.Get("/projects/{id}/history", historyHandler(cfg))
		r.Post("/projects/{id}/preview", previewHandler(cfg))

		r.Post("/projects/{id}/export", submitExportHandler(cfg))
		r.Get("/exports", listExportsHandler(cfg))
		r.Get("/exports/{id}", getExportHandler(cfg))
		r.Post("/exports/{id}/cancel", cancelExportHandler(cfg))
		r.Get("/exports/{id}/artifact", artifactHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  "0.1.0",
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		recent, _ := cfg.Repository.List(ctx, 10)

		state := "idle"
		var active *JobResponse
		exportsActive := 0
		lastError := ""

		for _, j := range recent {
			if j.Status == jobs.StatusRunning || j.Status == jobs.StatusPending {
				state = "exporting"
				resp := JobToResponse(j)
				active = &resp
				exportsActive++
			}
			if j.Status == jobs.StatusFailed && lastError == "" {
				lastError = j.Error
			}
		}
		if lastError != "" && state == "idle" {
			state = "error"
		}

		engineState := string(render.StateUninitialized)
		if cfg.Orchestrator != nil {
			engineState = string(cfg.Orchestrator.State())
		}

		WriteJSON(w, http.StatusOK, StatusResponse{
			State:         state,
			EngineState:   engineState,
			LastError:     lastError,
			ProjectsOpen:  len(cfg.Studio.Projects()),
			ExportsActive: exportsActive,
			ActiveExport:  active,
		})
	}
}

func listPresetsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, PresetsResponse{Presets: filters.Presets()})
	}
}

func listLUTsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, LUTsResponse{LUTs: filters.LUTs()})
	}
}

func openProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OpenProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Path == "" {
			WriteError(w, http.StatusBadRequest, "path is required", "BAD_REQUEST")
			return
		}

		project, err := cfg.Studio.OpenProject(r.Context(), req.Path)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusCreated, project)
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, ProjectsResponse{Projects: cfg.Studio.Projects()})
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, ok := cfg.Studio.Project(chi.URLParam(r, "id"))
		if !ok {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}
		WriteJSON(w, http.StatusOK, project)
	}
}

func closeProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !cfg.Studio.CloseProject(chi.URLParam(r, "id")) {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// edlHandler renders the project's current timeline as a CMX3600 EDL.
func edlHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		project, ok := cfg.Studio.Project(id)
		if !ok {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}
		state, err := cfg.Studio.State(id)
		if err != nil {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}

		title := export.SanitizeName(filepath.Base(project.SourcePath), 60)
		if title == "" {
			title = "ClipLab Export"
		}
		segments := export.SegmentsFromTimeline(project.SourcePath, project.Duration, state.Trim, state.SplitPoints)

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(export.GenerateEDL(segments, title, 30.0)))
	}
}

// clipHandler streams the project's source clip for scrubbing.
func clipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		project, ok := cfg.Studio.Project(chi.URLParam(r, "id"))
		if !ok {
			WriteError(w, http.StatusNotFound, "project not found", "NOT_FOUND")
			return
		}
		if err := cfg.Streamer.ServeFile(w, r, project.SourcePath); err != nil {
			cfg.Logger.Error("clip streaming error", "error", err, "project_id", project.ID)
		}
	}
}
