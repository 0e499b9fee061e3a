package api

import (
	"time"

	"github.com/cliplab/cliplab-agent/internal/filters"
	"github.com/cliplab/cliplab-agent/internal/history"
	"github.com/cliplab/cliplab-agent/internal/jobs"
	"github.com/cliplab/cliplab-agent/internal/studio"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State         string       `json:"state"`
	EngineState   string       `json:"engine_state"`
	LastError     string       `json:"last_error,omitempty"`
	ProjectsOpen  int          `json:"projects_open"`
	ExportsActive int          `json:"exports_active"`
	ActiveExport  *JobResponse `json:"active_export,omitempty"`
}

type OpenProjectRequest struct {
	Path string `json:"path"`
}

type ProjectsResponse struct {
	Projects []*studio.Project `json:"projects"`
}

// ActionRequest is the wire form of one edit action. Kind selects which
// payload field is read; the rest are ignored.
type ActionRequest struct {
	Kind         string               `json:"kind"`
	Trim         *history.TrimRange   `json:"trim,omitempty"`
	Crop         *history.CropRect    `json:"crop,omitempty"`
	SplitPoints  []float64            `json:"split_points,omitempty"`
	Filters      *filters.Bundle      `json:"filters,omitempty"`
	Overlay      *history.TextOverlay `json:"overlay,omitempty"`
	OverlayID    string               `json:"overlay_id,omitempty"`
	Transition   *history.Transition  `json:"transition,omitempty"`
	TransitionID string               `json:"transition_id,omitempty"`
	Speed        float64              `json:"speed,omitempty"`
	Volume       *float64             `json:"volume,omitempty"`
}

type StateResponse struct {
	State   *history.MaterializedState `json:"state"`
	Cursor  int                        `json:"cursor"`
	Actions int                        `json:"actions"`
}

type HistoryResponse struct {
	Actions []history.Action `json:"actions"`
	Cursor  int              `json:"cursor"`
}

type UndoRedoResponse struct {
	Moved bool                       `json:"moved"`
	State *history.MaterializedState `json:"state"`
}

type PresetsResponse struct {
	Presets []filters.Preset `json:"presets"`
}

type LUTsResponse struct {
	LUTs []filters.LUT `json:"luts"`
}

type JobResponse struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Status      string `json:"status"`
	Stage       string `json:"stage,omitempty"`
	Progress    int    `json:"progress"`
	Resolution  string `json:"resolution"`
	Aspect      string `json:"aspect"`
	Attempts    int    `json:"attempts"`
	FailureKind string `json:"failure_kind,omitempty"`
	Error       string `json:"error,omitempty"`
	HasArtifact bool   `json:"has_artifact"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type CancelResponse struct {
	Canceled bool `json:"canceled"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func JobToResponse(j *jobs.ExportJob) JobResponse {
	return JobResponse{
		ID:          j.ID,
		ProjectID:   j.ProjectID,
		Status:      j.Status,
		Stage:       j.Stage,
		Progress:    j.Progress,
		Resolution:  j.Resolution,
		Aspect:      j.Aspect,
		Attempts:    j.Attempts,
		FailureKind: j.FailureKind,
		Error:       j.Error,
		HasArtifact: j.OutputPath != "",
		CreatedAt:   j.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   j.UpdatedAt.Format(time.RFC3339),
	}
}
