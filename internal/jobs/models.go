// Package jobs persists export-job bookkeeping: status, progress, failure
// classification and the output artifact path. It is run-state accounting
// for the agent, not project storage.
package jobs

import "time"

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// ExportJob is one export request's lifecycle row.
type ExportJob struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Status      string    `json:"status"`
	Stage       string    `json:"stage,omitempty"` // orchestrator state at last update
	Progress    int       `json:"progress"`
	Resolution  string    `json:"resolution"`
	Aspect      string    `json:"aspect"`
	Attempts    int       `json:"attempts"`
	FailureKind string    `json:"failure_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	OutputPath  string    `json:"output_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsTerminal reports whether the job has finished, one way or another.
func (j *ExportJob) IsTerminal() bool {
	switch j.Status {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	}
	return false
}
