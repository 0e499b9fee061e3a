package studio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/cliplab/cliplab-agent/internal/compile"
	"github.com/cliplab/cliplab-agent/internal/jobs"
	"github.com/cliplab/cliplab-agent/internal/render"
)

// Export compiles the project's current state and starts an asynchronous
// render, returning the tracked job row immediately. Compile-time validation
// failures still produce a job row so the client has something to poll, but
// the job is terminal before the engine is ever touched.
func (s *Service) Export(ctx context.Context, projectID string, req ExportRequest) (*jobs.ExportJob, error) {
	s.mu.Lock()
	p, ok := s.projects[projectID]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("project %s not found", projectID)
	}

	if req.Resolution == "" {
		req.Resolution = "1080p"
	}
	if req.Aspect == "" {
		req.Aspect = "16:9"
	}

	now := time.Now()
	job := &jobs.ExportJob{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		Status:     jobs.StatusPending,
		Resolution: req.Resolution,
		Aspect:     req.Aspect,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("cannot record export job: %w", err)
	}

	state := p.ledger.Materialize()
	compileReq := compile.Request{
		State: state,
		Source: compile.Source{
			Width:    p.info.Width,
			Height:   p.info.Height,
			Duration: p.info.Duration,
		},
		Target: compile.Target{
			Resolution: req.Resolution,
			Aspect:     req.Aspect,
		},
	}
	for _, a := range req.Audio {
		compileReq.Audio = append(compileReq.Audio, a.Track)
	}

	instructions, err := compile.Compile(compileReq)
	if err != nil {
		classified := render.Invalid(err)
		s.failJob(job.ID, classified)
		return s.repo.Get(ctx, job.ID)
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[job.ID] = cancel
	s.mu.Unlock()

	go s.runExport(jobCtx, job.ID, p.info.SourcePath, req.Audio, instructions)

	s.logger.Info("export job started", "job_id", job.ID,
		"project_id", projectID, "instructions", len(instructions))
	return job, nil
}

// clearCancel drops the job's cancel handle. Runs before the terminal
// status write so a finished job can never report a successful cancel.
func (s *Service) clearCancel(jobID string) {
	s.mu.Lock()
	delete(s.cancels, jobID)
	s.mu.Unlock()
}

func (s *Service) runExport(ctx context.Context, jobID, sourcePath string, audio []AudioSpec, instructions []compile.Instruction) {
	bg := context.Background()

	input, err := os.ReadFile(sourcePath)
	if err != nil {
		s.clearCancel(jobID)
		s.failJob(jobID, render.Invalid(fmt.Errorf("cannot read source: %w", err)))
		return
	}

	tracks := map[string][]byte{}
	for _, a := range audio {
		data, err := os.ReadFile(a.Path)
		if err != nil {
			s.clearCancel(jobID)
			s.failJob(jobID, render.Invalid(fmt.Errorf("cannot read audio track %s: %w", a.Track.ID, err)))
			return
		}
		tracks[a.Track.ID] = data
	}

	s.repo.UpdateStatus(bg, jobID, jobs.StatusRunning, "", "")

	result, err := s.orch.Render(ctx, render.Request{
		Input:        input,
		OutputExt:    filepath.Ext(sourcePath),
		Tracks:       tracks,
		Instructions: instructions,
		OnProgress: func(state render.State, pct float64) {
			s.repo.UpdateProgress(bg, jobID, int(pct), string(state))
		},
	})
	s.clearCancel(jobID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.repo.UpdateStatus(bg, jobID, jobs.StatusCanceled, "", "canceled by user")
			s.logger.Info("export job canceled", "job_id", jobID)
			return
		}
		s.failJob(jobID, err)
		return
	}

	outPath := filepath.Join(s.outputDir, jobID+filepath.Ext(sourcePath))
	if err := os.MkdirAll(s.outputDir, 0755); err == nil {
		err = os.WriteFile(outPath, result.Output, 0644)
	}
	if err != nil {
		s.failJob(jobID, fmt.Errorf("cannot persist output: %w", err))
		return
	}

	s.repo.UpdateAttempts(bg, jobID, result.Attempts)
	s.repo.SetOutputPath(bg, jobID, outPath)
	s.repo.UpdateProgress(bg, jobID, 100, string(render.StateSucceeded))
	s.repo.UpdateStatus(bg, jobID, jobs.StatusCompleted, "", "")
	s.logger.Info("export job completed", "job_id", jobID,
		"output", filepath.Base(outPath), "attempts", result.Attempts)
}

func (s *Service) failJob(jobID string, err error) {
	kind := string(render.KindOf(err))
	s.repo.UpdateStatus(context.Background(), jobID, jobs.StatusFailed, kind, err.Error())
	s.logger.Warn("export job failed", "job_id", jobID, "kind", kind, "error", err)
}

// CancelExport stops a running export. Canceling a job that already reached
// a terminal state reports false.
func (s *Service) CancelExport(jobID string) bool {
	s.mu.Lock()
	cancel, ok := s.cancels[jobID]
	s.mu.Unlock()
	if !ok {
		return false
	}
	cancel()
	return true
}

// ExportJob returns the tracked row for one export.
func (s *Service) ExportJob(ctx context.Context, jobID string) (*jobs.ExportJob, error) {
	return s.repo.Get(ctx, jobID)
}

// ExportJobs lists recent exports, optionally scoped to one project.
func (s *Service) ExportJobs(ctx context.Context, projectID string, limit int) ([]*jobs.ExportJob, error) {
	if projectID != "" {
		return s.repo.ListByProject(ctx, projectID)
	}
	return s.repo.List(ctx, limit)
}
