// Package studio is the editing service: it owns the per-project edit
// ledgers, renders previews through the raster kernel, and turns a
// materialized edit state into a tracked export job.
package studio

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cliplab/cliplab-agent/internal/engine"
	"github.com/cliplab/cliplab-agent/internal/filters"
	"github.com/cliplab/cliplab-agent/internal/history"
	"github.com/cliplab/cliplab-agent/internal/jobs"
	"github.com/cliplab/cliplab-agent/internal/raster"
	"github.com/cliplab/cliplab-agent/internal/render"
)

const previewJPEGQuality = 80

// Project is one open clip with its edit ledger. Projects live in memory
// only; closing the agent discards them.
type Project struct {
	ID         string    `json:"id"`
	SourcePath string    `json:"source_path"`
	Width      int       `json:"width,omitempty"`
	Height     int       `json:"height,omitempty"`
	Duration   float64   `json:"duration,omitempty"`
	HasAudio   bool      `json:"has_audio,omitempty"`
	OpenedAt   time.Time `json:"opened_at"`
}

type projectState struct {
	info   Project
	ledger *history.Ledger
}

// AudioSpec pairs an audio mix entry with the file backing it. The track ID
// doubles as the staged name the compiled instruction list refers to.
type AudioSpec struct {
	Track history.AudioTrack `json:"track"`
	Path  string             `json:"path"`
}

// ExportRequest selects the output target for a project export.
type ExportRequest struct {
	Resolution string      `json:"resolution"`
	Aspect     string      `json:"aspect"`
	Audio      []AudioSpec `json:"audio,omitempty"`
}

// Service wires ledgers, kernel, compiler and orchestrator together.
type Service struct {
	engine    engine.Engine
	orch      *render.Orchestrator
	repo      jobs.Repository
	logger    *slog.Logger
	outputDir string

	mu       sync.Mutex
	projects map[string]*projectState
	cancels  map[string]context.CancelFunc // by export job ID
}

func NewService(eng engine.Engine, orch *render.Orchestrator, repo jobs.Repository, outputDir string, logger *slog.Logger) *Service {
	return &Service{
		engine:    eng,
		orch:      orch,
		repo:      repo,
		logger:    logger,
		outputDir: outputDir,
		projects:  map[string]*projectState{},
		cancels:   map[string]context.CancelFunc{},
	}
}

// OpenProject loads a clip from disk and probes its dimensions. Probing is
// best-effort: a project still opens when the engine is unavailable, it just
// carries no source metadata until export.
func (s *Service) OpenProject(ctx context.Context, path string) (*Project, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	if _, err := os.Stat(absPath); err != nil {
		return nil, fmt.Errorf("source does not exist: %w", err)
	}

	p := &projectState{
		info: Project{
			ID:         uuid.NewString(),
			SourcePath: absPath,
			OpenedAt:   time.Now(),
		},
		ledger: history.NewLedger(),
	}

	if probe, err := s.probeSource(ctx, absPath); err != nil {
		s.logger.Warn("source probe failed, continuing without metadata",
			"project_id", p.info.ID, "error", err)
	} else {
		p.info.Width = probe.Width
		p.info.Height = probe.Height
		p.info.Duration = probe.Duration
		p.info.HasAudio = probe.HasAudio
	}

	s.mu.Lock()
	s.projects[p.info.ID] = p
	s.mu.Unlock()

	s.logger.Info("project opened", "project_id", p.info.ID,
		"width", p.info.Width, "height", p.info.Height, "duration", p.info.Duration)
	return &p.info, nil
}

func (s *Service) probeSource(ctx context.Context, path string) (*engine.ProbeResult, error) {
	if err := s.engine.Init(ctx); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := "probe-" + uuid.NewString() + filepath.Ext(path)
	if err := s.engine.WriteInput(name, data); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.engine.Remove(name); err != nil {
			s.logger.Warn("probe cleanup failed", "name", name, "error", err)
		}
	}()
	return s.engine.Probe(ctx, name)
}

func (s *Service) CloseProject(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return false
	}
	delete(s.projects, id)
	return true
}

func (s *Service) Project(id string) (*Project, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, false
	}
	info := p.info
	return &info, true
}

func (s *Service) Projects() []*Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Project, 0, len(s.projects))
	for _, p := range s.projects {
		info := p.info
		out = append(out, &info)
	}
	return out
}

func (s *Service) ledgerFor(id string) (*history.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s not found", id)
	}
	return p.ledger, nil
}

// Apply appends an edit action to the project's ledger, discarding any
// undone tail.
func (s *Service) Apply(projectID string, action history.Action) (*history.MaterializedState, error) {
	ledger, err := s.ledgerFor(projectID)
	if err != nil {
		return nil, err
	}
	ledger.Append(action)
	s.logger.Info("action applied", "project_id", projectID, "kind", string(action.Kind))
	state := ledger.Materialize()
	return &state, nil
}

func (s *Service) Undo(projectID string) (*history.MaterializedState, bool, error) {
	ledger, err := s.ledgerFor(projectID)
	if err != nil {
		return nil, false, err
	}
	moved := ledger.Undo()
	state := ledger.Materialize()
	return &state, moved, nil
}

func (s *Service) Redo(projectID string) (*history.MaterializedState, bool, error) {
	ledger, err := s.ledgerFor(projectID)
	if err != nil {
		return nil, false, err
	}
	moved := ledger.Redo()
	state := ledger.Materialize()
	return &state, moved, nil
}

func (s *Service) State(projectID string) (*history.MaterializedState, error) {
	ledger, err := s.ledgerFor(projectID)
	if err != nil {
		return nil, err
	}
	state := ledger.Materialize()
	return &state, nil
}

func (s *Service) History(projectID string) ([]history.Action, int, error) {
	ledger, err := s.ledgerFor(projectID)
	if err != nil {
		return nil, 0, err
	}
	return ledger.Actions(), ledger.Cursor(), nil
}

// Preview grades one frame through the project's current filter state and
// returns it as JPEG, downscaled to fit the given bounds. An identity filter
// state passes pixels through untouched apart from the resize.
func (s *Service) Preview(projectID string, frame []byte, maxW, maxH int) ([]byte, error) {
	state, err := s.State(projectID)
	if err != nil {
		return nil, err
	}
	return GradeFrame(frame, state.Filters, maxW, maxH)
}

// GradeFrame decodes an image, shrinks it to the preview bounds, applies the
// color pipeline and re-encodes. Shrinking first keeps the per-pixel work
// proportional to the preview size, not the source size.
func GradeFrame(data []byte, bundle filters.Bundle, maxW, maxH int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("cannot decode preview frame: %w", err)
	}

	frame := raster.FromImage(img)
	if maxW > 0 && maxH > 0 {
		frame = raster.PreviewFrame(frame, maxW, maxH)
	}
	frame = raster.ApplyFilters(frame, filters.ApplyLUT(bundle, bundle.LUT, bundle.LUTIntensity))

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame.ToImage(), &jpeg.Options{Quality: previewJPEGQuality}); err != nil {
		return nil, fmt.Errorf("cannot encode preview frame: %w", err)
	}
	return buf.Bytes(), nil
}
