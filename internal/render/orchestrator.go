// Package render drives the external engine through a full export job:
// initialization, input staging, command execution, progress estimation,
// timeout enforcement, bounded retries and resource cleanup.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cliplab/cliplab-agent/internal/compile"
	"github.com/cliplab/cliplab-agent/internal/engine"
)

// State is the orchestrator's lifecycle position, reported on /status and
// through progress callbacks.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateSubmitting    State = "submitting"
	StateRunning       State = "running"
	StateSucceeded     State = "succeeded"
	StateFailed        State = "failed"
	StateTimedOut      State = "timed_out"
)

// ProgressFunc receives state transitions and estimated completion percent.
type ProgressFunc func(state State, percent float64)

// Config holds the orchestrator's tuning knobs.
type Config struct {
	InitTimeout      time.Duration
	BaseTimeout      time.Duration // per-attempt floor
	PerInstruction   time.Duration // added per compiled instruction
	MaxTimeout       time.Duration // per-attempt ceiling
	MaxRetries       int           // retries after the first attempt
	ProgressInterval time.Duration
	Logger           *slog.Logger
}

// DefaultConfig returns production-ready defaults.
func DefaultConfig(logger *slog.Logger) Config {
	return Config{
		InitTimeout:      30 * time.Second,
		BaseTimeout:      2 * time.Minute,
		PerInstruction:   30 * time.Second,
		MaxTimeout:       10 * time.Minute,
		MaxRetries:       2,
		ProgressInterval: 500 * time.Millisecond,
		Logger:           logger,
	}
}

// Orchestrator serializes export jobs against a single engine instance.
// A successfully initialized engine is reused across jobs; only one job
// runs at a time.
type Orchestrator struct {
	engine engine.Engine
	cfg    Config

	jobMu  sync.Mutex // one running job at a time
	initMu sync.Mutex

	stateMu sync.Mutex
	state   State
}

func New(eng engine.Engine, cfg Config) *Orchestrator {
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 500 * time.Millisecond
	}
	return &Orchestrator{engine: eng, cfg: cfg, state: StateUninitialized}
}

// State returns the most recent lifecycle position.
func (o *Orchestrator) State() State {
	o.stateMu.Lock()
	defer o.stateMu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.stateMu.Lock()
	o.state = s
	o.stateMu.Unlock()
	o.cfg.Logger.Debug("orchestrator state", "state", string(s))
}

// Request is one export job: raw input bytes, any extra audio tracks keyed
// by the staged name the instruction list refers to, and the compiled
// instruction list.
type Request struct {
	Input        []byte
	OutputExt    string // defaults to ".mp4"
	Tracks       map[string][]byte
	Instructions []compile.Instruction
	OnProgress   ProgressFunc
}

// Result is a successful render.
type Result struct {
	Output   []byte
	Attempts int
	Duration time.Duration
	Warnings []string // non-fatal cleanup problems
}

// Render runs one job to a terminal state. Validation failures return before
// any engine interaction; transient failures are retried up to the
// configured bound with re-initialization when the engine looks unhealthy.
// Cleanup of staged resources is best-effort and never masks the primary
// outcome.
func (o *Orchestrator) Render(ctx context.Context, req Request) (*Result, error) {
	if len(req.Input) == 0 {
		return nil, Invalid(errors.New("no input bytes"))
	}
	if req.OutputExt == "" {
		req.OutputExt = ".mp4"
	}

	o.jobMu.Lock()
	defer o.jobMu.Unlock()

	start := time.Now()
	maxAttempts := o.cfg.MaxRetries + 1
	var warnings []string
	var lastErr *Error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := o.ensureReady(ctx, req.OnProgress); err != nil {
			lastErr = err
		} else {
			out, err := o.runOnce(ctx, req, &warnings)
			if err == nil {
				o.setState(StateSucceeded)
				o.cfg.Logger.Info("render job succeeded",
					"attempts", attempt,
					"duration_ms", time.Since(start).Milliseconds(),
					"output_bytes", len(out),
				)
				return &Result{
					Output:   out,
					Attempts: attempt,
					Duration: time.Since(start),
					Warnings: warnings,
				}, nil
			}
			if ctx.Err() != nil && errors.Is(err, context.Canceled) {
				// Caller cancellation: cleanup already ran, just surface it.
				o.setState(StateFailed)
				return nil, fmt.Errorf("render canceled: %w", ctx.Err())
			}
			lastErr = asError(err)
		}

		o.cfg.Logger.Warn("render attempt failed",
			"attempt", attempt,
			"kind", string(lastErr.Kind),
			"error", lastErr.Err,
		)
		if !retryable(lastErr.Kind) || attempt == maxAttempts {
			break
		}
	}

	terminal := StateFailed
	if lastErr.Kind == KindTimedOut {
		terminal = StateTimedOut
	}
	o.setState(terminal)
	return nil, lastErr
}

// ensureReady initializes the engine once and reuses it until it reports
// unhealthy.
func (o *Orchestrator) ensureReady(ctx context.Context, progress ProgressFunc) *Error {
	o.initMu.Lock()
	defer o.initMu.Unlock()

	if o.engine.Healthy() {
		return nil
	}

	o.setState(StateInitializing)
	emit(progress, StateInitializing, 0)

	initCtx, cancel := context.WithTimeout(ctx, o.cfg.InitTimeout)
	defer cancel()
	if err := o.engine.Init(initCtx); err != nil {
		return failf(KindInitializationFailed, "engine init: %w", err)
	}

	o.setState(StateReady)
	emit(progress, StateReady, 0)
	return nil
}

func (o *Orchestrator) runOnce(ctx context.Context, req Request, warnings *[]string) ([]byte, error) {
	jobID := uuid.NewString()
	inName := "in-" + jobID + req.OutputExt
	outName := "out-" + jobID + req.OutputExt

	var cleanupOnce sync.Once
	cleanup := func() {
		cleanupOnce.Do(func() {
			names := []string{inName, outName}
			for track := range req.Tracks {
				names = append(names, track)
			}
			for _, name := range names {
				if err := o.engine.Remove(name); err != nil {
					warn := failf(KindCleanupWarning, "remove %s: %w", name, err)
					o.cfg.Logger.Warn("cleanup warning", "error", warn.Err)
					*warnings = append(*warnings, warn.Error())
				}
			}
		})
	}
	defer cleanup()

	o.setState(StateSubmitting)
	emit(req.OnProgress, StateSubmitting, 0)

	if err := o.engine.WriteInput(inName, req.Input); err != nil {
		return nil, failf(KindInitializationFailed, "stage input: %w", err)
	}
	for name, data := range req.Tracks {
		if err := o.engine.WriteInput(name, data); err != nil {
			return nil, failf(KindInitializationFailed, "stage track %s: %w", name, err)
		}
	}

	timeout := o.cfg.BaseTimeout + o.cfg.PerInstruction*time.Duration(len(req.Instructions))
	if timeout > o.cfg.MaxTimeout {
		timeout = o.cfg.MaxTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	o.setState(StateRunning)
	est := NewEstimator(len(req.Instructions))

	tickerDone := make(chan struct{})
	defer close(tickerDone)
	go func() {
		ticker := time.NewTicker(o.cfg.ProgressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-tickerDone:
				return
			case <-ticker.C:
				emit(req.OnProgress, StateRunning, est.Estimate())
			}
		}
	}()

	// Exec runs in its own goroutine so a command that never resolves still
	// hits the deadline; an abandoned call is left to die with its process.
	execErr := make(chan error, 1)
	go func() {
		execErr <- o.engine.Exec(runCtx, engine.Command{
			InputName:    inName,
			OutputName:   outName,
			Instructions: req.Instructions,
		})
	}()

	var err error
	select {
	case err = <-execErr:
	case <-runCtx.Done():
		err = runCtx.Err()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, failf(KindTimedOut, "engine call exceeded %s deadline", timeout)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, failf(KindEngineExecutionFailed, "engine exec: %w", err)
	}

	out, err := o.engine.ReadOutput(outName)
	if err != nil {
		return nil, failf(KindEngineExecutionFailed, "read output: %w", err)
	}
	if len(out) == 0 {
		return nil, failf(KindEmptyOutput, "engine produced a zero-byte result")
	}

	emit(req.OnProgress, StateSucceeded, 100)
	return out, nil
}

func emit(progress ProgressFunc, state State, pct float64) {
	if progress != nil {
		progress(state, pct)
	}
}

func asError(err error) *Error {
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	return &Error{Kind: KindEngineExecutionFailed, Err: err}
}
