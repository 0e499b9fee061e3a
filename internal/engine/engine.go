// Package engine is the boundary to the external media render engine. The
// engine is a black box: it accepts named virtual files and an ordered
// argument-list command, and hands back output bytes. Everything above this
// package stays engine-agnostic.
package engine

import (
	"context"
	"errors"

	"github.com/cliplab/cliplab-agent/internal/compile"
)

// Command is one render submission: a staged input, the compiled instruction
// list, and the output name to read back.
type Command struct {
	InputName    string
	OutputName   string
	Instructions []compile.Instruction
}

// ProbeResult describes the staged input media.
type ProbeResult struct {
	Width    int
	Height   int
	Duration float64 // seconds
	Codec    string
	HasAudio bool
}

// ErrNotStaged is returned when a named virtual file does not exist in the
// engine's working storage.
var ErrNotStaged = errors.New("engine: named resource not staged")

// Engine is the execution contract the orchestrator drives. Implementations
// may report arbitrary internal errors from Exec; classification into the
// failure taxonomy is the orchestrator's job.
type Engine interface {
	// Init prepares the engine for use. Safe to call again after a failure;
	// implementations cache successful initialization.
	Init(ctx context.Context) error

	// Healthy reports whether the engine looks usable without re-Init.
	Healthy() bool

	// WriteInput stages bytes under a virtual name in working storage.
	WriteInput(name string, data []byte) error

	// Probe inspects a staged input.
	Probe(ctx context.Context, name string) (*ProbeResult, error)

	// Exec runs one command to completion or ctx cancellation.
	Exec(ctx context.Context, cmd Command) error

	// ReadOutput returns the bytes of a named result.
	ReadOutput(name string) ([]byte, error)

	// Remove deletes a staged or produced resource. Removing a name that was
	// never staged is not an error.
	Remove(name string) error
}
