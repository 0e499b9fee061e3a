package render

import (
	"errors"
	"fmt"
)

// FailureKind classifies a render failure for callers and for the retry
// policy. The string values appear in API responses and job rows.
type FailureKind string

const (
	KindInitializationFailed  FailureKind = "initialization_failed"
	KindInvalidInput          FailureKind = "invalid_input"
	KindEngineExecutionFailed FailureKind = "engine_execution_failed"
	KindTimedOut              FailureKind = "timed_out"
	KindEmptyOutput           FailureKind = "empty_output"
	KindCleanupWarning        FailureKind = "resource_cleanup_warning"
)

// Error carries a failure classification alongside the underlying cause.
type Error struct {
	Kind FailureKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func failf(kind FailureKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Invalid wraps a validation error so it never reaches the engine or the
// retry loop. The export compiler's errors pass through here.
func Invalid(err error) *Error {
	return &Error{Kind: KindInvalidInput, Err: err}
}

// KindOf extracts the failure classification, or empty for non-render errors.
func KindOf(err error) FailureKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}

// retryable reports whether another attempt could plausibly change the
// outcome. Validation failures are deterministic, and an empty output from a
// completed run will stay empty without operator intervention.
func retryable(kind FailureKind) bool {
	switch kind {
	case KindInitializationFailed, KindEngineExecutionFailed, KindTimedOut:
		return true
	default:
		return false
	}
}
