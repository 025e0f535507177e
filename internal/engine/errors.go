package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a misuse of the engine, as opposed to a batch
// that failed. Failed batches are reported as data in Result.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// TurnID identifies the affected turn, if any.
	TurnID string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeNoWorld indicates an engine was built or reset without a world.
	ErrCodeNoWorld RuntimeErrorCode = "NO_WORLD"

	// ErrCodeInvalidWorld indicates a reset to a world that breaks
	// invariants.
	ErrCodeInvalidWorld RuntimeErrorCode = "INVALID_WORLD"

	// ErrCodeReplayDiverged indicates a replayed turn did not reproduce
	// the recorded outcome.
	ErrCodeReplayDiverged RuntimeErrorCode = "REPLAY_DIVERGED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.TurnID != "" {
		return fmt.Sprintf("%s: %s (turn=%s)", e.Code, e.Message, e.TurnID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HasCode returns true if err is a RuntimeError with the given code.
// Uses errors.As to handle wrapped errors.
func HasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsReplayDiverged returns true if err reports a replay mismatch.
func IsReplayDiverged(err error) bool {
	return HasCode(err, ErrCodeReplayDiverged)
}

func newRuntimeError(code RuntimeErrorCode, turnID, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, TurnID: turnID, Message: fmt.Sprintf(format, args...)}
}
