package pipeline

import (
	"fmt"

	"pixelforge/stage"
)

// Error wraps a request failure with the stage and lifecycle state it
// happened in. Stage is empty for failures outside stage execution (decode,
// encode, persist, admission). Unwrap exposes the underlying cause so
// callers can classify with errors.Is against the package sentinels
// (imaging.ErrDecode, inference.ErrModelNotFound, context.Canceled, ...).
type Error struct {
	Stage stage.Kind // failing stage, or "" for a phase failure
	State State      // lifecycle state the request had reached
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("pipeline: stage %s failed (after %s): %v", e.Stage, e.State, e.Err)
	}
	return fmt.Sprintf("pipeline: failed (after %s): %v", e.State, e.Err)
}

// Unwrap returns the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}
