// Package inference loads binary weight files and executes them in pure Go.
// It provides the Model atom (immutable loaded weights), the weight file
// codec, and the Registry organism that caches models per (kind, path).
package inference

import "errors"

// Sentinel errors for model loading and execution.
// These are domain-specific errors that provide clear failure modes.
var (
	// Model load errors: operational misconfiguration, fatal to requests
	// needing the model until the file on disk is fixed
	ErrModelNotFound = errors.New("inference: model file not found")
	ErrModelInvalid  = errors.New("inference: model file is invalid")

	// Inference errors: per-request failures, never fatal to the process
	ErrUnsupportedShape = errors.New("inference: unsupported input shape")
	ErrKindMismatch     = errors.New("inference: model kind mismatch")
)
