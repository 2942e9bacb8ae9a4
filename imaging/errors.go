// Package imaging provides the pixel buffer type shared by all pipeline
// stages, plus the decode/encode boundary and the deterministic filters.
package imaging

import "errors"

// Sentinel errors for imaging operations.
// These are domain-specific errors that provide clear failure modes.
var (
	// Codec errors
	ErrDecode = errors.New("imaging: undecodable image data")
	ErrEncode = errors.New("imaging: image encoding failed")

	// Buffer validation errors
	ErrInvalidBuffer = errors.New("imaging: invalid image buffer")
)
