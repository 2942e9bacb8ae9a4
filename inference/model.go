package inference

import (
	"fmt"
	"os"

	"pixelforge/imaging"
)

// Model is an immutable loaded weight file. Instances are created by
// LoadModel (usually through the Registry), never mutated afterwards, and
// safe for unlimited concurrent use: Upscale and Segment are read-only on
// the model and allocate fresh output buffers.
type Model struct {
	header  Header
	weights []float32
}

// LoadModel reads and validates the weight file at path.
//
// Failure modes:
//   - ErrModelNotFound: the path does not exist
//   - ErrModelInvalid: the file does not parse as a valid weight file
//   - ErrKindMismatch: the file is valid but holds a different kind of model
//
// Example:
//
//	model, err := inference.LoadModel(inference.KindSuperResolution, "models/sr4x.pfw")
//	if errors.Is(err, inference.ErrModelNotFound) {
//	    // manifest points at a missing file
//	}
func LoadModel(kind Kind, path string) (*Model, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, path)
		}
		return nil, fmt.Errorf("stating model file %s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file %s: %w", path, err)
	}

	h, weights, err := decodeModelFile(data)
	if err != nil {
		return nil, err
	}
	if h.Kind != kind {
		return nil, fmt.Errorf("%w: %s holds a %s model, requested %s",
			ErrKindMismatch, path, h.Kind, kind)
	}

	return &Model{header: h, weights: weights}, nil
}

// Kind returns what the model computes.
func (m *Model) Kind() Kind {
	return m.header.Kind
}

// Scale returns the super-resolution magnification factor (0 for segmentation).
func (m *Model) Scale() int {
	return m.header.Scale
}

// Kernel returns the refinement kernel size (0 for segmentation).
func (m *Model) Kernel() int {
	return m.header.Kernel
}

// MaxDim returns the largest accepted input width or height; 0 means unlimited.
func (m *Model) MaxDim() int {
	return m.header.MaxDim
}

// Header returns a copy of the decoded file header.
func (m *Model) Header() Header {
	return m.header
}

// checkShape gates inference on the buffer's geometry. minChannels is the
// smallest channel count the operation can work with.
func (m *Model) checkShape(buf *imaging.ImageBuffer, minChannels int) error {
	if err := buf.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedShape, err)
	}
	if buf.Channels < minChannels {
		return fmt.Errorf("%w: %d channels, need at least %d",
			ErrUnsupportedShape, buf.Channels, minChannels)
	}
	if max := m.header.MaxDim; max > 0 && (buf.Width > max || buf.Height > max) {
		return fmt.Errorf("%w: %dx%d exceeds model limit %d",
			ErrUnsupportedShape, buf.Width, buf.Height, max)
	}
	return nil
}

// DefaultWeights returns the deterministic development weights genmodel and
// tests bake into fresh weight files.
//
// Super-resolution: a mild kernel-sized sharpen whose taps sum to one, so
// flat regions keep their brightness. Segmentation: equal color weights and
// zero bias, keeping pixels brighter than the image average.
func DefaultWeights(kind Kind, kernel int) []float32 {
	switch kind {
	case KindSuperResolution:
		const strength = 0.05
		n := kernel * kernel
		weights := make([]float32, n)
		for i := range weights {
			weights[i] = -strength
		}
		weights[n/2] = 1 + strength*float32(n-1)
		return weights
	case KindSegmentation:
		third := float32(1.0 / 3.0)
		return []float32{third, third, third, 0}
	default:
		return nil
	}
}
