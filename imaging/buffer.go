package imaging

import "fmt"

// ImageBuffer is the atom every pipeline stage consumes and produces:
// an 8-bit interleaved, row-major pixel rectangle.
//
// Channel order is fixed: RGB for 3 channels, RGBA for 4, a single gray
// channel for 1. Conversions from other layouts happen only at the
// decode/encode boundary (codec.go); stage code may rely on this order.
//
// Invariants (checked by Validate):
//   - Width >= 1, Height >= 1
//   - Channels is 1, 3 or 4
//   - len(Pix) == Width * Height * Channels
//
// Buffers are exclusively owned by the request that allocated them; stages
// return fresh buffers rather than mutating their input.
type ImageBuffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// NewBuffer allocates a zeroed buffer with the given geometry.
// Returns ErrInvalidBuffer if the geometry violates the type invariants.
func NewBuffer(width, height, channels int) (*ImageBuffer, error) {
	b := &ImageBuffer{
		Width:    width,
		Height:   height,
		Channels: channels,
	}
	if err := b.validateGeometry(); err != nil {
		return nil, err
	}
	b.Pix = make([]uint8, width*height*channels)
	return b, nil
}

// Validate checks the buffer against the type invariants.
// Returns an error wrapping ErrInvalidBuffer describing the first violation.
func (b *ImageBuffer) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil buffer", ErrInvalidBuffer)
	}
	if err := b.validateGeometry(); err != nil {
		return err
	}
	if want := b.Width * b.Height * b.Channels; len(b.Pix) != want {
		return fmt.Errorf("%w: pixel slice length %d, want %d", ErrInvalidBuffer, len(b.Pix), want)
	}
	return nil
}

// validateGeometry checks dimensions and channel count only.
func (b *ImageBuffer) validateGeometry() error {
	if b.Width < 1 || b.Height < 1 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidBuffer, b.Width, b.Height)
	}
	if b.Channels != 1 && b.Channels != 3 && b.Channels != 4 {
		return fmt.Errorf("%w: %d channels, want 1, 3 or 4", ErrInvalidBuffer, b.Channels)
	}
	return nil
}

// Clone returns a deep copy sharing no pixel storage with the receiver.
func (b *ImageBuffer) Clone() *ImageBuffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &ImageBuffer{
		Width:    b.Width,
		Height:   b.Height,
		Channels: b.Channels,
		Pix:      pix,
	}
}

// Stride returns the byte width of one pixel row.
func (b *ImageBuffer) Stride() int {
	return b.Width * b.Channels
}

// Offset returns the index of pixel (x, y) in Pix.
// Coordinates are not bounds-checked.
func (b *ImageBuffer) Offset(x, y int) int {
	return (y*b.Width + x) * b.Channels
}

// ColorChannels returns the number of color channels, excluding alpha.
// Filters operate on color channels and pass alpha through untouched.
func (b *ImageBuffer) ColorChannels() int {
	if b.Channels == 4 {
		return 3
	}
	return b.Channels
}
