package inference

import (
	"fmt"

	"pixelforge/imaging"
)

// Upscale magnifies a buffer by the model's fixed integer factor: a bilinear
// base upsample followed by the model's learned refinement kernel, applied
// per color channel and clamped. Alpha is carried from the base upsample
// untouched.
//
// Fails with ErrKindMismatch when the model is not a super-resolution model
// and ErrUnsupportedShape when the input is invalid or exceeds the model's
// dimension limit.
func (m *Model) Upscale(buf *imaging.ImageBuffer) (*imaging.ImageBuffer, error) {
	if m.header.Kind != KindSuperResolution {
		return nil, fmt.Errorf("%w: %s model cannot upscale", ErrKindMismatch, m.header.Kind)
	}
	if err := m.checkShape(buf, 1); err != nil {
		return nil, err
	}

	base, err := imaging.ScaleBilinear(buf, buf.Width*m.header.Scale, buf.Height*m.header.Scale)
	if err != nil {
		return nil, fmt.Errorf("%w: base upsample: %v", ErrUnsupportedShape, err)
	}

	return m.refine(base), nil
}

// refine convolves the learned kernel over the color channels of base.
// Borders replicate the nearest edge pixel.
func (m *Model) refine(base *imaging.ImageBuffer) *imaging.ImageBuffer {
	out := base.Clone()
	k := m.header.Kernel
	radius := k / 2
	colors := base.ColorChannels()

	for y := 0; y < base.Height; y++ {
		for x := 0; x < base.Width; x++ {
			off := base.Offset(x, y)
			for c := 0; c < colors; c++ {
				var acc float32
				for ky := 0; ky < k; ky++ {
					ny := clampIndex(y+ky-radius, base.Height)
					for kx := 0; kx < k; kx++ {
						nx := clampIndex(x+kx-radius, base.Width)
						w := m.weights[ky*k+kx]
						acc += w * float32(base.Pix[base.Offset(nx, ny)+c])
					}
				}
				out.Pix[off+c] = clampWeight(acc)
			}
		}
	}

	return out
}

// clampIndex clamps v into [0, size-1].
func clampIndex(v, size int) int {
	if v < 0 {
		return 0
	}
	if v >= size {
		return size - 1
	}
	return v
}

// clampWeight rounds a float32 accumulator to the nearest byte in [0, 255].
func clampWeight(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
