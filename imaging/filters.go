package imaging

import "fmt"

// DenoiseThreshold is the fixed range gate for edge-preserving denoise:
// neighbors further than this from the center pixel are excluded from the
// smoothing mean, which keeps hard edges hard.
const DenoiseThreshold = 24

// gaussianRow is the binomial approximation of a sigma~1 Gaussian.
// The 5x5 kernel is its outer product; weights sum to 256.
var gaussianRow = [5]int{1, 4, 6, 4, 1}

// DenoiseEdgePreserving smooths noise with a 3x3 range-thresholded
// neighborhood mean: for each color channel, the output is the mean of the
// neighbors (center included) whose value lies within threshold of the
// center. A flat region averages to itself, so uniform buffers pass through
// unchanged; across an edge the far side is excluded, so edges stay sharp.
//
// Alpha is copied untouched. Borders replicate the nearest edge pixel.
// Returns a fresh buffer.
func DenoiseEdgePreserving(buf *ImageBuffer, threshold uint8) (*ImageBuffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	out := buf.Clone()
	colors := buf.ColorChannels()
	thr := int(threshold)

	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			base := buf.Offset(x, y)
			for c := 0; c < colors; c++ {
				center := int(buf.Pix[base+c])
				sum, count := 0, 0
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx := clampCoord(x+dx, buf.Width)
						ny := clampCoord(y+dy, buf.Height)
						v := int(buf.Pix[buf.Offset(nx, ny)+c])
						if abs(v-center) <= thr {
							sum += v
							count++
						}
					}
				}
				// Center always matches itself, so count >= 1
				out.Pix[base+c] = uint8((sum + count/2) / count)
			}
		}
	}

	return out, nil
}

// GaussianBlur5 applies the fixed 5x5 binomial Gaussian (sigma~1) to the
// color channels. Weights sum to a power of two, so a uniform buffer blurs
// to itself exactly. Alpha is copied untouched; borders replicate.
// Returns a fresh buffer.
func GaussianBlur5(buf *ImageBuffer) (*ImageBuffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	out := buf.Clone()
	colors := buf.ColorChannels()

	for y := 0; y < buf.Height; y++ {
		for x := 0; x < buf.Width; x++ {
			base := buf.Offset(x, y)
			for c := 0; c < colors; c++ {
				acc := 0
				for ky := 0; ky < 5; ky++ {
					ny := clampCoord(y+ky-2, buf.Height)
					for kx := 0; kx < 5; kx++ {
						nx := clampCoord(x+kx-2, buf.Width)
						w := gaussianRow[ky] * gaussianRow[kx]
						acc += w * int(buf.Pix[buf.Offset(nx, ny)+c])
					}
				}
				out.Pix[base+c] = uint8((acc + 128) >> 8)
			}
		}
	}

	return out, nil
}

// UnsharpCombine produces the sharpened result of an unsharp mask:
//
//	out = denoised + amount*(denoised - blurred)
//
// clamped to [0,255] per color channel. With amount 0.3 this is the
// 1.3/-0.3 linear combination of the classic unsharp weights. When
// denoised and blurred are equal (uniform input) the output equals the
// input exactly. Alpha is taken from the denoised buffer.
func UnsharpCombine(denoised, blurred *ImageBuffer, amount float64) (*ImageBuffer, error) {
	if err := denoised.Validate(); err != nil {
		return nil, err
	}
	if err := blurred.Validate(); err != nil {
		return nil, err
	}
	if denoised.Width != blurred.Width || denoised.Height != blurred.Height ||
		denoised.Channels != blurred.Channels {
		return nil, fmt.Errorf("%w: combine shapes %dx%dx%d and %dx%dx%d",
			ErrInvalidBuffer,
			denoised.Width, denoised.Height, denoised.Channels,
			blurred.Width, blurred.Height, blurred.Channels)
	}

	out := denoised.Clone()
	colors := denoised.ColorChannels()
	n := denoised.Width * denoised.Height

	for i := 0; i < n; i++ {
		base := i * denoised.Channels
		for c := 0; c < colors; c++ {
			d := float64(denoised.Pix[base+c])
			b := float64(blurred.Pix[base+c])
			out.Pix[base+c] = clampToByte(d + amount*(d-b))
		}
	}

	return out, nil
}

// clampCoord clamps v into [0, size-1], replicating the border.
func clampCoord(v, size int) int {
	if v < 0 {
		return 0
	}
	if v >= size {
		return size - 1
	}
	return v
}

// clampToByte rounds to nearest and clamps into [0, 255].
func clampToByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// abs returns the absolute value of an int.
func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
