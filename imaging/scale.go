package imaging

import (
	"image"

	"golang.org/x/image/draw"
)

// Scale resamples a buffer to exactly width x height using Catmull-Rom
// interpolation, the quality interpolator used for final resize output.
// The channel count is preserved. Returns a fresh buffer.
func Scale(buf *ImageBuffer, width, height int) (*ImageBuffer, error) {
	return scaleWith(buf, width, height, draw.CatmullRom)
}

// ScaleBilinear resamples with bilinear interpolation. Cheaper than
// Catmull-Rom; used as the base upsample under model refinement.
func ScaleBilinear(buf *ImageBuffer, width, height int) (*ImageBuffer, error) {
	return scaleWith(buf, width, height, draw.BiLinear)
}

// ScaleNearest resamples with nearest-neighbor interpolation. Produces
// blocky output; useful as a baseline to compare smarter upscalers against.
func ScaleNearest(buf *ImageBuffer, width, height int) (*ImageBuffer, error) {
	return scaleWith(buf, width, height, draw.NearestNeighbor)
}

// scaleWith converts through image.Image, applies the interpolator, and
// converts back, preserving the buffer's channel count.
func scaleWith(buf *ImageBuffer, width, height int, interp draw.Interpolator) (*ImageBuffer, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}
	probe := ImageBuffer{Width: width, Height: height, Channels: buf.Channels}
	if err := probe.validateGeometry(); err != nil {
		return nil, err
	}

	// Same geometry: copy, no resample
	if width == buf.Width && height == buf.Height {
		return buf.Clone(), nil
	}

	src, err := ToImage(buf)
	if err != nil {
		return nil, err
	}

	rect := image.Rect(0, 0, width, height)
	var dst draw.Image
	if buf.Channels == 1 {
		dst = image.NewGray(rect)
	} else {
		dst = image.NewNRGBA(rect)
	}

	interp.Scale(dst, rect, src, src.Bounds(), draw.Src, nil)

	out := FromImage(dst)

	// FromImage infers channels from content; force the source layout so a
	// scaled RGBA buffer stays RGBA even when every pixel ended up opaque.
	if out.Channels != buf.Channels {
		out = forceChannels(out, buf.Channels)
	}

	return out, nil
}

// forceChannels rewrites a buffer into the requested channel count.
// Only the conversions scaling can produce are supported: widening RGB to
// RGBA (opaque alpha) and narrowing RGBA to RGB (alpha dropped).
func forceChannels(buf *ImageBuffer, channels int) *ImageBuffer {
	if buf.Channels == channels {
		return buf
	}

	out := &ImageBuffer{
		Width:    buf.Width,
		Height:   buf.Height,
		Channels: channels,
		Pix:      make([]uint8, buf.Width*buf.Height*channels),
	}

	n := buf.Width * buf.Height
	for i := 0; i < n; i++ {
		si := i * buf.Channels
		di := i * channels
		switch {
		case buf.Channels == 3 && channels == 4:
			out.Pix[di+0] = buf.Pix[si+0]
			out.Pix[di+1] = buf.Pix[si+1]
			out.Pix[di+2] = buf.Pix[si+2]
			out.Pix[di+3] = 0xff
		case buf.Channels == 4 && channels == 3:
			out.Pix[di+0] = buf.Pix[si+0]
			out.Pix[di+1] = buf.Pix[si+1]
			out.Pix[di+2] = buf.Pix[si+2]
		default:
			// Gray conversions never arise from scaling; keep red channel
			out.Pix[di] = buf.Pix[si]
		}
	}

	return out
}
