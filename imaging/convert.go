package imaging

import (
	"fmt"
	"image"
	"image/color"
)

// FromImage converts a decoded image.Image into an ImageBuffer.
//
// Channel mapping:
//   - *image.Gray stays a 1-channel buffer
//   - images with any non-opaque pixel become 4-channel RGBA
//   - everything else becomes 3-channel RGB
//
// Color values are extracted non-premultiplied so a later alpha edit
// (background removal) does not distort the underlying color.
// This is a pure function with no side effects.
func FromImage(img image.Image) *ImageBuffer {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	// Grayscale keeps its single channel
	if gray, ok := img.(*image.Gray); ok {
		buf := &ImageBuffer{Width: width, Height: height, Channels: 1}
		buf.Pix = make([]uint8, width*height)
		for y := 0; y < height; y++ {
			srcOff := gray.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(buf.Pix[y*width:(y+1)*width], gray.Pix[srcOff:srcOff+width])
		}
		return buf
	}

	channels := 3
	if hasTransparency(img) {
		channels = 4
	}

	buf := &ImageBuffer{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			buf.Pix[i+0] = c.R
			buf.Pix[i+1] = c.G
			buf.Pix[i+2] = c.B
			if channels == 4 {
				buf.Pix[i+3] = c.A
			}
			i += channels
		}
	}

	return buf
}

// hasTransparency reports whether any pixel is non-opaque.
func hasTransparency(img image.Image) bool {
	// Opaque images answer without a pixel scan
	if opaquer, ok := img.(interface{ Opaque() bool }); ok {
		return !opaquer.Opaque()
	}

	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return true
			}
		}
	}
	return false
}

// ToImage converts an ImageBuffer back into an image.Image for encoding
// or interpolation. 1-channel buffers become *image.Gray, 3- and 4-channel
// buffers become *image.NRGBA (3-channel with fully opaque alpha).
// This is a pure function with no side effects.
func ToImage(buf *ImageBuffer) (image.Image, error) {
	if err := buf.Validate(); err != nil {
		return nil, err
	}

	switch buf.Channels {
	case 1:
		img := image.NewGray(image.Rect(0, 0, buf.Width, buf.Height))
		for y := 0; y < buf.Height; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+buf.Width], buf.Pix[y*buf.Width:])
		}
		return img, nil

	case 3:
		img := image.NewNRGBA(image.Rect(0, 0, buf.Width, buf.Height))
		si := 0
		for di := 0; di < len(img.Pix); di += 4 {
			img.Pix[di+0] = buf.Pix[si+0]
			img.Pix[di+1] = buf.Pix[si+1]
			img.Pix[di+2] = buf.Pix[si+2]
			img.Pix[di+3] = 0xff
			si += 3
		}
		return img, nil

	case 4:
		img := image.NewNRGBA(image.Rect(0, 0, buf.Width, buf.Height))
		copy(img.Pix, buf.Pix)
		return img, nil

	default:
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidBuffer, buf.Channels)
	}
}
