package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"golang.org/x/image/bmp"
)

// createTestImage creates a gradient test image with known pixel values
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: 128, A: 255})
		}
	}
	return img
}

// encodeAs serializes an image with the named stdlib or x/image encoder
func encodeAs(t *testing.T, format string, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	default:
		t.Fatalf("unknown format %q", format)
	}
	if err != nil {
		t.Fatalf("encoding %s: %v", format, err)
	}
	return buf.Bytes()
}

func TestDecode_SupportedFormats(t *testing.T) {
	formats := []string{"png", "jpeg", "gif", "bmp"}
	src := createTestImage(20, 14)

	for _, format := range formats {
		t.Run(format, func(t *testing.T) {
			data := encodeAs(t, format, src)

			buf, gotFormat, err := Decode(data)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}
			if gotFormat != format {
				t.Errorf("Decode() format = %q, want %q", gotFormat, format)
			}
			if buf.Width != 20 || buf.Height != 14 {
				t.Errorf("decoded dims = %dx%d, want 20x14", buf.Width, buf.Height)
			}
			if buf.Channels != 3 {
				t.Errorf("decoded channels = %d, want 3", buf.Channels)
			}
		})
	}
}

// Decoding, re-encoding and decoding again must reproduce identical
// dimensions and channel count for every supported source format.
func TestDecode_EncodeDecode_RoundTrip(t *testing.T) {
	formats := []string{"png", "jpeg", "gif", "bmp"}
	src := createTestImage(33, 21)

	for _, format := range formats {
		t.Run(format, func(t *testing.T) {
			first, _, err := Decode(encodeAs(t, format, src))
			if err != nil {
				t.Fatalf("first Decode() error: %v", err)
			}

			encoded, err := EncodePNG(first)
			if err != nil {
				t.Fatalf("EncodePNG() error: %v", err)
			}

			second, _, err := Decode(encoded)
			if err != nil {
				t.Fatalf("second Decode() error: %v", err)
			}

			if second.Width != first.Width || second.Height != first.Height {
				t.Errorf("round trip dims = %dx%d, want %dx%d",
					second.Width, second.Height, first.Width, first.Height)
			}
			if second.Channels != first.Channels {
				t.Errorf("round trip channels = %d, want %d", second.Channels, first.Channels)
			}

			// PNG is lossless, so the pixels survive exactly
			for i := range first.Pix {
				if second.Pix[i] != first.Pix[i] {
					t.Fatalf("round trip pixel byte %d = %d, want %d", i, second.Pix[i], first.Pix[i])
				}
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty data", data: []byte{}},
		{name: "nil data", data: nil},
		{name: "not an image", data: []byte("definitely not pixels")},
		{name: "truncated png", data: []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decode(tt.data)
			if err == nil {
				t.Fatal("Decode() expected error but got nil")
			}
			if !errors.Is(err, ErrDecode) {
				t.Errorf("Decode() error = %v, want ErrDecode", err)
			}
		})
	}
}

func TestDecode_AlphaChannelMapping(t *testing.T) {
	// Image with a transparent pixel maps to a 4-channel buffer
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	img.SetNRGBA(2, 2, color.NRGBA{R: 200, G: 100, B: 50, A: 0})

	buf, _, err := Decode(encodeAs(t, "png", img))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if buf.Channels != 4 {
		t.Errorf("channels = %d, want 4 for image with transparency", buf.Channels)
	}
	if a := buf.Pix[buf.Offset(2, 2)+3]; a != 0 {
		t.Errorf("alpha at (2,2) = %d, want 0", a)
	}
}

func TestDecode_GrayscalePNG(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 6, 6))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}

	buf, _, err := Decode(encodeAs(t, "png", img))
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if buf.Channels != 1 {
		t.Errorf("channels = %d, want 1 for grayscale PNG", buf.Channels)
	}
}

func TestEncodePNG_InvalidBuffer(t *testing.T) {
	bad := &ImageBuffer{Width: 3, Height: 3, Channels: 3, Pix: make([]uint8, 4)}
	_, err := EncodePNG(bad)
	if !errors.Is(err, ErrEncode) {
		t.Errorf("EncodePNG() error = %v, want ErrEncode", err)
	}
}
