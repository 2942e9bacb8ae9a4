package imaging

import (
	"errors"
	"testing"
)

// uniformBuffer allocates a buffer with every color byte set to value and,
// for 4-channel buffers, alpha set to 255.
func uniformBuffer(t *testing.T, w, h, channels int, value uint8) *ImageBuffer {
	t.Helper()
	buf, err := NewBuffer(w, h, channels)
	if err != nil {
		t.Fatalf("NewBuffer() error: %v", err)
	}
	for i := range buf.Pix {
		if channels == 4 && i%4 == 3 {
			buf.Pix[i] = 255
			continue
		}
		buf.Pix[i] = value
	}
	return buf
}

// assertEqualPixels fails when two buffers differ anywhere.
func assertEqualPixels(t *testing.T, got, want *ImageBuffer) {
	t.Helper()
	if got.Width != want.Width || got.Height != want.Height || got.Channels != want.Channels {
		t.Fatalf("geometry = %dx%dx%d, want %dx%dx%d",
			got.Width, got.Height, got.Channels,
			want.Width, want.Height, want.Channels)
	}
	for i := range want.Pix {
		if got.Pix[i] != want.Pix[i] {
			t.Fatalf("pixel byte %d = %d, want %d", i, got.Pix[i], want.Pix[i])
		}
	}
}

func TestDenoiseEdgePreserving_UniformIsFixedPoint(t *testing.T) {
	buf := uniformBuffer(t, 10, 10, 3, 137)

	out, err := DenoiseEdgePreserving(buf, DenoiseThreshold)
	if err != nil {
		t.Fatalf("DenoiseEdgePreserving() error: %v", err)
	}

	assertEqualPixels(t, out, buf)
}

func TestDenoiseEdgePreserving_PreservesHardEdges(t *testing.T) {
	// Left half 0, right half 255: the 255-step is far above the threshold,
	// so no pixel ever averages across the edge.
	buf, _ := NewBuffer(8, 4, 1)
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			if x >= 4 {
				buf.Pix[buf.Offset(x, y)] = 255
			}
		}
	}

	out, err := DenoiseEdgePreserving(buf, DenoiseThreshold)
	if err != nil {
		t.Fatalf("DenoiseEdgePreserving() error: %v", err)
	}

	assertEqualPixels(t, out, buf)
}

func TestDenoiseEdgePreserving_SmoothsInRangeNoise(t *testing.T) {
	// One pixel 10 above a flat field, within the threshold: it must be
	// pulled toward its neighborhood.
	buf := uniformBuffer(t, 5, 5, 1, 100)
	center := buf.Offset(2, 2)
	buf.Pix[center] = 110

	out, err := DenoiseEdgePreserving(buf, DenoiseThreshold)
	if err != nil {
		t.Fatalf("DenoiseEdgePreserving() error: %v", err)
	}

	got := out.Pix[center]
	if got >= 110 {
		t.Errorf("noisy pixel = %d, want pulled below 110", got)
	}
	if got < 100 {
		t.Errorf("noisy pixel = %d, overshot below the field value 100", got)
	}
}

func TestGaussianBlur5_UniformIsFixedPoint(t *testing.T) {
	for _, channels := range []int{1, 3, 4} {
		buf := uniformBuffer(t, 9, 7, channels, 201)

		out, err := GaussianBlur5(buf)
		if err != nil {
			t.Fatalf("GaussianBlur5() error: %v", err)
		}

		assertEqualPixels(t, out, buf)
	}
}

func TestGaussianBlur5_SpreadsImpulse(t *testing.T) {
	buf := uniformBuffer(t, 9, 9, 1, 0)
	center := buf.Offset(4, 4)
	buf.Pix[center] = 255

	out, err := GaussianBlur5(buf)
	if err != nil {
		t.Fatalf("GaussianBlur5() error: %v", err)
	}

	// Center keeps the largest share: 36/256 of 255
	if out.Pix[center] != 36 {
		t.Errorf("center after blur = %d, want 36", out.Pix[center])
	}
	// Direct neighbor gets 24/256 of 255 = 23.9 -> 24
	if got := out.Pix[buf.Offset(5, 4)]; got != 24 {
		t.Errorf("neighbor after blur = %d, want 24", got)
	}
	// Outside the 5x5 support nothing changes
	if got := out.Pix[buf.Offset(7, 4)]; got != 0 {
		t.Errorf("pixel outside kernel support = %d, want 0", got)
	}
}

func TestUnsharpCombine_UniformIsFixedPoint(t *testing.T) {
	buf := uniformBuffer(t, 6, 6, 3, 90)

	out, err := UnsharpCombine(buf, buf.Clone(), 0.3)
	if err != nil {
		t.Fatalf("UnsharpCombine() error: %v", err)
	}

	assertEqualPixels(t, out, buf)
}

func TestUnsharpCombine_SharpensAndClamps(t *testing.T) {
	denoised := uniformBuffer(t, 2, 1, 1, 0)
	blurred := uniformBuffer(t, 2, 1, 1, 0)

	// out = d + 0.3*(d-b)
	denoised.Pix[0], blurred.Pix[0] = 200, 100 // 200+30 = 230
	denoised.Pix[1], blurred.Pix[1] = 250, 50  // 250+60 = 310 -> clamp 255

	out, err := UnsharpCombine(denoised, blurred, 0.3)
	if err != nil {
		t.Fatalf("UnsharpCombine() error: %v", err)
	}

	if out.Pix[0] != 230 {
		t.Errorf("sharpened pixel = %d, want 230", out.Pix[0])
	}
	if out.Pix[1] != 255 {
		t.Errorf("clamped pixel = %d, want 255", out.Pix[1])
	}
}

func TestUnsharpCombine_ClampsBelowZero(t *testing.T) {
	denoised := uniformBuffer(t, 1, 1, 1, 0)
	blurred := uniformBuffer(t, 1, 1, 1, 0)
	denoised.Pix[0], blurred.Pix[0] = 5, 200 // 5 - 58.5 -> clamp 0

	out, err := UnsharpCombine(denoised, blurred, 0.3)
	if err != nil {
		t.Fatalf("UnsharpCombine() error: %v", err)
	}
	if out.Pix[0] != 0 {
		t.Errorf("pixel = %d, want clamped 0", out.Pix[0])
	}
}

func TestUnsharpCombine_ShapeMismatch(t *testing.T) {
	a := uniformBuffer(t, 4, 4, 3, 10)
	b := uniformBuffer(t, 4, 5, 3, 10)

	if _, err := UnsharpCombine(a, b, 0.3); !errors.Is(err, ErrInvalidBuffer) {
		t.Errorf("UnsharpCombine() error = %v, want ErrInvalidBuffer", err)
	}
}

func TestFilters_AlphaUntouched(t *testing.T) {
	buf, _ := NewBuffer(6, 6, 4)
	for i := 0; i < len(buf.Pix); i += 4 {
		buf.Pix[i+0] = uint8(i % 256)
		buf.Pix[i+1] = uint8((i * 3) % 256)
		buf.Pix[i+2] = uint8((i * 7) % 256)
		buf.Pix[i+3] = uint8((i * 11) % 256) // varied alpha
	}

	denoised, err := DenoiseEdgePreserving(buf, DenoiseThreshold)
	if err != nil {
		t.Fatalf("DenoiseEdgePreserving() error: %v", err)
	}
	blurred, err := GaussianBlur5(denoised)
	if err != nil {
		t.Fatalf("GaussianBlur5() error: %v", err)
	}
	sharp, err := UnsharpCombine(denoised, blurred, 0.3)
	if err != nil {
		t.Fatalf("UnsharpCombine() error: %v", err)
	}

	for i := 3; i < len(buf.Pix); i += 4 {
		if denoised.Pix[i] != buf.Pix[i] {
			t.Fatalf("denoise changed alpha byte %d", i)
		}
		if blurred.Pix[i] != buf.Pix[i] {
			t.Fatalf("blur changed alpha byte %d", i)
		}
		if sharp.Pix[i] != buf.Pix[i] {
			t.Fatalf("unsharp changed alpha byte %d", i)
		}
	}
}

// Running the full denoise+sharpen composition twice on a uniform buffer
// must leave it bit-identical: both passes are the identity there.
func TestDenoiseSharpenComposition_UniformTwiceUnchanged(t *testing.T) {
	apply := func(in *ImageBuffer) *ImageBuffer {
		t.Helper()
		denoised, err := DenoiseEdgePreserving(in, DenoiseThreshold)
		if err != nil {
			t.Fatalf("DenoiseEdgePreserving() error: %v", err)
		}
		blurred, err := GaussianBlur5(denoised)
		if err != nil {
			t.Fatalf("GaussianBlur5() error: %v", err)
		}
		out, err := UnsharpCombine(denoised, blurred, 0.3)
		if err != nil {
			t.Fatalf("UnsharpCombine() error: %v", err)
		}
		return out
	}

	buf := uniformBuffer(t, 12, 8, 3, 77)
	once := apply(buf)
	twice := apply(once)

	assertEqualPixels(t, once, buf)
	assertEqualPixels(t, twice, buf)
}
