package stage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"pixelforge/imaging"
	"pixelforge/inference"
)

// writeModelFile writes a default-weight model file for stage tests.
func writeModelFile(t *testing.T, kind inference.Kind, scale, kernel int) string {
	t.Helper()
	h := inference.Header{Kind: kind, Scale: scale, Channels: 3, Kernel: kernel}
	path := filepath.Join(t.TempDir(), kind.String()+".pfw")
	if err := inference.WriteModelFile(path, h, inference.DefaultWeights(kind, kernel)); err != nil {
		t.Fatalf("WriteModelFile() error: %v", err)
	}
	return path
}

func TestUpscaleStage_Apply(t *testing.T) {
	path := writeModelFile(t, inference.KindSuperResolution, 2, 3)
	s := NewUpscale(inference.NewRegistry(), path)

	if s.Kind() != Upscale {
		t.Errorf("Kind() = %v, want Upscale", s.Kind())
	}

	in := gradientBuffer(t, 10, 8, 3)
	out, err := s.Apply(context.Background(), in)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if out.Width != 20 || out.Height != 16 {
		t.Errorf("output dims = %dx%d, want 20x16", out.Width, out.Height)
	}
	if out.Channels != 3 {
		t.Errorf("output channels = %d, want 3", out.Channels)
	}
}

func TestUpscaleStage_LoadsModelOnce(t *testing.T) {
	path := writeModelFile(t, inference.KindSuperResolution, 2, 3)
	registry := inference.NewRegistry()
	s := NewUpscale(registry, path)
	ctx := context.Background()

	in := gradientBuffer(t, 6, 6, 3)
	for i := 0; i < 3; i++ {
		if _, err := s.Apply(ctx, in); err != nil {
			t.Fatalf("Apply() %d error: %v", i+1, err)
		}
	}

	if n := registry.LoadedCount(); n != 1 {
		t.Errorf("LoadedCount() = %d, want 1", n)
	}
}

func TestUpscaleStage_MissingModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.pfw")
	s := NewUpscale(inference.NewRegistry(), path)

	_, err := s.Apply(context.Background(), gradientBuffer(t, 4, 4, 3))
	if !errors.Is(err, inference.ErrModelNotFound) {
		t.Errorf("Apply() error = %v, want ErrModelNotFound", err)
	}
}

func TestBackgroundRemoveStage_Apply(t *testing.T) {
	path := writeModelFile(t, inference.KindSegmentation, 0, 0)
	s := NewBackgroundRemove(inference.NewRegistry(), path)

	if s.Kind() != BackgroundRemove {
		t.Errorf("Kind() = %v, want BackgroundRemove", s.Kind())
	}

	// Bright centered square on a dark field
	in, err := imaging.NewBuffer(16, 16, 3)
	if err != nil {
		t.Fatalf("NewBuffer() error: %v", err)
	}
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			v := uint8(20)
			if x >= 4 && x < 12 && y >= 4 && y < 12 {
				v = 230
			}
			off := in.Offset(x, y)
			in.Pix[off+0], in.Pix[off+1], in.Pix[off+2] = v, v, v
		}
	}

	out, err := s.Apply(context.Background(), in)
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	if out.Channels != 4 {
		t.Fatalf("output channels = %d, want 4", out.Channels)
	}
	if a := out.Pix[out.Offset(8, 8)+3]; a != 255 {
		t.Errorf("subject alpha = %d, want 255", a)
	}
	if a := out.Pix[out.Offset(0, 0)+3]; a != 0 {
		t.Errorf("background alpha = %d, want 0", a)
	}
}

func TestBackgroundRemoveStage_ModelKindEnforced(t *testing.T) {
	// Pointing the stage at a super-resolution weight file must fail
	// rather than classify with the wrong weights.
	path := writeModelFile(t, inference.KindSuperResolution, 2, 3)
	s := NewBackgroundRemove(inference.NewRegistry(), path)

	_, err := s.Apply(context.Background(), gradientBuffer(t, 8, 8, 3))
	if !errors.Is(err, inference.ErrKindMismatch) {
		t.Errorf("Apply() error = %v, want ErrKindMismatch", err)
	}
}
