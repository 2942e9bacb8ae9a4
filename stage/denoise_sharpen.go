package stage

import (
	"context"

	"pixelforge/imaging"
)

// sharpenAmount is the unsharp mask strength. The final combine is
// denoised*1.3 + blurred*(-0.3), computed as denoised + 0.3*(denoised-blurred).
const sharpenAmount = 0.3

// DenoiseSharpenStage is the deterministic two-step post-process: an
// edge-preserving denoise followed by an unsharp mask. No model involved.
type DenoiseSharpenStage struct{}

// NewDenoiseSharpen creates the denoise/sharpen stage.
func NewDenoiseSharpen() *DenoiseSharpenStage {
	return &DenoiseSharpenStage{}
}

// Kind returns DenoiseSharpen.
func (s *DenoiseSharpenStage) Kind() Kind { return DenoiseSharpen }

// Apply denoises buf with the fixed-strength neighborhood mean, then
// sharpens with a 5x5 Gaussian unsharp mask. A uniform buffer is a fixed
// point: both filters are identity on flat input, so the combine returns the
// input values exactly.
func (s *DenoiseSharpenStage) Apply(ctx context.Context, buf *imaging.ImageBuffer) (*imaging.ImageBuffer, error) {
	denoised, err := imaging.DenoiseEdgePreserving(buf, imaging.DenoiseThreshold)
	if err != nil {
		return nil, err
	}
	blurred, err := imaging.GaussianBlur5(denoised)
	if err != nil {
		return nil, err
	}
	return imaging.UnsharpCombine(denoised, blurred, sharpenAmount)
}
