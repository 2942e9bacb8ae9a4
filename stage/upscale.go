package stage

import (
	"context"

	"pixelforge/imaging"
	"pixelforge/inference"
)

// UpscaleStage magnifies the buffer by its model's fixed integer factor.
// Inference is a bilinear base upsample refined by the model's learned
// kernel; see inference.Model.Upscale.
type UpscaleStage struct {
	registry  *inference.Registry
	modelPath string
}

// NewUpscale creates the super-resolution stage backed by the weight file at
// modelPath. The file is not touched until the first Apply.
func NewUpscale(registry *inference.Registry, modelPath string) *UpscaleStage {
	return &UpscaleStage{registry: registry, modelPath: modelPath}
}

// Kind returns Upscale.
func (s *UpscaleStage) Kind() Kind { return Upscale }

// Apply runs super-resolution inference on buf.
//
// Returns the upscaled buffer (input dimensions times the model's scale
// factor). Fails with a model load error when the weight file is missing or
// invalid, or an inference error when the model rejects the input shape.
func (s *UpscaleStage) Apply(ctx context.Context, buf *imaging.ImageBuffer) (*imaging.ImageBuffer, error) {
	model, err := s.registry.Get(ctx, inference.KindSuperResolution, s.modelPath)
	if err != nil {
		return nil, err
	}
	return model.Upscale(buf)
}
