package stage

import (
	"context"

	"pixelforge/imaging"
	"pixelforge/inference"
)

// BackgroundRemoveStage masks background pixels to transparent using the
// segmentation model's linear classifier. Output is always 4-channel; see
// inference.Model.Segment.
type BackgroundRemoveStage struct {
	registry  *inference.Registry
	modelPath string
}

// NewBackgroundRemove creates the background removal stage backed by the
// segmentation weight file at modelPath.
func NewBackgroundRemove(registry *inference.Registry, modelPath string) *BackgroundRemoveStage {
	return &BackgroundRemoveStage{registry: registry, modelPath: modelPath}
}

// Kind returns BackgroundRemove.
func (s *BackgroundRemoveStage) Kind() Kind { return BackgroundRemove }

// Apply classifies each pixel and zeroes the alpha of background pixels.
func (s *BackgroundRemoveStage) Apply(ctx context.Context, buf *imaging.ImageBuffer) (*imaging.ImageBuffer, error) {
	model, err := s.registry.Get(ctx, inference.KindSegmentation, s.modelPath)
	if err != nil {
		return nil, err
	}
	return model.Segment(buf)
}
