// Package stage defines the four pipeline stage executors and their canonical
// execution order. Each executor is a pure transform over an
// imaging.ImageBuffer: fresh output buffer, no shared mutable state between
// invocations. Model-backed executors fetch their weights through the
// inference.Registry at apply time, so a model is loaded on first use and
// shared for the rest of the process lifetime.
package stage

import (
	"context"
	"errors"
	"fmt"

	"pixelforge/imaging"
)

// Kind names one pipeline stage. The values double as the stage identifiers
// accepted in configuration lists and CLI flags.
type Kind string

// The four stage kinds.
const (
	Upscale          Kind = "upscale"
	DenoiseSharpen   Kind = "denoise_sharpen"
	BackgroundRemove Kind = "background_remove"
	Resize           Kind = "resize"
)

// ErrUnknownStage rejects stage names outside the four known kinds.
var ErrUnknownStage = errors.New("stage: unknown stage name")

// CanonicalOrder is the fixed execution order. Requests select a subset;
// they never reorder it. BackgroundRemove follows Upscale so the mask is
// computed at the upscaled resolution.
var CanonicalOrder = [4]Kind{Upscale, DenoiseSharpen, BackgroundRemove, Resize}

// ParseKind maps a stage name from config or a CLI flag to its Kind.
//
// Returns ErrUnknownStage (wrapped with the offending name) for anything
// outside CanonicalOrder.
func ParseKind(name string) (Kind, error) {
	switch Kind(name) {
	case Upscale, DenoiseSharpen, BackgroundRemove, Resize:
		return Kind(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStage, name)
}

// ParseKinds maps a list of stage names, failing on the first unknown one.
func ParseKinds(names []string) ([]Kind, error) {
	kinds := make([]Kind, 0, len(names))
	for _, name := range names {
		kind, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// RequiresModel reports whether the stage executes a loaded model, which
// places it under inference admission control.
func (k Kind) RequiresModel() bool {
	return k == Upscale || k == BackgroundRemove
}

// Normalize collapses a requested stage set into canonical execution order.
// Duplicates collapse to a single execution and request enumeration order is
// ignored. An empty request yields an empty plan.
func Normalize(requested []Kind) []Kind {
	want := make(map[Kind]bool, len(requested))
	for _, kind := range requested {
		want[kind] = true
	}

	ordered := make([]Kind, 0, len(want))
	for _, kind := range CanonicalOrder {
		if want[kind] {
			ordered = append(ordered, kind)
		}
	}
	return ordered
}

// Params carries the per-request stage knobs. Everything else about a stage
// (filter strengths, kernel shapes, model scale factors) is fixed by the
// stage itself or by its weight file.
type Params struct {
	// ResizeTarget is the resize spec: "<width>x<height>" or "original".
	ResizeTarget string
}

// Stage is one executor in the enhancement pipeline.
//
// Apply returns a fresh buffer (or the input unchanged for documented
// no-ops) and never mutates its input. The context bounds the model fetch of
// model-backed stages; pure filters ignore it.
type Stage interface {
	Kind() Kind
	Apply(ctx context.Context, buf *imaging.ImageBuffer) (*imaging.ImageBuffer, error)
}

var (
	_ Stage = (*UpscaleStage)(nil)
	_ Stage = (*DenoiseSharpenStage)(nil)
	_ Stage = (*BackgroundRemoveStage)(nil)
	_ Stage = (*ResizeStage)(nil)
)
