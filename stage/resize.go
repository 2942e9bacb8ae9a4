package stage

import (
	"context"
	"strconv"
	"strings"

	"pixelforge/imaging"
	"pixelforge/logging"
)

// ResizeOriginal is the resize-spec value that keeps the source geometry.
const ResizeOriginal = "original"

// ResizeStage scales the buffer to an explicit target geometry with
// Catmull-Rom interpolation.
//
// The target spec is parsed leniently: "original", an empty spec, and any
// malformed spec ("800x", "0x600", "axb") are a documented no-op returning
// the buffer unchanged. Lenient on purpose: a bad resize preference must not
// fail a request that already paid for its model stages.
type ResizeStage struct {
	target string
	log    *logging.Logger
}

// NewResize creates the resize stage for the given "<width>x<height>" or
// "original" spec. The logger may be nil; an ignored malformed spec is noted
// at debug level only.
func NewResize(target string, log *logging.Logger) *ResizeStage {
	return &ResizeStage{target: target, log: log}
}

// Kind returns Resize.
func (s *ResizeStage) Kind() Kind { return Resize }

// Apply scales buf to the parsed target, or returns it unchanged when the
// spec opts out or does not parse.
func (s *ResizeStage) Apply(ctx context.Context, buf *imaging.ImageBuffer) (*imaging.ImageBuffer, error) {
	width, height, ok := ParseResizeSpec(s.target)
	if !ok {
		if s.log != nil && s.target != "" && s.target != ResizeOriginal {
			s.log.Debugw("Ignoring malformed resize spec", "spec", s.target)
		}
		return buf, nil
	}
	return imaging.Scale(buf, width, height)
}

// ParseResizeSpec parses "<width>x<height>" into positive dimensions.
//
// ok is false for the "original" sentinel, the empty spec, and every
// malformed form: missing separator, non-integer parts, nonpositive
// dimensions. Callers treat ok=false as "keep the current geometry".
func ParseResizeSpec(spec string) (width, height int, ok bool) {
	if spec == "" || spec == ResizeOriginal {
		return 0, 0, false
	}

	wPart, hPart, found := strings.Cut(spec, "x")
	if !found {
		return 0, 0, false
	}
	w, err := strconv.Atoi(wPart)
	if err != nil {
		return 0, 0, false
	}
	h, err := strconv.Atoi(hPart)
	if err != nil {
		return 0, 0, false
	}
	if w < 1 || h < 1 {
		return 0, 0, false
	}
	return w, h, true
}
