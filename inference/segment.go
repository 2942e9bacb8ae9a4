package inference

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"pixelforge/imaging"
)

// Segment classifies every pixel foreground/background and returns a
// 4-channel buffer with background alpha zeroed. Foreground pixels keep
// their original alpha (255 when the input had none).
//
// The classifier is linear over per-channel features normalized with the
// image's own mean and standard deviation: score = wR*zR + wG*zG + wB*zB +
// bias, foreground when the score is positive. Statistics come from
// gonum/stat so the decision adapts to each image's exposure.
//
// Fails with ErrKindMismatch when the model is not a segmentation model and
// ErrUnsupportedShape for inputs with fewer than 3 channels or dimensions
// above the model limit.
func (m *Model) Segment(buf *imaging.ImageBuffer) (*imaging.ImageBuffer, error) {
	if m.header.Kind != KindSegmentation {
		return nil, fmt.Errorf("%w: %s model cannot segment", ErrKindMismatch, m.header.Kind)
	}
	if err := m.checkShape(buf, 3); err != nil {
		return nil, err
	}

	n := buf.Width * buf.Height
	features := [3][]float64{
		make([]float64, n),
		make([]float64, n),
		make([]float64, n),
	}
	for i := 0; i < n; i++ {
		base := i * buf.Channels
		features[0][i] = float64(buf.Pix[base+0])
		features[1][i] = float64(buf.Pix[base+1])
		features[2][i] = float64(buf.Pix[base+2])
	}

	var means, stddevs [3]float64
	for c := 0; c < 3; c++ {
		means[c] = stat.Mean(features[c], nil)
		stddevs[c] = stat.StdDev(features[c], nil)
	}

	wR := float64(m.weights[0])
	wG := float64(m.weights[1])
	wB := float64(m.weights[2])
	bias := float64(m.weights[3])

	out := &imaging.ImageBuffer{
		Width:    buf.Width,
		Height:   buf.Height,
		Channels: 4,
		Pix:      make([]uint8, n*4),
	}

	for i := 0; i < n; i++ {
		si := i * buf.Channels
		di := i * 4

		out.Pix[di+0] = buf.Pix[si+0]
		out.Pix[di+1] = buf.Pix[si+1]
		out.Pix[di+2] = buf.Pix[si+2]

		alpha := uint8(255)
		if buf.Channels == 4 {
			alpha = buf.Pix[si+3]
		}

		score := wR*normalizeFeature(features[0][i], means[0], stddevs[0]) +
			wG*normalizeFeature(features[1][i], means[1], stddevs[1]) +
			wB*normalizeFeature(features[2][i], means[2], stddevs[2]) +
			bias

		if score > 0 {
			out.Pix[di+3] = alpha
		} else {
			out.Pix[di+3] = 0
		}
	}

	return out, nil
}

// normalizeFeature standardizes one feature value. A flat channel (or a
// single-pixel image, where the sample deviation is undefined) carries no
// signal and normalizes to zero.
func normalizeFeature(v, mean, stddev float64) float64 {
	if stddev <= 0 || math.IsNaN(stddev) {
		return 0
	}
	return (v - mean) / stddev
}
