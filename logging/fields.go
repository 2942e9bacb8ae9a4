// Package logging provides structured logging utilities for the pixelforge
// enhancement pipeline. This file contains molecule-level helper functions
// that compose the StageMetrics atom into convenient zap.Field helpers for
// structured logging.
package logging

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StageMetrics represents metrics collected while a pipeline stage transforms
// an image. Implements zapcore.ObjectMarshaler for structured logging.
//
// This is a pure data structure with no dependencies on other logging atoms.
//
// Example:
//
//	metrics := logging.StageMetrics{
//		Stage:        "upscale",
//		InputWidth:   640,
//		InputHeight:  480,
//		OutputWidth:  1280,
//		OutputHeight: 960,
//		Duration:     180 * time.Millisecond,
//	}
//	logger.Info("stage complete", zap.Object("stage", metrics))
type StageMetrics struct {
	// Stage is the canonical stage name (upscale, denoise_sharpen, ...)
	Stage string `json:"stage"`

	// InputWidth and InputHeight are the dimensions of the image entering the stage
	InputWidth  int `json:"input_width"`
	InputHeight int `json:"input_height"`

	// OutputWidth and OutputHeight are the dimensions of the image the stage produced
	OutputWidth  int `json:"output_width"`
	OutputHeight int `json:"output_height"`

	// Duration is the wall-clock time the stage took
	Duration time.Duration `json:"duration"`
}

// MarshalLogObject implements zapcore.ObjectMarshaler for structured logging.
// This allows StageMetrics to be logged as a nested JSON object in zap logs.
//
// Duration is encoded in milliseconds for readability; a derived throughput
// in megapixels per second is included when the duration is non-zero.
func (m StageMetrics) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("stage", m.Stage)
	enc.AddInt("input_width", m.InputWidth)
	enc.AddInt("input_height", m.InputHeight)
	enc.AddInt("output_width", m.OutputWidth)
	enc.AddInt("output_height", m.OutputHeight)
	enc.AddInt64("duration_ms", m.Duration.Milliseconds())

	if m.Duration > 0 {
		outPixels := float64(m.OutputWidth) * float64(m.OutputHeight)
		enc.AddFloat64("megapixels_per_second", outPixels/1e6/m.Duration.Seconds())
	}

	return nil
}

// StageFields creates a structured zap field from stage metrics.
// This is a molecule that composes the StageMetrics atom into a ready-to-use zap.Field.
//
// Example:
//
//	logger.Info("stage complete", logging.StageFields(metrics))
func StageFields(metrics StageMetrics) zap.Field {
	return zap.Object("stage", metrics)
}

// RequestField creates the zap field that tags every log entry belonging to
// one enhancement request. Attach it once via Logger.With so all stage logs
// for the request carry the same identifier.
//
// Example:
//
//	reqLogger := logger.With(logging.RequestField(id))
func RequestField(requestID string) zap.Field {
	return zap.String("request_id", requestID)
}

// DimensionFields creates a slice of zap fields for image dimensions.
// This is a convenience function for logging decoded or encoded image geometry.
//
// Example:
//
//	logger.Info("source decoded", logging.DimensionFields(img.Width, img.Height, img.Channels)...)
func DimensionFields(width, height, channels int) []zap.Field {
	return []zap.Field{
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("channels", channels),
	}
}

// TimingFields creates a slice of zap fields for request timing.
// This is a convenience function for logging timing with automatic duration calculation.
//
// Example:
//
//	start := time.Now()
//	// ... run the pipeline ...
//	logger.Info("request complete", logging.TimingFields(start, time.Now())...)
func TimingFields(startTime, endTime time.Time) []zap.Field {
	return []zap.Field{
		zap.Time("start_time", startTime),
		zap.Time("end_time", endTime),
		zap.Duration("duration", endTime.Sub(startTime)),
	}
}
