// Package metrics provides pure data types for pipeline processing metrics.
// This file contains atom-level type definitions with no behavior.
package metrics

import "time"

// StageRecord represents one executed pipeline phase: a processing stage
// (upscale, denoise_sharpen, background_remove, resize) or one of the
// request phases (decode, encode, persist).
type StageRecord struct {
	// RequestID correlates the record with one enhancement request
	RequestID string

	// Stage names the stage kind or request phase that executed
	Stage string

	// Status indicates the outcome: StatusSuccess or StatusError
	Status string

	// Duration is the wall-clock execution time
	Duration time.Duration

	// InputWidth and InputHeight are the buffer dimensions going in
	InputWidth  int
	InputHeight int

	// OutputWidth and OutputHeight are the buffer dimensions coming out
	// (zero when the phase failed before producing output)
	OutputWidth  int
	OutputHeight int

	// ErrorMsg contains error details if Status is StatusError
	ErrorMsg string
}

// PipelineMetrics represents aggregated processing statistics.
// This is a pure data structure with no behavior.
type PipelineMetrics struct {
	// TotalRecords is the total number of stage executions recorded
	TotalRecords int64

	// TotalSuccess is the count of successful executions
	TotalSuccess int64

	// TotalErrors is the count of failed executions
	TotalErrors int64

	// ByStage contains per-stage statistics keyed by stage name
	ByStage map[string]*StageAggregate

	// Uptime is the duration since the store was created
	Uptime time.Duration
}

// StageAggregate represents statistics for a single stage or phase.
// This is a pure data structure with no behavior.
type StageAggregate struct {
	// Count is the total number of executions of this stage
	Count int64

	// SuccessRate is the percentage of successful executions (0-100)
	SuccessRate float64

	// AvgDuration is the average execution time for this stage
	AvgDuration time.Duration
}

// Status constants for StageRecord
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Phase names recorded alongside the stage kinds
const (
	PhaseDecode  = "decode"
	PhaseEncode  = "encode"
	PhasePersist = "persist"
)
