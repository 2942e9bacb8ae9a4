// Package metrics provides the Collector interface for recording metrics.
// This is a molecule that composes the atom-level types from types.go.
package metrics

// Collector defines the interface for recording pipeline processing metrics.
//
// Implementation strategy:
//   - Methods must be concurrency-safe; the orchestrator records from many
//     request goroutines at once
//   - Recording must never block the request path
//   - Zero values are returned for stages never recorded
type Collector interface {
	// RecordStage logs one executed stage or request phase.
	RecordStage(rec StageRecord)

	// Summary returns aggregated processing statistics.
	// Composes the recorded StageRecord atoms into a PipelineMetrics summary.
	Summary() PipelineMetrics

	// RecentStages returns up to limit records, most recent first.
	RecentStages(limit int) []StageRecord
}
