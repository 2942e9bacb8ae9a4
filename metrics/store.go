// Package metrics provides the Store organism for in-memory metrics storage.
// This file contains the Store which implements the Collector interface.
package metrics

import (
	"sync"
	"time"
)

// Store is an in-memory, fixed-capacity store of pipeline processing
// metrics. It implements the Collector interface and provides thread-safe
// access to recent stage records and running per-stage aggregates.
//
// This is an organism-level component that composes:
//   - a circular buffer for stage history
//   - sync.RWMutex for thread-safety
//   - the metrics types (StageRecord, PipelineMetrics, StageAggregate)
//
// Usage:
//
//	store := metrics.NewStore(256, time.Now())
//	store.RecordStage(rec)
//	summary := store.Summary()
type Store struct {
	mu sync.RWMutex

	// Stage history
	history []StageRecord // Circular buffer of recent records
	cap     int           // Maximum records to retain
	head    int           // Write index
	size    int           // Current number of records

	// Aggregation
	totalRecords int64
	totalSuccess int64
	totalErrors  int64
	byStage      map[string]*stageStats

	// Uptime reference
	startTime time.Time
}

// stageStats holds per-stage aggregation data
type stageStats struct {
	count         int64
	successCount  int64
	totalDuration time.Duration
}

// DefaultHistoryCapacity is used when NewStore receives a nonpositive capacity.
const DefaultHistoryCapacity = 256

// NewStore creates a Store retaining up to capacity records.
// The startTime is used to calculate uptime in Summary.
func NewStore(capacity int, startTime time.Time) *Store {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}

	return &Store{
		history:   make([]StageRecord, capacity),
		cap:       capacity,
		byStage:   make(map[string]*stageStats),
		startTime: startTime,
	}
}

// RecordStage logs one executed stage or request phase.
// This implements part of the Collector interface.
func (s *Store) RecordStage(rec StageRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Add to circular buffer
	s.history[s.head] = rec
	s.head = (s.head + 1) % s.cap
	if s.size < s.cap {
		s.size++
	}

	// Update aggregations
	s.totalRecords++
	switch rec.Status {
	case StatusSuccess:
		s.totalSuccess++
	case StatusError:
		s.totalErrors++
	}

	stats, ok := s.byStage[rec.Stage]
	if !ok {
		stats = &stageStats{}
		s.byStage[rec.Stage] = stats
	}
	stats.count++
	if rec.Status == StatusSuccess {
		stats.successCount++
	}
	stats.totalDuration += rec.Duration
}

// Summary returns aggregated processing statistics.
// This implements part of the Collector interface.
func (s *Store) Summary() PipelineMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := PipelineMetrics{
		TotalRecords: s.totalRecords,
		TotalSuccess: s.totalSuccess,
		TotalErrors:  s.totalErrors,
		ByStage:      make(map[string]*StageAggregate, len(s.byStage)),
		Uptime:       time.Since(s.startTime),
	}

	for stage, stats := range s.byStage {
		agg := &StageAggregate{Count: stats.count}
		if stats.count > 0 {
			agg.SuccessRate = float64(stats.successCount) / float64(stats.count) * 100
			agg.AvgDuration = stats.totalDuration / time.Duration(stats.count)
		}
		summary.ByStage[stage] = agg
	}

	return summary
}

// RecentStages returns up to limit records, most recent first.
// If limit exceeds the retained history, everything retained is returned.
// This implements part of the Collector interface.
func (s *Store) RecentStages(limit int) []StageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || s.size == 0 {
		return []StageRecord{}
	}
	if limit > s.size {
		limit = s.size
	}

	// Walk backwards from the newest record
	result := make([]StageRecord, limit)
	for i := 0; i < limit; i++ {
		idx := (s.head - 1 - i + s.cap) % s.cap
		result[i] = s.history[idx]
	}

	return result
}

// Verify Store implements the Collector interface
var _ Collector = (*Store)(nil)
