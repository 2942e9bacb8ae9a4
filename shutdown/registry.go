package shutdown

import (
	"context"
	"sort"
	"sync"

	"pixelforge/core"
)

// shutdownEntry is one registered cleanup handler.
type shutdownEntry struct {
	name     string
	fn       core.ShutdownFunc
	priority int // lower runs earlier
}

// ShutdownRegistry holds cleanup handlers and runs them in priority order.
//
// This is a molecule that composes core.ShutdownFunc with ordering and
// thread-safe registration. The watch daemon registers its teardown here:
// drain the index write queue before closing the database, close the
// database before syncing the log.
//
// Usage:
//
//	registry := NewShutdownRegistry()
//
//	registry.Register("index-writer", 10, func(ctx context.Context) error {
//	    return writer.StopWithTimeout(ctx, 5*time.Second)
//	})
//	registry.Register("database", 20, func(ctx context.Context) error {
//	    return database.Close()
//	})
//
//	// During shutdown:
//	for _, err := range registry.Shutdown(ctx) {
//	    log.Error("cleanup failed", zap.Error(err))
//	}
type ShutdownRegistry struct {
	mu      sync.Mutex
	entries []shutdownEntry
	closed  bool
}

// NewShutdownRegistry creates an empty registry ready for registrations.
func NewShutdownRegistry() *ShutdownRegistry {
	return &ShutdownRegistry{
		entries: make([]shutdownEntry, 0),
	}
}

// Register adds a named cleanup handler. Lower priority values run earlier;
// handlers with equal priority run in registration order. Registering after
// Shutdown has run is a no-op.
//
// Typical priority ranges:
//   - 0-9: report state (metrics summaries)
//   - 10-19: drain queues (index write queue)
//   - 20-29: close resources (index database, stores)
//   - 30-39: sweep leftovers (orphaned temp files)
//   - 40+: final flush (log sync)
func (r *ShutdownRegistry) Register(name string, priority int, fn core.ShutdownFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.entries = append(r.entries, shutdownEntry{
		name:     name,
		fn:       fn,
		priority: priority,
	})
}

// Shutdown runs every registered handler in priority order and collects the
// errors of those that failed. All handlers run even when earlier ones fail.
// Each handler receives ctx, which carries the shutdown deadline. After
// Shutdown returns the registry is closed; later calls return nil.
func (r *ShutdownRegistry) Shutdown(ctx context.Context) []error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sorted := r.snapshot()
	r.mu.Unlock()

	var errs []error
	for _, entry := range sorted {
		if err := entry.fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errs
}

// Names returns the registered handler names in execution order.
func (r *ShutdownRegistry) Names() []string {
	r.mu.Lock()
	sorted := r.snapshot()
	r.mu.Unlock()

	names := make([]string, len(sorted))
	for i, entry := range sorted {
		names[i] = entry.name
	}
	return names
}

// Count returns the number of registered handlers.
func (r *ShutdownRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IsClosed reports whether Shutdown has run.
func (r *ShutdownRegistry) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// snapshot copies the entries sorted into execution order.
// Callers must hold r.mu.
func (r *ShutdownRegistry) snapshot() []shutdownEntry {
	sorted := make([]shutdownEntry, len(r.entries))
	copy(sorted, r.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].priority < sorted[j].priority
	})
	return sorted
}
