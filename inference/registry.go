// registry.go implements the thread-safe model cache keyed by (kind, path).
// This is a molecule that composes LoadModel and the error atoms from
// errors.go.
package inference

import (
	"context"
	"sync"
)

// registryKey identifies one cached model.
type registryKey struct {
	kind Kind
	path string
}

// inflightLoad tracks a load in progress so concurrent first-use callers
// share one disk read. model and err are written before done is closed.
type inflightLoad struct {
	done  chan struct{}
	model *Model
	err   error
}

// Registry caches loaded models for the process lifetime.
//
// Guarantees:
//   - Idempotent: repeated Get calls with the same (kind, path) return the
//     identical *Model without touching disk again.
//   - Single load: N concurrent first-use calls for one key perform exactly
//     one load; the rest wait on the in-flight load's done channel.
//   - No cached failures: a failed load is forgotten immediately, so every
//     subsequent Get re-attempts. Fixing the file on disk heals a running
//     process without restart.
//
// Public API:
//   - NewRegistry(): create an empty registry
//   - Get(): load-or-fetch a model
//   - LoadedCount(): number of cached models
type Registry struct {
	mu       sync.Mutex
	loaded   map[registryKey]*Model
	inflight map[registryKey]*inflightLoad
}

// NewRegistry creates an empty model registry.
func NewRegistry() *Registry {
	return &Registry{
		loaded:   make(map[registryKey]*Model),
		inflight: make(map[registryKey]*inflightLoad),
	}
}

// Get returns the cached model for (kind, path), loading it on first use.
//
// The ctx parameter only bounds waiting on a load started by another
// goroutine; the winning caller's disk read itself is not interruptible
// (weight files are small).
//
// Error cases mirror LoadModel: ErrModelNotFound, ErrModelInvalid,
// ErrKindMismatch. Errors are never cached.
//
// Example:
//
//	model, err := registry.Get(ctx, inference.KindSegmentation, cfg.SegModelPath)
func (r *Registry) Get(ctx context.Context, kind Kind, path string) (*Model, error) {
	key := registryKey{kind: kind, path: path}

	r.mu.Lock()
	if model, ok := r.loaded[key]; ok {
		r.mu.Unlock()
		return model, nil
	}
	if fl, ok := r.inflight[key]; ok {
		r.mu.Unlock()
		select {
		case <-fl.done:
			return fl.model, fl.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// This caller wins the load
	fl := &inflightLoad{done: make(chan struct{})}
	r.inflight[key] = fl
	r.mu.Unlock()

	model, err := LoadModel(kind, path)
	fl.model, fl.err = model, err

	r.mu.Lock()
	if err == nil {
		r.loaded[key] = model
	}
	// Failed loads cache nothing: the key is forgotten either way
	delete(r.inflight, key)
	r.mu.Unlock()

	close(fl.done)
	return model, err
}

// LoadedCount returns how many models are currently cached.
func (r *Registry) LoadedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.loaded)
}
