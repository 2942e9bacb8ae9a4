// Package shutdown provides graceful shutdown infrastructure molecules.
// This package composes atoms from core (ShutdownFunc, exit codes) into
// the coordination pieces the watch daemon needs to stop cleanly: an
// in-flight work tracker, a prioritized cleanup registry, and a signal
// counter that forces exit on a repeated interrupt.
package shutdown

import (
	"errors"
	"sync"
	"time"
)

// ErrTrackerClosed is returned when new work is offered to a closed tracker.
var ErrTrackerClosed = errors.New("shutdown: tracker closed to new work")

// ErrDrainTimeout is returned when Wait gives up before in-flight work drains.
var ErrDrainTimeout = errors.New("shutdown: in-flight work did not drain before the timeout")

// OperationTracker counts in-flight work so shutdown can drain it before
// cleanup handlers run. In the watch daemon every enhancement is wrapped in
// Start/Done; once the tracker is closed, new files are left in the inbox
// for the next run instead of being picked up mid-shutdown.
//
// Usage:
//
//	tracker := NewOperationTracker()
//
//	// Per enhancement:
//	if !tracker.Start() {
//	    return ErrTrackerClosed // shutting down, leave the file alone
//	}
//	defer tracker.Done()
//
//	// During shutdown:
//	tracker.Close()
//	if err := tracker.Wait(30 * time.Second); err != nil {
//	    log.Warn("enhancements still running, proceeding with cleanup")
//	}
type OperationTracker struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	active int64
	closed bool
}

// NewOperationTracker creates a tracker that accepts work until Close.
func NewOperationTracker() *OperationTracker {
	return &OperationTracker{}
}

// Start registers one unit of in-flight work. It returns false once the
// tracker is closed, in which case the caller must not proceed and must not
// call Done.
func (t *OperationTracker) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}
	t.wg.Add(1)
	t.active++
	return true
}

// Done marks one unit of work complete. Every successful Start needs exactly
// one Done.
func (t *OperationTracker) Done() {
	t.mu.Lock()
	t.active--
	t.mu.Unlock()
	t.wg.Done()
}

// Wait blocks until all in-flight work completes or the timeout elapses.
// Returns ErrDrainTimeout when work is still running at the deadline.
func (t *OperationTracker) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrDrainTimeout
	}
}

// Close stops the tracker from accepting new work. Work already started
// runs to completion.
func (t *OperationTracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// ActiveCount returns the number of in-flight operations.
func (t *OperationTracker) ActiveCount() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// IsClosed reports whether Close has been called.
func (t *OperationTracker) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
