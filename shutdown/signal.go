package shutdown

import (
	"sync"
)

// SignalCounter counts shutdown signals and fires a callback once a
// threshold is reached. It implements the usual CLI contract: the first
// Ctrl+C starts a graceful shutdown, the second forces the process out
// even if a drain or cleanup handler is stuck.
//
// Usage:
//
//	counter := NewSignalCounter(2, func() {
//	    log.Warn("second interrupt, exiting now")
//	    os.Exit(130)
//	})
//
//	for range sigChan {
//	    if counter.Increment() == 1 {
//	        cancel() // begin graceful shutdown
//	    }
//	}
type SignalCounter struct {
	mu         sync.Mutex
	count      int
	forceAfter int
	onForce    func()
}

// NewSignalCounter creates a counter that invokes onForce when the signal
// count reaches forceAfter. A nil onForce leaves the counter as a plain
// counter. forceAfter is typically 2: first signal graceful, second forced.
func NewSignalCounter(forceAfter int, onForce func()) *SignalCounter {
	return &SignalCounter{
		forceAfter: forceAfter,
		onForce:    onForce,
	}
}

// Increment records one signal and returns the new count. Once the count
// reaches forceAfter, onForce fires on this and every later increment.
//
// The callback runs while the lock is held; it should exit the process or
// return quickly.
func (s *SignalCounter) Increment() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	if s.count >= s.forceAfter && s.onForce != nil {
		s.onForce()
	}
	return s.count
}

// Count returns the number of signals recorded so far.
func (s *SignalCounter) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// SetForceCallback replaces the force callback. Tests use this to swap the
// process exit for something observable.
func (s *SignalCounter) SetForceCallback(onForce func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onForce = onForce
}
