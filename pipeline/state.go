// Package pipeline orchestrates the image enhancement flow: request state
// tracking, canonical stage sequencing, bounded inference admission, and the
// request-to-artifact contract.
package pipeline

import (
	"errors"
	"fmt"
)

// State is a position in the request lifecycle. Requests move strictly
// forward: Received → Decoded → Staged(i) → Encoded → Persisted, with Failed
// reachable from every non-terminal state. Encoded is the success terminal
// for the non-persisting Enhance boundary; Persisted for Run.
type State int

const (
	StateReceived State = iota
	StateDecoded
	StateStaged
	StateEncoded
	StatePersisted
	StateFailed
)

// String returns the lowercase state name used in logs and errors.
func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateDecoded:
		return "decoded"
	case StateStaged:
		return "staged"
	case StateEncoded:
		return "encoded"
	case StatePersisted:
		return "persisted"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidTransition reports a request lifecycle violation. Seeing it means
// an orchestrator bug, not a bad request.
var ErrInvalidTransition = errors.New("pipeline: invalid state transition")

// allowedTransitions is the explicit transition table. A state missing from
// the map (or mapped to nil) is terminal.
var allowedTransitions = map[State][]State{
	StateReceived: {StateDecoded, StateFailed},
	StateDecoded:  {StateStaged, StateEncoded, StateFailed},
	StateStaged:   {StateStaged, StateEncoded, StateFailed},
	StateEncoded:  {StatePersisted, StateFailed},
}

// transitionAllowed reports whether from → to appears in the table.
func transitionAllowed(from, to State) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Tracker validates one request's walk through the state machine.
// It is owned by a single request goroutine and is not safe for concurrent
// use, matching the exclusive ownership of the request itself.
type Tracker struct {
	state      State
	stageIndex int
}

// NewTracker returns a tracker in the Received state.
func NewTracker() *Tracker {
	return &Tracker{state: StateReceived, stageIndex: -1}
}

// State returns the current state.
func (t *Tracker) State() State {
	return t.state
}

// StageIndex returns the canonical index of the most recent Staged
// transition, or -1 if no stage has run.
func (t *Tracker) StageIndex() int {
	return t.stageIndex
}

// To moves the tracker to next, enforcing the transition table.
// Use ToStage for Staged transitions so the index is checked too.
func (t *Tracker) To(next State) error {
	if !transitionAllowed(t.state, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.state, next)
	}
	t.state = next
	return nil
}

// ToStage moves the tracker to Staged(index). Indices are canonical stage
// positions and must be non-decreasing within a request.
func (t *Tracker) ToStage(index int) error {
	if !transitionAllowed(t.state, StateStaged) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.state, StateStaged)
	}
	if index < 0 {
		return fmt.Errorf("%w: negative stage index %d", ErrInvalidTransition, index)
	}
	if t.state == StateStaged && index < t.stageIndex {
		return fmt.Errorf("%w: stage index went backwards (%d -> %d)", ErrInvalidTransition, t.stageIndex, index)
	}
	t.state = StateStaged
	t.stageIndex = index
	return nil
}

// Terminal reports whether the tracker reached a terminal state.
func (t *Tracker) Terminal() bool {
	return t.state == StatePersisted || t.state == StateFailed
}
