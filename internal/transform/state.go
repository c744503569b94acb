package transform

import (
	"fmt"
	"slices"
)

// State is a job lifecycle state.
type State string

const (
	StatePending       State = "pending"
	StateAcquiring     State = "acquiring"
	StateDirect        State = "direct"
	StateAcquireToFile State = "acquire_to_file"
	StateClipping      State = "clipping"
	StateEncoding      State = "encoding"
	StateStreaming     State = "streaming"
	StateCompleted     State = "completed"
	StateFailed        State = "failed"
	StateCancelled     State = "cancelled"
)

// forward lists the non-failure successors of each state. Failed and Cancelled
// are reachable from every non-terminal state and are not repeated here.
var forward = map[State][]State{
	StatePending:       {StateAcquiring},
	StateAcquiring:     {StateDirect, StateAcquireToFile},
	StateDirect:        {StateStreaming},
	StateAcquireToFile: {StateClipping, StateEncoding, StateStreaming},
	StateClipping:      {StateEncoding, StateStreaming},
	StateEncoding:      {StateStreaming},
	StateStreaming:     {StateCompleted},
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed || to == StateCancelled {
		return true
	}
	return slices.Contains(forward[from], to)
}

// TransitionError reports an illegal state change.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal transform transition %s -> %s", e.From, e.To)
}
