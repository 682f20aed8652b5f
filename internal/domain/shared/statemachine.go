package shared

import "fmt"

// StateMachine validates status transitions against a single transition table.
// A state missing from the table is terminal.
type StateMachine[S ~string] struct {
	name        string
	transitions map[S][]S
}

// NewStateMachine creates a state machine from a transition table
func NewStateMachine[S ~string](name string, transitions map[S][]S) StateMachine[S] {
	return StateMachine[S]{name: name, transitions: transitions}
}

// CanTransition reports whether moving from one state to another is allowed
func (m StateMachine[S]) CanTransition(from, to S) bool {
	for _, next := range m.transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition returns an INVALID_STATE_TRANSITION error when the move is not in the table
func (m StateMachine[S]) Transition(from, to S) error {
	if !m.CanTransition(from, to) {
		return ErrInvalidStateTransition.WithMessage(
			fmt.Sprintf("%s cannot move from %s to %s", m.name, from, to))
	}
	return nil
}

// IsTerminal reports whether no transition leaves the given state
func (m StateMachine[S]) IsTerminal(state S) bool {
	return len(m.transitions[state]) == 0
}
