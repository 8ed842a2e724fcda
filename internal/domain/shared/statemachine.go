package shared

import "fmt"

// Action names an operation that may move an entity between states.
type Action string

// Transitions is an explicit transition table keyed by (state, action).
// A missing entry means the action is rejected from that state.
type Transitions[S ~string] map[S]map[Action]S

// Next returns the target state for action from the current state.
func (t Transitions[S]) Next(from S, action Action) (S, bool) {
	row, ok := t[from]
	if !ok {
		return from, false
	}
	to, ok := row[action]
	return to, ok
}

// Can reports whether action is legal from the current state.
func (t Transitions[S]) Can(from S, action Action) bool {
	_, ok := t.Next(from, action)
	return ok
}

// IsTerminal reports whether no action leaves the state.
func (t Transitions[S]) IsTerminal(s S) bool {
	return len(t[s]) == 0
}

// Apply resolves the transition or returns an InvalidStateError naming the
// rejected (state, action) pair.
func (t Transitions[S]) Apply(domain string, from S, action Action) (S, error) {
	to, ok := t.Next(from, action)
	if !ok {
		return from, WrapError(domain, string(action), ErrStateTransition,
			fmt.Sprintf("cannot %s from status %s", action, from), nil)
	}
	return to, nil
}
