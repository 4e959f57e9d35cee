package execution

import "errors"

var (
	// ErrInvalidTransition is returned when a transition would move the state backwards.
	ErrInvalidTransition = errors.New("execution: invalid state transition")

	// ErrTerminal is returned when the execution has already finished.
	ErrTerminal = errors.New("execution: already in a terminal state")

	// ErrNotClaimed is returned when the tracker is advanced before being claimed.
	ErrNotClaimed = errors.New("execution: not claimed")
)
