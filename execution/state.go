package execution

import (
	"fmt"
	"strings"
	"time"
)

// State is the progress marker of one execution.
type State uint8

const (
	NotStarted State = iota
	Queued
	DownloadingInput
	Training
	Ranking
	ResultsReady
	FatalError
)

var stateNames = [...]string{
	NotStarted:       "not_started",
	Queued:           "queued",
	DownloadingInput: "downloading_input",
	Training:         "training",
	Ranking:          "ranking",
	ResultsReady:     "results_ready",
	FatalError:       "fatal_error",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	if int(s) >= len(stateNames) {
		return nil, fmt.Errorf("execution: unknown state %d", uint8(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(b []byte) error {
	name := strings.ToLower(string(b))
	for i, n := range stateNames {
		if n == name {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("execution: unknown state %q", name)
}

// Running reports whether the execution has not reached a terminal state.
func (s State) Running() bool { return s < ResultsReady }

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool { return s >= ResultsReady }

// Failed reports whether the execution ended in an error.
func (s State) Failed() bool { return s >= FatalError }

// Timings holds the elapsed time of each execution phase.
type Timings struct {
	Processing time.Duration `json:"processing"`
	Training   time.Duration `json:"training"`
	Ranking    time.Duration `json:"ranking"`
}

// Total returns the sum of all phases.
func (t Timings) Total() time.Duration {
	return t.Processing + t.Training + t.Ranking
}

// Status is an immutable snapshot of an execution.
type Status struct {
	State State `json:"state"`
	// Err is the failure message when State is FatalError.
	Err       string    `json:"error,omitempty"`
	Timings   Timings   `json:"timings"`
	UpdatedAt time.Time `json:"updated_at"`
}
