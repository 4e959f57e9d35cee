package execution

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Progress is the write side of a Tracker handed to a Runner.
type Progress interface {
	// Advance moves the execution to a later running phase.
	Advance(State) error
}

// Tracker holds the state of one execution.
type Tracker struct {
	mu         sync.Mutex // serializes writers
	cur        atomic.Pointer[Status]
	phaseStart time.Time
	now        func() time.Time
}

// NewTracker creates a tracker in NotStarted. A nil clock uses time.Now.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	t := &Tracker{now: now}
	t.cur.Store(&Status{State: NotStarted, UpdatedAt: now()})
	return t
}

// Status returns the latest snapshot.
func (t *Tracker) Status() Status { return *t.cur.Load() }

// State returns the current state.
func (t *Tracker) State() State { return t.cur.Load().State }

// Claim moves the tracker from NotStarted to Queued. Only one caller wins.
func (t *Tracker) Claim() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.cur.Load()
	if cur.State != NotStarted {
		return false
	}
	now := t.now()
	t.phaseStart = now
	return t.cur.CompareAndSwap(cur, &Status{State: Queued, UpdatedAt: now})
}

// Advance moves the tracker to a later running phase. Moving to the current
// state is a no-op.
func (t *Tracker) Advance(s State) error {
	if !s.Running() || s <= Queued {
		return fmt.Errorf("%w: cannot advance to %s", ErrInvalidTransition, s)
	}
	return t.transition(s, "")
}

// Complete marks the execution as ResultsReady.
func (t *Tracker) Complete() error {
	return t.transition(ResultsReady, "")
}

// Fail marks the execution as FatalError with msg.
func (t *Tracker) Fail(msg string) error {
	return t.transition(FatalError, msg)
}

func (t *Tracker) transition(next State, msg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.cur.Load()
	switch {
	case cur.State.Terminal():
		return fmt.Errorf("%w: %s", ErrTerminal, cur.State)
	case cur.State == NotStarted && next != FatalError:
		return ErrNotClaimed
	case next < cur.State:
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.State, next)
	case next == cur.State:
		return nil
	}

	now := t.now()
	st := &Status{State: next, Err: msg, Timings: cur.Timings, UpdatedAt: now}
	elapsed := now.Sub(t.phaseStart)
	switch cur.State {
	case DownloadingInput:
		st.Timings.Processing += elapsed
	case Training:
		st.Timings.Training += elapsed
	case Ranking:
		st.Timings.Ranking += elapsed
	}
	t.phaseStart = now
	t.cur.Store(st)
	return nil
}
