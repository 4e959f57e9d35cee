package testutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/visor/execution"
	"github.com/hupe1980/visor/model"
)

// GatedRunner is an execution.Runner that advances to Ranking and then
// blocks until Release is called. It counts how often it ran.
type GatedRunner struct {
	items   []model.Item
	err     error
	gate    chan struct{}
	once    sync.Once
	started chan struct{}
	calls   atomic.Int64
}

// NewGatedRunner creates a runner that returns items once released.
func NewGatedRunner(items []model.Item) *GatedRunner {
	return &GatedRunner{
		items:   items,
		gate:    make(chan struct{}),
		started: make(chan struct{}, 1024),
	}
}

// FailWith makes subsequent runs return err.
func (r *GatedRunner) FailWith(err error) *GatedRunner {
	r.err = err
	return r
}

// Run implements execution.Runner.
func (r *GatedRunner) Run(ctx context.Context, _ execution.Job, p execution.Progress) ([]model.Item, error) {
	r.calls.Add(1)
	if err := p.Advance(execution.Ranking); err != nil {
		return nil, err
	}
	r.started <- struct{}{}

	select {
	case <-r.gate:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.items, nil
}

// Started returns a channel that receives once per started run.
func (r *GatedRunner) Started() <-chan struct{} { return r.started }

// Release unblocks all current and future runs.
func (r *GatedRunner) Release() {
	r.once.Do(func() { close(r.gate) })
}

// Calls returns the number of runs so far.
func (r *GatedRunner) Calls() int64 { return r.calls.Load() }

// ErrBackendDown is a canned backend failure.
var ErrBackendDown = errors.New("backend: connection refused")
