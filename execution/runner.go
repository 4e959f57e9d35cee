package execution

import (
	"context"

	"github.com/hupe1980/visor/model"
	"github.com/hupe1980/visor/query"
)

// Job is one execution request handed to a Runner.
type Job struct {
	ID  query.SessionID
	Def query.Definition
	// Engine is the registry entry of Def.Engine.
	Engine query.Engine
}

// Runner executes a query against a search backend.
//
// Run reports progress through p and returns the ranked items. A returned
// error moves the execution to FatalError with the error text as message.
type Runner interface {
	Run(ctx context.Context, job Job, p Progress) ([]model.Item, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, job Job, p Progress) ([]model.Item, error)

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, job Job, p Progress) ([]model.Item, error) {
	return f(ctx, job, p)
}
