package backend

import (
	"context"
	"log/slog"

	"github.com/hupe1980/visor/execution"
	"github.com/hupe1980/visor/model"
	"github.com/hupe1980/visor/query"
	"github.com/hupe1980/visor/resource"
)

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithResourceController rate limits backend requests through rc.
func WithResourceController(rc *resource.Controller) RunnerOption {
	return func(r *Runner) {
		r.rc = rc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// Runner executes queries on the backend engines.
type Runner struct {
	clients ClientFactory
	rc      *resource.Controller
	logger  *slog.Logger
}

var _ execution.Runner = (*Runner)(nil)

// NewRunner creates a runner. A nil factory uses Sessions().
func NewRunner(clients ClientFactory, opts ...RunnerOption) *Runner {
	if clients == nil {
		clients = Sessions()
	}
	r := &Runner{
		clients: clients,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run implements execution.Runner.
//
// Dataset-image queries skip training since their features are already
// indexed. Engines flagged SkipProgress only report the ranking phase.
func (r *Runner) Run(ctx context.Context, job execution.Job, p execution.Progress) ([]model.Item, error) {
	c, err := r.clients(job.Engine)
	if err != nil {
		return nil, err
	}

	id := string(job.ID)
	log := r.logger.With("qsid", id, "engine", job.Engine.Name)
	verbose := !job.Engine.SkipProgress

	if verbose {
		if err := p.Advance(execution.DownloadingInput); err != nil {
			return nil, err
		}
	}
	prep := PrepareRequest{
		Func:        FuncPrepareQuery,
		QueryID:     id,
		QueryType:   job.Def.Type.String(),
		QueryString: job.Def.Spec,
		Dataset:     job.Def.Dataset,
		ParentID:    string(job.Def.Parent),
	}
	if err := r.call(ctx, c, FuncPrepareQuery, prep, &Reply{}); err != nil {
		return nil, err
	}

	if job.Def.Type != query.DatasetImage {
		if verbose {
			if err := p.Advance(execution.Training); err != nil {
				return nil, err
			}
		}
		if err := r.call(ctx, c, FuncTrain, QueryRequest{Func: FuncTrain, QueryID: id}, &Reply{}); err != nil {
			return nil, err
		}
	}

	if err := p.Advance(execution.Ranking); err != nil {
		return nil, err
	}
	if err := r.call(ctx, c, FuncRank, QueryRequest{Func: FuncRank, QueryID: id}, &Reply{}); err != nil {
		return nil, err
	}

	var ranking RankingReply
	if err := r.call(ctx, c, FuncGetRanking, QueryRequest{Func: FuncGetRanking, QueryID: id}, &ranking); err != nil {
		return nil, err
	}

	// The engine frees the query state on its own after a while.
	if err := r.call(ctx, c, FuncReleaseQuery, QueryRequest{Func: FuncReleaseQuery, QueryID: id}, &Reply{}); err != nil {
		log.Debug("release query failed", "error", err)
	}

	log.Debug("ranking received", "items", len(ranking.Ranking))
	return ranking.Items(), nil
}

type envelope interface {
	Err(fn string) error
}

func (r *Runner) call(ctx context.Context, c Client, fn string, req any, resp any) error {
	if err := r.rc.WaitBackend(ctx); err != nil {
		return err
	}
	if err := c.Send(ctx, req, resp); err != nil {
		return err
	}
	if e, ok := resp.(envelope); ok {
		return e.Err(fn)
	}
	return nil
}
