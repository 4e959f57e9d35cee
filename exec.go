package visor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/visor/archive"
	"github.com/hupe1980/visor/cache"
	"github.com/hupe1980/visor/execution"
	"github.com/hupe1980/visor/model"
	"github.com/hupe1980/visor/query"
)

const (
	sourceBackend = "backend"
	sourceArchive = "archive"
)

// schedule hands a claimed execution to the worker pool. When it cannot be
// queued the claim is failed and dropped, so a later submit starts over.
func (s *Service) schedule(ctx context.Context, t cache.Ticket, def query.Definition) error {
	eng, ok := s.reg.Engine(def.Engine)
	if !ok {
		// The registry is immutable, so this only happens for a bad registry.
		err := fmt.Errorf("%w: %q", ErrUnknownEngine, def.Engine)
		s.abandon(t.ID, err)
		return err
	}

	job := execution.Job{ID: t.ID, Def: def, Engine: eng}
	runID := uuid.NewString()

	err := s.pool.Submit(ctx, func() {
		s.execute(runID, job, t.Tracker)
	})
	if err != nil {
		s.abandon(t.ID, err)
		return translateError(err)
	}
	return nil
}

func (s *Service) abandon(id query.SessionID, cause error) {
	if err := s.cache.Fail(id, "not scheduled: "+cause.Error()); err != nil {
		s.logger.WithQuery(id).Error("failing unscheduled execution", "error", err)
	}
	s.cache.Evict(id)
}

// execute runs one claimed execution to a terminal state.
func (s *Service) execute(runID string, job execution.Job, tr *execution.Tracker) {
	log := s.logger.WithQuery(job.ID).WithEngine(job.Engine.Name).With("run_id", runID)

	ctx := s.execCtx
	if s.opts.executionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.executionTimeout)
		defer cancel()
	}

	start := time.Now()
	source := sourceArchive
	items, err := s.loadArchived(ctx, job)
	if err == nil && items == nil {
		source = sourceBackend
		items, err = s.run(ctx, job, tr)
	}
	elapsed := time.Since(start)

	if err != nil {
		if ferr := s.cache.Fail(job.ID, err.Error()); ferr != nil {
			log.Error("recording failure", "error", ferr)
		}
	} else if aerr := s.cache.AttachResult(job.ID, model.NewResult(items)); aerr != nil {
		err = aerr
	}

	log.LogExecution(ctx, source, len(items), tr.Status().Timings, elapsed, err)
	s.metrics.RecordExecution(job.Engine.Name, source, elapsed, err)
	s.reportCache()

	if err == nil && source == sourceBackend {
		s.saveArchived(ctx, log, job, items)
	}
}

// run calls the runner with the execution slot held. A panicking runner
// fails the execution instead of the process.
func (s *Service) run(ctx context.Context, job execution.Job, tr *execution.Tracker) (items []model.Item, err error) {
	if err := s.opts.rc.AcquireExecution(ctx); err != nil {
		return nil, err
	}
	defer s.opts.rc.ReleaseExecution()

	defer func() {
		if r := recover(); r != nil {
			items, err = nil, fmt.Errorf("runner panic: %v", r)
		}
	}()
	return s.runner.Run(ctx, job, tr)
}

// loadArchived returns nil items on an archive miss.
func (s *Service) loadArchived(ctx context.Context, job execution.Job) ([]model.Item, error) {
	if s.opts.archive == nil {
		return nil, nil
	}
	items, err := s.opts.archive.Load(ctx, job.ID, job.Def)
	switch {
	case err == nil:
		if items == nil {
			items = []model.Item{}
		}
		return items, nil
	case errors.Is(err, archive.ErrNotFound):
		return nil, nil
	default:
		s.logger.WithQuery(job.ID).Warn("archive read failed", "error", err)
		return nil, nil
	}
}

func (s *Service) saveArchived(ctx context.Context, log *Logger, job execution.Job, items []model.Item) {
	if s.opts.archive == nil {
		return
	}
	if err := s.opts.archive.Save(ctx, job.ID, job.Def, items); err != nil {
		log.Warn("archive write failed", "error", err)
	}
}
