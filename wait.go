package visor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/visor/execution"
	"github.com/hupe1980/visor/model"
	"github.com/hupe1980/visor/query"
)

// Wait polls the status of id until the execution reaches a terminal state.
//
// The wait is bounded by ctx and by the configured max wait; running out
// of time returns the last observed status with ErrWaitTimeout. A failed
// execution is a terminal state, not an error: inspect Status.State.
func (s *Service) Wait(ctx context.Context, id query.SessionID) (execution.Status, error) {
	start := time.Now()
	st, err := s.wait(ctx, id)
	s.metrics.RecordWait(time.Since(start), err)
	return st, err
}

func (s *Service) wait(ctx context.Context, id query.SessionID) (execution.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.maxWait)
	defer cancel()

	ticker := time.NewTicker(s.opts.pollInterval)
	defer ticker.Stop()

	for {
		st, err := s.PollStatus(id)
		if err != nil {
			return st, err
		}
		if st.State.Terminal() {
			return st, nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return st, fmt.Errorf("%w: %s is %s: %w", ErrWaitTimeout, id, st.State, ctx.Err())
			}
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Result returns the ranking list of id. With blocking set it first waits
// for the execution to end; otherwise a running execution yields
// ErrNotReady.
func (s *Service) Result(ctx context.Context, id query.SessionID, blocking bool) (*model.Result, error) {
	if blocking {
		if _, err := s.Wait(ctx, id); err != nil {
			return nil, err
		}
	}
	res, err := s.cache.GetResult(id)
	if err != nil {
		return nil, translateError(err)
	}
	return res, nil
}
