package visor

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/visor/cache"
	"github.com/hupe1980/visor/execution"
	"github.com/hupe1980/visor/internal/workerpool"
	"github.com/hupe1980/visor/query"
)

// Service is the query core. It is safe for concurrent use.
//
// A Service is created once at process start and closed at shutdown.
type Service struct {
	opts    options
	logger  *Logger
	metrics MetricsCollector

	reg    *query.Registry
	norm   *query.Normalizer
	cache  *cache.Manager
	runner execution.Runner
	pool   *workerpool.Pool

	roiFlight singleflight.Group

	// execCtx is the parent of all executions; Close cancels it.
	execCtx    context.Context
	cancelExec context.CancelFunc
	closed     atomic.Bool
}

// New creates a Service executing queries with runner against the engines
// and datasets of reg.
func New(runner execution.Runner, reg *query.Registry, optFns ...Option) (*Service, error) {
	if runner == nil {
		return nil, errors.New("visor: runner is required")
	}
	if reg == nil {
		return nil, errors.New("visor: registry is required")
	}
	if len(reg.EngineNames()) == 0 {
		return nil, errors.New("visor: registry has no engines")
	}

	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}

	s := &Service{
		opts:    o,
		logger:  o.logger,
		metrics: o.metricsCollector,
		reg:     reg,
		norm:    query.NewNormalizer(reg),
		runner:  runner,
		pool:    workerpool.New(o.workers, o.queueSize),
	}
	s.execCtx, s.cancelExec = context.WithCancel(context.Background())

	cacheOpts := []cache.Option{
		cache.WithLogger(o.logger.Logger),
		cache.WithClock(o.now),
		cache.WithResourceController(o.rc),
		cache.WithEvictionHook(func(id query.SessionID, reason cache.EvictReason) {
			s.logger.LogEviction(id, string(reason))
			s.metrics.RecordEviction(string(reason))
		}),
	}
	s.cache = cache.New(append(cacheOpts, o.cacheOptions...)...)

	return s, nil
}

// Registry returns the engine and dataset registry.
func (s *Service) Registry() *query.Registry { return s.reg }

// Submit normalizes raw, derives its session ID and, unless the query is
// cached or already running, schedules an execution. Identical queries
// submitted concurrently receive the same ID and share one execution.
func (s *Service) Submit(ctx context.Context, raw query.Raw) (query.SessionID, error) {
	start := time.Now()
	id, decision, err := s.submit(ctx, raw)
	s.logger.LogSubmit(ctx, id, decision, err)
	s.metrics.RecordSubmit(decision, time.Since(start), err)
	return id, err
}

func (s *Service) submit(ctx context.Context, raw query.Raw) (query.SessionID, string, error) {
	if s.closed.Load() {
		return "", "", ErrClosed
	}

	def, err := s.norm.Normalize(raw)
	if err != nil {
		return "", "", translateError(err)
	}

	t, err := s.cache.Begin(def)
	if err != nil {
		return "", "", translateError(err)
	}
	if t.Decision == cache.Start {
		if err := s.schedule(ctx, t, def); err != nil {
			return t.ID, "", err
		}
	}
	s.reportCache()
	return t.ID, t.Decision.String(), nil
}

// PollStatus returns the current execution status of id.
func (s *Service) PollStatus(id query.SessionID) (execution.Status, error) {
	st, err := s.cache.Status(id)
	return st, translateError(err)
}

// Lookup resolves id back to its query definition.
func (s *Service) Lookup(id query.SessionID) (query.Definition, error) {
	def, err := s.cache.LookupDefinition(id)
	return def, translateError(err)
}

// Evict removes id from the cache. Sessions with an execution in flight
// are not removed. It reports whether a session was removed.
func (s *Service) Evict(id query.SessionID) bool {
	ok := s.cache.Evict(id)
	s.reportCache()
	return ok
}

// Stats returns cache counters.
func (s *Service) Stats() cache.Stats {
	return s.cache.Stats()
}

// Close cancels running executions, waits for the workers and drops the
// cache. It is idempotent.
func (s *Service) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cancelExec()
	s.pool.Close()
	return s.cache.Close()
}

func (s *Service) reportCache() {
	st := s.cache.Stats()
	s.metrics.RecordCacheSize(st.Entries, st.InFlight, st.MemoryBytes)
}
