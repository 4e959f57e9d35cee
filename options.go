package visor

import (
	"time"

	"github.com/hupe1980/visor/archive"
	"github.com/hupe1980/visor/backend"
	"github.com/hupe1980/visor/cache"
	"github.com/hupe1980/visor/page"
	"github.com/hupe1980/visor/resource"
)

// Defaults of a Service.
const (
	DefaultPollInterval     = 250 * time.Millisecond
	DefaultMaxWait          = 2 * time.Minute
	DefaultPageSize         = 50
	DefaultWorkers          = 8
	DefaultExecutionTimeout = 10 * time.Minute
	DefaultROIParallelism   = 8
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	pollInterval     time.Duration
	maxWait          time.Duration
	pageSize         int
	pageWindow       int
	workers          int
	queueSize        int
	executionTimeout time.Duration
	archive          *archive.Archive
	describer        Describer
	roiClients       backend.ClientFactory
	roiParallelism   int
	rc               *resource.Controller
	cacheOptions     []cache.Option
	now              func() time.Time
}

func defaultOptions() options {
	return options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		pollInterval:     DefaultPollInterval,
		maxWait:          DefaultMaxWait,
		pageSize:         DefaultPageSize,
		pageWindow:       page.DefaultWindow,
		workers:          DefaultWorkers,
		executionTimeout: DefaultExecutionTimeout,
		roiClients:       backend.Sessions(),
		roiParallelism:   DefaultROIParallelism,
		now:              time.Now,
	}
}

// Option configures a Service.
type Option func(*options)

// WithLogger configures structured logging.
// Pass nil to discard log output.
//
// Example:
//
//	svc, _ := visor.New(runner, reg, visor.WithLogger(visor.NewJSONLogger(slog.LevelInfo)))
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &visor.BasicMetricsCollector{}
//	svc, _ := visor.New(runner, reg, visor.WithMetricsCollector(metrics))
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithPollInterval sets the interval at which Wait polls the execution
// state. Non-positive values are ignored.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithMaxWait bounds the overall time Wait polls before it returns
// ErrWaitTimeout. Non-positive values are ignored; a wait is always bounded.
func WithMaxWait(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.maxWait = d
		}
	}
}

// WithPageSize sets the page size FetchPage uses for non-positive sizes.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithPageWindow sets the width of the page navigation window.
func WithPageWindow(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageWindow = n
		}
	}
}

// WithWorkers sets the number of concurrent executions and the size of
// the queue in front of them.
//
// Recommended sizing: one worker per backend engine thread. Executions
// mostly wait on the network, so workers may exceed GOMAXPROCS.
func WithWorkers(workers, queueSize int) Option {
	return func(o *options) {
		o.workers = workers
		o.queueSize = queueSize
	}
}

// WithExecutionTimeout bounds a single execution. Zero disables the bound;
// per-request engine timeouts still apply.
func WithExecutionTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.executionTimeout = d
		}
	}
}

// WithArchive enables ranking-list persistence. Finished results are
// saved to a, and a fresh execution is answered from a when possible.
func WithArchive(a *archive.Archive) Option {
	return func(o *options) {
		o.archive = a
	}
}

// WithDescriber sets the item description hook used by FetchPage.
func WithDescriber(d Describer) Option {
	return func(o *options) {
		o.describer = d
	}
}

// WithROIClients sets the client factory used to resolve missing regions
// of interest. It defaults to backend.Sessions().
func WithROIClients(f backend.ClientFactory) Option {
	return func(o *options) {
		if f != nil {
			o.roiClients = f
		}
	}
}

// WithROIParallelism bounds concurrent ROI lookups per page.
func WithROIParallelism(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.roiParallelism = n
		}
	}
}

// WithResourceController bounds cached result memory and concurrent
// executions.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithCacheOptions passes options to the query cache, such as
// cache.WithTTL or cache.WithMaxEntries.
func WithCacheOptions(opts ...cache.Option) Option {
	return func(o *options) {
		o.cacheOptions = append(o.cacheOptions, opts...)
	}
}

// WithClock replaces the clock used for timestamps and expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
