package visor

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus; metrics/prom provides such an implementation.
type MetricsCollector interface {
	// RecordSubmit is called after each submit. decision is the cache
	// decision ("cached", "running", "start", "failed"), empty on error.
	RecordSubmit(decision string, duration time.Duration, err error)

	// RecordExecution is called when an execution ends. source is "backend"
	// or "archive".
	RecordExecution(engine, source string, duration time.Duration, err error)

	// RecordWait is called after each Wait.
	RecordWait(duration time.Duration, err error)

	// RecordPage is called after each FetchPage.
	RecordPage(duration time.Duration, err error)

	// RecordEviction is called when a session leaves the cache.
	RecordEviction(reason string)

	// RecordCacheSize reports the current cache occupancy.
	RecordCacheSize(entries, inFlight int, memoryBytes int64)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSubmit(string, time.Duration, error)            {}
func (NoopMetricsCollector) RecordExecution(string, string, time.Duration, error) {}
func (NoopMetricsCollector) RecordWait(time.Duration, error)                      {}
func (NoopMetricsCollector) RecordPage(time.Duration, error)                      {}
func (NoopMetricsCollector) RecordEviction(string)                                {}
func (NoopMetricsCollector) RecordCacheSize(int, int, int64)                      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SubmitCount      atomic.Int64
	SubmitErrors     atomic.Int64
	ExecutionCount   atomic.Int64
	ExecutionErrors  atomic.Int64
	ExecutionNanos   atomic.Int64
	ArchiveHits      atomic.Int64
	WaitCount        atomic.Int64
	WaitErrors       atomic.Int64
	PageCount        atomic.Int64
	PageErrors       atomic.Int64
	EvictionCount    atomic.Int64
	CacheEntries     atomic.Int64
	CacheInFlight    atomic.Int64
	CacheMemoryBytes atomic.Int64
	decisionsMu      sync.Mutex
	decisions        map[string]int64
}

// RecordSubmit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSubmit(decision string, _ time.Duration, err error) {
	b.SubmitCount.Add(1)
	if err != nil {
		b.SubmitErrors.Add(1)
		return
	}
	b.decisionsMu.Lock()
	if b.decisions == nil {
		b.decisions = make(map[string]int64)
	}
	b.decisions[decision]++
	b.decisionsMu.Unlock()
}

// RecordExecution implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExecution(_ string, source string, duration time.Duration, err error) {
	b.ExecutionCount.Add(1)
	b.ExecutionNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ExecutionErrors.Add(1)
	}
	if source == sourceArchive {
		b.ArchiveHits.Add(1)
	}
}

// RecordWait implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWait(_ time.Duration, err error) {
	b.WaitCount.Add(1)
	if err != nil {
		b.WaitErrors.Add(1)
	}
}

// RecordPage implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPage(_ time.Duration, err error) {
	b.PageCount.Add(1)
	if err != nil {
		b.PageErrors.Add(1)
	}
}

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction(string) {
	b.EvictionCount.Add(1)
}

// RecordCacheSize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCacheSize(entries, inFlight int, memoryBytes int64) {
	b.CacheEntries.Store(int64(entries))
	b.CacheInFlight.Store(int64(inFlight))
	b.CacheMemoryBytes.Store(memoryBytes)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	b.decisionsMu.Lock()
	decisions := make(map[string]int64, len(b.decisions))
	for k, v := range b.decisions {
		decisions[k] = v
	}
	b.decisionsMu.Unlock()

	return BasicMetricsStats{
		SubmitCount:       b.SubmitCount.Load(),
		SubmitErrors:      b.SubmitErrors.Load(),
		Decisions:         decisions,
		ExecutionCount:    b.ExecutionCount.Load(),
		ExecutionErrors:   b.ExecutionErrors.Load(),
		ExecutionAvgNanos: b.getAvgExecutionNanos(),
		ArchiveHits:       b.ArchiveHits.Load(),
		WaitCount:         b.WaitCount.Load(),
		WaitErrors:        b.WaitErrors.Load(),
		PageCount:         b.PageCount.Load(),
		PageErrors:        b.PageErrors.Load(),
		EvictionCount:     b.EvictionCount.Load(),
		CacheEntries:      b.CacheEntries.Load(),
		CacheInFlight:     b.CacheInFlight.Load(),
		CacheMemoryBytes:  b.CacheMemoryBytes.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgExecutionNanos() int64 {
	count := b.ExecutionCount.Load()
	if count == 0 {
		return 0
	}
	return b.ExecutionNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SubmitCount       int64
	SubmitErrors      int64
	Decisions         map[string]int64
	ExecutionCount    int64
	ExecutionErrors   int64
	ExecutionAvgNanos int64
	ArchiveHits       int64
	WaitCount         int64
	WaitErrors        int64
	PageCount         int64
	PageErrors        int64
	EvictionCount     int64
	CacheEntries      int64
	CacheInFlight     int64
	CacheMemoryBytes  int64
}
