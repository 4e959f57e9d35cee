// Package prom exports visor service metrics to Prometheus.
package prom

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/visor"
)

// DefaultNamespace prefixes all metric names.
const DefaultNamespace = "visor"

// Collector implements visor.MetricsCollector on Prometheus metrics.
type Collector struct {
	submits    *prometheus.CounterVec
	opLatency  *prometheus.HistogramVec
	executions *prometheus.HistogramVec
	evictions  *prometheus.CounterVec
	entries    prometheus.Gauge
	inFlight   prometheus.Gauge
	memory     prometheus.Gauge
}

var _ visor.MetricsCollector = (*Collector)(nil)

// NewCollector creates a collector and registers its metrics with reg.
// A nil reg uses prometheus.DefaultRegisterer; an empty namespace uses
// DefaultNamespace.
func NewCollector(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		submits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submits_total",
			Help:      "Submitted queries by cache decision",
		}, []string{"decision"}),
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of service operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		executions: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "execution_duration_seconds",
			Help:      "Duration of query executions",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"engine", "source", "status"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Sessions removed from the cache by reason",
		}, []string{"reason"}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Sessions held by the cache",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "executions_in_flight",
			Help:      "Executions not yet finished",
		}),
		memory: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_memory_bytes",
			Help:      "Memory charged for cached results",
		}),
	}

	for _, m := range []prometheus.Collector{c.submits, c.opLatency, c.executions, c.evictions, c.entries, c.inFlight, c.memory} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordSubmit implements visor.MetricsCollector.
func (c *Collector) RecordSubmit(decision string, d time.Duration, err error) {
	if err != nil {
		decision = "error"
	}
	c.submits.WithLabelValues(decision).Inc()
	c.opLatency.WithLabelValues("submit", status(err)).Observe(d.Seconds())
}

// RecordExecution implements visor.MetricsCollector.
func (c *Collector) RecordExecution(engine, source string, d time.Duration, err error) {
	c.executions.WithLabelValues(engine, source, status(err)).Observe(d.Seconds())
}

// RecordWait implements visor.MetricsCollector.
func (c *Collector) RecordWait(d time.Duration, err error) {
	c.opLatency.WithLabelValues("wait", status(err)).Observe(d.Seconds())
}

// RecordPage implements visor.MetricsCollector.
func (c *Collector) RecordPage(d time.Duration, err error) {
	c.opLatency.WithLabelValues("page", status(err)).Observe(d.Seconds())
}

// RecordEviction implements visor.MetricsCollector.
func (c *Collector) RecordEviction(reason string) {
	c.evictions.WithLabelValues(reason).Inc()
}

// RecordCacheSize implements visor.MetricsCollector.
func (c *Collector) RecordCacheSize(entries, inFlight int, memoryBytes int64) {
	c.entries.Set(float64(entries))
	c.inFlight.Set(float64(inFlight))
	c.memory.Set(float64(memoryBytes))
}
