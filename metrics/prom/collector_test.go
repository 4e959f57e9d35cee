package prom

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(mfs))
	for _, mf := range mfs {
		out[mf.GetName()] = mf
	}
	return out
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg, "")
	require.NoError(t, err)

	c.RecordSubmit("start", time.Millisecond, nil)
	c.RecordSubmit("cached", time.Millisecond, nil)
	c.RecordSubmit("cached", time.Millisecond, nil)
	c.RecordSubmit("", time.Millisecond, errors.New("invalid"))
	c.RecordExecution("instances", "backend", 2*time.Second, nil)
	c.RecordExecution("instances", "archive", 10*time.Millisecond, nil)
	c.RecordWait(time.Second, nil)
	c.RecordPage(time.Millisecond, nil)
	c.RecordEviction("expired")
	c.RecordCacheSize(7, 2, 4096)

	mfs := gather(t, reg)

	submits := map[string]float64{}
	for _, m := range mfs["visor_submits_total"].GetMetric() {
		submits[labelValue(m, "decision")] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"start": 1, "cached": 2, "error": 1}, submits)

	assert.Len(t, mfs["visor_execution_duration_seconds"].GetMetric(), 2)
	assert.Len(t, mfs["visor_operation_latency_seconds"].GetMetric(), 4)

	ev := mfs["visor_cache_evictions_total"].GetMetric()
	require.Len(t, ev, 1)
	assert.Equal(t, "expired", labelValue(ev[0], "reason"))
	assert.Equal(t, 1.0, ev[0].GetCounter().GetValue())

	assert.Equal(t, 7.0, mfs["visor_cache_entries"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, 2.0, mfs["visor_executions_in_flight"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, 4096.0, mfs["visor_cache_memory_bytes"].GetMetric()[0].GetGauge().GetValue())
}

func TestCollectorDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg, "visor")
	require.NoError(t, err)

	_, err = NewCollector(reg, "visor")
	assert.Error(t, err)

	_, err = NewCollector(reg, "other")
	assert.NoError(t, err)
}
