package stats_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/fgc/stats"
)

func TestGcMetricsAddAndGet(t *testing.T) {
	m := stats.NewGcMetrics()
	m.Add("gc.cycles", stats.CounterValue(3))

	v, ok := m.Get("gc.cycles")
	require.True(t, ok)
	require.Equal(t, float64(3), v.AsFloat64())
}

func TestGcMetricsGetMissingReturnsFalse(t *testing.T) {
	m := stats.NewGcMetrics()
	_, ok := m.Get("missing")
	require.False(t, ok)
}

func TestGcMetricsToPrometheusPreservesInsertionOrder(t *testing.T) {
	m := stats.NewGcMetrics()
	m.Add("b", stats.GaugeValue(2))
	m.Add("a", stats.CounterValue(1))

	require.Equal(t, "b 2\na 1\n", m.ToPrometheus())
}

func TestGcMetricsToJSON(t *testing.T) {
	m := stats.NewGcMetrics()
	m.Add("heap_mb", stats.GaugeValue(12.5))

	require.Equal(t, `{"heap_mb": 12.5}`, m.ToJSON())
}

func TestGcMetricsAddOverwritesWithoutDuplicatingOrder(t *testing.T) {
	m := stats.NewGcMetrics()
	m.Add("x", stats.CounterValue(1))
	m.Add("x", stats.CounterValue(2))

	require.Equal(t, "x 2\n", m.ToPrometheus())
}
