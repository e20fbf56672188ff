package stats

import (
	"fmt"
	"strings"
	"sync"
)

// MetricKind discriminates the shape of a MetricValue, standing in for
// metrics.rs's MetricValue enum variants.
type MetricKind int

const (
	MetricCounter MetricKind = iota
	MetricGauge
	MetricHistogram
)

// MetricValue is a single exported metric sample.
type MetricValue struct {
	Kind    MetricKind
	Counter uint64
	Gauge   float64
}

// AsFloat64 returns the value as a float64 regardless of Kind.
func (v MetricValue) AsFloat64() float64 {
	switch v.Kind {
	case MetricGauge:
		return v.Gauge
	default:
		return float64(v.Counter)
	}
}

// CounterValue builds a counter-kind MetricValue.
func CounterValue(v uint64) MetricValue { return MetricValue{Kind: MetricCounter, Counter: v} }

// GaugeValue builds a gauge-kind MetricValue.
func GaugeValue(v float64) MetricValue { return MetricValue{Kind: MetricGauge, Gauge: v} }

// HistogramValue builds a histogram-bucket-kind MetricValue.
func HistogramValue(v uint64) MetricValue { return MetricValue{Kind: MetricHistogram, Counter: v} }

// GcMetrics exports named GC metrics in Prometheus or JSON form, grounded
// on metrics.rs's GcMetrics. The Rust original backs this with an
// IndexMap for insertion-ordered iteration; no ordered-map library
// appears anywhere in the example pack (go.mod audit across every repo
// turned up none), so insertion order is tracked here with a plain slice
// alongside a map, guarded by one mutex.
type GcMetrics struct {
	mu     sync.Mutex
	order  []string
	values map[string]MetricValue
}

// NewGcMetrics returns an empty metrics exporter.
func NewGcMetrics() *GcMetrics {
	return &GcMetrics{values: make(map[string]MetricValue)}
}

// Add records or overwrites the metric named name.
func (m *GcMetrics) Add(name string, value MetricValue) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.values[name]; !exists {
		m.order = append(m.order, name)
	}
	m.values[name] = value
}

// Get returns the metric named name, if any.
func (m *GcMetrics) Get(name string) (MetricValue, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[name]
	return v, ok
}

// ToPrometheus renders every metric in Prometheus text-exposition format.
func (m *GcMetrics) ToPrometheus() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var b strings.Builder
	for _, name := range m.order {
		fmt.Fprintf(&b, "%s %v\n", name, m.values[name].AsFloat64())
	}
	return b.String()
}

// ToJSON renders every metric as a flat JSON object.
func (m *GcMetrics) ToJSON() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	pairs := make([]string, 0, len(m.order))
	for _, name := range m.order {
		pairs = append(pairs, fmt.Sprintf("%q: %v", name, m.values[name].AsFloat64()))
	}
	return "{" + strings.Join(pairs, ",") + "}"
}
