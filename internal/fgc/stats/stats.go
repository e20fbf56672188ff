package stats

import (
	"sync/atomic"
	"time"
)

// GcStats is the central repository of GC performance counters consulted
// by the orchestrator and surfaced to callers, grounded on
// fgc/src/stats/mod.rs's GcStats.
type GcStats struct {
	totalCycles atomic.Uint64
	minorCycles atomic.Uint64
	majorCycles atomic.Uint64

	pauseStats *Histogram

	memoryUsage atomic.Uint64
	startTime   time.Time
}

// NewGcStats returns a fresh stats collector with its uptime clock
// started.
func NewGcStats() *GcStats {
	return &GcStats{pauseStats: NewHistogram(), startTime: time.Now()}
}

// PauseStats returns the underlying pause-time histogram. Go's GC keeps
// this alive for as long as GcStats itself, standing in for the Rust
// original's Arc<Histogram> clone.
func (s *GcStats) PauseStats() *Histogram {
	return s.pauseStats
}

// RecordCollection folds a completed cycle's generation and duration
// into the aggregate counters.
func (s *GcStats) RecordCollection(cycle uint64, generation GcGeneration, duration time.Duration) {
	_ = cycle
	s.totalCycles.Add(1)

	if generation == GenerationYoung {
		s.minorCycles.Add(1)
	} else {
		s.majorCycles.Add(1)
	}

	s.pauseStats.Record(uint64(duration))
}

// RecordMemoryUsage overwrites the last-observed heap usage in bytes.
func (s *GcStats) RecordMemoryUsage(bytes uintptr) {
	s.memoryUsage.Store(uint64(bytes))
}

// Summary returns a point-in-time snapshot of every counter.
func (s *GcStats) Summary() GcSummary {
	return GcSummary{
		TotalCycles: s.totalCycles.Load(),
		MinorCycles: s.minorCycles.Load(),
		MajorCycles: s.majorCycles.Load(),
		AvgPauseMs:  float64(s.pauseStats.Mean()) / 1e6,
		MaxPauseMs:  float64(s.pauseStats.Max()) / 1e6,
		HeapUsedMb:  float64(s.memoryUsage.Load()) / (1024 * 1024),
		UptimeSecs:  uint64(time.Since(s.startTime).Seconds()),
	}
}

// PauseHistogram returns the pause-time histogram, for callers wanting
// percentiles beyond what GcSummary carries.
func (s *GcStats) PauseHistogram() *Histogram {
	return s.pauseStats
}

// Reset zeroes every counter without resetting the uptime clock.
func (s *GcStats) Reset() {
	s.totalCycles.Store(0)
	s.minorCycles.Store(0)
	s.majorCycles.Store(0)
	s.pauseStats.Clear()
}

// GcSummary is a snapshot of GcStats suitable for logging or exposing to
// callers without handing out the live collector.
type GcSummary struct {
	TotalCycles uint64
	MinorCycles uint64
	MajorCycles uint64
	AvgPauseMs  float64
	MaxPauseMs  float64
	HeapUsedMb  float64
	UptimeSecs  uint64
}
