package stats

import "sync"

// GcGeneration names which generation(s) a cycle collected. Defined here
// rather than in internal/fgc/orchestrator (gc.rs's home for the
// equivalent GcGeneration) because GcStats.RecordCollection takes a
// generation argument: Rust's crate-wide visibility lets gc.rs and
// stats/mod.rs share the enum through a cyclic-looking but
// single-crate reference, while Go packages form a DAG. Hoisting the
// type to the leaf package (stats) and having orchestrator reuse it
// keeps both sides importable without a cycle.
type GcGeneration int

const (
	GenerationYoung GcGeneration = iota
	GenerationOld
	GenerationFull
)

func (g GcGeneration) String() string {
	switch g {
	case GenerationYoung:
		return "young"
	case GenerationOld:
		return "old"
	case GenerationFull:
		return "full"
	default:
		return "unknown"
	}
}

// GcCycleStats holds the ZGC-style per-phase breakdown of a single GC
// cycle, grounded on gc_cycle.rs's GcCycleStats.
type GcCycleStats struct {
	CycleID uint64

	PauseMarkStartNs     uint64
	ConcurrentMarkNs     uint64
	PauseMarkEndNs       uint64
	PauseRelocateStartNs uint64
	ConcurrentRelocateNs uint64
	PauseRelocateEndNs   uint64

	HeapUsedBefore  uintptr
	HeapUsedAfter   uintptr
	HeapCommitted   uintptr
	MemoryReclaimed uintptr

	ObjectsScanned   uint64
	ObjectsMarked    uint64
	ObjectsRelocated uint64
	ObjectsGarbage   uint64

	WeakRefsCleared    uint64
	SoftRefsCleared    uint64
	PhantomRefsCleared uint64

	GcThreadsUsed     int
	WorkerTimeTotalNs uint64

	Completed     bool
	Failed        bool
	FailureReason string
}

// NewGcCycleStats returns a zeroed GcCycleStats for the given cycle ID.
func NewGcCycleStats(cycleID uint64) GcCycleStats {
	return GcCycleStats{CycleID: cycleID}
}

// TotalPauseTimeNs returns the sum of every stop-the-world phase.
func (s GcCycleStats) TotalPauseTimeNs() uint64 {
	return s.PauseMarkStartNs + s.PauseMarkEndNs + s.PauseRelocateStartNs + s.PauseRelocateEndNs
}

// TotalConcurrentTimeNs returns the sum of every concurrent phase.
func (s GcCycleStats) TotalConcurrentTimeNs() uint64 {
	return s.ConcurrentMarkNs + s.ConcurrentRelocateNs
}

// TotalCycleTimeNs returns the cycle's total wall-clock time.
func (s GcCycleStats) TotalCycleTimeNs() uint64 {
	return s.TotalPauseTimeNs() + s.TotalConcurrentTimeNs()
}

// PauseTimePercent returns the fraction of the cycle spent paused, as a
// percentage.
func (s GcCycleStats) PauseTimePercent() float64 {
	total := float64(s.TotalCycleTimeNs())
	if total == 0 {
		return 0
	}
	return float64(s.TotalPauseTimeNs()) / total * 100
}

// AggregatedStats summarizes GcCycleStats across every cycle collected so
// far, grounded on gc_cycle.rs's AggregatedStats.
type AggregatedStats struct {
	TotalCycles           uint64
	TotalPauseTimeNs      uint64
	TotalConcurrentTimeNs uint64
	TotalObjectsMarked    uint64
	TotalObjectsRelocated uint64
	TotalMemoryReclaimed  uintptr
	TotalGarbageCollected uint64
	AvgPauseTimeNs        uint64
	AvgConcurrentTimeNs   uint64
	PeakHeapUsed          uintptr
	PeakGcPauseNs         uint64
}

// AvgPauseTimeMs returns the average pause time in milliseconds.
func (a AggregatedStats) AvgPauseTimeMs() float64 { return float64(a.AvgPauseTimeNs) / 1e6 }

// PeakPauseTimeMs returns the peak pause time in milliseconds.
func (a AggregatedStats) PeakPauseTimeMs() float64 { return float64(a.PeakGcPauseNs) / 1e6 }

// PeakHeapMb returns peak heap usage in megabytes.
func (a AggregatedStats) PeakHeapMb() float64 { return float64(a.PeakHeapUsed) / (1024 * 1024) }

// GcStatsCollector aggregates GcCycleStats across every cycle, keeping a
// bounded history of recent cycles, grounded on gc_cycle.rs's
// GcStatsCollector. parking_lot::RwLock is unavailable in the example
// pack (confirmed by go.mod audit), so plain sync.RWMutex stands in.
type GcStatsCollector struct {
	mu           sync.RWMutex
	currentCycle *GcCycleStats
	history      []GcCycleStats
	maxHistory   int

	totalCycles           uint64
	totalPauseTimeNs      uint64
	totalConcurrentTimeNs uint64
	totalObjectsMarked    uint64
	totalObjectsRelocated uint64
	totalMemoryReclaimed  uintptr
	totalGarbageCollected uint64
	totalWeakCleared      uint64
	totalSoftCleared      uint64
	totalPhantomCleared   uint64
	peakHeapUsed          uintptr
	peakGcPauseNs         uint64
}

// NewGcStatsCollector returns a collector retaining up to maxHistory
// recent cycles.
func NewGcStatsCollector(maxHistory int) *GcStatsCollector {
	return &GcStatsCollector{history: make([]GcCycleStats, 0, maxHistory), maxHistory: maxHistory}
}

// StartCycle begins tracking a new cycle.
func (c *GcStatsCollector) StartCycle(cycleID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cycle := NewGcCycleStats(cycleID)
	c.currentCycle = &cycle
}

// CurrentCycle returns a copy of the in-progress cycle's stats, if any is
// being tracked.
func (c *GcStatsCollector) CurrentCycle() (GcCycleStats, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.currentCycle == nil {
		return GcCycleStats{}, false
	}
	return *c.currentCycle, true
}

// UpdateCurrentCycle mutates the in-progress cycle's stats in place via
// fn, for phases that fill in fields incrementally (object counts,
// per-phase timings) before EndCycle finalizes it.
func (c *GcStatsCollector) UpdateCurrentCycle(fn func(*GcCycleStats)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentCycle != nil {
		fn(c.currentCycle)
	}
}

// EndCycle finalizes the given cycle, folding it into the aggregated
// totals and the bounded history, and clears the in-progress marker.
func (c *GcStatsCollector) EndCycle(cycle GcCycleStats) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalCycles++
	c.totalPauseTimeNs += cycle.TotalPauseTimeNs()
	c.totalConcurrentTimeNs += cycle.TotalConcurrentTimeNs()
	c.totalObjectsMarked += cycle.ObjectsMarked
	c.totalObjectsRelocated += cycle.ObjectsRelocated
	c.totalMemoryReclaimed += cycle.MemoryReclaimed
	c.totalGarbageCollected += cycle.ObjectsGarbage
	c.totalWeakCleared += cycle.WeakRefsCleared
	c.totalSoftCleared += cycle.SoftRefsCleared
	c.totalPhantomCleared += cycle.PhantomRefsCleared

	if cycle.HeapUsedAfter > c.peakHeapUsed {
		c.peakHeapUsed = cycle.HeapUsedAfter
	}
	if pause := cycle.TotalPauseTimeNs(); pause > c.peakGcPauseNs {
		c.peakGcPauseNs = pause
	}

	if len(c.history) >= c.maxHistory && c.maxHistory > 0 {
		c.history = c.history[1:]
	}
	if c.maxHistory > 0 {
		c.history = append(c.history, cycle)
	}

	c.currentCycle = nil
}

// GetAggregated returns the totals accumulated across every ended cycle.
func (c *GcStatsCollector) GetAggregated() AggregatedStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var avgPause, avgConcurrent uint64
	if c.totalCycles > 0 {
		avgPause = c.totalPauseTimeNs / c.totalCycles
		avgConcurrent = c.totalConcurrentTimeNs / c.totalCycles
	}
	return AggregatedStats{
		TotalCycles:           c.totalCycles,
		TotalPauseTimeNs:      c.totalPauseTimeNs,
		TotalConcurrentTimeNs: c.totalConcurrentTimeNs,
		TotalObjectsMarked:    c.totalObjectsMarked,
		TotalObjectsRelocated: c.totalObjectsRelocated,
		TotalMemoryReclaimed:  c.totalMemoryReclaimed,
		TotalGarbageCollected: c.totalGarbageCollected,
		AvgPauseTimeNs:        avgPause,
		AvgConcurrentTimeNs:   avgConcurrent,
		PeakHeapUsed:          c.peakHeapUsed,
		PeakGcPauseNs:         c.peakGcPauseNs,
	}
}

// GetHistory returns a copy of the retained recent-cycle history.
func (c *GcStatsCollector) GetHistory() []GcCycleStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]GcCycleStats, len(c.history))
	copy(out, c.history)
	return out
}

// Reset clears every counter and the retained history.
func (c *GcStatsCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentCycle = nil
	c.history = c.history[:0]
	c.totalCycles = 0
	c.totalPauseTimeNs = 0
	c.totalConcurrentTimeNs = 0
	c.totalObjectsMarked = 0
	c.totalObjectsRelocated = 0
	c.totalMemoryReclaimed = 0
	c.totalGarbageCollected = 0
	c.totalWeakCleared = 0
	c.totalSoftCleared = 0
	c.totalPhantomCleared = 0
	c.peakHeapUsed = 0
	c.peakGcPauseNs = 0
}
