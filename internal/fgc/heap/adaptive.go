package heap

import (
	"sync"
	"sync/atomic"
)

// AdaptiveState names the controller's current sizing phase.
type AdaptiveState int

const (
	AdaptiveWarmup AdaptiveState = iota
	AdaptiveStable
	AdaptiveGrowing
	AdaptiveShrinking
)

func (s AdaptiveState) String() string {
	switch s {
	case AdaptiveWarmup:
		return "warmup"
	case AdaptiveGrowing:
		return "growing"
	case AdaptiveShrinking:
		return "shrinking"
	default:
		return "stable"
	}
}

// AdaptiveConfig tunes the sizing controller, with defaults matching
// §4.C9's "Adaptive sizing" spec exactly (growth_factor 1.2,
// shrink_factor 0.8, thresholds 0.75/0.4).
type AdaptiveConfig struct {
	Enabled bool

	GrowthFactor     float64
	ShrinkFactor     float64
	GrowthThreshold  float64
	ShrinkThreshold  float64
	MinSize, MaxSize uintptr
	SampleCount      int
}

// DefaultAdaptiveConfig returns the spec's default tuning.
func DefaultAdaptiveConfig() AdaptiveConfig {
	return AdaptiveConfig{
		Enabled:         true,
		GrowthFactor:    1.2,
		ShrinkFactor:    0.8,
		GrowthThreshold: 0.75,
		ShrinkThreshold: 0.4,
		MinSize:         16 * 1024 * 1024,
		MaxSize:         4 * 1024 * 1024 * 1024,
		SampleCount:     10,
	}
}

type allocationSample struct {
	bytesAllocated uintptr
	timeMs         uint64
}

type allocationRateTracker struct {
	samples      []allocationSample
	currentIndex int
	capacity     int
}

func newAllocationRateTracker(capacity int) *allocationRateTracker {
	return &allocationRateTracker{capacity: capacity}
}

func (t *allocationRateTracker) addSample(bytes uintptr, timeMs uint64) {
	if len(t.samples) < t.capacity {
		t.samples = append(t.samples, allocationSample{bytesAllocated: bytes, timeMs: timeMs})
		return
	}
	t.samples[t.currentIndex] = allocationSample{bytesAllocated: bytes, timeMs: timeMs}
	t.currentIndex = (t.currentIndex + 1) % t.capacity
}

func (t *allocationRateTracker) averageRatePerSec() uint64 {
	if len(t.samples) == 0 {
		return 0
	}
	var totalBytes uintptr
	var totalTimeMs uint64
	for _, s := range t.samples {
		totalBytes += s.bytesAllocated
		totalTimeMs += s.timeMs
	}
	if totalTimeMs == 0 {
		return 0
	}
	return uint64(float64(totalBytes) / (float64(totalTimeMs) / 1000.0))
}

type gcStatsForSizing struct {
	gcCount          uint64
	heapUsedBefore   uintptr
	heapUsedAfter    uintptr
	reclaimedBytes   uintptr
	collectionReason string
}

// HeapSizeStats is a point-in-time snapshot of the controller's state.
type HeapSizeStats struct {
	CurrentSize  uintptr
	MinSize      uintptr
	MaxSize      uintptr
	State        AdaptiveState
	GcCount      uint64
	HeapUsed     uintptr
	AvgAllocRate uint64
}

// UsagePercent returns HeapUsed as a percentage of CurrentSize.
func (s HeapSizeStats) UsagePercent() float64 {
	if s.CurrentSize == 0 {
		return 0
	}
	return float64(s.HeapUsed) / float64(s.CurrentSize) * 100
}

// AdaptiveHeapController adjusts the soft-max heap size each cycle per
// §4.C9's growth/shrink rule, grounded on
// fgc/src/heap/adaptive.rs's AdaptiveHeapController.
type AdaptiveHeapController struct {
	minHeap     atomic.Uint64
	maxHeap     atomic.Uint64
	softMaxHeap atomic.Uint64

	mu        sync.RWMutex
	allocRate *allocationRateTracker
	lastGc    gcStatsForSizing
	state     AdaptiveState

	config AdaptiveConfig
}

// NewAdaptiveHeapController builds a controller starting at initialSize.
func NewAdaptiveHeapController(initialSize uintptr, config AdaptiveConfig) *AdaptiveHeapController {
	c := &AdaptiveHeapController{
		allocRate: newAllocationRateTracker(config.SampleCount),
		state:     AdaptiveWarmup,
		config:    config,
	}
	c.minHeap.Store(uint64(config.MinSize))
	c.maxHeap.Store(uint64(config.MaxSize))
	c.softMaxHeap.Store(uint64(initialSize))
	return c
}

// RecordAllocation records one allocation-rate sample.
func (c *AdaptiveHeapController) RecordAllocation(bytes uintptr, timeMs uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allocRate.addSample(bytes, timeMs)
}

// RecordGC records the outcome of a completed collection cycle.
func (c *AdaptiveHeapController) RecordGC(usedBefore, usedAfter, reclaimed uintptr, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastGc.gcCount++
	c.lastGc.heapUsedBefore = usedBefore
	c.lastGc.heapUsedAfter = usedAfter
	c.lastGc.reclaimedBytes = reclaimed
	c.lastGc.collectionReason = reason
}

// CalculateNewHeapSize applies §4.C9's growth/shrink/warmup rule and
// returns (then persists) the new soft-max heap size.
func (c *AdaptiveHeapController) CalculateNewHeapSize() uintptr {
	if !c.config.Enabled {
		return uintptr(c.softMaxHeap.Load())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	currentSoftMax := uintptr(c.softMaxHeap.Load())

	if c.lastGc.gcCount < 3 {
		c.state = AdaptiveWarmup
		return currentSoftMax
	}

	usageRatio := 0.0
	if currentSoftMax > 0 {
		usageRatio = float64(c.lastGc.heapUsedAfter) / float64(currentSoftMax)
	}

	newSize := currentSoftMax

	switch {
	case usageRatio > c.config.GrowthThreshold:
		ratePerSec := c.allocRate.averageRatePerSec()
		if ratePerSec > 0 {
			target := uintptr(ratePerSec * 3)
			newSize = uintptr(float64(target) * c.config.GrowthFactor)
		} else {
			newSize = uintptr(float64(currentSoftMax) * c.config.GrowthFactor)
		}
		c.state = AdaptiveGrowing
	case usageRatio < c.config.ShrinkThreshold && currentSoftMax > c.config.MinSize:
		newSize = uintptr(float64(currentSoftMax) * c.config.ShrinkFactor)
		c.state = AdaptiveShrinking
	default:
		c.state = AdaptiveStable
	}

	newSize = clampSize(newSize, c.config.MinSize, c.config.MaxSize)
	c.softMaxHeap.Store(uint64(newSize))
	return newSize
}

func clampSize(v, min, max uintptr) uintptr {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// GetCurrentSize returns the current soft-max heap size.
func (c *AdaptiveHeapController) GetCurrentSize() uintptr {
	return uintptr(c.softMaxHeap.Load())
}

// GetState returns the controller's current sizing phase.
func (c *AdaptiveHeapController) GetState() AdaptiveState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// SetMinSize updates the configured minimum heap size.
func (c *AdaptiveHeapController) SetMinSize(size uintptr) { c.minHeap.Store(uint64(size)) }

// SetMaxSize updates the configured maximum heap size.
func (c *AdaptiveHeapController) SetMaxSize(size uintptr) { c.maxHeap.Store(uint64(size)) }

// GetHeapStats returns a snapshot of the controller's current state.
func (c *AdaptiveHeapController) GetHeapStats() HeapSizeStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return HeapSizeStats{
		CurrentSize:  uintptr(c.softMaxHeap.Load()),
		MinSize:      uintptr(c.minHeap.Load()),
		MaxSize:      uintptr(c.maxHeap.Load()),
		State:        c.state,
		GcCount:      c.lastGc.gcCount,
		HeapUsed:     c.lastGc.heapUsedAfter,
		AvgAllocRate: c.allocRate.averageRatePerSec(),
	}
}
