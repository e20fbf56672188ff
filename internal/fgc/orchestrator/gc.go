package orchestrator

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faxlang/faxc/internal/fgc/addrspace"
	"github.com/faxlang/faxc/internal/fgc/barrier"
	"github.com/faxlang/faxc/internal/fgc/colorptr"
	"github.com/faxlang/faxc/internal/fgc/finalizer"
	"github.com/faxlang/faxc/internal/fgc/heap"
	"github.com/faxlang/faxc/internal/fgc/mark"
	"github.com/faxlang/faxc/internal/fgc/relocate"
	"github.com/faxlang/faxc/internal/fgc/stats"
	"github.com/faxlang/faxc/internal/logging"
)

// GcState names the collection cycle's current phase.
type GcState int

const (
	StateIdle GcState = iota
	StateMarking
	StateRelocating
	StateCleanup
)

func (s GcState) String() string {
	switch s {
	case StateMarking:
		return "marking"
	case StateRelocating:
		return "relocating"
	case StateCleanup:
		return "cleanup"
	default:
		return "idle"
	}
}

// GcGeneration names which generation a cycle targets. Reused from
// internal/fgc/stats rather than redefined here — see that package's
// GcGeneration doc for why the type lives there instead of here, its
// more natural Rust-crate home.
type GcGeneration = stats.GcGeneration

const (
	GenerationYoung = stats.GenerationYoung
	GenerationOld   = stats.GenerationOld
	GenerationFull  = stats.GenerationFull
)

// GcReasonKind discriminates GcReason's payload, standing in for gc.rs's
// GcReason enum (Go has no tagged unions).
type GcReasonKind int

const (
	ReasonHeapThreshold GcReasonKind = iota
	ReasonExplicit
	ReasonPeriodic
	ReasonMemoryPressure
	ReasonShutdown
)

// GcReason explains why a cycle was requested, for logging and stats.
// Used and Threshold are only meaningful when Kind is ReasonHeapThreshold.
type GcReason struct {
	Kind      GcReasonKind
	Used      uintptr
	Threshold uintptr
}

// HeapThresholdReason reports a cycle triggered by heap occupancy.
func HeapThresholdReason(used, threshold uintptr) GcReason {
	return GcReason{Kind: ReasonHeapThreshold, Used: used, Threshold: threshold}
}

// ExplicitReason reports a cycle requested directly by an embedder call.
func ExplicitReason() GcReason { return GcReason{Kind: ReasonExplicit} }

// PeriodicReason reports a cycle triggered by an interval timer.
func PeriodicReason() GcReason { return GcReason{Kind: ReasonPeriodic} }

// MemoryPressureReason reports a cycle triggered by system memory
// pressure.
func MemoryPressureReason() GcReason { return GcReason{Kind: ReasonMemoryPressure} }

// ShutdownReason reports the final cycle run during collector shutdown.
func ShutdownReason() GcReason { return GcReason{Kind: ReasonShutdown} }

func (r GcReason) String() string {
	switch r.Kind {
	case ReasonHeapThreshold:
		return "heap-threshold"
	case ReasonPeriodic:
		return "periodic"
	case ReasonMemoryPressure:
		return "memory-pressure"
	case ReasonShutdown:
		return "shutdown"
	default:
		return "explicit"
	}
}

// AllocationResult reports the outcome of an allocation request routed
// through the collector, grounded on gc.rs's AllocationResult.
type AllocationResult struct {
	Address    uintptr
	Size       uintptr
	Generation GcGeneration
}

// GcInfo describes an in-flight or pending GC cycle, grounded on gc.rs's
// GcInfo.
type GcInfo struct {
	Generation        GcGeneration
	Reason            GcReason
	StartTime         time.Time
	EstimatedDuration time.Duration
}

// GarbageCollector coordinates every GC subsystem through one collection
// cycle: Marker for concurrent marking, Relocator for object relocation,
// Heap for region bookkeeping, and GcStats for monitoring. Grounded on
// gc.rs's GarbageCollector.
type GarbageCollector struct {
	heap      *heap.Heap
	marker    *mark.Marker
	relocator *relocate.Relocator
	final     *finalizer.Queue
	adaptive  *heap.AdaptiveHeapController
	loadBar   *barrier.LoadBarrier
	writeBar  *barrier.WriteBarrier
	config    Config
	stats     *stats.GcStats
	log       *logging.Logger

	stateMu sync.Mutex
	state   GcState

	cycleCount  atomic.Uint64
	gcRequested atomic.Bool

	generationMu sync.Mutex
	generation   GcGeneration

	usageMu     sync.Mutex
	usageBefore uintptr
}

// New builds a GarbageCollector from config, validating it first.
func New(config Config) (*GarbageCollector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	h := heap.NewHeap(addrspace.New(), heap.NewNumaManager())
	log := logging.Discard
	if config.Verbose {
		log = logging.New(os.Stdout, true)
	}

	adaptiveConfig := heap.DefaultAdaptiveConfig()
	if config.MinHeapSize > 0 {
		adaptiveConfig.MinSize = config.MinHeapSize
	}
	if config.MaxHeapSize > 0 {
		adaptiveConfig.MaxSize = config.MaxHeapSize
	}
	initialSize := config.initial()
	if initialSize == 0 {
		initialSize = adaptiveConfig.MinSize
	}

	marker := mark.NewMarker(h)
	relocator := relocate.New(h)

	gc := &GarbageCollector{
		heap:       h,
		marker:     marker,
		relocator:  relocator,
		final:      finalizer.New(),
		adaptive:   heap.NewAdaptiveHeapController(initialSize, adaptiveConfig),
		config:     config,
		stats:      stats.NewGcStats(),
		log:        log,
		generation: GenerationYoung,
	}

	regionOf := func(address uintptr) uint64 {
		if region, ok := h.ContainingRegion(address); ok {
			return uint64(region.Start)
		}
		return 0
	}
	isOld := func(region uint64) bool {
		gen, ok := h.RegionGeneration(region)
		return ok && gen == heap.GenerationOld
	}
	isYoung := func(region uint64) bool {
		gen, ok := h.RegionGeneration(region)
		return ok && gen == heap.GenerationYoung
	}

	gc.loadBar = barrier.NewLoadBarrier(relocator, marker.Queue(), relocator.InRelocationSet)
	gc.writeBar = barrier.NewWriteBarrier(regionOf, h.RememberedSet(), isOld, isYoung)

	return gc, nil
}

// RequestGc records generation/reason for the next Collect call. The
// actual cycle runs synchronously when the embedder calls Collect — this
// package has no background GC thread of its own (gc.rs's request_gc
// likewise only flips a flag; a real async trigger is the embedder's
// responsibility, per runtime.Runtime).
func (gc *GarbageCollector) RequestGc(generation GcGeneration, reason GcReason) {
	gc.log.Verbose("[GC] Requesting %s GC, reason: %s", generation, reason)

	gc.generationMu.Lock()
	gc.generation = generation
	gc.generationMu.Unlock()

	gc.gcRequested.Store(true)
}

// Collect runs one full GC cycle end to end: pause-mark-start, concurrent
// mark, pause-mark-end, prepare relocation, concurrent relocate, and
// cleanup. Grounded on gc.rs's collect.
func (gc *GarbageCollector) Collect() error {
	gc.generationMu.Lock()
	generation := gc.generation
	gc.generationMu.Unlock()

	timer := stats.NewGcTimer()

	gc.setState(StateMarking)
	if err := gc.pauseMarkStart(); err != nil {
		return err
	}
	if err := gc.concurrentMark(); err != nil {
		return err
	}
	if err := gc.pauseMarkEnd(); err != nil {
		return err
	}

	gc.setState(StateRelocating)
	if err := gc.prepareRelocation(); err != nil {
		return err
	}
	if err := gc.concurrentRelocate(); err != nil {
		return err
	}
	if err := gc.cleanup(); err != nil {
		return err
	}

	gc.setState(StateIdle)

	duration := timer.Elapsed()
	gc.stats.RecordCollection(gc.cycleCount.Load(), generation, duration)
	gc.cycleCount.Add(1)
	gc.gcRequested.Store(false)

	gc.log.Verbose("[GC] Collection complete in %.2fms", float64(duration)/float64(time.Millisecond))
	return nil
}

func (gc *GarbageCollector) pauseMarkStart() error {
	gc.log.Verbose("[GC] Pause Mark Start (STW)")

	gc.usageMu.Lock()
	gc.usageBefore = gc.heap.UpdateStats().UsedBytes
	gc.usageMu.Unlock()

	gc.loadBar.SetGoodColor(colorptr.GoodColor(gc.cycleCount.Load()%2 == 0))
	gc.seedRememberedSetRoots()

	gc.heap.FlipMarkBits()
	return gc.marker.ScanRoots()
}

// seedRememberedSetRoots folds every region the write barrier flagged as
// holding an old-to-young pointer into this cycle's roots, so a young
// collection need not rescan the whole old generation (§4.C8/§4.C9's
// card-table role), then clears the set for the next cycle.
func (gc *GarbageCollector) seedRememberedSetRoots() {
	remembered := gc.heap.RememberedSet()
	dirty := remembered.Regions()
	if len(dirty) == 0 {
		return
	}
	good := gc.loadBar.GoodColor()
	roots := make([]colorptr.Pointer, 0, len(dirty))
	for _, region := range dirty {
		roots = append(roots, colorptr.New(uintptr(region), good))
	}
	gc.marker.Queue().PushBatch(roots)
	remembered.Clear()
}

func (gc *GarbageCollector) concurrentMark() error {
	numThreads := gc.config.threads()
	gc.log.Verbose("[GC] Concurrent Mark with %d threads", numThreads)

	if err := gc.marker.StartConcurrentMarking(numThreads); err != nil {
		return err
	}
	return gc.marker.WaitCompletion()
}

func (gc *GarbageCollector) pauseMarkEnd() error {
	gc.log.Verbose("[GC] Pause Mark End (STW)")
	return gc.marker.FinalizeMarking()
}

func (gc *GarbageCollector) prepareRelocation() error {
	gc.log.Verbose("[GC] Prepare Relocation")
	return gc.relocator.PrepareRelocation()
}

func (gc *GarbageCollector) concurrentRelocate() error {
	gc.log.Verbose("[GC] Concurrent Relocate")
	if err := gc.relocator.StartRelocation(); err != nil {
		return err
	}
	return gc.relocator.WaitRelocationComplete()
}

func (gc *GarbageCollector) cleanup() error {
	gc.log.Verbose("[GC] Cleanup")
	if err := gc.relocator.CompleteRelocation(); err != nil {
		return err
	}
	gc.final.RunPending()

	usage := gc.heap.UpdateStats()
	gc.stats.RecordMemoryUsage(usage.UsedBytes)

	gc.generationMu.Lock()
	generation := gc.generation
	gc.generationMu.Unlock()

	gc.usageMu.Lock()
	before := gc.usageBefore
	gc.usageMu.Unlock()

	reclaimed := uintptr(0)
	if before > usage.UsedBytes {
		reclaimed = before - usage.UsedBytes
	}
	gc.adaptive.RecordGC(before, usage.UsedBytes, reclaimed, generation.String())
	newSize := gc.adaptive.CalculateNewHeapSize()
	gc.log.Verbose("[GC] Adaptive heap size now %d bytes (%s)", newSize, gc.adaptive.GetState())

	return nil
}

func (gc *GarbageCollector) setState(s GcState) {
	gc.stateMu.Lock()
	gc.state = s
	gc.stateMu.Unlock()
}

// IsCollecting reports whether a cycle is currently running.
func (gc *GarbageCollector) IsCollecting() bool {
	gc.stateMu.Lock()
	defer gc.stateMu.Unlock()
	return gc.state != StateIdle
}

// State returns the collector's current phase.
func (gc *GarbageCollector) State() GcState {
	gc.stateMu.Lock()
	defer gc.stateMu.Unlock()
	return gc.state
}

// Heap returns the managed heap, for allocation routing.
func (gc *GarbageCollector) Heap() *heap.Heap { return gc.heap }

// Marker returns the collector's concurrent marker, for embedders that
// need to wire a custom root source (e.g. runtime.JitGcInterface) via
// marker.SetRootScanner.
func (gc *GarbageCollector) Marker() *mark.Marker { return gc.marker }

// Finalizer returns the collector's finalizer queue. Every cycle's
// cleanup phase drains it synchronously; an embedder may additionally
// call Start on it for continuous background draining between cycles.
func (gc *GarbageCollector) Finalizer() *finalizer.Queue { return gc.final }

// Stats returns the collector's statistics collector.
func (gc *GarbageCollector) Stats() *stats.GcStats { return gc.stats }

// Config returns the configuration the collector was built with, for
// callers (runtime.Runtime) that need to read Generational/TlabSize/etc.
// when wiring their own allocator.
func (gc *GarbageCollector) Config() Config { return gc.config }

// HeapSizeStats returns the adaptive heap controller's current snapshot.
func (gc *GarbageCollector) HeapSizeStats() heap.HeapSizeStats { return gc.adaptive.GetHeapStats() }

// LoadBarrier returns the collector's self-healing load barrier (§4.C8),
// shared by every mutator thread.
func (gc *GarbageCollector) LoadBarrier() *barrier.LoadBarrier { return gc.loadBar }

// WriteBarrier returns the collector's generational write barrier (§4.C8).
func (gc *GarbageCollector) WriteBarrier() *barrier.WriteBarrier { return gc.writeBar }

// CycleCount returns the number of GC cycles executed so far.
func (gc *GarbageCollector) CycleCount() uint64 { return gc.cycleCount.Load() }

// Shutdown requests a final full-heap cycle, waits for any in-flight
// collection to finish, and stops the marker's worker pool.
func (gc *GarbageCollector) Shutdown() error {
	gc.log.Verbose("[GC] Shutdown")
	gc.RequestGc(GenerationFull, ShutdownReason())

	for gc.IsCollecting() {
		time.Sleep(10 * time.Millisecond)
	}

	_ = gc.final.Stop()
	return gc.marker.Shutdown()
}
