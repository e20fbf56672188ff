package mark

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/faxlang/faxc/internal/fgc/colorptr"
	"github.com/faxlang/faxc/internal/fgc/fgcerr"
	"github.com/faxlang/faxc/internal/fgc/heap"
)

// RootScanner supplies the initial set of GC roots (stack slots, globals,
// JIT-compiled method oop fields) at the start of a cycle's pause-mark
// phase. internal/fgc/runtime's JitGcInterface is the production source
// once wired by the embedder; tests substitute a closure-backed stub.
type RootScanner interface {
	ScanRoots() []colorptr.Pointer
}

// RootScannerFunc adapts a plain function to RootScanner.
type RootScannerFunc func() []colorptr.Pointer

// ScanRoots implements RootScanner.
func (f RootScannerFunc) ScanRoots() []colorptr.Pointer { return f() }

// Marker is the orchestrator's handle on concurrent marking: it owns the
// work-stealing Queue (§4.C11) and drives a pool of worker goroutines
// that drain it until no more work remains. Grounded on gc.rs's call
// sites against crate::marker::Marker (scan_roots, start_concurrent_marking,
// wait_completion, finalize_marking, shutdown) — marker/mod.rs itself was
// not retrieved, so this type's shape is reconstructed from how gc.rs
// calls it rather than ported line-by-line.
//
// What marking actually traces is necessarily shallower than the
// original: fgc/src/object/{header,refmap,weak}.rs, which would let a
// worker walk a live object's outgoing pointer fields, were not
// retrieved either. A worker here marks the region containing each
// popped pointer live and nothing more — it does not discover further
// edges from an object's fields. Wiring a real object graph walk is
// left to whatever embeds this package once an object/reference-map
// layout exists.
type Marker struct {
	h     *heap.Heap
	queue *Queue

	scanner RootScanner

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	objectsMarked atomic.Uint64
}

// NewMarker builds a Marker over h, creating its own work-stealing Queue.
func NewMarker(h *heap.Heap) *Marker {
	return &Marker{h: h, queue: New()}
}

// Queue returns the underlying work-stealing queue, so a LoadBarrier can
// be wired to push newly-discovered live pointers directly into it.
func (m *Marker) Queue() *Queue { return m.queue }

// SetRootScanner installs the source of initial GC roots. A nil scanner
// (the default) makes ScanRoots a no-op, which is valid for embedders
// that push roots directly via Queue().PushBatch before calling
// StartConcurrentMarking.
func (m *Marker) SetRootScanner(s RootScanner) { m.scanner = s }

// ScanRoots pulls the current root set from the configured scanner and
// seeds the queue with it (gc.rs's pause_mark_start step).
func (m *Marker) ScanRoots() error {
	if m.scanner == nil {
		return nil
	}
	roots := m.scanner.ScanRoots()
	m.queue.PushBatch(roots)
	return nil
}

// markPointer marks the region containing p's address live, tracing no
// further (see the type doc's object-graph caveat).
func (m *Marker) markPointer(p colorptr.Pointer) {
	region, ok := m.h.ContainingRegion(p.Address())
	if !ok {
		return
	}
	region.MarkLive(p.Address())
	m.objectsMarked.Add(1)
}

// workerLoop drains w until told to stop, marking every pointer popped.
// On stop it marks whatever is still in its own local deque before
// returning.
func (m *Marker) workerLoop(w *Worker, stop <-chan struct{}) {
	defer m.wg.Done()
	drainLocal := func() {
		for p, ok := w.local.pop(); ok; p, ok = w.local.pop() {
			m.markPointer(p)
		}
	}
	for {
		select {
		case <-stop:
			drainLocal()
			return
		default:
		}
		if p, ok := w.Pop(); ok {
			m.markPointer(p)
			continue
		}
		select {
		case <-stop:
			drainLocal()
			return
		case <-time.After(time.Millisecond):
		}
	}
}

// StartConcurrentMarking spawns numThreads marking workers backed by the
// shared queue (gc.rs's concurrent_mark step). Returns
// fgcerr.ErrInternal if marking is already running.
func (m *Marker) StartConcurrentMarking(numThreads int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return fgcerr.Internal("Marker.StartConcurrentMarking", "marking already in progress")
	}
	if numThreads <= 0 {
		numThreads = 1
	}

	m.stopCh = make(chan struct{})
	m.running = true
	for i := 0; i < numThreads; i++ {
		m.queue.RegisterWorker()
		w := m.queue.CreateWorker()
		m.wg.Add(1)
		go m.workerLoop(w, m.stopCh)
	}
	return nil
}

// WaitCompletion blocks until the shared injector has drained, then
// stops the worker pool (gc.rs's wait_completion). It does not confirm
// every worker's local deque is empty first — Queue exposes no
// aggregate view across per-worker deques — so a worker mid-batch when
// the injector empties finishes that batch concurrently with shutdown;
// FinalizeMarking (run next, after stopWorkers joins every goroutine)
// sees a fully quiesced queue either way.
func (m *Marker) WaitCompletion() error {
	for !m.queue.IsEmpty() {
		time.Sleep(time.Millisecond)
	}
	return m.stopWorkers()
}

func (m *Marker) stopWorkers() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	close(m.stopCh)
	m.running = false
	m.mu.Unlock()

	m.wg.Wait()
	return nil
}

// FinalizeMarking drains any remainder left in the injector synchronously
// (gc.rs's pause_mark_end, run after workers have already stopped).
func (m *Marker) FinalizeMarking() error {
	for {
		p, ok := m.drainOne()
		if !ok {
			break
		}
		m.markPointer(p)
	}
	return nil
}

func (m *Marker) drainOne() (colorptr.Pointer, bool) {
	stolen := &deque{}
	if m.queue.injector.stealBatch(stolen, 1) == 0 {
		return 0, false
	}
	return stolen.pop()
}

// Shutdown stops any running worker pool and permanently closes the
// queue, for gc.rs's GarbageCollector shutdown sequence. Unlike
// WaitCompletion (run between cycles, leaves the queue open for the
// next cycle's roots), Shutdown is lifetime-final: after it returns,
// Queue().Push/PushBatch are no-ops.
func (m *Marker) Shutdown() error {
	if err := m.stopWorkers(); err != nil {
		return err
	}
	m.queue.Close()
	return nil
}

// ObjectsMarked returns the number of pointers marked live since the
// marker was created.
func (m *Marker) ObjectsMarked() uint64 {
	return m.objectsMarked.Load()
}
