package runtime

import (
	"sync"
	"sync/atomic"

	"github.com/faxlang/faxc/internal/fgc/alloc"
	"github.com/faxlang/faxc/internal/fgc/colorptr"
	"github.com/faxlang/faxc/internal/fgc/fgcerr"
	"github.com/faxlang/faxc/internal/fgc/finalizer"
	"github.com/faxlang/faxc/internal/fgc/orchestrator"
)

// RuntimeState names where a Runtime sits in its lifecycle, mirroring
// runtime/mod.rs's RuntimeState.
type RuntimeState int

const (
	StateInitialized RuntimeState = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s RuntimeState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "initialized"
	}
}

// jitRootScanner adapts a JitGcInterface to mark.RootScanner, letting
// the collector's marker pull roots straight from JIT-compiled code
// without either package depending on the other's concrete type.
type jitRootScanner struct {
	jit *JitGcInterface
}

func (s jitRootScanner) ScanRoots() []colorptr.Pointer {
	roots := s.jit.GetJitRoots()
	if len(roots) == 0 {
		return nil
	}
	pointers := make([]colorptr.Pointer, len(roots))
	for i, r := range roots {
		pointers[i] = colorptr.New(r.Address, 0)
	}
	return pointers
}

// Runtime orchestrates every GC-adjacent subsystem an embedder needs:
// the collector itself, safepoint coordination, finalizer execution,
// and (optionally) JIT root reporting. Ported from runtime/mod.rs's
// Runtime.
type Runtime struct {
	gc               *orchestrator.GarbageCollector
	safepointManager *SafepointManager
	jit              *JitGcInterface
	allocator        *alloc.Allocator

	stateMu sync.Mutex
	state   RuntimeState
}

// New builds a Runtime over config, wiring its marker's root source to
// a fresh JitGcInterface (NoopJitIntegration until an embedder
// registers a real one via Jit().RegisterJitIntegration).
func New(config orchestrator.Config) (*Runtime, error) {
	gc, err := orchestrator.New(config)
	if err != nil {
		return nil, err
	}

	jit := NewJitGcInterface()
	jit.RegisterJitIntegration(NoopJitIntegration{})
	gc.Marker().SetRootScanner(jitRootScanner{jit: jit})

	cfg := gc.Config()
	allocator := alloc.NewAllocatorWithTlab(gc.Heap(), cfg.Generational, cfg.TlabSize, cfg.TlabMinSize)

	return &Runtime{
		gc:               gc,
		safepointManager: NewSafepointManager(),
		jit:              jit,
		allocator:        allocator,
		state:            StateInitialized,
	}, nil
}

// Start transitions the runtime to Running and starts its subsystems'
// background work (the safepoint manager's start is a no-op; the
// collector's finalizer queue spawns its continuous draining goroutine
// in addition to the synchronous drain every cleanup phase already
// performs).
func (r *Runtime) Start() error {
	r.setState(StateRunning)
	if err := r.safepointManager.Start(); err != nil {
		return err
	}
	return r.gc.Finalizer().Start()
}

// Stop shuts the collector down (which also stops its finalizer
// queue), stops the safepoint manager, and transitions to Stopped.
func (r *Runtime) Stop() error {
	r.setState(StateStopping)

	if err := r.gc.Shutdown(); err != nil {
		return err
	}
	if err := r.safepointManager.Stop(); err != nil {
		return err
	}

	r.setState(StateStopped)
	return nil
}

func (r *Runtime) setState(s RuntimeState) {
	r.stateMu.Lock()
	r.state = s
	r.stateMu.Unlock()
}

// Gc returns the managed garbage collector.
func (r *Runtime) Gc() *orchestrator.GarbageCollector { return r.gc }

// State returns the runtime's current lifecycle state.
func (r *Runtime) State() RuntimeState {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return r.state
}

// RequestGc requests an explicit collection of generation, to run the
// next time the embedder calls Gc().Collect().
func (r *Runtime) RequestGc(generation orchestrator.GcGeneration) {
	r.gc.RequestGc(generation, orchestrator.ExplicitReason())
}

// Allocate routes an allocation request of size bytes through the
// runtime's TLAB-backed allocator, matching runtime/mod.rs's allocate
// (heap.allocate_tlab_memory).
func (r *Runtime) Allocate(size uintptr) (uintptr, error) {
	if size == 0 {
		return 0, fgcerr.Configuration("Runtime.Allocate", "size must be > 0")
	}
	return r.allocator.Allocate(alloc.NewThreadID(), size, true)
}

// LoadField runs the collector's load barrier over a GC-managed pointer
// field, self-healing it in place if it still points at an object this
// cycle has relocated (§4.C8). Every mutator goroutine reading a pointer
// field out of memory the allocator handed back from Allocate should go
// through this rather than a bare atomic load.
func (r *Runtime) LoadField(field *atomic.Uint64) colorptr.Pointer {
	return r.gc.LoadBarrier().Read(field)
}

// StorePointer runs the collector's generational write barrier for
// storing value into a field belonging to the object at
// containerAddress, recording the containing region in the remembered
// set when an old-generation object gains a young-generation pointer
// (§4.C8).
func (r *Runtime) StorePointer(containerAddress uintptr, value colorptr.Pointer) {
	r.gc.WriteBarrier().StorePointer(containerAddress, value)
}

// RegisterFinalizer queues run to be called with object once it is
// finalized.
func (r *Runtime) RegisterFinalizer(object uintptr, run func(uintptr)) {
	r.gc.Finalizer().Register(object, run)
}

// CheckSafepoint blocks the calling goroutine if a safepoint has been
// requested, for mutator code to call at its poll points.
func (r *Runtime) CheckSafepoint() {
	if r.safepointManager.ShouldBlock() {
		r.safepointManager.BlockAtSafepoint()
	}
}

// Jit returns the runtime's JIT/GC interface, for an embedder to
// register a real JitIntegration and report compiled methods.
func (r *Runtime) Jit() *JitGcInterface { return r.jit }

// Finalizer returns the collector's finalizer queue.
func (r *Runtime) Finalizer() *finalizer.Queue { return r.gc.Finalizer() }

// GcTrigger offers named convenience calls for requesting a collection,
// matching runtime/mod.rs's GcTrigger helper.
type GcTrigger struct{}

// FullGc requests a full-heap collection on rt.
func (GcTrigger) FullGc(rt *Runtime) {
	rt.RequestGc(orchestrator.GenerationFull)
}

// YoungGc requests a young-generation collection on rt.
func (GcTrigger) YoungGc(rt *Runtime) {
	rt.RequestGc(orchestrator.GenerationYoung)
}
