package runtime

import (
	"sync"
	"sync/atomic"
)

// JitEventKind discriminates JitEvent's payload, standing in for
// jit.rs's JitEvent enum (Go has no tagged unions).
type JitEventKind int

const (
	JitEventCompiled JitEventKind = iota
	JitEventDeoptimized
	JitEventUnloaded
	JitEventInlineCacheUpdated
)

// JitEvent reports a JIT compiler lifecycle event to the collector.
// Only the fields relevant to Kind are meaningful, the same
// partial-payload convention orchestrator.GcReason uses.
type JitEvent struct {
	Kind JitEventKind

	MethodID  uint64
	CodeSize  uintptr
	StackSize uintptr

	DeoptReason string

	CallSiteID uint64
	NewTarget  *uint64
}

// JitIntegration is the hook a JIT compiler implements to receive GC
// events and report its own root set. Ported from jit.rs's
// JitIntegration trait.
type JitIntegration interface {
	OnEvent(event JitEvent)
	GetRoots() []JitRoot
}

// JitRootType names what kind of slot a JitRoot refers to.
type JitRootType int

const (
	JitRootOopField JitRootType = iota
	JitRootMethod
	JitRootInlineCache
	JitRootConstantPool
)

// JitRoot is a GC root contributed by JIT-compiled code.
type JitRoot struct {
	Address  uintptr
	Type     JitRootType
	MethodID *uint64
}

type compiledMethod struct {
	methodID  uint64
	codeStart uintptr
	codeSize  uintptr
	stackSize uintptr
	hasOops   bool
}

// JitGcInterface mediates between the collector and an optional JIT
// compiler: it tracks compiled methods, forwards events to a
// registered JitIntegration, and reports roots living in JIT-compiled
// code. Ported from jit.rs's JitGcInterface; parking_lot::RwLock
// becomes sync.RWMutex, the substitution this module uses everywhere
// parking_lot appears in the originals (no equivalent library exists
// anywhere in the example pack).
type JitGcInterface struct {
	integrationMu sync.RWMutex
	integration   JitIntegration

	methodsMu sync.RWMutex
	methods   []compiledMethod

	gcRequested          atomic.Bool
	optimizationsEnabled atomic.Bool
	totalCompilations    atomic.Uint64
	totalDeoptimizations atomic.Uint64
}

// NewJitGcInterface creates an interface with optimizations enabled
// and no registered integration.
func NewJitGcInterface() *JitGcInterface {
	j := &JitGcInterface{}
	j.optimizationsEnabled.Store(true)
	return j
}

// RegisterJitIntegration installs the compiler's event/root hooks.
func (j *JitGcInterface) RegisterJitIntegration(integration JitIntegration) {
	j.integrationMu.Lock()
	j.integration = integration
	j.integrationMu.Unlock()
}

// NotifyCompiled records a newly JIT-compiled method and forwards a
// JitEventCompiled event to the registered integration, if any.
func (j *JitGcInterface) NotifyCompiled(methodID uint64, codeStart, codeSize, stackSize uintptr, hasOops bool) {
	j.totalCompilations.Add(1)

	j.methodsMu.Lock()
	j.methods = append(j.methods, compiledMethod{
		methodID:  methodID,
		codeStart: codeStart,
		codeSize:  codeSize,
		stackSize: stackSize,
		hasOops:   hasOops,
	})
	j.methodsMu.Unlock()

	j.notify(JitEvent{Kind: JitEventCompiled, MethodID: methodID, CodeSize: codeSize, StackSize: stackSize})
}

// NotifyDeoptimized drops methodID from the compiled set and forwards
// a JitEventDeoptimized event.
func (j *JitGcInterface) NotifyDeoptimized(methodID uint64, reason string) {
	j.totalDeoptimizations.Add(1)

	j.methodsMu.Lock()
	kept := j.methods[:0]
	for _, m := range j.methods {
		if m.methodID != methodID {
			kept = append(kept, m)
		}
	}
	j.methods = kept
	j.methodsMu.Unlock()

	j.notify(JitEvent{Kind: JitEventDeoptimized, MethodID: methodID, DeoptReason: reason})
}

func (j *JitGcInterface) notify(event JitEvent) {
	j.integrationMu.RLock()
	integration := j.integration
	j.integrationMu.RUnlock()
	if integration != nil {
		integration.OnEvent(event)
	}
}

// RequestGc flags that the JIT compiler wants a collection cycle.
func (j *JitGcInterface) RequestGc() { j.gcRequested.Store(true) }

// CheckGcRequested reports whether RequestGc was called since the
// last ClearGcRequest.
func (j *JitGcInterface) CheckGcRequested() bool { return j.gcRequested.Load() }

// ClearGcRequest resets the GC request flag.
func (j *JitGcInterface) ClearGcRequest() { j.gcRequested.Store(false) }

// GetJitRoots returns a root for every compiled method that carries
// object pointer fields.
func (j *JitGcInterface) GetJitRoots() []JitRoot {
	j.methodsMu.RLock()
	defer j.methodsMu.RUnlock()

	var roots []JitRoot
	for _, m := range j.methods {
		if m.hasOops {
			methodID := m.methodID
			roots = append(roots, JitRoot{Address: m.codeStart, Type: JitRootMethod, MethodID: &methodID})
		}
	}
	return roots
}

// EnableOptimizations turns speculative JIT optimizations back on.
func (j *JitGcInterface) EnableOptimizations() { j.optimizationsEnabled.Store(true) }

// DisableOptimizations turns speculative JIT optimizations off, e.g.
// while the collector needs every method's roots to be conservative.
func (j *JitGcInterface) DisableOptimizations() { j.optimizationsEnabled.Store(false) }

// IsOptimizationsEnabled reports the current optimization setting.
func (j *JitGcInterface) IsOptimizationsEnabled() bool { return j.optimizationsEnabled.Load() }

// JitStats summarizes JIT activity for monitoring.
type JitStats struct {
	TotalCompilations    uint64
	TotalDeoptimizations uint64
	ActiveMethods        int
	GcRequested          bool
}

// GetStats snapshots the interface's counters.
func (j *JitGcInterface) GetStats() JitStats {
	j.methodsMu.RLock()
	active := len(j.methods)
	j.methodsMu.RUnlock()

	return JitStats{
		TotalCompilations:    j.totalCompilations.Load(),
		TotalDeoptimizations: j.totalDeoptimizations.Load(),
		ActiveMethods:        active,
		GcRequested:          j.gcRequested.Load(),
	}
}

// NoopJitIntegration is the default used when no real JIT is present.
type NoopJitIntegration struct{}

// OnEvent implements JitIntegration by discarding the event.
func (NoopJitIntegration) OnEvent(JitEvent) {}

// GetRoots implements JitIntegration by reporting no roots.
func (NoopJitIntegration) GetRoots() []JitRoot { return nil }
