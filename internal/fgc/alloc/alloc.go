package alloc

import (
	"github.com/faxlang/faxc/internal/fgc/heap"
)

// Default tuning constants mirroring mod.rs's Allocator::new, except for
// the young/old generation's paired "8"/"100"/"50" construction args,
// whose exact meaning (capacity? concurrency hint?) can't be recovered
// without bump.rs — dropped rather than guessed; see DESIGN.md.
const (
	defaultYoungRegionSize = heap.SmallRegionSize
	defaultOldRegionSize   = heap.MediumRegionSize
	defaultMaxYoungRegions = 100
	defaultMaxOldRegions   = 50

	defaultTlabSize = 256 * 1024
	defaultTlabMin  = 16 * 1024
	defaultTlabMax  = 2 * 1024 * 1024
	defaultMaxTlabs = 1000
)

// AllocatorStats summarizes one Allocator's activity (mod.rs's
// AllocatorStats).
type AllocatorStats struct {
	YoungAllocated uint64
	OldAllocated   uint64
	LargeAllocated uintptr
	LargeObjects   uint64
	ActiveTlabs    int
	TlabRefills    uint64
}

// Allocator is the top-level entry point for object allocation: it
// routes large objects to a dedicated allocator, small/medium objects
// through a per-thread TLAB fast path, and falls back to bump
// allocation directly when no TLAB is available or it's exhausted
// (mod.rs's Allocator, "Allocation Flow" doc comment).
type Allocator struct {
	young *MultiBumpAllocator
	old   *MultiBumpAllocator
	large *LargeObjectAllocator
	tlabs *TlabManager

	generational bool
	heap         *heap.Heap
}

// NewAllocator builds an allocator over h. When generational is true,
// AllocateYoung requests go to the young generation; otherwise every
// allocation lands in the old generation.
func NewAllocator(h *heap.Heap, generational bool) *Allocator {
	return NewAllocatorWithTlab(h, generational, defaultTlabSize, defaultTlabMin)
}

// NewAllocatorWithTlab builds an allocator like NewAllocator but with
// caller-specified TLAB sizing, for an embedder's Config.TlabSize /
// Config.TlabMinSize (§6 Configuration) to reach the allocator the
// runtime actually uses. A zero tlabSize or tlabMinSize falls back to the
// package's own default, matching orchestrator.Config's "zero means use
// the built-in default" convention.
func NewAllocatorWithTlab(h *heap.Heap, generational bool, tlabSize, tlabMinSize uintptr) *Allocator {
	if tlabSize == 0 {
		tlabSize = defaultTlabSize
	}
	if tlabMinSize == 0 {
		tlabMinSize = defaultTlabMin
	}

	young := NewMultiBumpAllocator(h, heap.GenerationYoung, heap.SizeClassSmall, defaultYoungRegionSize, defaultMaxYoungRegions)
	old := NewMultiBumpAllocator(h, heap.GenerationOld, heap.SizeClassMedium, defaultOldRegionSize, defaultMaxOldRegions)
	return &Allocator{
		young:        young,
		old:          old,
		large:        NewLargeObjectAllocator(h, heap.GenerationOld),
		tlabs:        NewTlabManager(young, tlabSize, tlabMinSize, defaultTlabMax, defaultMaxTlabs),
		generational: generational,
		heap:         h,
	}
}

// Allocate chooses a strategy by size and generation: objects above
// LargeThreshold go to the dedicated large-object allocator; everything
// else tries thread's TLAB first, falling back to the young or old bump
// allocator directly when the TLAB can't serve the request.
//
// Go has no thread-local storage, so callers pass the ThreadID they
// obtained from NewThreadID (mod.rs instead derives one internally via
// `thread_local!`).
func (a *Allocator) Allocate(id ThreadID, size uintptr, young bool) (uintptr, error) {
	if size > LargeThreshold {
		return a.large.Allocate(size)
	}

	if tlab, err := a.tlabs.GetOrCreateTlab(id); err == nil {
		if tlab.HasSpace(size) {
			if addr, ok := tlab.Allocate(size); ok {
				return addr, nil
			}
		}
	}

	if a.generational && young {
		return a.young.Allocate(size)
	}
	return a.old.Allocate(size)
}

// AllocateYoung allocates size bytes in the young generation.
func (a *Allocator) AllocateYoung(id ThreadID, size uintptr) (uintptr, error) {
	return a.Allocate(id, size, true)
}

// AllocateOld allocates size bytes in the old generation.
func (a *Allocator) AllocateOld(id ThreadID, size uintptr) (uintptr, error) {
	return a.Allocate(id, size, false)
}

// PromoteObject copies a surviving size-byte object into the old
// generation, returning its new address. oldAddress is accepted for
// symmetry with the relocator's copy step but unused here — the actual
// byte copy is the relocator's responsibility (§4.C12).
func (a *Allocator) PromoteObject(id ThreadID, oldAddress uintptr, size uintptr) (uintptr, error) {
	return a.AllocateOld(id, size)
}

// GetCurrentTlab returns id's TLAB, creating one if needed.
func (a *Allocator) GetCurrentTlab(id ThreadID) (*Tlab, error) {
	return a.tlabs.GetOrCreateTlab(id)
}

// RefillTlab discards id's TLAB and allocates a fresh one.
func (a *Allocator) RefillTlab(id ThreadID) (*Tlab, error) {
	return a.tlabs.RefillTlab(id)
}

// Stats returns a snapshot of every sub-allocator's counters.
func (a *Allocator) Stats() AllocatorStats {
	return AllocatorStats{
		YoungAllocated: a.young.TotalAllocated(),
		OldAllocated:   a.old.TotalAllocated(),
		LargeAllocated: a.large.TotalAllocated(),
		LargeObjects:   a.large.ObjectCount(),
		ActiveTlabs:    a.tlabs.ActiveTlabCount(),
		TlabRefills:    a.tlabs.TotalRefills(),
	}
}

// ResetYoung reclaims the young generation's regions wholesale, for the
// end of a young collection.
func (a *Allocator) ResetYoung() {
	a.young.ResetAll()
}
