package alloc

import (
	"sync"
	"sync/atomic"
)

// AgeTracker counts the GC cycles one object has survived, driving
// young-to-old promotion (ported from fgc/src/allocator/generational.rs).
type AgeTracker struct {
	age       atomic.Uint64
	threshold uint64
}

// NewAgeTracker builds a tracker that promotes once age reaches threshold.
func NewAgeTracker(threshold uint64) *AgeTracker {
	return &AgeTracker{threshold: threshold}
}

// Increment bumps the survival count and returns the new age.
func (t *AgeTracker) Increment() uint64 {
	return t.age.Add(1)
}

// Age returns the current survival count.
func (t *AgeTracker) Age() uint64 {
	return t.age.Load()
}

// ShouldPromote reports whether the tracked object has survived enough
// cycles to move to the old generation.
func (t *AgeTracker) ShouldPromote() bool {
	return t.age.Load() >= t.threshold
}

// Reset zeroes the survival count, for an object reallocated fresh.
func (t *AgeTracker) Reset() {
	t.age.Store(0)
}

// GenerationalStats summarizes a GenerationalAllocator's activity.
type GenerationalStats struct {
	YoungUsed        uintptr
	OldUsed          uintptr
	PromotedCount    uint64
	YoungCollections uint64
	OldCollections   uint64
}

// GenerationalAllocator routes allocations to a young generation first;
// objects surviving enough collections are promoted into the old
// generation, per the weak generational hypothesis ("most objects die
// young") that motivates §4.C9's two-generation heap. Unlike the Rust
// original — which returned placeholder addresses with no real backing
// store — young/old allocation here is backed by real MultiBumpAllocators
// drawing regions from the shared heap (see bump.go), since this module
// has an actual region-based heap to allocate from.
type GenerationalAllocator struct {
	young *MultiBumpAllocator
	old   *MultiBumpAllocator

	promotionThreshold uint64

	mu    sync.Mutex
	stats GenerationalStats
}

// NewGenerationalAllocator builds an allocator promoting objects after
// promotionThreshold survived collections.
func NewGenerationalAllocator(young, old *MultiBumpAllocator, promotionThreshold uint64) *GenerationalAllocator {
	return &GenerationalAllocator{young: young, old: old, promotionThreshold: promotionThreshold}
}

// AllocateYoung allocates size bytes in the young generation.
func (g *GenerationalAllocator) AllocateYoung(size uintptr) (uintptr, error) {
	addr, err := g.young.Allocate(size)
	if err != nil {
		return 0, err
	}
	g.mu.Lock()
	g.stats.YoungUsed += size
	g.mu.Unlock()
	return addr, nil
}

// AllocateOld allocates size bytes directly in the old generation, for
// objects known up front to be long-lived.
func (g *GenerationalAllocator) AllocateOld(size uintptr) (uintptr, error) {
	addr, err := g.old.Allocate(size)
	if err != nil {
		return 0, err
	}
	g.mu.Lock()
	g.stats.OldUsed += size
	g.mu.Unlock()
	return addr, nil
}

// Promote moves a surviving size-byte object into the old generation and
// records the promotion.
func (g *GenerationalAllocator) Promote(size uintptr) (uintptr, error) {
	addr, err := g.AllocateOld(size)
	if err != nil {
		return 0, err
	}
	g.mu.Lock()
	g.stats.PromotedCount++
	g.mu.Unlock()
	return addr, nil
}

// RecordYoungCollection increments the young-generation collection count.
func (g *GenerationalAllocator) RecordYoungCollection() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stats.YoungCollections++
}

// RecordOldCollection increments the old-generation collection count.
func (g *GenerationalAllocator) RecordOldCollection() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stats.OldCollections++
}

// PromotionThreshold returns the configured survived-cycles threshold.
func (g *GenerationalAllocator) PromotionThreshold() uint64 {
	return g.promotionThreshold
}

// Stats returns a snapshot of the allocator's counters.
func (g *GenerationalAllocator) Stats() GenerationalStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats
}

// YoungUsed returns bytes allocated in the young generation so far.
func (g *GenerationalAllocator) YoungUsed() uintptr {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats.YoungUsed
}

// OldUsed returns bytes allocated in the old generation so far.
func (g *GenerationalAllocator) OldUsed() uintptr {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stats.OldUsed
}

// ResetYoung clears the young generation's regions and usage counter
// after a collection reclaims it in full.
func (g *GenerationalAllocator) ResetYoung() {
	g.young.ResetAll()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stats.YoungUsed = 0
}
