// Package alloc implements §4.C10: bump-pointer allocation, TLABs, the
// dedicated large-object allocator, and generational promotion. Grounded
// on fgc/src/allocator/{mod,large,generational}.rs; bump.rs and tlab.rs
// themselves were not retrieved into original_source/ (absent from
// _INDEX.md), so BumpPointerAllocator/MultiBumpAllocator/Tlab/TlabManager
// below are built from §4.C10's literal pseudocode and mod.rs's call-site
// shape rather than ported line-by-line — see DESIGN.md.
package alloc

import (
	"sync"
	"sync/atomic"

	"github.com/faxlang/faxc/internal/fgc/fgcerr"
	"github.com/faxlang/faxc/internal/fgc/heap"
)

func alignUp8(v uint64) uint64 { return (v + 7) &^ 7 }

// BumpPointerAllocator hands out monotonically increasing offsets within
// one region via fetch-add, per §4.C10's "Bump allocator":
// `allocate(size) = fetch_add(cursor, aligned_size)` while within region.
type BumpPointerAllocator struct {
	start, limit uintptr
	cursor       atomic.Uint64
}

func newBumpPointerAllocator(start, size uintptr) *BumpPointerAllocator {
	b := &BumpPointerAllocator{start: start, limit: start + size}
	b.cursor.Store(uint64(start))
	return b
}

// NewBumpPointerAllocatorOverRegion builds a bump allocator over an
// already-allocated region, for callers (such as the relocator, §4.C12)
// that bump-allocate within a region they obtained directly from the
// heap rather than through a MultiBumpAllocator.
func NewBumpPointerAllocatorOverRegion(start, size uintptr) *BumpPointerAllocator {
	return newBumpPointerAllocator(start, size)
}

// Allocate returns an address for size bytes, or false if the region is
// exhausted.
func (b *BumpPointerAllocator) Allocate(size uintptr) (uintptr, bool) {
	aligned := alignUp8(uint64(size))
	for {
		cur := b.cursor.Load()
		next := cur + aligned
		if next > uint64(b.limit) {
			return 0, false
		}
		if b.cursor.CompareAndSwap(cur, next) {
			return uintptr(cur), true
		}
	}
}

// Used returns bytes handed out from this allocator's region so far.
func (b *BumpPointerAllocator) Used() uintptr {
	return uintptr(b.cursor.Load()) - b.start
}

// MultiBumpAllocator chains BumpPointerAllocators across successive
// regions pulled from the heap, so a generation never runs out of space
// as long as the heap can supply fresh regions (mod.rs's
// `MultiBumpAllocator::new(region_size, ...)` construction for
// young/old generations).
type MultiBumpAllocator struct {
	heap       *heap.Heap
	generation heap.Generation
	sizeClass  heap.SizeClass
	regionSize uintptr
	maxRegions int

	mu             sync.Mutex
	current        *BumpPointerAllocator
	regions        []*heap.Region
	totalAllocated atomic.Uint64
}

// NewMultiBumpAllocator builds an allocator for one generation, drawing
// regionSize-byte regions from h up to maxRegions (0 means unbounded).
func NewMultiBumpAllocator(h *heap.Heap, gen heap.Generation, class heap.SizeClass, regionSize uintptr, maxRegions int) *MultiBumpAllocator {
	return &MultiBumpAllocator{heap: h, generation: gen, sizeClass: class, regionSize: regionSize, maxRegions: maxRegions}
}

// Allocate returns an address for size bytes, pulling a fresh region from
// the heap when the current one is exhausted.
func (m *MultiBumpAllocator) Allocate(size uintptr) (uintptr, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		if addr, ok := m.current.Allocate(size); ok {
			m.totalAllocated.Add(uint64(size))
			return addr, nil
		}
	}

	if m.maxRegions > 0 && len(m.regions) >= m.maxRegions {
		return 0, fgcerr.OutOfMemory("MultiBumpAllocator.Allocate", size, 0)
	}

	region, err := m.heap.AllocateRegion(m.regionSize, m.generation, m.sizeClass)
	if err != nil {
		return 0, err
	}
	m.regions = append(m.regions, region)
	limit := region.Size
	if m.regionSize > 0 && m.regionSize < limit {
		limit = m.regionSize
	}
	m.current = newBumpPointerAllocator(region.Start, limit)

	addr, ok := m.current.Allocate(size)
	if !ok {
		return 0, fgcerr.OutOfMemory("MultiBumpAllocator.Allocate", size, limit)
	}
	m.totalAllocated.Add(uint64(size))
	return addr, nil
}

// TotalAllocated returns the cumulative bytes handed out since the last
// ResetAll.
func (m *MultiBumpAllocator) TotalAllocated() uint64 {
	return m.totalAllocated.Load()
}

// RegionCount returns how many regions this allocator currently holds.
func (m *MultiBumpAllocator) RegionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.regions)
}

// ResetAll returns every held region to the heap's free list, for a young
// generation collected to completion.
func (m *MultiBumpAllocator) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.regions {
		m.heap.ReturnRegion(r)
	}
	m.regions = nil
	m.current = nil
	m.totalAllocated.Store(0)
}
