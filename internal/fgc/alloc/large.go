package alloc

import (
	"sort"
	"sync"

	"github.com/faxlang/faxc/internal/fgc/fgcerr"
	"github.com/faxlang/faxc/internal/fgc/heap"
)

// LargeThreshold is the size above which an object is routed to
// LargeObjectAllocator rather than a generation's bump allocator
// (fgc/src/allocator/large.rs's LARGE_THRESHOLD).
const LargeThreshold = 4 * 1024

// LargeAlignment is the page-aligned granularity large regions are sized
// to (large.rs's LARGE_ALIGNMENT).
const LargeAlignment = 4096

// LargeObjectAllocator gives every large object its own dedicated heap
// region rather than bump-allocating it, to avoid wasting space in
// size-classed regions meant for small/medium objects. Freed regions are
// kept on a size-indexed free list for reuse rather than returned to the
// heap immediately, ported from fgc/src/allocator/large.rs.
type LargeObjectAllocator struct {
	h          *heap.Heap
	generation heap.Generation

	mu          sync.Mutex
	freeRegions map[uintptr][]*heap.Region // size -> reusable regions
	allocated   map[uintptr]*heap.Region   // address -> owning region

	totalAllocated uintptr
	objectCount    uint64
}

// NewLargeObjectAllocator builds a large-object allocator drawing fresh
// regions from h for generation.
func NewLargeObjectAllocator(h *heap.Heap, gen heap.Generation) *LargeObjectAllocator {
	return &LargeObjectAllocator{
		h:           h,
		generation:  gen,
		freeRegions: make(map[uintptr][]*heap.Region),
		allocated:   make(map[uintptr]*heap.Region),
	}
}

func alignSize(size, granularity uintptr) uintptr {
	return (size + granularity - 1) &^ (granularity - 1)
}

// Allocate returns an address for a size-byte large object; size must be
// at least LargeThreshold.
func (a *LargeObjectAllocator) Allocate(size uintptr) (uintptr, error) {
	if size < LargeThreshold {
		return 0, fgcerr.Tlab("LargeObjectAllocator.Allocate", "size too small for large allocator")
	}
	alignedSize := alignSize(size, LargeAlignment)

	region, err := a.findOrCreateRegion(alignedSize)
	if err != nil {
		return 0, err
	}

	a.mu.Lock()
	a.allocated[region.Start] = region
	a.totalAllocated += alignedSize
	a.objectCount++
	a.mu.Unlock()

	region.RecordAllocation(alignedSize)
	return region.Start, nil
}

// Free releases the large object at address back to the free list.
func (a *LargeObjectAllocator) Free(address uintptr) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	region, ok := a.allocated[address]
	if !ok {
		return fgcerr.InvalidPointer("LargeObjectAllocator.Free", address)
	}
	delete(a.allocated, address)
	a.freeRegions[region.Size] = append(a.freeRegions[region.Size], region)

	a.totalAllocated -= region.Size
	a.objectCount--
	return nil
}

// findOrCreateRegion reuses a free region of adequate size if one exists,
// otherwise allocates a fresh one from the heap.
func (a *LargeObjectAllocator) findOrCreateRegion(size uintptr) (*heap.Region, error) {
	a.mu.Lock()
	sizes := make([]uintptr, 0, len(a.freeRegions))
	for s := range a.freeRegions {
		sizes = append(sizes, s)
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i] < sizes[j] })

	for _, regionSize := range sizes {
		if regionSize < size {
			continue
		}
		pool := a.freeRegions[regionSize]
		if len(pool) == 0 {
			continue
		}
		region := pool[len(pool)-1]
		pool = pool[:len(pool)-1]
		if len(pool) == 0 {
			delete(a.freeRegions, regionSize)
		} else {
			a.freeRegions[regionSize] = pool
		}
		a.mu.Unlock()
		return region, nil
	}
	a.mu.Unlock()

	return a.h.AllocateRegion(size, a.generation, heap.SizeClassLarge)
}

// TotalAllocated returns the cumulative bytes currently held by live large
// objects.
func (a *LargeObjectAllocator) TotalAllocated() uintptr {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totalAllocated
}

// ObjectCount returns the number of live large objects.
func (a *LargeObjectAllocator) ObjectCount() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.objectCount
}

// FreeRegionStats returns the count of and total bytes held by free
// (reusable, not yet returned to the heap) large-object regions.
func (a *LargeObjectAllocator) FreeRegionStats() (count int, totalBytes uintptr) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for size, pool := range a.freeRegions {
		count += len(pool)
		totalBytes += size * uintptr(len(pool))
	}
	return count, totalBytes
}

// Defragment merges adjacent free regions to reduce fragmentation.
//
// TODO: actually coalesce adjacent free regions; for now free regions are
// only reused by exact/larger size match.
func (a *LargeObjectAllocator) Defragment() error {
	return nil
}
