// Package addrspace implements the multi-mapped virtual address space of
// §4.C7: three views (Remapped, Marked0, Marked1) of the same physical
// heap pages, so flipping a colored pointer's color bits repoints it at a
// different view of the identical backing memory with no software
// translation.
package addrspace

import (
	"sync"

	"github.com/faxlang/faxc/internal/fgc/fgcerr"
)

// View names one of the three virtual-memory aliases of a physical region.
type View int

const (
	ViewRemapped View = iota
	ViewMarked0
	ViewMarked1
)

const (
	remappedBase uintptr = 0x0000_0000_0000_0000
	marked0Base  uintptr = 0x0001_0000_0000_0000
	marked1Base  uintptr = 0x0002_0000_0000_0000

	// ViewSize is the size of a single view's address range (16 TB),
	// large enough that every physical region's 44-bit offset fits
	// inside exactly one view without collision.
	ViewSize = 16 * 1024 * 1024 * 1024 * 1024

	offsetBits = 44
	offsetMask = 1<<offsetBits - 1
)

func viewBase(v View) uintptr {
	switch v {
	case ViewMarked0:
		return marked0Base
	case ViewMarked1:
		return marked1Base
	default:
		return remappedBase
	}
}

// ViewAddr computes the address of physical address p as seen through
// view — §4.C7's `view_addr(p, view) = base(view) | (p & ((1<<44)-1))`.
func ViewAddr(physical uintptr, view View) uintptr {
	return viewBase(view) | (physical & offsetMask)
}

// PhysicalAddr strips a view address back down to the physical address it
// aliases, the inverse of ViewAddr.
func PhysicalAddr(viewAddr uintptr) uintptr {
	return viewAddr & offsetMask
}

// mapping records one physical region's presence, mirroring the Rust
// original's MemoryMapping struct (one entry per view; UnmapRegion drops
// all entries of the region).
type mapping struct {
	physical uintptr
	size     uintptr
}

// AddressSpace tracks which physical regions are currently mapped into all
// three views, and hands out the per-view addresses for a mapped region.
// A production mapper would issue mmap(MAP_FIXED) calls against each
// view's base here; this tracks the bookkeeping side (region table, total
// mapped bytes) that the rest of the collector depends on, with the
// syscalls themselves isolated behind MapRegion/UnmapRegion so a
// platform-specific mmap implementation can be dropped in without
// disturbing callers.
type AddressSpace struct {
	mu          sync.RWMutex
	regions     map[uintptr]uintptr // physical -> size
	mappings    []mapping
	totalMapped uintptr
}

// New returns an empty AddressSpace with no regions mapped.
func New() *AddressSpace {
	return &AddressSpace{regions: make(map[uintptr]uintptr)}
}

// MapRegion establishes all three views over a physical region of size
// bytes. It fails if the region is already mapped.
func (a *AddressSpace) MapRegion(physical, size uintptr) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.regions[physical]; ok {
		return fgcerr.VirtualMemory("AddressSpace.MapRegion", "region already mapped")
	}

	for _, v := range []View{ViewRemapped, ViewMarked0, ViewMarked1} {
		a.mappings = append(a.mappings, mapping{physical: physical, size: size})
		_ = ViewAddr(physical, v) // computed per-view address a real mmap backend would map to
	}

	a.regions[physical] = size
	a.totalMapped += size
	return nil
}

// UnmapRegion tears down all three views over a previously-mapped physical
// region. It fails if the region was never mapped.
func (a *AddressSpace) UnmapRegion(physical uintptr) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	size, ok := a.regions[physical]
	if !ok {
		return fgcerr.VirtualMemory("AddressSpace.UnmapRegion", "region not found")
	}
	delete(a.regions, physical)

	kept := a.mappings[:0]
	for _, m := range a.mappings {
		if m.physical != physical {
			kept = append(kept, m)
		}
	}
	a.mappings = kept
	a.totalMapped -= size
	return nil
}

// GetView returns the view address for a mapped physical region, or false
// if the region is not mapped.
func (a *AddressSpace) GetView(physical uintptr, view View) (uintptr, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if _, ok := a.regions[physical]; !ok {
		return 0, false
	}
	return ViewAddr(physical, view), true
}

// IsMapped reports whether physical is currently mapped.
func (a *AddressSpace) IsMapped(physical uintptr) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.regions[physical]
	return ok
}

// TotalMapped returns the sum of all currently-mapped region sizes.
func (a *AddressSpace) TotalMapped() uintptr {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.totalMapped
}

// RegionCount returns the number of currently-mapped physical regions.
func (a *AddressSpace) RegionCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.regions)
}

// UnmapAll tears down every mapped region, for collector shutdown.
func (a *AddressSpace) UnmapAll() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.regions = make(map[uintptr]uintptr)
	a.mappings = nil
	a.totalMapped = 0
}
