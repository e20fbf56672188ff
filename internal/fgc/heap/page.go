// Package heap implements §4.C9: region lifecycle, page tables, NUMA
// pools, the mark bitmap, and the adaptive heap-sizing controller.
// Grounded file-for-file on fgc/src/heap/{page,memory_mapping,numa,
// adaptive}.rs, with the mmap boundary isolated the way wazero's
// internal/platform.MmapCodeSegment/MunmapCodeSegment isolate theirs
// behind a small OS-facing surface the rest of the engine never touches
// directly.
package heap

import (
	"sync/atomic"
)

// PageSize is the standard page size (4 KiB), mirrored from
// fgc/src/heap/page.rs's PAGE_SIZE constant.
const PageSize = 4 * 1024

// LargePageSize is the large/huge page size (2 MiB).
const LargePageSize = 2 * 1024 * 1024

// AlignToPage rounds size up to the next PageSize boundary.
func AlignToPage(size uintptr) uintptr {
	return (size + PageSize - 1) &^ (PageSize - 1)
}

// AlignDownToPage rounds addr down to the previous PageSize boundary.
func AlignDownToPage(addr uintptr) uintptr {
	return addr &^ (PageSize - 1)
}

// AlignUpToPage rounds addr up to the next PageSize boundary.
func AlignUpToPage(addr uintptr) uintptr {
	return (addr + PageSize - 1) &^ (PageSize - 1)
}

// BytesToPages converts a byte count to a page count, rounding up.
func BytesToPages(bytes uintptr) uintptr {
	return (bytes + PageSize - 1) / PageSize
}

// PagesToBytes converts a page count to a byte count.
func PagesToBytes(pages uintptr) uintptr {
	return pages * PageSize
}

// IsPageAligned reports whether addr falls on a PageSize boundary.
func IsPageAligned(addr uintptr) bool {
	return addr%PageSize == 0
}

// PageOffset returns the offset of addr within its containing page.
func PageOffset(addr uintptr) uintptr {
	return addr % PageSize
}

// PageNumber returns the page index containing addr.
func PageNumber(addr uintptr) uintptr {
	return addr / PageSize
}

// Page is the finest-grained unit of heap bookkeeping; a Region is
// divided into many Pages for commit/uncommit and access tracking.
type Page struct {
	address  uintptr
	size     uintptr
	numaNode int

	committed atomic.Bool
	accessed  atomic.Bool
	modified  atomic.Bool
}

// NewPage builds an uncommitted page at address.
func NewPage(address, size uintptr, numaNode int) *Page {
	return &Page{address: address, size: size, numaNode: numaNode}
}

// Commit marks the page as backed by physical memory. In production this
// would mprotect/mmap the underlying range; here it only flips the
// bookkeeping flag, matching the Rust original's own placeholder ("Note:
// in real implementation, this would use mmap or VirtualAlloc").
func (p *Page) Commit() { p.committed.Store(true) }

// Uncommit releases the page's backing physical memory.
func (p *Page) Uncommit() { p.committed.Store(false) }

// IsCommitted reports whether the page currently has backing memory.
func (p *Page) IsCommitted() bool { return p.committed.Load() }

// MarkAccessed records that the page was read since the last ResetFlags.
func (p *Page) MarkAccessed() { p.accessed.Store(true) }

// MarkModified records that the page was written since the last
// ResetFlags.
func (p *Page) MarkModified() { p.modified.Store(true) }

// ResetFlags clears the accessed/modified bits, for the next collection
// cycle's heuristics.
func (p *Page) ResetFlags() {
	p.accessed.Store(false)
	p.modified.Store(false)
}

// Address returns the page's base address.
func (p *Page) Address() uintptr { return p.address }

// Size returns the page's size in bytes.
func (p *Page) Size() uintptr { return p.size }

// NumaNode returns the NUMA node the page is allocated from.
func (p *Page) NumaNode() int { return p.numaNode }

// PageTable tracks every Page making up one region.
type PageTable struct {
	pages     []*Page
	pageSize  uintptr
	pageCount uintptr
}

// NewPageTable builds a PageTable covering regionSize bytes starting at
// baseAddress, divided into pages of pageSize bytes on the given NUMA
// node.
func NewPageTable(baseAddress, regionSize, pageSize uintptr, numaNode int) *PageTable {
	count := BytesToPagesOf(regionSize, pageSize)
	pages := make([]*Page, count)
	for i := uintptr(0); i < count; i++ {
		pages[i] = NewPage(baseAddress+i*pageSize, pageSize, numaNode)
	}
	return &PageTable{pages: pages, pageSize: pageSize, pageCount: count}
}

// BytesToPagesOf rounds bytes up to a page count using an explicit page
// size, for callers (like NewPageTable) that can't assume PageSize.
func BytesToPagesOf(bytes, pageSize uintptr) uintptr {
	return (bytes + pageSize - 1) / pageSize
}

// GetPage returns the page containing address, or nil if out of range.
func (t *PageTable) GetPage(address uintptr) *Page {
	if len(t.pages) == 0 || address < t.pages[0].address {
		return nil
	}
	idx := (address - t.pages[0].address) / t.pageSize
	if idx >= uintptr(len(t.pages)) {
		return nil
	}
	return t.pages[idx]
}

// CommitRange commits every page overlapping [start, start+size).
func (t *PageTable) CommitRange(start, size uintptr) {
	t.rangeDo(start, size, (*Page).Commit)
}

// UncommitRange uncommits every page overlapping [start, start+size).
func (t *PageTable) UncommitRange(start, size uintptr) {
	t.rangeDo(start, size, (*Page).Uncommit)
}

func (t *PageTable) rangeDo(start, size uintptr, f func(*Page)) {
	startPage := start / t.pageSize
	endPage := (start + size + t.pageSize - 1) / t.pageSize
	if endPage > t.pageCount {
		endPage = t.pageCount
	}
	for i := startPage; i < endPage; i++ {
		f(t.pages[i])
	}
}

// CommittedCount returns how many pages are currently committed.
func (t *PageTable) CommittedCount() int {
	n := 0
	for _, p := range t.pages {
		if p.IsCommitted() {
			n++
		}
	}
	return n
}

// CommittedBytes returns CommittedCount() * page size.
func (t *PageTable) CommittedBytes() uintptr {
	return uintptr(t.CommittedCount()) * t.pageSize
}

// PageCount returns the total number of pages in the table.
func (t *PageTable) PageCount() uintptr { return t.pageCount }

// PageSize returns the page size used by this table.
func (t *PageTable) PageSize() uintptr { return t.pageSize }

// PageAllocator tracks page-granularity allocation statistics without
// itself owning any memory — the same "tracker, not an allocator" role
// the Rust original documents.
type PageAllocator struct {
	allocated atomic.Uint64
	freed     atomic.Uint64
	peak      atomic.Uint64
	pageSize  uintptr
}

// NewPageAllocator builds a tracker using the standard page size.
func NewPageAllocator() *PageAllocator {
	return &PageAllocator{pageSize: PageSize}
}

// Allocate records pages worth of new allocation.
func (a *PageAllocator) Allocate(pages uint64) {
	a.allocated.Add(pages)
	current := a.CurrentPages()
	for {
		peak := a.peak.Load()
		if current <= peak {
			return
		}
		if a.peak.CompareAndSwap(peak, current) {
			return
		}
	}
}

// Free records pages worth of deallocation.
func (a *PageAllocator) Free(pages uint64) {
	a.freed.Add(pages)
}

// CurrentPages returns the number of pages currently live.
func (a *PageAllocator) CurrentPages() uint64 {
	allocated, freed := a.allocated.Load(), a.freed.Load()
	if freed > allocated {
		return 0
	}
	return allocated - freed
}

// CurrentBytes returns CurrentPages() worth of bytes.
func (a *PageAllocator) CurrentBytes() uint64 {
	return a.CurrentPages() * uint64(a.pageSize)
}

// TotalAllocated returns the lifetime count of pages ever allocated.
func (a *PageAllocator) TotalAllocated() uint64 { return a.allocated.Load() }

// TotalFreed returns the lifetime count of pages ever freed.
func (a *PageAllocator) TotalFreed() uint64 { return a.freed.Load() }

// PeakPages returns the highest CurrentPages() value ever observed.
func (a *PageAllocator) PeakPages() uint64 { return a.peak.Load() }

// Reset zeros every counter.
func (a *PageAllocator) Reset() {
	a.allocated.Store(0)
	a.freed.Store(0)
	a.peak.Store(0)
}

// PageRange names a contiguous span of pages.
type PageRange struct {
	Start uintptr
	Count uintptr
}

// NewPageRange builds a PageRange directly from a page index and count.
func NewPageRange(start, count uintptr) PageRange {
	return PageRange{Start: start, Count: count}
}

// PageRangeFromAddresses builds the smallest page-aligned PageRange
// covering [startAddr, endAddr).
func PageRangeFromAddresses(startAddr, endAddr uintptr) PageRange {
	start := AlignDownToPage(startAddr) / PageSize
	end := AlignUpToPage(endAddr) / PageSize
	if end < start {
		end = start
	}
	return PageRange{Start: start, Count: end - start}
}

// StartAddress returns the range's first byte address.
func (r PageRange) StartAddress() uintptr { return r.Start * PageSize }

// EndAddress returns the range's exclusive end byte address.
func (r PageRange) EndAddress() uintptr { return (r.Start + r.Count) * PageSize }

// Size returns the range's size in bytes.
func (r PageRange) Size() uintptr { return r.Count * PageSize }

// Contains reports whether addr falls within the range.
func (r PageRange) Contains(addr uintptr) bool {
	return r.ContainsPage(PageNumber(addr))
}

// ContainsPage reports whether the given page index falls within the
// range.
func (r PageRange) ContainsPage(page uintptr) bool {
	return page >= r.Start && page < r.Start+r.Count
}
