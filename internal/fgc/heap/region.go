package heap

import (
	"sync"

	"github.com/faxlang/faxc/internal/fgc/addrspace"
)

// Generation names which generational pool a Region belongs to.
type Generation int

const (
	GenerationYoung Generation = iota
	GenerationOld
)

// SizeClass names the region's allocation granularity (§4.C9 "Size classes").
type SizeClass int

const (
	SizeClassSmall  SizeClass = iota // <= 256 B objects, 2 MiB regions
	SizeClassMedium                  // <= 4 KiB objects, 32 MiB regions
	SizeClassLarge                   // > 4 KiB objects, variable-size regions
)

const (
	SmallRegionSize  = 2 * 1024 * 1024
	MediumRegionSize = 32 * 1024 * 1024

	// markGranule is the number of bytes one mark-bitmap bit covers.
	markGranule = 64
)

// Region is a contiguous virtual span managed as a single GC unit,
// grounded on §4.C9's Region entity and on fgc/src/heap/page.rs's
// PageTable for the page-granularity bookkeeping within it.
type Region struct {
	Start      uintptr
	Size       uintptr
	Generation Generation
	SizeClass  SizeClass
	NumaNode   int

	Pages *PageTable

	mu             sync.Mutex
	markBitmap     []uint64
	allocatedBytes uintptr
	liveBytes      uintptr
}

func newRegion(start, size uintptr, gen Generation, class SizeClass, numaNode int) *Region {
	bitWords := (size/markGranule + 63) / 64
	return &Region{
		Start:      start,
		Size:       size,
		Generation: gen,
		SizeClass:  class,
		NumaNode:   numaNode,
		Pages:      NewPageTable(start, size, PageSize, numaNode),
		markBitmap: make([]uint64, bitWords),
	}
}

// granuleIndex maps an address within the region to its mark-bitmap bit
// index, per §4.C9's "one bit per 64-byte granule per region".
func (r *Region) granuleIndex(address uintptr) uintptr {
	return (address - r.Start) / markGranule
}

// MarkLive sets the mark bit for the granule containing address.
func (r *Region) MarkLive(address uintptr) {
	idx := r.granuleIndex(address)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.markBitmap[idx/64] |= 1 << (idx % 64)
}

// IsMarked reports whether the granule containing address was marked live
// this cycle.
func (r *Region) IsMarked(address uintptr) bool {
	idx := r.granuleIndex(address)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.markBitmap[idx/64]&(1<<(idx%64)) != 0
}

// ClearMarks resets every mark bit, at the start of a new cycle.
func (r *Region) ClearMarks() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.markBitmap {
		r.markBitmap[i] = 0
	}
}

// RecordAllocation increases the region's allocated-bytes counter.
func (r *Region) RecordAllocation(n uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allocatedBytes += n
}

// SetLiveBytes records the bytes found live by the most recent mark pass.
func (r *Region) SetLiveBytes(n uintptr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.liveBytes = n
}

// AllocatedBytes returns bytes handed out from this region so far.
func (r *Region) AllocatedBytes() uintptr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allocatedBytes
}

// LiveBytes returns bytes found live by the most recent mark pass.
func (r *Region) LiveBytes() uintptr {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.liveBytes
}

// GarbageRatio returns the fraction of allocated bytes that are garbage —
// the relocator's region-ranking key (§4.C12).
func (r *Region) GarbageRatio() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.allocatedBytes == 0 {
		return 0
	}
	garbage := r.allocatedBytes - r.liveBytes
	return float64(garbage) / float64(r.allocatedBytes)
}

// reset clears a region's accounting for reuse after it's decommitted and
// returned to a free list.
func (r *Region) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allocatedBytes = 0
	r.liveBytes = 0
	for i := range r.markBitmap {
		r.markBitmap[i] = 0
	}
}

// Heap owns region allocation and the shared three-view address space
// (§4.C7/§4.C9 "Region lifecycle").
type Heap struct {
	addrSpace  *addrspace.AddressSpace
	numa       *NumaManager
	remembered *RememberedSet

	mu       sync.Mutex
	freeList map[SizeClass][]*Region
	live     map[uintptr]*Region
	nextPhys uintptr
}

// NewHeap builds an empty heap over the given address-space manager.
func NewHeap(addrSpace *addrspace.AddressSpace, numa *NumaManager) *Heap {
	return &Heap{
		addrSpace:  addrSpace,
		numa:       numa,
		remembered: NewRememberedSet(),
		freeList:   make(map[SizeClass][]*Region),
		live:       make(map[uintptr]*Region),
		nextPhys:   PageSize, // reserve page 0 so address 0 never aliases a live object
	}
}

// RememberedSet returns the heap's write-barrier-fed remembered set.
func (h *Heap) RememberedSet() *RememberedSet { return h.remembered }

// RegionGeneration reports the generation of the live region starting at
// regionStart, for barrier.WriteBarrier's isOld/isYoung classifiers.
func (h *Heap) RegionGeneration(regionStart uint64) (Generation, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.live[uintptr(regionStart)]
	if !ok {
		return 0, false
	}
	return r.Generation, true
}

func classSize(class SizeClass, requested uintptr) uintptr {
	switch class {
	case SizeClassSmall:
		return SmallRegionSize
	case SizeClassMedium:
		return MediumRegionSize
	default:
		return AlignToPage(requested)
	}
}

// AllocateRegion returns a region for generation sized by class:
// SmallRegionSize or MediumRegionSize whatever size is, or size rounded up
// to a page for SizeClassLarge. It reuses one from the free list when
// available, or maps fresh virtual address space otherwise (§4.C9 "Region
// lifecycle").
func (h *Heap) AllocateRegion(size uintptr, gen Generation, class SizeClass) (*Region, error) {
	regionSize := classSize(class, size)

	h.mu.Lock()
	if freed := h.freeList[class]; len(freed) > 0 {
		r := freed[len(freed)-1]
		h.freeList[class] = freed[:len(freed)-1]
		h.mu.Unlock()

		r.Generation = gen
		h.mu.Lock()
		h.live[r.Start] = r
		h.mu.Unlock()
		return r, nil
	}
	physical := h.nextPhys
	h.nextPhys += regionSize
	h.mu.Unlock()

	if err := h.addrSpace.MapRegion(physical, regionSize); err != nil {
		return nil, err
	}

	numaNode := 0
	if h.numa != nil {
		numaNode = h.numa.CurrentNode()
	}
	r := newRegion(physical, regionSize, gen, class, numaNode)

	h.mu.Lock()
	h.live[r.Start] = r
	h.mu.Unlock()
	return r, nil
}

// ReturnRegion decommits r's pages and appends it to the free list for its
// size class.
func (h *Heap) ReturnRegion(r *Region) {
	r.Pages.UncommitRange(0, r.Size)
	r.reset()

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.live, r.Start)
	h.freeList[r.SizeClass] = append(h.freeList[r.SizeClass], r)
}

// Regions returns every currently-live (non-freed) region.
func (h *Heap) Regions() []*Region {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Region, 0, len(h.live))
	for _, r := range h.live {
		out = append(out, r)
	}
	return out
}

// RegionAt returns the live region starting at physical, if any.
func (h *Heap) RegionAt(physical uintptr) (*Region, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.live[physical]
	return r, ok
}

// ContainingRegion returns the live region whose [Start, Start+Size)
// span contains address, for callers (the marker, §4.C11) that only
// have an interior object address rather than a region's start.
func (h *Heap) ContainingRegion(address uintptr) (*Region, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.live {
		if address >= r.Start && address < r.Start+r.Size {
			return r, true
		}
	}
	return nil, false
}

// FlipMarkBits clears every live region's mark bitmap, readying it for a
// new cycle (§4.C9's Marked0/Marked1 alternation happens at the
// colored-pointer layer via barrier.LoadBarrier.SetGoodColor; at the
// region level, "flipping" means starting the new cycle's bitmap empty).
func (h *Heap) FlipMarkBits() {
	h.mu.Lock()
	regions := make([]*Region, 0, len(h.live))
	for _, r := range h.live {
		regions = append(regions, r)
	}
	h.mu.Unlock()

	for _, r := range regions {
		r.ClearMarks()
	}
}

// UsageStats summarizes heap-wide occupancy across every live region.
type UsageStats struct {
	UsedBytes      uintptr
	CommittedBytes uintptr
	LiveBytes      uintptr
	RegionCount    int
}

// UpdateStats recomputes and returns heap-wide usage, called at the end
// of a GC cycle once relocation has freed garbage regions.
func (h *Heap) UpdateStats() UsageStats {
	h.mu.Lock()
	regions := make([]*Region, 0, len(h.live))
	for _, r := range h.live {
		regions = append(regions, r)
	}
	h.mu.Unlock()

	var stats UsageStats
	stats.RegionCount = len(regions)
	for _, r := range regions {
		stats.UsedBytes += r.AllocatedBytes()
		stats.CommittedBytes += r.Size
		stats.LiveBytes += r.LiveBytes()
	}
	return stats
}
