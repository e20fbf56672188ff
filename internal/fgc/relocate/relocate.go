package relocate

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"github.com/faxlang/faxc/internal/fgc/alloc"
	"github.com/faxlang/faxc/internal/fgc/heap"
)

// relocationCandidateRatio is the garbage ratio a region must exceed to
// be selected into the relocation set (mod.rs's 0.5 threshold in
// prepare_relocation).
const relocationCandidateRatio = 0.5

// RelocationProgress reports how far a relocation cycle has gotten.
type RelocationProgress struct {
	Relocated      uint64
	Total          uint64
	BytesRelocated uint64
	InProgress     bool
}

// String renders the progress the way mod.rs's Display impl does.
func (p RelocationProgress) String() string {
	return fmt.Sprintf("RelocationProgress { relocated: %d/%d, bytes: %d, in_progress: %t }",
		p.Relocated, p.Total, p.BytesRelocated, p.InProgress)
}

// Relocator manages relocation-set selection, forwarding-table
// maintenance, and concurrent object copying — §4.C12's "Concurrent
// Relocation Strategy": setup forwarding tables, copy objects
// concurrently, and let load barriers heal pointers on demand. Ported
// from fgc/src/relocate/mod.rs's Relocator.
type Relocator struct {
	h *heap.Heap

	mu               sync.Mutex
	relocationSet    []*heap.Region
	forwardingTables map[uintptr]*ForwardingTable // region start -> table
	destRegions      []*heap.Region
	destAllocators   map[uintptr]*alloc.BumpPointerAllocator // dest region start -> allocator

	copier *ObjectCopier

	relocatedCount atomic.Uint64
	totalCount     atomic.Uint64
	bytesRelocated atomic.Uint64
	inProgress     atomic.Bool
}

// New builds a relocator over h.
func New(h *heap.Heap) *Relocator {
	return &Relocator{
		h:                h,
		forwardingTables: make(map[uintptr]*ForwardingTable),
		destAllocators:   make(map[uintptr]*alloc.BumpPointerAllocator),
		copier:           NewObjectCopier(),
	}
}

// PrepareRelocation selects every live region whose garbage ratio
// exceeds relocationCandidateRatio into the relocation set and gives
// each a forwarding table, called once marking has completed.
func (r *Relocator) PrepareRelocation() error {
	regions := r.h.Regions()
	selected := lo.Filter(regions, func(region *heap.Region, _ int) bool {
		return region.GarbageRatio() > relocationCandidateRatio
	})

	tables := make(map[uintptr]*ForwardingTable, len(selected))
	for _, region := range selected {
		tables[region.Start] = NewForwardingTable()
	}

	r.mu.Lock()
	r.relocationSet = selected
	r.forwardingTables = tables
	r.mu.Unlock()

	r.inProgress.Store(true)
	return nil
}

// StartRelocation allocates one destination region per relocation-set
// region, ready to receive copied objects.
func (r *Relocator) StartRelocation() error {
	r.mu.Lock()
	relocationSet := append([]*heap.Region(nil), r.relocationSet...)
	r.mu.Unlock()

	destRegions := make([]*heap.Region, 0, len(relocationSet))
	destAllocators := make(map[uintptr]*alloc.BumpPointerAllocator, len(relocationSet))
	for _, region := range relocationSet {
		dest, err := r.h.AllocateRegion(region.Size, region.Generation, region.SizeClass)
		if err != nil {
			return err
		}
		destRegions = append(destRegions, dest)
		destAllocators[dest.Start] = alloc.NewBumpPointerAllocatorOverRegion(dest.Start, dest.Size)
	}

	r.mu.Lock()
	r.destRegions = destRegions
	r.destAllocators = destAllocators
	r.mu.Unlock()
	return nil
}

func (r *Relocator) findRegion(address uintptr) *heap.Region {
	for _, region := range r.relocationSet {
		if address >= region.Start && address < region.Start+region.Size {
			return region
		}
	}
	return nil
}

// RelocateObject copies the object at oldAddress (size bytes) into a
// destination region and updates its source region's forwarding table,
// returning the new address. Addresses outside the relocation set are
// returned unchanged.
func (r *Relocator) RelocateObject(oldAddress, size uintptr) (uintptr, error) {
	r.mu.Lock()
	source := r.findRegion(oldAddress)
	if source == nil {
		r.mu.Unlock()
		return oldAddress, nil
	}

	newAddress := oldAddress
	if len(r.destRegions) > 0 {
		dest := r.destRegions[0]
		if addr, ok := r.destAllocators[dest.Start].Allocate(size); ok {
			newAddress = addr
		} else {
			r.mu.Unlock()
			return oldAddress, nil
		}
	}
	table := r.forwardingTables[source.Start]
	r.mu.Unlock()

	if newAddress != oldAddress && size > 0 {
		if err := r.copier.CopyObject(oldAddress, newAddress, size); err != nil {
			return 0, err
		}
		r.bytesRelocated.Add(uint64(size))
	}

	if table != nil {
		table.AddEntry(oldAddress, newAddress)
	}
	r.relocatedCount.Add(1)
	return newAddress, nil
}

// RelocateTo copies an object to an already-chosen destination address,
// for callers that picked the destination themselves.
func (r *Relocator) RelocateTo(oldAddress, newAddress, size uintptr) error {
	if size == 0 || oldAddress == newAddress {
		return nil
	}
	if err := r.copier.CopyObject(oldAddress, newAddress, size); err != nil {
		return err
	}

	r.mu.Lock()
	source := r.findRegion(oldAddress)
	var table *ForwardingTable
	if source != nil {
		table = r.forwardingTables[source.Start]
	}
	r.mu.Unlock()

	if table != nil {
		table.AddEntry(oldAddress, newAddress)
	}
	r.relocatedCount.Add(1)
	r.bytesRelocated.Add(uint64(size))
	return nil
}

// RelocateObjectRequest is one (address, size) pair for RelocateBatch.
type RelocateObjectRequest struct {
	Address uintptr
	Size    uintptr
}

// RelocateBatch relocates several objects in sequence, returning their
// new addresses in the same order.
func (r *Relocator) RelocateBatch(objects []RelocateObjectRequest) ([]uintptr, error) {
	newAddresses := make([]uintptr, 0, len(objects))
	for _, obj := range objects {
		addr, err := r.RelocateObject(obj.Address, obj.Size)
		if err != nil {
			return nil, err
		}
		newAddresses = append(newAddresses, addr)
	}
	return newAddresses, nil
}

// LookupForwarding returns the forwarded address for oldAddress, if it
// was relocated this cycle. Satisfies internal/fgc/barrier.Forwarder.
func (r *Relocator) LookupForwarding(oldAddress uintptr) (uintptr, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, region := range r.relocationSet {
		if table := r.forwardingTables[region.Start]; table != nil {
			if addr, ok := table.Lookup(oldAddress); ok {
				return addr, true
			}
		}
	}
	return 0, false
}

// Forward implements internal/fgc/barrier.Forwarder.
func (r *Relocator) Forward(address uintptr) (uintptr, bool) {
	return r.LookupForwarding(address)
}

// InRelocationSet reports whether address falls within a region
// selected for relocation this cycle.
func (r *Relocator) InRelocationSet(address uintptr) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findRegion(address) != nil
}

// WaitRelocationComplete blocks until every object slated for
// relocation (per SetTotalCount) has been relocated.
func (r *Relocator) WaitRelocationComplete() error {
	for r.relocatedCount.Load() < r.totalCount.Load() {
		time.Sleep(time.Millisecond)
	}
	return nil
}

// CompleteRelocation ends the cycle: clears forwarding tables and
// returns every relocation-set region to the heap's free list.
func (r *Relocator) CompleteRelocation() error {
	r.inProgress.Store(false)

	r.mu.Lock()
	relocationSet := r.relocationSet
	r.relocationSet = nil
	r.forwardingTables = make(map[uintptr]*ForwardingTable)
	r.destRegions = nil
	r.destAllocators = make(map[uintptr]*alloc.BumpPointerAllocator)
	r.mu.Unlock()

	for _, region := range relocationSet {
		r.h.ReturnRegion(region)
	}
	return nil
}

// Progress returns a snapshot of the relocator's counters.
func (r *Relocator) Progress() RelocationProgress {
	return RelocationProgress{
		Relocated:      r.relocatedCount.Load(),
		Total:          r.totalCount.Load(),
		BytesRelocated: r.bytesRelocated.Load(),
		InProgress:     r.inProgress.Load(),
	}
}

// CopyStats returns the underlying object copier's statistics.
func (r *Relocator) CopyStats() CopyStats {
	return r.copier.Stats()
}

// SetTotalCount records how many objects this cycle intends to relocate.
func (r *Relocator) SetTotalCount(total uint64) {
	r.totalCount.Store(total)
}

// BytesRelocated returns the cumulative bytes copied so far this cycle.
func (r *Relocator) BytesRelocated() uint64 {
	return r.bytesRelocated.Load()
}
