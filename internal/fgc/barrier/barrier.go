// Package barrier implements the load and write barriers of §4.C8: the
// self-healing pointer load fast/slow path and the generational write
// barrier's remembered-set recording. Grounded on
// fgc/src/barrier/mod.rs's module layout (load_barrier, read_barrier/
// write_barrier, colored_ptr) — the submodule files themselves were not
// retrieved, so the slow-path sequencing here follows §4.C8's prose
// directly, against the colorptr/addrspace primitives §4.C7 defines.
package barrier

import (
	"sync/atomic"

	"github.com/faxlang/faxc/internal/fgc/colorptr"
)

// Forwarder resolves a relocated object's new physical address. The
// relocator (internal/fgc/relocate) is the production implementation;
// tests substitute a map-backed stub.
type Forwarder interface {
	// Forward reports the new address for an object formerly at address,
	// and whether it was actually relocated (forwarded).
	Forward(address uintptr) (newAddress uintptr, forwarded bool)
}

// Marker receives pointers discovered live during a load, for concurrent
// marking to trace further. internal/fgc/mark.Queue is the production
// implementation.
type Marker interface {
	Push(p colorptr.Pointer)
}

// LoadBarrier implements §4.C8's "On every GC-managed pointer load"
// algorithm. It is safe for concurrent use by multiple mutator threads.
type LoadBarrier struct {
	forwarder Forwarder
	marker    Marker

	// inRelocationSet reports whether the object at address is a member
	// of the current cycle's relocation set (internal/fgc/relocate owns
	// this decision; tests substitute a closure).
	inRelocationSet func(address uintptr) bool

	// good is updated once per GC cycle by the orchestrator via SetGoodColor.
	good atomic.Uint64
}

// NewLoadBarrier builds a LoadBarrier whose initial good color is Marked0
// (§4.C7 "Mark-bit flip" starts at Marked0).
func NewLoadBarrier(forwarder Forwarder, marker Marker, inRelocationSet func(uintptr) bool) *LoadBarrier {
	lb := &LoadBarrier{forwarder: forwarder, marker: marker, inRelocationSet: inRelocationSet}
	lb.good.Store(uint64(colorptr.ColorMarked0))
	return lb
}

// SetGoodColor is called once per GC cycle start to flip the "good" color
// (§4.C7's alternation between Marked0 and Marked1).
func (lb *LoadBarrier) SetGoodColor(c colorptr.Color) {
	lb.good.Store(uint64(c))
}

// GoodColor returns the current cycle's good color.
func (lb *LoadBarrier) GoodColor() colorptr.Color {
	return colorptr.Color(lb.good.Load())
}

// Read runs the load barrier over a value freshly loaded from field,
// healing it in place if it does not already carry the current cycle's
// good color, and retrying the CAS on contention (§4.C8 step 3d).
func (lb *LoadBarrier) Read(field *atomic.Uint64) colorptr.Pointer {
	for {
		raw := colorptr.Pointer(field.Load())
		good := lb.GoodColor()

		// Fast path: already healed, no branch beyond this check.
		if raw.IsHealed(good) {
			return raw
		}

		healed := raw
		if lb.inRelocationSet != nil && lb.inRelocationSet(raw.Address()) {
			if newAddr, ok := lb.forwarder.Forward(raw.Address()); ok {
				healed = colorptr.New(newAddr, healed.Colors())
			}
		}

		if lb.marker != nil {
			lb.marker.Push(healed)
		}

		healed = healed.WithColor(good)

		if field.CompareAndSwap(uint64(raw), uint64(healed)) {
			return healed
		}
		// CAS lost the race to a concurrent healer (or mutator write);
		// retry from a fresh load, per the self-healing rule in step 3d.
	}
}

// RegionOf maps an object address to the region (or card) id containing
// it, so the write barrier can record the coarsest unit the remembered set
// tracks (§4.C9 "region-granularity card table", §E Open Question
// decision).
type RegionOf func(address uintptr) uint64

// RememberedSet receives the id of each old-generation region the write
// barrier finds holding a pointer into the young generation. internal/fgc/heap owns the production
// implementation; tests substitute a set-backed stub.
type RememberedSet interface {
	Record(region uint64)
}

// WriteBarrier implements §4.C8's generational write barrier: recording a
// card whenever an old-generation object gains a pointer into the young
// generation.
type WriteBarrier struct {
	regionOf   RegionOf
	remembered RememberedSet
	isOld      func(region uint64) bool
	isYoung    func(region uint64) bool
}

// NewWriteBarrier builds a WriteBarrier. isOld/isYoung classify a region
// id by generation (internal/fgc/heap's region table owns this in
// production).
func NewWriteBarrier(regionOf RegionOf, remembered RememberedSet, isOld, isYoung func(uint64) bool) *WriteBarrier {
	return &WriteBarrier{regionOf: regionOf, remembered: remembered, isOld: isOld, isYoung: isYoung}
}

// StorePointer runs the write barrier for storing value into a field
// belonging to an object at containerAddress.
func (wb *WriteBarrier) StorePointer(containerAddress uintptr, value colorptr.Pointer) {
	containerRegion := wb.regionOf(containerAddress)
	if !wb.isOld(containerRegion) {
		return
	}
	valueRegion := wb.regionOf(value.Address())
	if !wb.isYoung(valueRegion) {
		return
	}
	wb.remembered.Record(containerRegion)
}
