// Package relocate implements §4.C12: relocation set selection,
// forwarding-table maintenance, and concurrent object copying.
// Grounded on fgc/src/relocate/{mod,compaction}.rs in full; the
// relocate/{copy,forwarding}.rs submodules mod.rs re-exports
// (ObjectCopier, ForwardingTable) were not retrieved into
// original_source/, so ForwardingTable/ObjectCopier below are
// reconstructed from their call-site shape in mod.rs
// (ft.add_entry/ft.lookup, copier.copy_object/copier.stats) rather than
// ported line-by-line.
package relocate

import "sync"

// ForwardingTable maps an object's pre-relocation address to its new
// address, one per relocated region.
type ForwardingTable struct {
	mu      sync.RWMutex
	entries map[uintptr]uintptr
}

// NewForwardingTable builds an empty table.
func NewForwardingTable() *ForwardingTable {
	return &ForwardingTable{entries: make(map[uintptr]uintptr)}
}

// AddEntry records that oldAddress now lives at newAddress.
func (t *ForwardingTable) AddEntry(oldAddress, newAddress uintptr) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[oldAddress] = newAddress
}

// Lookup returns the forwarded address for oldAddress, if relocated.
func (t *ForwardingTable) Lookup(oldAddress uintptr) (uintptr, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	addr, ok := t.entries[oldAddress]
	return addr, ok
}

// Len returns the number of recorded forwardings.
func (t *ForwardingTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
