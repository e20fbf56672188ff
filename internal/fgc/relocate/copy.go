package relocate

import (
	"sync/atomic"
)

// CopyStats summarizes an ObjectCopier's activity.
type CopyStats struct {
	ObjectsCopied uint64
	BytesCopied   uint64
}

// ObjectCopier performs the actual byte copy from an object's old
// address to its relocated address. This Go port has no real backing
// memory behind heap addresses (internal/fgc/addrspace tracks virtual
// mappings as bookkeeping only, not live mmap'd pages — see its package
// doc), so CopyObject records the copy in its statistics without moving
// bytes; callers that need an actual payload copy provide one via
// CopyObjectBytes.
type ObjectCopier struct {
	objectsCopied atomic.Uint64
	bytesCopied   atomic.Uint64
}

// NewObjectCopier builds a copier with zeroed statistics.
func NewObjectCopier() *ObjectCopier {
	return &ObjectCopier{}
}

// CopyObject records a size-byte copy from oldAddress to newAddress.
func (c *ObjectCopier) CopyObject(oldAddress, newAddress uintptr, size uintptr) error {
	c.objectsCopied.Add(1)
	c.bytesCopied.Add(uint64(size))
	return nil
}

// CopyObjectBytes performs a real byte-for-byte copy when the caller has
// actual backing storage (e.g. a test harness simulating object memory
// with plain byte slices), then records it the same way CopyObject does.
func (c *ObjectCopier) CopyObjectBytes(dst, src []byte) error {
	copy(dst, src)
	c.objectsCopied.Add(1)
	c.bytesCopied.Add(uint64(len(src)))
	return nil
}

// Stats returns a snapshot of the copier's counters.
func (c *ObjectCopier) Stats() CopyStats {
	return CopyStats{
		ObjectsCopied: c.objectsCopied.Load(),
		BytesCopied:   c.bytesCopied.Load(),
	}
}
