package alloc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/fgc/alloc"
	"github.com/faxlang/faxc/internal/fgc/heap"
)

func TestLargeObjectAllocatorRejectsSmallSizes(t *testing.T) {
	h := newTestHeap()
	a := alloc.NewLargeObjectAllocator(h, heap.GenerationOld)

	_, err := a.Allocate(128)
	require.Error(t, err)
}

func TestLargeObjectAllocatorAllocateTracksCounters(t *testing.T) {
	h := newTestHeap()
	a := alloc.NewLargeObjectAllocator(h, heap.GenerationOld)

	addr, err := a.Allocate(5000)
	require.NoError(t, err)
	require.NotZero(t, addr)
	require.Equal(t, uint64(1), a.ObjectCount())
	require.Equal(t, uintptr(alloc.LargeAlignment*2), a.TotalAllocated())
}

func TestLargeObjectAllocatorFreeReturnsToFreeList(t *testing.T) {
	h := newTestHeap()
	a := alloc.NewLargeObjectAllocator(h, heap.GenerationOld)

	addr, err := a.Allocate(5000)
	require.NoError(t, err)
	require.NoError(t, a.Free(addr))
	require.Zero(t, a.ObjectCount())

	count, total := a.FreeRegionStats()
	require.Equal(t, 1, count)
	require.Positive(t, total)
}

func TestLargeObjectAllocatorReusesFreedRegion(t *testing.T) {
	h := newTestHeap()
	a := alloc.NewLargeObjectAllocator(h, heap.GenerationOld)

	first, err := a.Allocate(5000)
	require.NoError(t, err)
	require.NoError(t, a.Free(first))

	second, err := a.Allocate(5000)
	require.NoError(t, err)
	require.Equal(t, first, second, "freeing then reallocating the same size should reuse the region")

	count, _ := a.FreeRegionStats()
	require.Zero(t, count)
}

func TestLargeObjectAllocatorFreeUnknownAddressErrors(t *testing.T) {
	h := newTestHeap()
	a := alloc.NewLargeObjectAllocator(h, heap.GenerationOld)

	require.Error(t, a.Free(0xdeadbeef))
}
