package alloc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/fgc/addrspace"
	"github.com/faxlang/faxc/internal/fgc/alloc"
	"github.com/faxlang/faxc/internal/fgc/heap"
)

func newTestHeap() *heap.Heap {
	return heap.NewHeap(addrspace.New(), heap.NewNumaManager())
}

func TestMultiBumpAllocatorAllocatesWithinOneRegion(t *testing.T) {
	h := newTestHeap()
	m := alloc.NewMultiBumpAllocator(h, heap.GenerationYoung, heap.SizeClassSmall, heap.SmallRegionSize, 0)

	a1, err := m.Allocate(64)
	require.NoError(t, err)
	a2, err := m.Allocate(64)
	require.NoError(t, err)
	require.Greater(t, a2, a1)
	require.Equal(t, 1, m.RegionCount())
}

func TestMultiBumpAllocatorPullsFreshRegionWhenExhausted(t *testing.T) {
	h := newTestHeap()
	m := alloc.NewMultiBumpAllocator(h, heap.GenerationYoung, heap.SizeClassSmall, heap.SmallRegionSize, 0)

	_, err := m.Allocate(heap.SmallRegionSize - 32)
	require.NoError(t, err)
	_, err = m.Allocate(256)
	require.NoError(t, err)
	require.Equal(t, 2, m.RegionCount())
}

func TestMultiBumpAllocatorRespectsMaxRegions(t *testing.T) {
	h := newTestHeap()
	m := alloc.NewMultiBumpAllocator(h, heap.GenerationYoung, heap.SizeClassSmall, 64, 1)

	_, err := m.Allocate(64)
	require.NoError(t, err)
	_, err = m.Allocate(64)
	require.Error(t, err)
}

func TestMultiBumpAllocatorResetAllReturnsRegions(t *testing.T) {
	h := newTestHeap()
	m := alloc.NewMultiBumpAllocator(h, heap.GenerationYoung, heap.SizeClassSmall, heap.SmallRegionSize, 0)

	_, err := m.Allocate(128)
	require.NoError(t, err)
	require.Equal(t, uint64(128), m.TotalAllocated())

	m.ResetAll()
	require.Equal(t, 0, m.RegionCount())
	require.Equal(t, uint64(0), m.TotalAllocated())
}
