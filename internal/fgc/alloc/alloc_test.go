package alloc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/fgc/alloc"
)

func TestAllocatorLargeObjectBypassesTlab(t *testing.T) {
	h := newTestHeap()
	a := alloc.NewAllocator(h, true)
	id := alloc.NewThreadID()

	addr, err := a.Allocate(id, alloc.LargeThreshold+1, true)
	require.NoError(t, err)
	require.NotZero(t, addr)
	require.Equal(t, uint64(1), a.Stats().LargeObjects)
}

func TestAllocatorSmallObjectUsesTlabFastPath(t *testing.T) {
	h := newTestHeap()
	a := alloc.NewAllocator(h, true)
	id := alloc.NewThreadID()

	addr1, err := a.AllocateYoung(id, 64)
	require.NoError(t, err)
	addr2, err := a.AllocateYoung(id, 64)
	require.NoError(t, err)
	require.Greater(t, addr2, addr1, "sequential small allocations from the same thread's TLAB should be contiguous")
}

func TestAllocatorNonGenerationalRoutesToOld(t *testing.T) {
	h := newTestHeap()
	a := alloc.NewAllocator(h, false)
	id := alloc.NewThreadID()

	tlab, err := a.GetCurrentTlab(id)
	require.NoError(t, err)
	// Drain the TLAB so the fallback path is exercised.
	for tlab.HasSpace(64) {
		_, ok := tlab.Allocate(64)
		require.True(t, ok)
	}

	_, err = a.Allocate(id, 64, true)
	require.NoError(t, err)
	require.Greater(t, a.Stats().OldAllocated, uint64(0))
}

func TestAllocatorPromoteObjectLandsInOldGeneration(t *testing.T) {
	h := newTestHeap()
	a := alloc.NewAllocator(h, true)
	id := alloc.NewThreadID()

	addr, err := a.PromoteObject(id, 0x1000, alloc.LargeThreshold+1)
	require.NoError(t, err)
	require.NotZero(t, addr)
}

func TestAllocatorResetYoungClearsYoungStats(t *testing.T) {
	h := newTestHeap()
	a := alloc.NewAllocator(h, true)
	id := alloc.NewThreadID()

	_, err := a.Allocate(id, alloc.LargeThreshold+1, true)
	require.NoError(t, err)

	a.ResetYoung()
	require.Equal(t, uint64(0), a.Stats().YoungAllocated)
}
