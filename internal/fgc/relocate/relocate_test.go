package relocate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/fgc/heap"
	"github.com/faxlang/faxc/internal/fgc/relocate"
)

func TestPrepareRelocationSelectsGarbageHeavyRegions(t *testing.T) {
	h := newTestHeap()
	garbage, _ := h.AllocateRegion(0, heap.GenerationOld, heap.SizeClassSmall)
	garbage.RecordAllocation(1000)
	garbage.SetLiveBytes(100)

	live, _ := h.AllocateRegion(0, heap.GenerationOld, heap.SizeClassSmall)
	live.RecordAllocation(1000)
	live.SetLiveBytes(900)

	r := relocate.New(h)
	require.NoError(t, r.PrepareRelocation())
	require.True(t, r.InRelocationSet(garbage.Start))
	require.False(t, r.InRelocationSet(live.Start))
}

func TestRelocateObjectOutsideSetIsUnchanged(t *testing.T) {
	h := newTestHeap()
	r := relocate.New(h)
	require.NoError(t, r.PrepareRelocation())

	addr, err := r.RelocateObject(0xdeadbeef, 64)
	require.NoError(t, err)
	require.Equal(t, uintptr(0xdeadbeef), addr)
}

func TestRelocateObjectMovesAndForwards(t *testing.T) {
	h := newTestHeap()
	region, _ := h.AllocateRegion(0, heap.GenerationOld, heap.SizeClassSmall)
	region.RecordAllocation(1000)
	region.SetLiveBytes(100)

	r := relocate.New(h)
	require.NoError(t, r.PrepareRelocation())
	require.NoError(t, r.StartRelocation())

	oldAddr := region.Start + 64
	newAddr, err := r.RelocateObject(oldAddr, 32)
	require.NoError(t, err)
	require.NotEqual(t, oldAddr, newAddr)

	forwarded, ok := r.LookupForwarding(oldAddr)
	require.True(t, ok)
	require.Equal(t, newAddr, forwarded)

	stats := r.CopyStats()
	require.Equal(t, uint64(1), stats.ObjectsCopied)
	require.Equal(t, uint64(32), stats.BytesCopied)
}

func TestRelocateToPreAllocatedDestination(t *testing.T) {
	h := newTestHeap()
	region, _ := h.AllocateRegion(0, heap.GenerationOld, heap.SizeClassSmall)
	region.RecordAllocation(1000)
	region.SetLiveBytes(100)

	r := relocate.New(h)
	require.NoError(t, r.PrepareRelocation())

	oldAddr := region.Start + 8
	require.NoError(t, r.RelocateTo(oldAddr, 0x99990000, 16))

	forwarded, ok := r.LookupForwarding(oldAddr)
	require.True(t, ok)
	require.Equal(t, uintptr(0x99990000), forwarded)
}

func TestRelocateBatchReturnsAllNewAddresses(t *testing.T) {
	h := newTestHeap()
	region, _ := h.AllocateRegion(0, heap.GenerationOld, heap.SizeClassSmall)
	region.RecordAllocation(1000)
	region.SetLiveBytes(100)

	r := relocate.New(h)
	require.NoError(t, r.PrepareRelocation())
	require.NoError(t, r.StartRelocation())

	addrs, err := r.RelocateBatch([]relocate.RelocateObjectRequest{
		{Address: region.Start + 8, Size: 16},
		{Address: region.Start + 32, Size: 16},
	})
	require.NoError(t, err)
	require.Len(t, addrs, 2)
}

func TestCompleteRelocationReturnsRegionsToHeap(t *testing.T) {
	h := newTestHeap()
	region, _ := h.AllocateRegion(0, heap.GenerationOld, heap.SizeClassSmall)
	region.RecordAllocation(1000)
	region.SetLiveBytes(100)
	start := region.Start

	r := relocate.New(h)
	require.NoError(t, r.PrepareRelocation())
	require.NoError(t, r.StartRelocation())
	require.NoError(t, r.CompleteRelocation())

	require.False(t, r.InRelocationSet(start))
	require.False(t, r.Progress().InProgress)

	_, stillLive := h.RegionAt(start)
	require.False(t, stillLive)
}

func TestProgressReflectsCounters(t *testing.T) {
	h := newTestHeap()
	region, _ := h.AllocateRegion(0, heap.GenerationOld, heap.SizeClassSmall)
	region.RecordAllocation(1000)
	region.SetLiveBytes(100)

	r := relocate.New(h)
	r.SetTotalCount(1)
	require.NoError(t, r.PrepareRelocation())
	require.NoError(t, r.StartRelocation())

	_, err := r.RelocateObject(region.Start+8, 16)
	require.NoError(t, err)

	progress := r.Progress()
	require.Equal(t, uint64(1), progress.Relocated)
	require.Equal(t, uint64(1), progress.Total)
	require.NoError(t, r.WaitRelocationComplete())
}
