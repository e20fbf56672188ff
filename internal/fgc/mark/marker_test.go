package mark_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/fgc/addrspace"
	"github.com/faxlang/faxc/internal/fgc/colorptr"
	"github.com/faxlang/faxc/internal/fgc/heap"
	"github.com/faxlang/faxc/internal/fgc/mark"
)

func newTestHeap() *heap.Heap {
	return heap.NewHeap(addrspace.New(), heap.NewNumaManager())
}

func TestMarkerScanRootsSeedsQueueFromScanner(t *testing.T) {
	h := newTestHeap()
	region, err := h.AllocateRegion(0, heap.GenerationYoung, heap.SizeClassSmall)
	require.NoError(t, err)

	m := mark.NewMarker(h)
	root := colorptr.New(region.Start+16, 0)
	m.SetRootScanner(mark.RootScannerFunc(func() []colorptr.Pointer {
		return []colorptr.Pointer{root}
	}))

	require.NoError(t, m.ScanRoots())
	require.Equal(t, 1, m.Queue().Len())
}

func TestMarkerConcurrentMarkingDrainsQueueAndMarksRegions(t *testing.T) {
	h := newTestHeap()
	region, err := h.AllocateRegion(0, heap.GenerationYoung, heap.SizeClassSmall)
	require.NoError(t, err)

	m := mark.NewMarker(h)
	addr := region.Start + 32
	m.Queue().Push(colorptr.New(addr, 0))

	require.NoError(t, m.StartConcurrentMarking(2))
	require.Eventually(t, func() bool {
		return m.Queue().IsEmpty()
	}, time.Second, time.Millisecond)

	require.NoError(t, m.WaitCompletion())
	require.NoError(t, m.FinalizeMarking())

	require.True(t, region.IsMarked(addr))
	require.Equal(t, uint64(1), m.ObjectsMarked())
}

func TestMarkerStartConcurrentMarkingTwiceFails(t *testing.T) {
	h := newTestHeap()
	m := mark.NewMarker(h)

	require.NoError(t, m.StartConcurrentMarking(1))
	require.Error(t, m.StartConcurrentMarking(1))
	require.NoError(t, m.Shutdown())
}

func TestMarkerShutdownIsIdempotentWhenNeverStarted(t *testing.T) {
	h := newTestHeap()
	m := mark.NewMarker(h)
	require.NoError(t, m.Shutdown())
}
