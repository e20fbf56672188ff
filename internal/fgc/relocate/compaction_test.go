package relocate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/fgc/addrspace"
	"github.com/faxlang/faxc/internal/fgc/heap"
	"github.com/faxlang/faxc/internal/fgc/relocate"
)

func newTestHeap() *heap.Heap {
	return heap.NewHeap(addrspace.New(), heap.NewNumaManager())
}

func TestCompactorSelectRegionsFiltersByGarbageRatio(t *testing.T) {
	h := newTestHeap()
	low, _ := h.AllocateRegion(0, heap.GenerationOld, heap.SizeClassSmall)
	low.RecordAllocation(1000)
	low.SetLiveBytes(900) // 10% garbage, below threshold

	high, _ := h.AllocateRegion(0, heap.GenerationOld, heap.SizeClassSmall)
	high.RecordAllocation(1000)
	high.SetLiveBytes(100) // 90% garbage

	c := relocate.NewCompactor()
	selected := c.SelectRegions([]*heap.Region{low, high}, heap.SmallRegionSize*2)
	require.Len(t, selected, 1)
	require.Same(t, high, selected[0])
}

func TestCompactorSelectRegionsRespectsSizeBudget(t *testing.T) {
	h := newTestHeap()
	r1, _ := h.AllocateRegion(0, heap.GenerationOld, heap.SizeClassSmall)
	r1.RecordAllocation(1000)
	r1.SetLiveBytes(100)

	r2, _ := h.AllocateRegion(0, heap.GenerationOld, heap.SizeClassSmall)
	r2.RecordAllocation(1000)
	r2.SetLiveBytes(200)

	c := relocate.NewCompactor()
	selected := c.SelectRegions([]*heap.Region{r1, r2}, heap.SmallRegionSize)
	require.Len(t, selected, 1, "budget only fits one region")
}

func TestCompactorLifecycle(t *testing.T) {
	c := relocate.NewCompactor()
	require.False(t, c.IsCompacting())
	c.Start()
	require.True(t, c.IsCompacting())
	c.Complete()
	require.False(t, c.IsCompacting())
}
