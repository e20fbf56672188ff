package heap_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/fgc/heap"
)

func TestNumaManagerDefaultsToSingleNode(t *testing.T) {
	m := heap.NewNumaManager()
	require.Equal(t, 1, m.NodeCount())
	require.Equal(t, 0, m.CurrentNode())
}

func TestNumaManagerAllocateLocalFailsWithEmptyPool(t *testing.T) {
	m := heap.NewNumaManager()
	_, ok := m.AllocateLocal(4096)
	require.False(t, ok, "a fresh pool has nothing to hand out until something is freed to it")
}

func TestNumaManagerFreeThenAllocateRoundTrips(t *testing.T) {
	m := heap.NewNumaManager()
	m.FreeToNode(0, 0x4000, 4096)

	addr, ok := m.AllocateLocal(4096)
	require.True(t, ok)
	require.Equal(t, uintptr(0x4000), addr)

	_, ok = m.AllocateLocal(4096)
	require.False(t, ok, "the single freed region should now be consumed")
}

func TestNumaManagerSetCurrentNodeRejectsOutOfRange(t *testing.T) {
	m := heap.NewNumaManager()
	m.SetCurrentNode(5)
	require.Equal(t, 0, m.CurrentNode(), "out-of-range node must be rejected")
}

func TestNumaManagerNodeStatsTracksAllocations(t *testing.T) {
	m := heap.NewNumaManager()
	m.FreeToNode(0, 0x1000, 1024)
	m.AllocateLocal(1024)

	stats, ok := m.NodeStats(0)
	require.True(t, ok)
	require.Equal(t, uint64(1024), stats.AllocatedBytes)
	require.Equal(t, uint64(1), stats.AllocationCount)
}
