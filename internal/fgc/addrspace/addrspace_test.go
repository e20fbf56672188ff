package addrspace_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/fgc/addrspace"
)

func TestViewAddrMatchesPerViewBases(t *testing.T) {
	physical := uintptr(0x1234)
	require.Equal(t, uintptr(0x0000_0000_0000_1234), addrspace.ViewAddr(physical, addrspace.ViewRemapped))
	require.Equal(t, uintptr(0x0001_0000_0000_1234), addrspace.ViewAddr(physical, addrspace.ViewMarked0))
	require.Equal(t, uintptr(0x0002_0000_0000_1234), addrspace.ViewAddr(physical, addrspace.ViewMarked1))
}

func TestViewAddrRoundTrip(t *testing.T) {
	physical := uintptr(0x5678)
	marked0 := addrspace.ViewAddr(physical, addrspace.ViewMarked0)
	require.Equal(t, physical, addrspace.PhysicalAddr(marked0))
}

func TestMapRegionRejectsDuplicate(t *testing.T) {
	a := addrspace.New()
	require.NoError(t, a.MapRegion(0x1000, 0x200000))
	err := a.MapRegion(0x1000, 0x200000)
	require.Error(t, err)
}

func TestMapRegionTracksTotalsAndCount(t *testing.T) {
	a := addrspace.New()
	require.NoError(t, a.MapRegion(0x1000, 0x200000))
	require.NoError(t, a.MapRegion(0x2000, 0x100000))

	require.Equal(t, uintptr(0x300000), a.TotalMapped())
	require.Equal(t, 2, a.RegionCount())
	require.True(t, a.IsMapped(0x1000))
	require.False(t, a.IsMapped(0x3000))
}

func TestUnmapRegionRemovesTracking(t *testing.T) {
	a := addrspace.New()
	require.NoError(t, a.MapRegion(0x1000, 0x200000))
	require.NoError(t, a.UnmapRegion(0x1000))

	require.False(t, a.IsMapped(0x1000))
	require.Zero(t, a.TotalMapped())
}

func TestUnmapRegionErrorsWhenNotMapped(t *testing.T) {
	a := addrspace.New()
	err := a.UnmapRegion(0xdead)
	require.Error(t, err)
}

func TestGetViewFailsForUnmappedRegion(t *testing.T) {
	a := addrspace.New()
	_, ok := a.GetView(0x1000, addrspace.ViewMarked0)
	require.False(t, ok)
}

func TestGetViewSucceedsForMappedRegion(t *testing.T) {
	a := addrspace.New()
	require.NoError(t, a.MapRegion(0x1000, 0x200000))

	addr, ok := a.GetView(0x1000, addrspace.ViewMarked1)
	require.True(t, ok)
	require.Equal(t, addrspace.ViewAddr(0x1000, addrspace.ViewMarked1), addr)
}

func TestUnmapAllClearsEverything(t *testing.T) {
	a := addrspace.New()
	require.NoError(t, a.MapRegion(0x1000, 0x200000))
	require.NoError(t, a.MapRegion(0x2000, 0x100000))

	a.UnmapAll()
	require.Zero(t, a.RegionCount())
	require.Zero(t, a.TotalMapped())
}
