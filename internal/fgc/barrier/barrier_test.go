package barrier_test

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/fgc/barrier"
	"github.com/faxlang/faxc/internal/fgc/colorptr"
)

type stubForwarder struct {
	forwarded map[uintptr]uintptr
}

func (f *stubForwarder) Forward(address uintptr) (uintptr, bool) {
	n, ok := f.forwarded[address]
	return n, ok
}

type stubMarker struct {
	pushed []colorptr.Pointer
}

func (m *stubMarker) Push(p colorptr.Pointer) { m.pushed = append(m.pushed, p) }

func TestReadFastPathReturnsAlreadyHealedPointer(t *testing.T) {
	marker := &stubMarker{}
	lb := barrier.NewLoadBarrier(&stubForwarder{}, marker, nil)

	good := lb.GoodColor()
	var field atomic.Uint64
	field.Store(uint64(colorptr.New(0x100, good)))

	result := lb.Read(&field)
	require.Equal(t, uintptr(0x100), result.Address())
	require.True(t, result.HasColor(good))
	require.Empty(t, marker.pushed, "fast path must not push onto the marker")
}

func TestReadSlowPathStampsGoodColorAndPushesToMarker(t *testing.T) {
	marker := &stubMarker{}
	lb := barrier.NewLoadBarrier(&stubForwarder{}, marker, func(uintptr) bool { return false })

	stale := colorptr.New(0x200, colorptr.ColorMarked1) // not the current good color
	var field atomic.Uint64
	field.Store(uint64(stale))

	result := lb.Read(&field)

	require.True(t, result.HasColor(lb.GoodColor()))
	require.Equal(t, uintptr(0x200), result.Address())
	require.Len(t, marker.pushed, 1)
	require.Equal(t, uint64(result), uint64(field.Load()), "CAS must publish the healed value")
}

func TestReadSlowPathForwardsRelocatedObject(t *testing.T) {
	forwarder := &stubForwarder{forwarded: map[uintptr]uintptr{0x300: 0x999}}
	marker := &stubMarker{}
	lb := barrier.NewLoadBarrier(forwarder, marker, func(addr uintptr) bool { return addr == 0x300 })

	stale := colorptr.New(0x300, colorptr.ColorMarked1)
	var field atomic.Uint64
	field.Store(uint64(stale))

	result := lb.Read(&field)
	require.Equal(t, uintptr(0x999), result.Address())
}

func TestSetGoodColorFlipsCycleColor(t *testing.T) {
	lb := barrier.NewLoadBarrier(&stubForwarder{}, &stubMarker{}, nil)
	require.Equal(t, colorptr.ColorMarked0, lb.GoodColor())

	lb.SetGoodColor(colorptr.ColorMarked1)
	require.Equal(t, colorptr.ColorMarked1, lb.GoodColor())
}

type stubRememberedSet struct {
	recorded []uint64
}

func (s *stubRememberedSet) Record(region uint64) { s.recorded = append(s.recorded, region) }

func TestWriteBarrierRecordsOldToYoungStore(t *testing.T) {
	regionOf := func(addr uintptr) uint64 { return uint64(addr / 0x1000) }
	isOld := func(r uint64) bool { return r == 1 }
	isYoung := func(r uint64) bool { return r == 2 }

	set := &stubRememberedSet{}
	wb := barrier.NewWriteBarrier(regionOf, set, isOld, isYoung)

	container := uintptr(0x1000) // region 1 (old)
	value := colorptr.New(0x2000, colorptr.ColorMarked0) // region 2 (young)

	wb.StorePointer(container, value)
	require.Equal(t, []uint64{1}, set.recorded)
}

func TestWriteBarrierSkipsWhenContainerIsNotOld(t *testing.T) {
	regionOf := func(addr uintptr) uint64 { return uint64(addr / 0x1000) }
	isOld := func(r uint64) bool { return false }
	isYoung := func(r uint64) bool { return true }

	set := &stubRememberedSet{}
	wb := barrier.NewWriteBarrier(regionOf, set, isOld, isYoung)

	wb.StorePointer(0x1000, colorptr.New(0x2000, colorptr.ColorMarked0))
	require.Empty(t, set.recorded)
}

func TestWriteBarrierSkipsWhenValueIsNotYoung(t *testing.T) {
	regionOf := func(addr uintptr) uint64 { return uint64(addr / 0x1000) }
	isOld := func(r uint64) bool { return true }
	isYoung := func(r uint64) bool { return false }

	set := &stubRememberedSet{}
	wb := barrier.NewWriteBarrier(regionOf, set, isOld, isYoung)

	wb.StorePointer(0x1000, colorptr.New(0x2000, colorptr.ColorMarked0))
	require.Empty(t, set.recorded)
}
