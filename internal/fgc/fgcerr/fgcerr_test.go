package fgcerr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/fgc/fgcerr"
)

func TestVirtualMemoryWrapsSentinelAndDetail(t *testing.T) {
	err := fgcerr.VirtualMemory("AddressSpace.Map", "mmap failed: EACCES")
	require.ErrorIs(t, err, fgcerr.ErrVirtualMemory)
	require.Contains(t, err.Error(), "AddressSpace.Map")
	require.Contains(t, err.Error(), "mmap failed: EACCES")
}

func TestInternalWrapsSentinel(t *testing.T) {
	err := fgcerr.Internal("Runtime.transition", "unreachable phase")
	require.ErrorIs(t, err, fgcerr.ErrInternal)
}

func TestConfigurationWrapsSentinel(t *testing.T) {
	err := fgcerr.Configuration("GcConfig.Validate", "max_heap_size must be > 0")
	require.ErrorIs(t, err, fgcerr.ErrConfiguration)
}

func TestLockPoisonedWrapsSentinel(t *testing.T) {
	err := fgcerr.LockPoisoned("Runtime.Start", "state mutex poisoned")
	require.ErrorIs(t, err, fgcerr.ErrLockPoisoned)
}

func TestTlabWrapsSentinel(t *testing.T) {
	err := fgcerr.Tlab("LargeAllocator.Allocate", "size 64 too small for large allocator")
	require.ErrorIs(t, err, fgcerr.ErrTlab)
}

func TestInvalidPointerIncludesAddress(t *testing.T) {
	err := fgcerr.InvalidPointer("LargeAllocator.Free", 0xdeadbeef)
	require.ErrorIs(t, err, fgcerr.ErrInvalidPointer)
	require.Contains(t, err.Error(), "0xdeadbeef")
}

func TestOutOfMemoryIncludesRequestedAndAvailable(t *testing.T) {
	err := fgcerr.OutOfMemory("Generational.AllocateYoung", 4096, 1024)
	require.ErrorIs(t, err, fgcerr.ErrOutOfMemory)
	require.Contains(t, err.Error(), "requested=4096")
	require.Contains(t, err.Error(), "available=1024")
}

func TestErrorUnwrapReachesSentinel(t *testing.T) {
	err := fgcerr.Configuration("x", "y")
	var target *fgcerr.Error
	require.True(t, errors.As(err, &target))
	require.Equal(t, fgcerr.ErrConfiguration, target.Err)
}

func TestDistinctSentinelsAreNotInterchangeable(t *testing.T) {
	err := fgcerr.OutOfMemory("x", 1, 0)
	require.False(t, errors.Is(err, fgcerr.ErrInvalidPointer))
	require.False(t, errors.Is(err, fgcerr.ErrTlab))
}
