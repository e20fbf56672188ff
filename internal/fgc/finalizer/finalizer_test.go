package finalizer_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/fgc/finalizer"
)

func TestRegisterTracksPendingCount(t *testing.T) {
	q := finalizer.New()
	require.False(t, q.HasPending())

	q.Register(0x1000, func(uintptr) {})
	require.True(t, q.HasPending())
	require.Equal(t, 1, q.PendingCount())
}

func TestClearDiscardsWithoutRunning(t *testing.T) {
	q := finalizer.New()
	var ran atomic.Bool
	q.Register(0x1000, func(uintptr) { ran.Store(true) })

	q.Clear()
	require.False(t, q.HasPending())
	require.False(t, ran.Load())
}

func TestRunPendingDrainsSynchronously(t *testing.T) {
	q := finalizer.New()
	var ranWith uintptr
	q.Register(0x2000, func(obj uintptr) { ranWith = obj })

	q.RunPending()
	require.Equal(t, uintptr(0x2000), ranWith)
	require.False(t, q.HasPending())
}

func TestStartRunsRegisteredCallbacksInBackground(t *testing.T) {
	q := finalizer.New()
	require.NoError(t, q.Start())
	defer q.Stop()

	done := make(chan struct{})
	q.Register(0x3000, func(uintptr) { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("finalizer did not run within timeout")
	}
}

func TestBuilderRegistersOnlyWhenFinalizerSet(t *testing.T) {
	q := finalizer.New()

	finalizer.NewBuilder(0x4000).Register(q)
	require.False(t, q.HasPending())

	finalizer.NewBuilder(0x5000).WithFinalizer(func(uintptr) {}).Register(q)
	require.True(t, q.HasPending())
}

func TestStopBeforeStartIsNoop(t *testing.T) {
	q := finalizer.New()
	require.NoError(t, q.Stop())
}
