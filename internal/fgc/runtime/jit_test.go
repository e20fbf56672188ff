package runtime_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/fgc/runtime"
)

type recordingIntegration struct {
	events []runtime.JitEvent
}

func (r *recordingIntegration) OnEvent(event runtime.JitEvent) {
	r.events = append(r.events, event)
}

func (r *recordingIntegration) GetRoots() []runtime.JitRoot { return nil }

func TestJitGcInterfaceTracksCompiledMethods(t *testing.T) {
	j := runtime.NewJitGcInterface()

	j.NotifyCompiled(1, 0x1000, 4096, 256, true)
	j.NotifyCompiled(2, 0x2000, 8192, 512, false)

	stats := j.GetStats()
	require.Equal(t, uint64(2), stats.TotalCompilations)
	require.Equal(t, 2, stats.ActiveMethods)

	roots := j.GetJitRoots()
	require.Len(t, roots, 1)
	require.Equal(t, uintptr(0x1000), roots[0].Address)
	require.Equal(t, runtime.JitRootMethod, roots[0].Type)
}

func TestJitGcInterfaceDeoptimizedRemovesMethod(t *testing.T) {
	j := runtime.NewJitGcInterface()
	j.NotifyCompiled(1, 0x1000, 4096, 256, true)

	j.NotifyDeoptimized(1, "inline cache mismatch")

	require.Empty(t, j.GetJitRoots())
	require.Equal(t, uint64(1), j.GetStats().TotalDeoptimizations)
}

func TestJitGcInterfaceForwardsEventsToRegisteredIntegration(t *testing.T) {
	j := runtime.NewJitGcInterface()
	rec := &recordingIntegration{}
	j.RegisterJitIntegration(rec)

	j.NotifyCompiled(7, 0x7000, 128, 64, true)
	require.Len(t, rec.events, 1)
	require.Equal(t, runtime.JitEventCompiled, rec.events[0].Kind)
	require.Equal(t, uint64(7), rec.events[0].MethodID)
}

func TestJitGcInterfaceGcRequestRoundtrips(t *testing.T) {
	j := runtime.NewJitGcInterface()
	require.False(t, j.CheckGcRequested())

	j.RequestGc()
	require.True(t, j.CheckGcRequested())

	j.ClearGcRequest()
	require.False(t, j.CheckGcRequested())
}

func TestNoopJitIntegrationDiscardsEverything(t *testing.T) {
	noop := runtime.NoopJitIntegration{}
	noop.OnEvent(runtime.JitEvent{Kind: runtime.JitEventUnloaded})
	require.Nil(t, noop.GetRoots())
}
