package stats_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/fgc/stats"
)

func TestGcStatsRecordCollectionSplitsMinorAndMajor(t *testing.T) {
	s := stats.NewGcStats()
	s.RecordCollection(0, stats.GenerationYoung, 5*time.Millisecond)
	s.RecordCollection(1, stats.GenerationOld, 10*time.Millisecond)
	s.RecordCollection(2, stats.GenerationFull, 20*time.Millisecond)

	summary := s.Summary()
	require.Equal(t, uint64(3), summary.TotalCycles)
	require.Equal(t, uint64(1), summary.MinorCycles)
	require.Equal(t, uint64(2), summary.MajorCycles)
	require.Greater(t, summary.MaxPauseMs, 0.0)
}

func TestGcStatsRecordMemoryUsageReflectsInSummary(t *testing.T) {
	s := stats.NewGcStats()
	s.RecordMemoryUsage(2 * 1024 * 1024)

	summary := s.Summary()
	require.Equal(t, 2.0, summary.HeapUsedMb)
}

func TestGcStatsResetClearsCyclesButKeepsUptime(t *testing.T) {
	s := stats.NewGcStats()
	s.RecordCollection(0, stats.GenerationYoung, time.Millisecond)
	s.Reset()

	summary := s.Summary()
	require.Equal(t, uint64(0), summary.TotalCycles)
}

func TestGcStatsPauseHistogramSharesUnderlyingData(t *testing.T) {
	s := stats.NewGcStats()
	s.RecordCollection(0, stats.GenerationYoung, time.Millisecond)

	require.Equal(t, uint64(1), s.PauseHistogram().Count())
	require.Same(t, s.PauseStats(), s.PauseHistogram())
}
