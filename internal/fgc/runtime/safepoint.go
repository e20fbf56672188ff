// Package runtime integrates the collector with an embedding program:
// safepoint coordination, finalizer execution, JIT root reporting, and
// the startup/shutdown sequence that ties them to an
// orchestrator.GarbageCollector. Grounded on fgc/src/runtime/{mod,
// safepoint,finalizer,jit,init}.rs.
package runtime

import (
	"sync"
	"sync/atomic"
)

// Safepoint states, mirroring safepoint.rs's SAFEPOINT_NONE/REQUESTED/REACHED.
const (
	SafepointNone      uint8 = 0
	SafepointRequested uint8 = 1
	SafepointReached   uint8 = 2
)

// Safepoint coordinates a GC thread and a fixed pool of mutator threads
// around a stop-the-world pause: the GC thread requests a safepoint and
// waits for every registered thread to arrive before scanning stacks,
// then releases it. Ported from safepoint.rs's Safepoint; spin_loop
// busy-waits become time.Sleep backoffs, the pattern this module uses
// everywhere else a Rust spin loop appeared (relocate.Relocator,
// mark.Marker).
type Safepoint struct {
	state         atomic.Uint32
	pausedThreads atomic.Int64
	totalThreads  atomic.Int64
}

// NewSafepoint creates a Safepoint expecting totalThreads mutators to
// arrive on each request.
func NewSafepoint(totalThreads int) *Safepoint {
	s := &Safepoint{}
	s.state.Store(uint32(SafepointNone))
	s.totalThreads.Store(int64(totalThreads))
	return s
}

// RequestSafepoint signals every mutator to stop at its next poll point.
func (s *Safepoint) RequestSafepoint() {
	s.state.Store(uint32(SafepointRequested))
}

// WaitForSafepoint blocks until every registered thread has arrived.
func (s *Safepoint) WaitForSafepoint() {
	total := s.totalThreads.Load()
	for s.pausedThreads.Load() < total {
		spinWait()
	}
}

// Arrive signals that the calling mutator has reached the safepoint.
func (s *Safepoint) Arrive() {
	s.pausedThreads.Add(1)
	s.state.Store(uint32(SafepointReached))
}

// ReleaseSafepoint resumes every paused mutator and resets state for
// the next request.
func (s *Safepoint) ReleaseSafepoint() {
	s.pausedThreads.Store(0)
	s.state.Store(uint32(SafepointNone))
}

// IsRequested reports whether a mutator should stop at its next poll.
func (s *Safepoint) IsRequested() bool {
	return s.state.Load() != uint32(SafepointNone)
}

// State returns the current safepoint state constant.
func (s *Safepoint) State() uint8 { return uint8(s.state.Load()) }

// ThreadsAtSafepoint returns how many threads have arrived so far.
func (s *Safepoint) ThreadsAtSafepoint() int { return int(s.pausedThreads.Load()) }

// TotalThreads returns the expected mutator count.
func (s *Safepoint) TotalThreads() int { return int(s.totalThreads.Load()) }

// SetTotalThreads updates the expected mutator count, for when threads
// are created or destroyed between cycles.
func (s *Safepoint) SetTotalThreads(count int) { s.totalThreads.Store(int64(count)) }

// BlockUntilReleased arrives at the safepoint and spins until it is
// released, combining Arrive with a wait for ReleaseSafepoint. Mutator
// code calls this at a poll point once IsRequested is true.
func (s *Safepoint) BlockUntilReleased() {
	s.Arrive()
	for s.state.Load() != uint32(SafepointNone) {
		spinWait()
	}
}

// SafepointManager is the older, coarser safepoint coordinator kept
// alongside Safepoint for embedders migrating off it — safepoint.rs
// itself marks it "Deprecated: Use Safepoint directly for new code",
// so Runtime below uses it only because runtime/mod.rs's own Runtime
// still composes SafepointManager rather than Safepoint. New callers
// should prefer Safepoint.
type SafepointManager struct {
	gcInProgress       atomic.Bool
	threadsAtSafepoint atomic.Int64
	totalThreads       atomic.Int64
	mu                 sync.Mutex
}

// NewSafepointManager creates an empty manager with zero registered threads.
func NewSafepointManager() *SafepointManager {
	return &SafepointManager{}
}

// Start is a no-op, matching safepoint.rs's start (kept for symmetry
// with Finalizer.Start/Stop, which do real work).
func (m *SafepointManager) Start() error { return nil }

// Stop is a no-op, matching safepoint.rs's stop.
func (m *SafepointManager) Stop() error { return nil }

// ShouldBlock reports whether a mutator calling this should pause.
func (m *SafepointManager) ShouldBlock() bool {
	return m.gcInProgress.Load()
}

// BlockAtSafepoint pauses the calling goroutine until GC completes.
func (m *SafepointManager) BlockAtSafepoint() {
	m.threadsAtSafepoint.Add(1)
	for m.gcInProgress.Load() {
		sleepPoll()
	}
	m.threadsAtSafepoint.Add(-1)
}

// RequestSafepoint starts a GC pause and waits for every registered
// thread to report itself blocked.
func (m *SafepointManager) RequestSafepoint() {
	m.gcInProgress.Store(true)
	for m.threadsAtSafepoint.Load() < m.totalThreads.Load() {
		sleepPoll()
	}
}

// ReleaseSafepoint ends the GC pause, letting blocked mutators resume.
func (m *SafepointManager) ReleaseSafepoint() {
	m.gcInProgress.Store(false)
}

// SetTotalThreads updates the expected mutator count.
func (m *SafepointManager) SetTotalThreads(count int) {
	m.totalThreads.Store(int64(count))
}

// ThreadsAtSafepoint returns how many threads currently report blocked.
func (m *SafepointManager) ThreadsAtSafepoint() int {
	return int(m.threadsAtSafepoint.Load())
}

// AllAtSafepoint reports whether every registered thread is blocked.
func (m *SafepointManager) AllAtSafepoint() bool {
	return m.threadsAtSafepoint.Load() >= m.totalThreads.Load()
}

// SafepointGuard is the Go stand-in for safepoint.rs's RAII
// SafepointGuard: since Go has no Drop, the caller must call Release
// explicitly (typically via defer) instead of relying on scope exit.
type SafepointGuard struct {
	manager  *SafepointManager
	released bool
}

// NewSafepointGuard registers the calling thread as present and
// returns a guard; the caller must defer guard.Release().
func NewSafepointGuard(manager *SafepointManager) *SafepointGuard {
	manager.threadsAtSafepoint.Add(1)
	return &SafepointGuard{manager: manager}
}

// Check blocks the calling goroutine if a safepoint is currently requested.
func (g *SafepointGuard) Check() {
	if g.manager.ShouldBlock() {
		g.manager.BlockAtSafepoint()
	}
}

// Release deregisters the guard's thread. Safe to call more than once.
func (g *SafepointGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.manager.threadsAtSafepoint.Add(-1)
}
