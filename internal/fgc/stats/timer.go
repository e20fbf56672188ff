// Package stats implements §4's performance-monitoring surface: cycle
// counters, a logarithmic pause-time histogram, and a metrics exporter,
// grounded on fgc/src/stats/{mod,timer,histogram,metrics,gc_cycle}.rs.
package stats

import "time"

// GcTimer measures elapsed wall-clock time for a GC phase, grounded on
// timer.rs's GcTimer (std::time::Instant wrapper).
type GcTimer struct {
	start time.Time
}

// NewGcTimer starts a timer.
func NewGcTimer() *GcTimer {
	return &GcTimer{start: time.Now()}
}

// Elapsed returns the duration since the timer started.
func (t *GcTimer) Elapsed() time.Duration {
	return time.Since(t.start)
}

// ElapsedNs returns the elapsed time in nanoseconds.
func (t *GcTimer) ElapsedNs() uint64 {
	return uint64(t.Elapsed())
}

// ElapsedUs returns the elapsed time in microseconds.
func (t *GcTimer) ElapsedUs() uint64 {
	return uint64(t.Elapsed() / time.Microsecond)
}

// ElapsedMs returns the elapsed time in milliseconds.
func (t *GcTimer) ElapsedMs() float64 {
	return float64(t.Elapsed()) / float64(time.Millisecond)
}

// ScopedTimer measures the time between its creation and a call to Stop,
// reporting the duration to callback. It is the Go stand-in for
// timer.rs's ScopedTimer, whose Drop impl ran the callback automatically;
// Go has no destructors, so callers invoke Stop via defer instead.
type ScopedTimer struct {
	start    time.Time
	callback func(time.Duration)
}

// NewScopedTimer starts a scoped timer. Typical use:
//
//	st := stats.NewScopedTimer(func(d time.Duration) { log.Verbose("phase took %s", d) })
//	defer st.Stop()
func NewScopedTimer(callback func(time.Duration)) *ScopedTimer {
	return &ScopedTimer{start: time.Now(), callback: callback}
}

// Stop reports the elapsed duration to the timer's callback. Calling Stop
// more than once reports overlapping durations each time; callers should
// call it exactly once, typically via defer.
func (t *ScopedTimer) Stop() {
	if t.callback != nil {
		t.callback(time.Since(t.start))
	}
}
