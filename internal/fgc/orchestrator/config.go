// Package orchestrator implements §4's top-level collection cycle: the
// phase state machine that drives marking, relocation, and cleanup to
// completion, grounded on fgc/src/gc.rs's GarbageCollector.
package orchestrator

import "github.com/faxlang/faxc/internal/fgc/fgcerr"

// Config tunes a GarbageCollector. fgc/src/config.rs (GcConfig's home in
// the original) was not retrieved in full, so the heap-sizing fields below
// are reconstructed from the GC runtime API's Configuration table (§6)
// rather than from gc.rs call sites directly; GcThreads/Verbose still come
// from gc.rs's own call sites (config.verbose gates the "[GC] ..." trace
// lines, config.gc_threads.unwrap_or(4) sizes the marking worker pool).
// config.Validate() is called before any collector is built.
type Config struct {
	// MaxHeapSize bounds how large the heap may grow (§6 default 512 MiB).
	MaxHeapSize uintptr

	// MinHeapSize is the floor the adaptive controller will not shrink
	// below (§6 default 64 MiB).
	MinHeapSize uintptr

	// SoftMaxHeapSize is the adaptive controller's starting target size.
	// Zero means "default to MaxHeapSize", per §6.
	SoftMaxHeapSize uintptr

	// InitialHeapSize is the size reserved at startup. Zero means
	// "default to MinHeapSize", per §6.
	InitialHeapSize uintptr

	// TargetPauseTimeMs is the pacing goal in milliseconds (§6 default
	// 10). It is carried in Config only: it does not change scheduling
	// and is not reported by Stats.
	TargetPauseTimeMs uint32

	// Generational selects whether the allocator routes young-generation
	// requests into a separate young pool (true) or treats every
	// allocation as old (false). §6 default true.
	Generational bool

	// Verbose enables the phase-by-phase trace logging gc.rs prints with
	// println! at every step when set.
	Verbose bool

	// GcThreads is the number of concurrent marking workers. Zero means
	// "use the default of 4", matching gc.rs's
	// `self.config.gc_threads.unwrap_or(4)`.
	GcThreads int

	// TlabSize is the nominal size of a thread-local allocation buffer
	// (§6 default 256 KiB). Zero means "use the allocator's built-in
	// default".
	TlabSize uintptr

	// TlabMinSize is the smallest TLAB the allocator will hand out before
	// falling back to bump allocation (§6 default 16 KiB). Zero means
	// "use the allocator's built-in default".
	TlabMinSize uintptr

	// PromotionThreshold is the number of survived young collections
	// before an object is promoted to the old generation (§6 default 3).
	PromotionThreshold uint32

	// MaxHistory is a history bound of the kind stats.NewGcStatsCollector
	// takes (gc_cycle.rs's cycle-history collector). Not named in any
	// retrieved source. Validate rejects negative values; the collector
	// itself creates no GcStatsCollector and does not read this field.
	MaxHistory int
}

// DefaultConfig returns a Config with §6's documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxHeapSize:        512 * 1024 * 1024,
		MinHeapSize:        64 * 1024 * 1024,
		TargetPauseTimeMs:  10,
		Generational:       true,
		GcThreads:          4,
		TlabSize:           256 * 1024,
		TlabMinSize:        16 * 1024,
		PromotionThreshold: 3,
		MaxHistory:         32,
	}
}

// Validate reports a non-nil error if the configuration cannot build a
// working collector, per §6's "Invalid combinations (e.g., min > max) are
// rejected at init."
func (c Config) Validate() error {
	if c.GcThreads < 0 {
		return fgcerr.Configuration("Config.Validate", "gc_threads must be >= 0")
	}
	if c.MaxHistory < 0 {
		return fgcerr.Configuration("Config.Validate", "max_history must be >= 0")
	}
	if c.MinHeapSize > 0 && c.MaxHeapSize > 0 && c.MinHeapSize > c.MaxHeapSize {
		return fgcerr.Configuration("Config.Validate", "min_heap_size must be <= max_heap_size")
	}
	if soft := c.softMax(); c.MinHeapSize > 0 && soft > 0 && soft < c.MinHeapSize {
		return fgcerr.Configuration("Config.Validate", "soft_max_heap_size must be >= min_heap_size")
	}
	if soft := c.softMax(); c.MaxHeapSize > 0 && soft > 0 && soft > c.MaxHeapSize {
		return fgcerr.Configuration("Config.Validate", "soft_max_heap_size must be <= max_heap_size")
	}
	if initial := c.initial(); initial > 0 && c.MinHeapSize > 0 && initial < c.MinHeapSize {
		return fgcerr.Configuration("Config.Validate", "initial_heap_size must be >= min_heap_size")
	}
	if initial := c.initial(); initial > 0 && c.MaxHeapSize > 0 && initial > c.MaxHeapSize {
		return fgcerr.Configuration("Config.Validate", "initial_heap_size must be <= max_heap_size")
	}
	if c.TlabSize > 0 && c.TlabMinSize > 0 && c.TlabMinSize > c.TlabSize {
		return fgcerr.Configuration("Config.Validate", "tlab_min_size must be <= tlab_size")
	}
	return nil
}

// threads resolves the configured worker count, applying gc.rs's
// unwrap_or(4) default.
func (c Config) threads() int {
	if c.GcThreads > 0 {
		return c.GcThreads
	}
	return 4
}

// softMax resolves SoftMaxHeapSize, defaulting to MaxHeapSize per §6.
func (c Config) softMax() uintptr {
	if c.SoftMaxHeapSize > 0 {
		return c.SoftMaxHeapSize
	}
	return c.MaxHeapSize
}

// initial resolves InitialHeapSize, defaulting to MinHeapSize per §6.
func (c Config) initial() uintptr {
	if c.InitialHeapSize > 0 {
		return c.InitialHeapSize
	}
	return c.MinHeapSize
}
