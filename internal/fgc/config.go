// Package fgc is the embedder-facing entry point named by §6's GC runtime
// API: Config, Init, and the Runtime type. Every field and default lives on
// internal/fgc/orchestrator.Config — validated there by Config.Validate —
// so this package only re-exports rather than redefining the knobs.
package fgc

import (
	"github.com/faxlang/faxc/internal/fgc/orchestrator"
	"github.com/faxlang/faxc/internal/fgc/runtime"
)

// Config is an alias for orchestrator.Config, carrying every field §6's
// Configuration table names: MaxHeapSize, MinHeapSize, SoftMaxHeapSize,
// InitialHeapSize, TargetPauseTimeMs, Generational, GcThreads, TlabSize,
// TlabMinSize, PromotionThreshold, Verbose.
type Config = orchestrator.Config

// DefaultConfig returns §6's documented defaults.
func DefaultConfig() Config {
	return orchestrator.DefaultConfig()
}

// Runtime is an alias for runtime.Runtime, the type Init and InitDefault
// return.
type Runtime = runtime.Runtime
