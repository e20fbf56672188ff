package fgc

import "github.com/faxlang/faxc/internal/fgc/runtime"

// Init validates config, builds a Runtime over it, and starts its
// background subsystems (safepoint manager, finalizer draining), matching
// §6's `init(config) → Runtime`. config.Validate() rejects invalid
// combinations such as min_heap_size > max_heap_size.
func Init(config Config) (*Runtime, error) {
	return runtime.InitWithConfig(config)
}

// InitDefault is Init(DefaultConfig()).
func InitDefault() (*Runtime, error) {
	return runtime.InitDefault()
}
