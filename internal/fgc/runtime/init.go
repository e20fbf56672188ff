package runtime

import (
	"sync/atomic"

	"github.com/faxlang/faxc/internal/fgc/fgcerr"
	"github.com/faxlang/faxc/internal/fgc/orchestrator"
)

// RuntimeInitializer drives a Runtime's initialization sequence:
// validate configuration, build the runtime, start its subsystems.
// Ported from init.rs's RuntimeInitializer.
//
// init.rs additionally registers a process-wide shutdown hook via a
// static Once guarding a global ShutdownGuard whose Drop impl is
// itself empty ("cleanup saat program exit", left unimplemented in
// the original). Go has neither global destructors nor Drop, and the
// hook does no actual work in the source it was ported from, so it is
// dropped here rather than reconstructed as a fake no-op — see
// DESIGN.md.
type RuntimeInitializer struct {
	config      orchestrator.Config
	initialized atomic.Bool
}

// NewRuntimeInitializer builds an initializer over config.
func NewRuntimeInitializer(config orchestrator.Config) *RuntimeInitializer {
	return &RuntimeInitializer{config: config}
}

// Initialize validates the configuration, builds a Runtime, and starts
// it. Returns fgcerr.ErrInternal if called more than once on the same
// initializer.
func (r *RuntimeInitializer) Initialize() (*Runtime, error) {
	if r.initialized.Load() {
		return nil, fgcerr.Internal("RuntimeInitializer.Initialize", "runtime already initialized")
	}

	if err := r.config.Validate(); err != nil {
		return nil, fgcerr.Configuration("RuntimeInitializer.Initialize", err.Error())
	}

	rt, err := New(r.config)
	if err != nil {
		return nil, err
	}
	if err := rt.Start(); err != nil {
		return nil, err
	}

	r.initialized.Store(true)
	return rt, nil
}

// Config returns the initializer's configuration.
func (r *RuntimeInitializer) Config() orchestrator.Config { return r.config }

// IsInitialized reports whether Initialize has already succeeded.
func (r *RuntimeInitializer) IsInitialized() bool { return r.initialized.Load() }

// InitDefault initializes a Runtime with orchestrator.DefaultConfig.
func InitDefault() (*Runtime, error) {
	return NewRuntimeInitializer(orchestrator.DefaultConfig()).Initialize()
}

// InitWithConfig initializes a Runtime with the given configuration.
func InitWithConfig(config orchestrator.Config) (*Runtime, error) {
	return NewRuntimeInitializer(config).Initialize()
}
