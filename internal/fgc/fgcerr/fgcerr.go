// Package fgcerr defines the closed error taxonomy surfaced by the
// collector's runtime, allocator, heap, relocate, and barrier subsystems.
// Every public entry point in internal/fgc returns one of these sentinels
// wrapped with context, never a panic, mirroring the house style already
// established by internal/diag and internal/backend/emit's CodeGenError.
package fgcerr

import (
	"errors"
	"fmt"
)

// Sentinels, one per FgcError variant observed across the collector's
// virtual-memory, allocator, and runtime-state call sites. Callers compare
// with errors.Is; Error wraps each with the specific values involved.
var (
	// ErrVirtualMemory covers mmap/mprotect/munmap failures and any
	// address-space operation on a range the mapping doesn't own.
	ErrVirtualMemory = errors.New("fgc: virtual memory operation failed")

	// ErrInternal covers invariant violations that indicate a collector
	// bug rather than bad input or resource exhaustion.
	ErrInternal = errors.New("fgc: internal error")

	// ErrConfiguration is returned when a GcConfig fails validation.
	ErrConfiguration = errors.New("fgc: invalid configuration")

	// ErrLockPoisoned is returned when state guarded by a collector mutex
	// can no longer be trusted after a recovered panic (see LockPoisoned).
	ErrLockPoisoned = errors.New("fgc: lock poisoned")

	// ErrTlab covers TLAB/large-object allocator preconditions, such as
	// a request too small to route to the large-object path.
	ErrTlab = errors.New("fgc: tlab allocation error")

	// ErrInvalidPointer is returned when an address passed to Free (or
	// any pointer-taking API) is not a live allocation.
	ErrInvalidPointer = errors.New("fgc: invalid pointer")

	// ErrOutOfMemory is returned when a generation or region has no
	// capacity left to satisfy a request.
	ErrOutOfMemory = errors.New("fgc: out of memory")
)

// Error wraps one of the package sentinels with the operation-specific
// detail the Rust original carried as enum payload fields. Func identifies
// the failing component (e.g. "AddressSpace.Map", "Runtime.Start"); it is
// always present. Detail is an optional payload (address,
// requested/available byte counts) rendered into the message for variants
// that carry one.
type Error struct {
	Func   string
	Err    error
	Detail string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("fgc: %s: %s: %s", e.Func, e.Err, e.Detail)
	}
	return fmt.Sprintf("fgc: %s: %s", e.Func, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// VirtualMemory reports an address-space/mmap failure.
func VirtualMemory(fn string, detail string) error {
	return &Error{Func: fn, Err: ErrVirtualMemory, Detail: detail}
}

// Internal reports a collector invariant violation.
func Internal(fn string, detail string) error {
	return &Error{Func: fn, Err: ErrInternal, Detail: detail}
}

// Configuration reports a GcConfig validation failure.
func Configuration(fn string, detail string) error {
	return &Error{Func: fn, Err: ErrConfiguration, Detail: detail}
}

// LockPoisoned reports a poisoned mutex guarding collector state. Go's
// sync.Mutex never poisons on panic the way Rust's std::sync::Mutex does,
// but the collector still surfaces the same error when an invariant check
// after a recovered panic finds state it can no longer trust.
func LockPoisoned(fn string, detail string) error {
	return &Error{Func: fn, Err: ErrLockPoisoned, Detail: detail}
}

// Tlab reports a TLAB/large-object allocator precondition failure.
func Tlab(fn string, detail string) error {
	return &Error{Func: fn, Err: ErrTlab, Detail: detail}
}

// InvalidPointer reports a Free/lookup call against an address with no
// live allocation record.
func InvalidPointer(fn string, address uintptr) error {
	return &Error{Func: fn, Err: ErrInvalidPointer, Detail: fmt.Sprintf("address=0x%x", address)}
}

// OutOfMemory reports a generation or region unable to satisfy a request
// of the given size, with the remaining capacity it could offer.
func OutOfMemory(fn string, requested, available uintptr) error {
	return &Error{
		Func:   fn,
		Err:    ErrOutOfMemory,
		Detail: fmt.Sprintf("requested=%d available=%d", requested, available),
	}
}
