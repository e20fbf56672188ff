// Package logging provides the small io.Writer-backed logger shared by the
// compiler driver and the FGC runtime, in place of a structured logging
// framework — wazero itself never adopts one (see experimental/logging.Writer
// and cmd/wazero's doMain(stdOut, stdErr)), and this repo follows suit.
package logging

import (
	"fmt"
	"io"
)

// Logger writes leveled messages to an underlying writer. The zero value is
// not usable; construct with New.
type Logger struct {
	w       io.Writer
	verbose bool
}

// New returns a Logger writing to w. verbose gates Verbose() calls.
func New(w io.Writer, verbose bool) *Logger {
	return &Logger{w: w, verbose: verbose}
}

// Verbose writes a diagnostic message only when the logger was constructed
// with verbose=true (mirrors the driver's --verbose flag and GcConfig.Verbose).
func (l *Logger) Verbose(format string, args ...any) {
	if l == nil || !l.verbose {
		return
	}
	fmt.Fprintf(l.w, format+"\n", args...)
}

// Info writes a message unconditionally.
func (l *Logger) Info(format string, args ...any) {
	if l == nil {
		return
	}
	fmt.Fprintf(l.w, format+"\n", args...)
}

// Warn writes a warning-prefixed message unconditionally.
func (l *Logger) Warn(format string, args ...any) {
	if l == nil {
		return
	}
	fmt.Fprintf(l.w, "warning: "+format+"\n", args...)
}

// IsVerbose reports whether verbose logging is enabled.
func (l *Logger) IsVerbose() bool {
	return l != nil && l.verbose
}

// Discard is a Logger that drops everything; useful as a safe default for
// components constructed without explicit logging configuration.
var Discard = New(io.Discard, false)
