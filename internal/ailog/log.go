// Package ailog provides the small leveled logger every AI-layer
// subsystem reports through. It mirrors the donor's stderr progress
// reporter: a prefixed, optionally-silenced writer, not a full
// structured logging framework.
package ailog

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Logger writes leveled, component-prefixed lines to an output writer.
// The zero value is not usable; use New.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	start   time.Time
	enabled bool
}

// New creates a Logger. When enabled is false, all log calls are no-ops;
// this is how components are silenced in tests and in CLI runs without
// --verbose.
func New(enabled bool) *Logger {
	return &Logger{
		out:     os.Stderr,
		start:   time.Now(),
		enabled: enabled,
	}
}

func (l *Logger) logf(level, component, format string, args ...interface{}) {
	if l == nil || !l.enabled {
		return
	}
	elapsed := time.Since(l.start).Round(time.Millisecond)
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	fmt.Fprintf(l.out, "[%s] %s %s: %s\n", elapsed, level, component, msg)
	l.mu.Unlock()
}

// Info logs an informational line for component.
func (l *Logger) Info(component, format string, args ...interface{}) {
	l.logf("INFO", component, format, args...)
}

// Warn logs a warning line for component.
func (l *Logger) Warn(component, format string, args ...interface{}) {
	l.logf("WARN", component, format, args...)
}

// Error logs an error line for component.
func (l *Logger) Error(component, format string, args ...interface{}) {
	l.logf("ERROR", component, format, args...)
}

// Nop is a disabled logger, useful as a safe zero-value substitute for
// components constructed without an explicit logger.
func Nop() *Logger { return New(false) }
