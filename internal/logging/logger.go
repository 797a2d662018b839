// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package logging

import (
	"io"
	"log"
	"os"
	"sync/atomic"
)

// Logger is the gateway's process-wide logger. Debug-level output is
// gated by an atomic flag so the set-debug-log command can flip it at
// runtime without taking any lock visible to the datapath.
type Logger struct {
	std   *log.Logger
	debug atomic.Bool
}

// New builds a Logger writing to w (typically os.Stderr, or a
// syslogWriter when [general] syslog_enabled routes to a remote
// collector).
func New(w io.Writer, tag string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{std: log.New(w, tag+": ", log.LstdFlags)}
}

// SetDebug enables or disables debug-level logging. Safe for
// concurrent use; this is the only post-startup mutation the
// set-debug-log command performs.
func (l *Logger) SetDebug(on bool) {
	l.debug.Store(on)
}

// Debugging reports whether debug-level logging is currently enabled.
func (l *Logger) Debugging() bool {
	return l.debug.Load()
}

// Debugf logs a formatted message only when debug logging is enabled.
func (l *Logger) Debugf(format string, args ...any) {
	if l.debug.Load() {
		l.std.Printf("[DEBUG] "+format, args...)
	}
}

// Infof always logs a formatted informational message.
func (l *Logger) Infof(format string, args ...any) {
	l.std.Printf("[INFO] "+format, args...)
}

// Warnf always logs a formatted warning message.
func (l *Logger) Warnf(format string, args ...any) {
	l.std.Printf("[WARN] "+format, args...)
}

// Errorf always logs a formatted error message.
func (l *Logger) Errorf(format string, args ...any) {
	l.std.Printf("[ERROR] "+format, args...)
}
