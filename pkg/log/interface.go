// Package log provides the structured logging interface used by atomlearn.
//
// The package defines a minimal, slog-compatible Logger interface with a
// zerolog-backed default implementation. Error values produced by pkg/errors
// implement zerolog's ObjectMarshaler, so logging them through this package
// yields fully structured events including stack traces.
//
// Example usage:
//
//	logger := log.GetLogger().With(
//	    log.ComponentKey, "learner",
//	    log.RunIDKey, runID,
//	)
//	logger.Info("round finished",
//	    log.IterationKey, 3,
//	    log.ImagesKey, 42,
//	    log.FmaxKey, 0.031,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with Go's
// log/slog. Fields are alternating key/value pairs; when the first field of
// Error is an error value, its stack trace is attached to the event.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	// If the first field is an error, stack trace information is included.
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated on
	// every subsequent event.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	// Use it to skip expensive field construction for suppressed levels.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, value-compatible with slog.Level.
type Level int

// Standard logging levels.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
