package log

import (
	"context"
	"io"
	"os"
	"sync"

	cerrors "github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	apperrors "github.com/atomlearn/atomlearn/pkg/errors"
)

// zerologLogger is the default Logger implementation, backed by zerolog.
type zerologLogger struct {
	zl zerolog.Logger
}

// NewLogger creates a zerolog-backed Logger writing to w at the given level.
func NewLogger(w io.Writer, level Level) Logger {
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &zerologLogger{zl: zl}
}

// NewConsoleLogger creates a Logger with human-readable console output,
// intended for the CLI.
func NewConsoleLogger(w io.Writer, level Level) Logger {
	cw := zerolog.ConsoleWriter{Out: w}
	zl := zerolog.New(cw).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &zerologLogger{zl: zl}
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

func (l *zerologLogger) Debug(msg string, fields ...any) {
	l.emit(l.zl.Debug(), msg, fields)
}

func (l *zerologLogger) Info(msg string, fields ...any) {
	l.emit(l.zl.Info(), msg, fields)
}

func (l *zerologLogger) Warn(msg string, fields ...any) {
	l.emit(l.zl.Warn(), msg, fields)
}

func (l *zerologLogger) Error(msg string, fields ...any) {
	l.emit(l.zl.Error(), msg, fields)
}

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		ctx = ctx.Interface(key, fields[i+1])
	}
	return &zerologLogger{zl: ctx.Logger()}
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= l.zl.GetLevel()
}

// emit applies the field pairs to the event. An error in the leading position
// is logged under ErrAttrKey together with its stack trace; error values that
// implement zerolog.LogObjectMarshaler are embedded as structured objects.
func (l *zerologLogger) emit(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	i := 0
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			e = appendError(e, err)
			i = 1
		}
	}
	for ; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case error:
			e = appendError(e, v)
		case zerolog.LogObjectMarshaler:
			e = e.Object(key, v)
		default:
			e = e.Interface(key, v)
		}
	}
	e.Msg(msg)
}

func appendError(e *zerolog.Event, err error) *zerolog.Event {
	if m, ok := err.(zerolog.LogObjectMarshaler); ok {
		e = e.Object(ErrAttrKey, m)
	} else {
		e = e.Str(ErrAttrKey, err.Error())
	}
	if st := extractStacktrace(err); st != "" {
		e = e.Str(StacktraceAttrKey, st)
	}
	return e
}

// extractStacktrace pulls the cockroachdb/errors stack trace out of err, if
// one was attached.
func extractStacktrace(err error) string {
	safeDetails := cerrors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return ""
}

// ===========================================================================
//
//	Default logger
//
// ===========================================================================

var (
	defaultMu     sync.RWMutex
	defaultLogger Logger = NewLogger(os.Stderr, LevelInfo)
	wireWarnOnce  sync.Once
)

// GetLogger returns the process-wide default logger. The first call also
// wires the pkg/errors warning system into zerolog so warnings show up as
// structured warn-level events.
func GetLogger() Logger {
	wireWarnOnce.Do(func() {
		apperrors.SetZerologWarnFunc(func(warning error) {
			defaultMu.RLock()
			l := defaultLogger
			defaultMu.RUnlock()
			l.Warn("warning", warning)
		})
	})
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide default logger.
func SetDefault(l Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}
