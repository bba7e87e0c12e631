package log

import (
	"context"
	"strings"
	"testing"
)

func TestTestLoggerCapturesMessages(t *testing.T) {
	logger, buf := NewTestLogger(LevelDebug)

	logger.Info("round finished", IterationKey, 3, FmaxKey, 0.04)

	out := buf.String()
	if !strings.Contains(out, "INFO round finished") {
		t.Errorf("missing message: %q", out)
	}
	if !strings.Contains(out, "iteration=3") {
		t.Errorf("missing field: %q", out)
	}
	if !strings.Contains(out, "fmax=0.04") {
		t.Errorf("missing field: %q", out)
	}
}

func TestTestLoggerLevelFilter(t *testing.T) {
	logger, buf := NewTestLogger(LevelWarn)

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")
	logger.Error("also visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("below-level messages leaked: %q", out)
	}
	if !strings.Contains(out, "WARN visible") || !strings.Contains(out, "ERROR also visible") {
		t.Errorf("at-level messages missing: %q", out)
	}
}

func TestTestLoggerWith(t *testing.T) {
	logger, buf := NewTestLogger(LevelInfo)

	child := logger.With(ComponentKey, "learner")
	child.Info("started")

	if !strings.Contains(buf.String(), "component=learner") {
		t.Errorf("bound field missing: %q", buf.String())
	}
}

func TestTestLoggerEnabled(t *testing.T) {
	logger, _ := NewTestLogger(LevelInfo)

	if logger.Enabled(context.Background(), LevelDebug) {
		t.Error("debug should be disabled at info level")
	}
	if !logger.Enabled(context.Background(), LevelError) {
		t.Error("error should be enabled at info level")
	}
}
