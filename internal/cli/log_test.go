package cli

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"
)

func TestLoggerContextRoundTrip(t *testing.T) {
	logger := log.NewWithOptions(io.Discard, log.Options{})
	ctx := withLogger(context.Background(), logger)

	if got := loggerFromContext(ctx); got != logger {
		t.Error("loggerFromContext should return the attached logger")
	}
}

func TestLoggerFromContextDefault(t *testing.T) {
	if got := loggerFromContext(context.Background()); got != log.Default() {
		t.Error("loggerFromContext should fall back to log.Default()")
	}
}

func TestProgress(t *testing.T) {
	logger := log.NewWithOptions(io.Discard, log.Options{})
	p := newProgress(logger)
	if p.start.IsZero() {
		t.Error("progress should capture a start time")
	}
	p.done("finished") // must not panic
}
