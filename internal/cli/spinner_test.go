package cli

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func newTestSpinner(ctx context.Context) (*Spinner, *bytes.Buffer) {
	s := newSpinnerWithContext(ctx, "working...")
	buf := &bytes.Buffer{}
	s.out = buf
	return s, buf
}

func TestSpinnerStartStop(t *testing.T) {
	s, _ := newTestSpinner(context.Background())

	if s.Cancelled() {
		t.Error("fresh spinner should not report cancelled")
	}

	s.Start()
	time.Sleep(120 * time.Millisecond)
	s.Stop()

	// Stop must be idempotent.
	s.Stop()
}

func TestSpinnerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s, _ := newTestSpinner(ctx)

	s.Start()
	cancel()

	if !s.Cancelled() {
		t.Error("spinner should report cancelled after context cancellation")
	}
	s.Stop()
}

func TestSpinnerClearsLine(t *testing.T) {
	s, buf := newTestSpinner(context.Background())

	s.Start()
	time.Sleep(120 * time.Millisecond)
	s.Stop()

	out := buf.String()
	if out == "" {
		t.Fatal("spinner should have written frames")
	}
	if out[len(out)-1] != '\r' {
		t.Error("spinner should end by returning the cursor to line start")
	}
}
