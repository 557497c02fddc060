package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestSpinnerStop(t *testing.T) {
	var buf bytes.Buffer
	swapStatus(t, &buf)

	s := newSpinner(context.Background(), "resolving")
	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Stop()
	s.Stop()

	if s.Cancelled() {
		t.Error("Stop should not report a cancelled parent")
	}
	if buf.Len() != 0 {
		t.Errorf("non-terminal spinner wrote %q", buf.String())
	}
}

func TestSpinnerStopBeforeStart(t *testing.T) {
	s := newSpinner(nil, "idle")
	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked without Start")
	}
}

func TestSpinnerParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newSpinner(ctx, "resolving")
	s.Start()
	cancel()
	s.Stop()
	if !s.Cancelled() {
		t.Error("Cancelled should report the parent's cancellation")
	}
}

func TestSpinnerStopWithMessage(t *testing.T) {
	var buf bytes.Buffer
	swapStatus(t, &buf)

	s := newSpinner(context.Background(), "locking")
	s.Start()
	s.StopWithSuccess("locked 3 packages")
	newSpinner(context.Background(), "x").StopWithError("failed")

	out := buf.String()
	for _, want := range []string{"locked 3 packages", "failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}
