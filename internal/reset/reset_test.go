package reset

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFatalWaitsThenResets(t *testing.T) {
	r := &FakeResetter{}
	grace := 30 * time.Millisecond

	start := time.Now()
	if err := Fatal(context.Background(), r, grace, "url too long"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < grace {
		t.Errorf("reset after %v, before the %v grace period", elapsed, grace)
	}
	if r.Count() != 1 {
		t.Errorf("resets: got %d, want 1", r.Count())
	}
}

func TestFatalCancelledDuringGrace(t *testing.T) {
	r := &FakeResetter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := Fatal(ctx, r, time.Hour, "url too long"); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if r.Count() != 0 {
		t.Errorf("resets: got %d, want 0", r.Count())
	}
}

func TestFatalResetError(t *testing.T) {
	r := &FakeResetter{Err: errors.New("operation not permitted")}

	err := Fatal(context.Background(), r, time.Millisecond, "url too long")
	if !errors.Is(err, r.Err) {
		t.Errorf("got %v, want wrapped reset error", err)
	}
}

func TestFakeResetterDone(t *testing.T) {
	r := &FakeResetter{Done: make(chan struct{})}
	r.Reset()
	r.Reset()

	select {
	case <-r.Done:
	default:
		t.Error("Done should be closed after Reset")
	}
	if r.Count() != 2 {
		t.Errorf("count: got %d, want 2", r.Count())
	}
}

func TestDefaultGrace(t *testing.T) {
	if DefaultGrace != 30*time.Second {
		t.Errorf("DefaultGrace: got %v, want 30s", DefaultGrace)
	}
}
