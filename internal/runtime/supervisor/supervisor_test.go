package supervisor

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGoRecoversPanic(t *testing.T) {
	t.Parallel()

	s := New(context.Background())
	s.Go0("boom", func(context.Context) { panic("kaboom") })
	err := s.Wait(waitCtx(t))
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("Wait() error = %v, want panic value", err)
	}

	snap := s.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Snapshot() len = %d, want 1", len(snap))
	}
	if snap[0].Panics != 1 || snap[0].Active != 0 {
		t.Fatalf("Panics = %d Active = %d, want 1 and 0", snap[0].Panics, snap[0].Active)
	}
}

func TestCancelOnError(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), WithCancelOnError(true))
	s.Go("fail", func(context.Context) error { return errors.New("bad") })
	s.Go("wait", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	err := s.Wait(waitCtx(t))
	if err == nil || err.Error() != "fail: bad" {
		t.Fatalf("Wait() error = %v, want %q", err, "fail: bad")
	}
}

func TestGoRestart(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := New(context.Background())
	s.GoRestart("flaky", func(context.Context) error {
		if runs.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, WithRestartBackoff(time.Millisecond, 2*time.Millisecond))

	if err := s.Wait(waitCtx(t)); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got := runs.Load(); got != 3 {
		t.Fatalf("runs = %d, want 3", got)
	}
	if got := s.Snapshot()[0].Restarts; got != 2 {
		t.Fatalf("Restarts = %d, want 2", got)
	}
}

func TestGoRestartGivesUp(t *testing.T) {
	t.Parallel()

	s := New(context.Background())
	s.GoRestart("down", func(context.Context) error { return errors.New("down") },
		WithRestartBackoff(time.Millisecond, time.Millisecond), WithMaxRestarts(2))
	if err := s.Wait(waitCtx(t)); err == nil {
		t.Fatalf("Wait() error = nil, want the last failure")
	}
	if got := s.Snapshot()[0].Runs; got != 3 {
		t.Fatalf("Runs = %d, want 3", got)
	}
}

func TestStop(t *testing.T) {
	t.Parallel()

	s := New(context.Background())
	s.GoRestart("loop", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err := s.Stop(waitCtx(t)); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}
