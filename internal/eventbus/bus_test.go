package eventbus

import (
	"testing"
	"time"
)

func TestSubscribePrefixFilter(t *testing.T) {
	t.Parallel()

	b := New()
	all, unsubAll := b.Subscribe(4)
	defer unsubAll()
	disp, unsubDisp := b.Subscribe(4, "dispatch.")
	defer unsubDisp()

	b.Publish(Event{Type: ScanStarted})
	b.Publish(Event{Type: DispatchSent})

	if got := len(all); got != 2 {
		t.Fatalf("all subscriber got %d events, want 2", got)
	}
	if got := len(disp); got != 1 {
		t.Fatalf("dispatch subscriber got %d events, want 1", got)
	}
	e := <-disp
	if e.Type != DispatchSent || e.Time.IsZero() {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	t.Parallel()

	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish(Event{Type: "x"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	if b.Dropped() != 9 {
		t.Fatalf("dropped = %d, want 9", b.Dropped())
	}
}

func TestUnsubscribeClosesOnce(t *testing.T) {
	t.Parallel()

	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed")
	}
	b.Publish(Event{Type: "after"})
}
