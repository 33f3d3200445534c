package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"swasthai/internal/eventbus"
	logx "swasthai/pkg/logx"
)

type memSource struct {
	memLog
	members []Member
	listErr error
}

func (s *memSource) List(context.Context) ([]Member, error) { return s.members, s.listErr }

func (s *memSource) ListNotifications(context.Context) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Notification(nil), s.items...), nil
}

// ctxDispatcher fails every send whose context is already done.
type ctxDispatcher struct{ sent int }

func (d *ctxDispatcher) Send(ctx context.Context, _, _ string) bool {
	if ctx.Err() != nil {
		return false
	}
	d.sent++
	return true
}

func TestRunnerUsesConfiguredTimezone(t *testing.T) {
	t.Parallel()

	// 2024-06-04 20:00 UTC is already 2024-06-05 in UTC+05:30.
	clock := func() time.Time { return time.Date(2024, 6, 4, 20, 0, 0, 0, time.UTC) }
	src := &memSource{members: []Member{asha(Event{Title: "Checkup", Date: "2024-06-12"})}}

	r := NewRunner(src, &recorder{}, logx.Nop(), WithClock(clock), WithLocation(time.FixedZone("IST", 19800)))
	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rep.Today != "2024-06-05" {
		t.Fatalf("Today = %s, want 2024-06-05", rep.Today)
	}
	if len(rep.New) != 1 || rep.New[0].DaysUntil != 7 {
		t.Fatalf("New = %+v, want one in 7 days", rep.New)
	}

	// Second run carries the log forward.
	rep, err = r.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if len(rep.New) != 0 || rep.SkippedExisting != 1 {
		t.Fatalf("second run New = %d SkippedExisting = %d", len(rep.New), rep.SkippedExisting)
	}
}

func TestRunnerPublishesEvents(t *testing.T) {
	t.Parallel()

	bus := eventbus.New()
	ch, unsub := bus.Subscribe(8, "reminder.")
	defer unsub()

	src := &memSource{listErr: errors.New("unreadable")}
	r := NewRunner(src, nil, logx.Nop(), WithBus(bus))
	if _, err := r.RunAt(context.Background(), day("2024-06-05")); err == nil {
		t.Fatalf("RunAt() error = nil, want load failure")
	}

	if got := []string{(<-ch).Type, (<-ch).Type}; got[0] != eventbus.ScanStarted || got[1] != eventbus.ScanFailed {
		t.Fatalf("events = %v, want [%s %s]", got, eventbus.ScanStarted, eventbus.ScanFailed)
	}
}

func TestRunnerApply(t *testing.T) {
	t.Parallel()

	src := &memSource{members: []Member{asha(Event{Title: "Far", Date: "2024-06-20"})}}
	r := NewRunner(src, nil, logx.Nop())
	rep, err := r.RunAt(context.Background(), day("2024-06-05"))
	if err != nil || len(rep.New) != 0 {
		t.Fatalf("RunAt() = %d new, %v, want none", len(rep.New), err)
	}

	r.Apply(nil, 30)
	rep, err = r.RunAt(context.Background(), day("2024-06-05"))
	if err != nil || len(rep.New) != 1 {
		t.Fatalf("RunAt() after Apply = %d new, %v, want 1", len(rep.New), err)
	}
}

func TestRunnerIgnoresCallerCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &memSource{members: []Member{asha(Event{Title: "Checkup", Date: "2024-06-07"})}}
	disp := &ctxDispatcher{}
	r := NewRunner(src, disp, logx.Nop())
	rep, err := r.RunAt(ctx, day("2024-06-05"))
	if err != nil {
		t.Fatalf("RunAt(canceled) error = %v", err)
	}
	if rep.Sent != 1 || rep.Pending != 0 || disp.sent != 1 {
		t.Fatalf("Sent = %d Pending = %d dispatched = %d, want 1, 0, 1", rep.Sent, rep.Pending, disp.sent)
	}
	if len(src.items) != 1 || src.items[0].Status != StatusSent {
		t.Fatalf("log = %+v, want one sent entry", src.items)
	}
}
