package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	logx "swasthai/pkg/logx"
)

func TestParseSchedule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		kind    SpecKind
		cron    string
		every   time.Duration
		wantErr bool
	}{
		{in: "0 8 * * *", kind: SpecCron, cron: "0 8 * * *"},
		{in: "@daily", kind: SpecCron, cron: "@daily"},
		{in: "cron:@hourly", kind: SpecCron, cron: "@hourly"},
		{in: "6h", kind: SpecInterval, every: 6 * time.Hour},
		{in: "02:30", kind: SpecInterval, every: 150 * time.Minute},
		{in: "every:15m", kind: SpecInterval, every: 15 * time.Minute},
		{in: "", wantErr: true},
		{in: "soon", wantErr: true},
		{in: "-5m", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			ps, err := ParseSchedule(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseSchedule(%q) error = nil, want error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSchedule(%q) error = %v", tt.in, err)
			}
			if ps.Kind != tt.kind || ps.Cron != tt.cron || ps.Every != tt.every {
				t.Fatalf("ParseSchedule(%q) = %+v, want kind=%v cron=%q every=%v", tt.in, ps, tt.kind, tt.cron, tt.every)
			}
		})
	}
}

func TestParseHHMM(t *testing.T) {
	t.Parallel()

	h, m, err := parseHHMM("08:00")
	if err != nil || h != 8 || m != 0 {
		t.Fatalf("parseHHMM(08:00) = %d, %d, %v", h, m, err)
	}
	for _, bad := range []string{"8", "24:00", "07:60", "ab:cd"} {
		if ValidTime(bad) {
			t.Fatalf("ValidTime(%q) = true, want false", bad)
		}
	}
}

func TestAddDailyNextRunInTimezone(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: true, Timezone: "Asia/Kolkata"}, logx.Nop())
	if err := s.AddDaily("reminder.scan", "08:00", time.Minute, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("AddDaily() error = %v", err)
	}

	next, ok := s.Next("reminder.scan")
	if !ok {
		t.Fatalf("Next() ok = false")
	}
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		t.Fatal(err)
	}
	next = next.In(loc)
	if next.Hour() != 8 || next.Minute() != 0 {
		t.Fatalf("next run = %v, want 08:00 local", next)
	}
	if got := s.Snapshot().Schedules[0].Spec; got != "0 8 * * *" {
		t.Fatalf("Spec = %q, want %q", got, "0 8 * * *")
	}
}

func TestRunNowRecordsHistory(t *testing.T) {
	t.Parallel()

	s := New(Config{}, logx.Nop())
	boom := errors.New("boom")
	var hadDeadline atomic.Bool
	err := s.AddCron("job", "@daily", time.Second, func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		hadDeadline.Store(ok)
		return boom
	})
	if err != nil {
		t.Fatalf("AddCron() error = %v", err)
	}

	if err := s.RunNow(context.Background(), "job"); !errors.Is(err, boom) {
		t.Fatalf("RunNow(job) error = %v, want %v", err, boom)
	}
	if !hadDeadline.Load() {
		t.Fatalf("job ran without its timeout")
	}
	if err := s.RunNow(context.Background(), "nope"); !errors.Is(err, ErrUnknownSchedule) {
		t.Fatalf("RunNow(nope) error = %v, want ErrUnknownSchedule", err)
	}

	h := s.Snapshot().History
	if len(h) != 1 || h[0].Error != "boom" {
		t.Fatalf("History = %+v, want one failed run", h)
	}
}

func TestAddReplacesAndRemove(t *testing.T) {
	t.Parallel()

	s := New(Config{}, logx.Nop())
	noop := func(context.Context) error { return nil }
	if err := s.AddCron("a", "@daily", 0, noop); err != nil {
		t.Fatal(err)
	}
	if err := s.AddCron("a", "@hourly", 0, noop); err != nil {
		t.Fatal(err)
	}
	sched := s.Snapshot().Schedules
	if len(sched) != 1 || sched[0].Spec != "@hourly" {
		t.Fatalf("Schedules = %+v, want one @hourly entry", sched)
	}

	if err := s.AddCron("b", "not a cron", 0, noop); err == nil {
		t.Fatalf("AddCron(bad spec) error = nil")
	}
	if !s.Remove("a") {
		t.Fatalf("Remove(a) = false, want true")
	}
	if s.Remove("a") {
		t.Fatalf("second Remove(a) = true, want false")
	}
}

func TestIntervalFires(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := New(Config{Enabled: true}, logx.Nop())
	err := s.AddSchedule("tick", "1s", 0, func(context.Context) error {
		runs.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("AddSchedule() error = %v", err)
	}
	s.Start(context.Background())
	defer s.Stop(context.Background())

	deadline := time.Now().Add(5 * time.Second)
	for runs.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("interval job never ran")
		}
		time.Sleep(50 * time.Millisecond)
	}
	if !s.Snapshot().Running {
		t.Fatalf("Running = false after Start")
	}
}

func TestApplyTogglesEnabled(t *testing.T) {
	t.Parallel()

	s := New(Config{}, logx.Nop())
	s.Start(context.Background())
	defer s.Stop(context.Background())
	if s.Snapshot().Running {
		t.Fatalf("disabled scheduler is running")
	}

	s.Apply(Config{Enabled: true, Timezone: "UTC"})
	if !s.Snapshot().Running {
		t.Fatalf("Running = false after enabling")
	}
	if got := s.Location().String(); got != "UTC" {
		t.Fatalf("Location() = %q, want UTC", got)
	}

	s.Apply(Config{Enabled: false})
	if s.Snapshot().Running {
		t.Fatalf("Running = true after disabling")
	}
}
