package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	logx "swasthai/pkg/logx"
)

// ErrUnknownSchedule is returned by RunNow for unregistered names.
var ErrUnknownSchedule = errors.New("unknown schedule")

// AddSchedule parses schedule and registers either a cron or interval job.
//
// Supported schedule formats:
//   - Cron: "0 8 * * *", "@daily", "@every 6h"
//   - Interval duration: "55m", "2h30m"
//   - Interval HH:MM: "00:50" (50 minutes), "02:30" (2 hours 30 minutes)
func (s *Service) AddSchedule(name, schedule string, timeout time.Duration, job Job) error {
	ps, err := ParseSchedule(schedule)
	if err != nil {
		return err
	}
	switch ps.Kind {
	case SpecCron:
		return s.AddCron(name, ps.Cron, timeout, job)
	case SpecInterval:
		return s.AddCron(name, "@every "+ps.Every.String(), timeout, job)
	default:
		return fmt.Errorf("unsupported schedule kind")
	}
}

// AddDaily runs job every day at HH:MM in the scheduler timezone.
func (s *Service) AddDaily(name, atHHMM string, timeout time.Duration, job Job) error {
	h, m, err := parseHHMM(atHHMM)
	if err != nil {
		return err
	}
	return s.AddCron(name, fmt.Sprintf("%d %d * * *", m, h), timeout, job)
}

// AddCron registers job under name, replacing any schedule with the same name.
func (s *Service) AddCron(name, spec string, timeout time.Duration, job Job) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name required")
	}
	if job == nil {
		return errors.New("job required")
	}
	if _, err := s.parser.Parse(spec); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(name)
	s.defs = append(s.defs, scheduleDef{name: name, spec: spec, timeout: timeout, job: job})
	if s.c == nil {
		// Registered when Start runs.
		return nil
	}
	d := &s.defs[len(s.defs)-1]
	if err := s.addCronLocked(d); err != nil {
		return err
	}
	s.log.Debug("schedule registered", logx.String("name", name), logx.String("spec", spec),
		logx.Time("next", s.c.Entry(d.entryID).Next))
	return nil
}

// Remove unschedules name. It reports whether something was removed.
func (s *Service) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.removeLocked(strings.TrimSpace(name))
	if removed {
		s.log.Debug("schedule removed", logx.String("name", name))
	}
	return removed
}

func (s *Service) removeLocked(name string) bool {
	n := 0
	removed := false
	for _, d := range s.defs {
		if d.name == name {
			if s.c != nil && d.entryID != 0 {
				s.c.Remove(d.entryID)
			}
			removed = true
			continue
		}
		s.defs[n] = d
		n++
	}
	s.defs = s.defs[:n]
	return removed
}

// RunNow runs the named job synchronously with its timeout, outside cron.
func (s *Service) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	var def *scheduleDef
	for i := range s.defs {
		if s.defs[i].name == name {
			d := s.defs[i]
			def = &d
			break
		}
	}
	s.mu.Unlock()
	if def == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSchedule, name)
	}
	return s.execute(ctx, *def)
}

func (s *Service) addCronLocked(d *scheduleDef) error {
	def := *d
	base := s.runCtx
	eid, err := s.c.AddFunc(d.spec, func() { _ = s.execute(base, def) })
	if err != nil {
		return err
	}
	d.entryID = eid
	return nil
}

func (s *Service) execute(ctx context.Context, d scheduleDef) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	start := time.Now()
	err := d.job(ctx)
	rec := RunRecord{Name: d.name, Started: start, Took: time.Since(start)}
	if err != nil {
		rec.Error = err.Error()
		s.log.Warn("scheduled job failed", logx.String("name", d.name), logx.Duration("took", rec.Took), logx.Err(err))
	} else {
		s.log.Debug("scheduled job done", logx.String("name", d.name), logx.Duration("took", rec.Took))
	}

	s.hmu.Lock()
	s.history = append(s.history, rec)
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
	s.hmu.Unlock()
	return err
}

// Snapshot reports schedules with their next and previous fire times.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{Enabled: s.cfg.Enabled, Running: s.c != nil}
	loc := s.loc
	if loc == nil {
		loc = s.loadLocationLocked()
	}
	snap.Timezone = loc.String()
	for _, d := range s.defs {
		it := ScheduleInfo{Name: d.name, Spec: d.spec, Timeout: d.timeout}
		if s.c != nil && d.entryID != 0 {
			e := s.c.Entry(d.entryID)
			it.Next, it.Prev = e.Next, e.Prev
		}
		if it.Next.IsZero() {
			if sched, err := s.parser.Parse(d.spec); err == nil {
				it.Next = sched.Next(time.Now().In(loc))
			}
		}
		snap.Schedules = append(snap.Schedules, it)
	}
	s.mu.Unlock()

	s.hmu.Lock()
	snap.History = append([]RunRecord(nil), s.history...)
	s.hmu.Unlock()
	return snap
}

// Next returns the next fire time of name in the scheduler timezone.
func (s *Service) Next(name string) (time.Time, bool) {
	for _, it := range s.Snapshot().Schedules {
		if it.Name == name {
			return it.Next, !it.Next.IsZero()
		}
	}
	return time.Time{}, false
}

func parseHHMM(s string) (hour int, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}

// ValidTime reports whether s is a valid HH:MM time of day.
func ValidTime(s string) bool {
	_, _, err := parseHHMM(s)
	return err == nil
}

// ParseCron validates a cron spec with the scheduler's parser.
func ParseCron(spec string) (cron.Schedule, error) {
	return specParser.Parse(spec)
}
