package reminder

import (
	"context"
	"fmt"
	"time"

	logx "swasthai/pkg/logx"
)

// DefaultWindowDays is the inclusive notice window: due today through due in one week.
const DefaultWindowDays = 7

// Dispatcher delivers one reminder. Implementations enforce their own timeouts;
// only the outcome crosses back into the engine.
type Dispatcher interface {
	Send(ctx context.Context, subject, body string) bool
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, subject, body string) bool

func (f DispatcherFunc) Send(ctx context.Context, subject, body string) bool {
	return f(ctx, subject, body)
}

// Appender persists one notification into the log.
type Appender interface {
	AppendNotification(ctx context.Context, n Notification) error
}

// Engine evaluates members against the notification log. It holds no state
// between calls.
type Engine struct {
	Dispatcher Dispatcher
	Log        Appender
	WindowDays int
	// Now stamps NotifiedAt; defaults to time.Now.
	Now    func() time.Time
	Logger logx.Logger
}

// Result summarises one ScanAndNotify pass.
type Result struct {
	New             []Notification
	Considered      int
	Selected        int
	SkippedExisting int
	SkippedInvalid  int
	Sent            int
	Pending         int
}

// ScanAndNotify appends a notification for every event whose date falls inside
// [0, WindowDays] days from today and whose composite key is not yet logged.
//
// Malformed events are skipped. Dispatch failures leave the notification
// pending and do not stop the pass. A log write error stops the pass; the
// notifications persisted before it are still returned.
func (e *Engine) ScanAndNotify(ctx context.Context, members []Member, existing []Notification, today time.Time) (Result, error) {
	var res Result
	if e.Log == nil {
		return res, fmt.Errorf("reminder: notification log is required")
	}
	window := e.WindowDays
	if window <= 0 {
		window = DefaultWindowDays
	}
	now := e.Now
	if now == nil {
		now = time.Now
	}
	log := e.Logger
	if log.IsZero() {
		log = logx.Nop()
	}
	today = DateOf(today)

	seen := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		seen[n.ID] = struct{}{}
	}

	for _, m := range members {
		for _, ev := range m.UpcomingEvents {
			res.Considered++

			date, at, ok, err := occurrence(ev, today)
			if err != nil {
				res.SkippedInvalid++
				log.Warn("skipping malformed event",
					logx.String("member_id", m.ID),
					logx.String("title", ev.Title),
					logx.String("date", ev.Date),
					logx.Err(err),
				)
				continue
			}
			if !ok {
				continue
			}

			days := DaysBetween(today, at)
			if days < 0 || days > window {
				continue
			}
			res.Selected++

			key := Key(m.ID, ev.Title, date)
			if _, dup := seen[key]; dup {
				res.SkippedExisting++
				continue
			}

			n := Notification{
				ID:         key,
				MemberID:   m.ID,
				MemberName: m.Name,
				EventTitle: ev.Title,
				EventDate:  date,
				DaysUntil:  days,
				NotifiedAt: now(),
				Status:     StatusPending,
			}
			if e.Dispatcher != nil {
				subject, body := Compose(n)
				if e.Dispatcher.Send(ctx, subject, body) {
					n.Status = StatusSent
				}
			}

			if err := e.Log.AppendNotification(ctx, n); err != nil {
				return res, fmt.Errorf("append notification %s: %w", key, err)
			}
			seen[key] = struct{}{}
			res.New = append(res.New, n)
			if n.Status == StatusSent {
				res.Sent++
			} else {
				res.Pending++
			}
			log.Info("notification created",
				logx.String("id", key),
				logx.Int("days_until", days),
				logx.String("status", string(n.Status)),
			)
		}
	}
	return res, nil
}
