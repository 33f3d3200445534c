package reminder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

const DateLayout = "2006-01-02"

var ErrMissingDate = errors.New("event date missing")

// ParseDate parses YYYY-MM-DD (zero padding optional) into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrMissingDate
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-1-2", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid event date %q", s)
	}
	return t, nil
}

// DateOf drops the time of day of t, keeping its calendar date in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns to - from in whole calendar days.
func DaysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / 24)
}

// occurrence resolves the date an event should be evaluated at. Plain events
// use their own date string (kept verbatim for the key). Recurring events use the
// first occurrence on or after today; ok is false when the rule has ended.
func occurrence(ev Event, today time.Time) (date string, at time.Time, ok bool, err error) {
	start, err := ParseDate(ev.Date)
	if err != nil {
		return "", time.Time{}, false, err
	}
	rule := strings.TrimSpace(ev.RRule)
	if rule == "" {
		return strings.TrimSpace(ev.Date), start, true, nil
	}
	r, err := rrule.StrToRRule(strings.TrimPrefix(rule, "RRULE:"))
	if err != nil {
		return "", time.Time{}, false, fmt.Errorf("invalid rrule %q: %w", rule, err)
	}
	r.DTStart(start)
	next := r.After(DateOf(today), true)
	if next.IsZero() {
		return "", time.Time{}, false, nil
	}
	next = DateOf(next)
	return next.Format(DateLayout), next, true, nil
}
