// Package calendar renders member health events as an iCalendar feed.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"swasthai/internal/reminder"
)

const ProductID = "-//SwasThAI//Health Reminders//EN"

// Build returns a calendar with one all-day VEVENT per member event. The UID
// is the event's composite key; events with an unparseable date are left out.
func Build(members []reminder.Member, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetXWRCalName("SwasThAI health events")

	stamp := now.UTC()
	for _, m := range members {
		for _, ev := range m.UpcomingEvents {
			day, err := reminder.ParseDate(ev.Date)
			if err != nil {
				continue
			}
			date := day.Format(reminder.DateLayout)
			ve := cal.AddEvent(reminder.Key(m.ID, ev.Title, date))
			ve.SetDtStampTime(stamp)
			ve.SetSummary(fmt.Sprintf("%s: %s", m.Name, ev.Title))
			ve.SetDescription(describe(m, ev))
			ve.SetAllDayStartAt(day)
			ve.SetAllDayEndAt(day.AddDate(0, 0, 1))
			if rule := strings.TrimPrefix(strings.TrimSpace(ev.RRule), "RRULE:"); rule != "" {
				ve.AddRrule(rule)
			}
		}
	}
	return cal
}

// Export serializes Build's calendar.
func Export(members []reminder.Member, now time.Time) string {
	return Build(members, now).Serialize()
}

func describe(m reminder.Member, ev reminder.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s for %s", ev.Title, m.Name)
	if m.Relation != "" {
		fmt.Fprintf(&b, " (%s)", m.Relation)
	}
	if len(m.Conditions) > 0 {
		fmt.Fprintf(&b, ". Conditions: %s", strings.Join(m.Conditions, ", "))
	}
	if len(m.Allergies) > 0 {
		fmt.Fprintf(&b, ". Allergies: %s", strings.Join(m.Allergies, ", "))
	}
	return b.String()
}
