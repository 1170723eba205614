package domain

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDayLayout is the canonical clock format appointments carry, e.g.
// "10:00 AM". Patients see and store this string verbatim; it is also part of
// the key that links a reschedule request back to its appointment.
const TimeOfDayLayout = "3:04 PM"

var timeOfDayLayouts = []string{
	TimeOfDayLayout,
	"03:04 PM",
	"15:04",
}

// ParseTimeOfDay parses a clock string in one of the accepted layouts and
// returns hour and minute.
func ParseTimeOfDay(s string) (hour, minute int, err error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, 0, fmt.Errorf("time of day is empty")
	}
	for _, layout := range timeOfDayLayouts {
		t, parseErr := time.Parse(layout, strings.ToUpper(trimmed))
		if parseErr != nil {
			continue
		}
		return t.Hour(), t.Minute(), nil
	}
	return 0, 0, fmt.Errorf("invalid time of day %q", s)
}

// FormatTimeOfDay renders a clock value in the canonical layout.
func FormatTimeOfDay(t time.Time) string {
	return t.Format(TimeOfDayLayout)
}

// CombineDateAndTime merges the calendar day named by date with the given
// clock string, producing an instant in loc. The date contributes only its
// day label; its own location is ignored.
func CombineDateAndTime(date time.Time, timeOfDay string, loc *time.Location) (time.Time, error) {
	hour, minute, err := ParseTimeOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, loc), nil
}

// StartOfDay returns midnight of the day label named by t, in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// SameDay reports whether two values carry the same calendar day label. Each
// value is read in its own location: a date stored as UTC midnight and a
// local "now" compare by the day the user would name, not by instant.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DayKey normalizes a date to its day label at midnight UTC. Stored dates and
// cache keys use this form so that equality is plain ==.
func DayKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
