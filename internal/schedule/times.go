package schedule

import (
	"fmt"
	"time"
)

// TimeOfDay is a clock time with second resolution, stored as seconds since
// midnight. Appointments carry a calendar date separately, so values never
// encode a day.
type TimeOfDay int

const secondsPerDay = 24 * 60 * 60

// DefaultVisitDuration is the fixed length of a dental visit.
const DefaultVisitDuration = 40 * time.Minute

// ParseTimeOfDay parses an HH:MM:SS wire value.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04:05", s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
}

// MustTimeOfDay is ParseTimeOfDay for trusted literals (slot menus, tests).
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) String() string {
	sec := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", sec/3600, sec/60%60, sec%60)
}

// Duration returns the offset from midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t) * time.Second
}

// EndTime adds a visit duration to a start time. The boolean reports whether
// the result wrapped past midnight; callers must treat a wrapped end as
// unbookable rather than silently comparing wrapped intervals.
func EndTime(start TimeOfDay, d time.Duration) (TimeOfDay, bool) {
	sec := (int(start) + int(d/time.Second)) % secondsPerDay
	if sec < 0 {
		sec += secondsPerDay
	}
	end := TimeOfDay(sec)
	return end, end <= start
}

// VisitEnd is EndTime with the fixed visit duration.
func VisitEnd(start TimeOfDay) (TimeOfDay, bool) {
	return EndTime(start, DefaultVisitDuration)
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. An interval ending exactly when the other starts
// does not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && aEnd > bStart
}

// ParseDate parses a YYYY-MM-DD wire value in the clinic's local time zone.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format("2006-01-02")
}

// At combines a calendar date with a time of day into an instant.
func At(date time.Time, t TimeOfDay) time.Time {
	return date.Add(t.Duration())
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
