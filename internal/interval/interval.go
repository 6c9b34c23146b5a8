// Package interval holds the half-open interval and calendar boundary
// arithmetic shared by expansion, conflict detection and views.
package interval

import (
	"fmt"
	"strings"
	"time"
)

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) strictly overlap.
// Touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Contains reports whether t lies in [start,end).
func Contains(start, end, t time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// StartOfDay returns local midnight of the civil date of t in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// AddDays moves a midnight by n civil days, staying on midnight across DST.
func AddDays(day time.Time, n int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day()+n, 0, 0, 0, 0, day.Location())
}

// SameDate reports whether a and b fall on the same civil date in loc.
func SameDate(a, b time.Time, loc *time.Location) bool {
	a, b = a.In(loc), b.In(loc)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// DaysBetween counts civil days from a to b (both midnights of the same zone).
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// StartOfWeek returns midnight of the weekStart day on or before t.
func StartOfWeek(t time.Time, weekStart time.Weekday, loc *time.Location) time.Time {
	day := StartOfDay(t, loc)
	back := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return AddDays(day, -back)
}

// StartOfMonth returns midnight of the first day of t's month in loc.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AddMonthsClipped moves the civil date (year, month, day) by n months and
// clips day to the last valid day of the target month.
func AddMonthsClipped(year int, month time.Month, day, n int) (int, time.Month, int) {
	total := int(month) - 1 + n
	y := year + total/12
	m := total % 12
	if m < 0 {
		m += 12
		y--
	}
	target := time.Month(m + 1)
	if last := DaysIn(y, target); day > last {
		day = last
	}
	return y, target, day
}

// MonthGridBounds returns the whole-week range [start,end) that covers the
// month containing anchor.
func MonthGridBounds(anchor time.Time, weekStart time.Weekday, loc *time.Location) (time.Time, time.Time) {
	first := StartOfMonth(anchor, loc)
	last := AddDays(time.Date(first.Year(), first.Month()+1, 1, 0, 0, 0, 0, loc), -1)
	start := StartOfWeek(first, weekStart, loc)
	end := AddDays(StartOfWeek(last, weekStart, loc), 7)
	return start, end
}

// AllDaySpan converts an all-day appointment's stored bounds into civil-date
// midnights [first, endExclusive) in loc. The end's date is the last day of
// the span; an end before start yields a single day.
func AllDaySpan(start, end time.Time, loc *time.Location) (time.Time, time.Time) {
	s, e := start.In(loc), end.In(loc)
	first := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc)
	last := AddDays(time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, loc), 1)
	if !last.After(first) {
		last = AddDays(first, 1)
	}
	return first, last
}

// FloatDate re-anchors a civil-date midnight into another zone, keeping the
// calendar date. All-day occurrences travel between zones this way.
func FloatDate(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
}

// ParseWeekday accepts full or three-letter English weekday names.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}
