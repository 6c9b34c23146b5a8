package rrule

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hray3182/Agenda/internal/interval"
	"github.com/hray3182/Agenda/internal/models"
)

// DefaultMaxOccurrences caps a single expansion call.
const DefaultMaxOccurrences = 500

// Expander turns appointments into concrete occurrences inside a window.
// It holds no mutable state and is safe for concurrent use.
type Expander struct {
	maxOccurrences int
	log            *zap.Logger
}

func NewExpander(maxOccurrences int, log *zap.Logger) *Expander {
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Expander{maxOccurrences: maxOccurrences, log: log}
}

// Result is the outcome of expanding one appointment.
type Result struct {
	Occurrences []models.Occurrence
	// Truncated is set when the occurrence cap stopped expansion before
	// the window end.
	Truncated bool
}

// SetResult is the outcome of expanding a batch of appointments.
type SetResult struct {
	Occurrences []models.Occurrence
	Truncated   []int64 // series that hit the cap
	Invalid     []int64 // rows whose rule failed validation
}

// Expand materializes the occurrences of appt overlapping
// [windowStart, windowEnd). Occurrence bounds are returned in loc; rule
// stepping happens in the appointment's stored zone.
func (e *Expander) Expand(appt models.Appointment, windowStart, windowEnd time.Time, loc *time.Location) (Result, error) {
	return e.expand(appt, windowStart, windowEnd, loc, nil)
}

// ExpandAll expands every row and applies forked occurrences: a row with a
// recurrence parent suppresses the series occurrence it replaces. Rows with
// an invalid rule produce nothing and are reported in Invalid.
func (e *Expander) ExpandAll(appts []models.Appointment, windowStart, windowEnd time.Time, loc *time.Location) SetResult {
	var res SetResult

	// parent id -> replaced occurrence keys
	forks := make(map[int64]map[string]struct{})
	parents := make(map[int64]int, len(appts))
	for i := range appts {
		parents[appts[i].AppointmentID] = i
	}
	for i := range appts {
		child := &appts[i]
		if child.RecurrenceParentID == nil || child.OriginalStart == nil {
			continue
		}
		pid := *child.RecurrenceParentID
		zone := time.UTC
		allDay := child.IsAllDay
		if pi, ok := parents[pid]; ok {
			zone = appts[pi].Zone(loc)
			allDay = appts[pi].IsAllDay
		}
		if forks[pid] == nil {
			forks[pid] = make(map[string]struct{})
		}
		forks[pid][instanceKey(pid, child.OriginalStart.In(zone), allDay)] = struct{}{}
	}

	for i := range appts {
		r, err := e.expand(appts[i], windowStart, windowEnd, loc, forks[appts[i].AppointmentID])
		if err != nil {
			e.log.Error("expand: skipping appointment", zap.Int64("appointment_id", appts[i].AppointmentID), zap.Error(err))
			res.Invalid = append(res.Invalid, appts[i].AppointmentID)
			continue
		}
		if r.Truncated {
			e.log.Warn("expand: truncated occurrences due to cap",
				zap.Int64("appointment_id", appts[i].AppointmentID),
				zap.Int("cap", e.maxOccurrences))
			res.Truncated = append(res.Truncated, appts[i].AppointmentID)
		}
		res.Occurrences = append(res.Occurrences, r.Occurrences...)
	}
	return res
}

func (e *Expander) expand(appt models.Appointment, windowStart, windowEnd time.Time, loc *time.Location, skip map[string]struct{}) (Result, error) {
	var res Result
	if windowEnd.Before(windowStart) {
		return res, &models.ValidationError{Field: "window", Reason: "end is before start"}
	}
	if loc == nil {
		loc = time.Local
	}

	s, err := newSeries(appt, loc)
	if err != nil {
		return res, err
	}

	if !appt.IsRecurring() {
		start, end := s.bounds(s.origin)
		if interval.Overlaps(start, end, windowStart, windowEnd) {
			res.Occurrences = append(res.Occurrences, s.occurrence(0, s.origin, start, end))
		}
		return res, nil
	}

	for k := s.firstCandidate(windowStart); ; k++ {
		if s.rule.Boundary.Kind == models.BoundaryCount && k >= s.rule.Boundary.Count {
			break
		}
		at := s.at(k)
		if s.pastUntil(at) {
			break
		}
		start, end := s.bounds(at)
		if !start.Before(windowEnd) {
			break
		}
		if !end.After(windowStart) {
			continue
		}
		if _, forked := skip[instanceKey(appt.AppointmentID, at, appt.IsAllDay)]; forked {
			continue
		}
		if len(res.Occurrences) >= e.maxOccurrences {
			res.Truncated = true
			break
		}
		res.Occurrences = append(res.Occurrences, s.occurrence(k, at, start, end))
	}
	return res, nil
}

// series captures an appointment's origin in its stored zone.
type series struct {
	appt     models.Appointment
	rule     models.RecurrenceRule
	zone     *time.Location
	display  *time.Location
	origin   time.Time
	duration time.Duration
	spanDays int
}

func newSeries(appt models.Appointment, display *time.Location) (*series, error) {
	s := &series{appt: appt, display: display, zone: appt.Zone(display)}
	if appt.RecurrenceRule != nil {
		if err := appt.RecurrenceRule.Validate(); err != nil {
			return nil, err
		}
		s.rule = *appt.RecurrenceRule
	}
	if appt.IsAllDay {
		first, end := interval.AllDaySpan(appt.Start, appt.End, s.zone)
		s.origin = first
		s.spanDays = interval.DaysBetween(first, end)
	} else {
		s.origin = appt.Start.In(s.zone)
		s.duration = appt.End.Sub(appt.Start)
	}
	return s, nil
}

// at returns the k-th candidate start. Each step is computed from the
// origin so monthly clipping never drifts.
func (s *series) at(k int) time.Time {
	o := s.origin
	step := k * s.rule.Interval
	switch s.rule.Frequency {
	case models.FrequencyDaily:
		return time.Date(o.Year(), o.Month(), o.Day()+step, o.Hour(), o.Minute(), o.Second(), o.Nanosecond(), s.zone)
	case models.FrequencyWeekly:
		return time.Date(o.Year(), o.Month(), o.Day()+7*step, o.Hour(), o.Minute(), o.Second(), o.Nanosecond(), s.zone)
	case models.FrequencyMonthly:
		y, m, d := interval.AddMonthsClipped(o.Year(), o.Month(), o.Day(), step)
		return time.Date(y, m, d, o.Hour(), o.Minute(), o.Second(), o.Nanosecond(), s.zone)
	}
	return o
}

// firstCandidate returns a lower bound on the first k whose occurrence can
// reach windowStart. It may undershoot; the caller skips the rest.
func (s *series) firstCandidate(windowStart time.Time) int {
	w := windowStart.In(s.zone)
	if !w.After(s.origin) {
		return 0
	}
	spanDays := s.spanDays
	if !s.appt.IsAllDay {
		spanDays = int(s.duration/(24*time.Hour)) + 1
	}

	var k int
	switch s.rule.Frequency {
	case models.FrequencyDaily:
		days := interval.DaysBetween(s.origin, w) - spanDays - 1
		k = days / s.rule.Interval
	case models.FrequencyWeekly:
		days := interval.DaysBetween(s.origin, w) - spanDays - 7
		k = days / (7 * s.rule.Interval)
	case models.FrequencyMonthly:
		months := (w.Year()-s.origin.Year())*12 + int(w.Month()) - int(s.origin.Month())
		months -= spanDays/28 + 2
		k = months / s.rule.Interval
	}
	if k < 0 {
		return 0
	}
	return k
}

func (s *series) pastUntil(at time.Time) bool {
	if s.rule.Boundary.Kind != models.BoundaryUntil {
		return false
	}
	until := s.rule.Boundary.Until
	if s.appt.IsAllDay {
		return at.After(interval.FloatDate(until, s.zone))
	}
	return at.After(until)
}

// bounds converts a candidate start into display-zone occurrence bounds.
func (s *series) bounds(at time.Time) (time.Time, time.Time) {
	if s.appt.IsAllDay {
		start := interval.FloatDate(at, s.display)
		return start, interval.AddDays(start, s.spanDays)
	}
	return at.In(s.display), at.Add(s.duration).In(s.display)
}

func (s *series) occurrence(k int, at, start, end time.Time) models.Occurrence {
	a := &s.appt
	occ := models.Occurrence{
		AppointmentID: a.AppointmentID,
		Index:         k,
		Key:           instanceKey(a.AppointmentID, at, a.IsAllDay),
		CalendarID:    a.CalendarID,
		OwnerID:       a.OwnerID,
		Title:         a.Title,
		Location:      a.Location,
		Color:         a.Color,
		Status:        a.Status,
		AllDay:        a.IsAllDay,
		Start:         start,
		End:           end,
	}
	if occ.Status == "" {
		occ.Status = models.StatusScheduled
	}
	switch {
	case a.IsRecurring():
		occ.SeriesID = a.AppointmentID
	case a.RecurrenceParentID != nil:
		occ.SeriesID = *a.RecurrenceParentID
		occ.Key = instanceKey(a.AppointmentID, s.origin, a.IsAllDay)
	}
	return occ
}

// instanceKey identifies one occurrence of a series independently of the
// display zone.
func instanceKey(id int64, at time.Time, allDay bool) string {
	if allDay {
		return fmt.Sprintf("%d@%s", id, at.Format("2006-01-02"))
	}
	return fmt.Sprintf("%d@%s", id, at.UTC().Format(time.RFC3339))
}
