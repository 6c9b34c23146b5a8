// Package view slices expanded occurrences into month, week, day and list
// views. Materialization is pure: rows in, a view out.
package view

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hray3182/Agenda/internal/interval"
	"github.com/hray3182/Agenda/internal/models"
	"github.com/hray3182/Agenda/internal/rrule"
)

type Type string

const (
	TypeMonth Type = "month"
	TypeWeek  Type = "week"
	TypeDay   Type = "day"
	TypeList  Type = "list"
)

func (t Type) Valid() bool {
	switch t {
	case TypeMonth, TypeWeek, TypeDay, TypeList:
		return true
	}
	return false
}

// DefaultListWeeks is the list view span when the request leaves it unset.
const DefaultListWeeks = 4

type Request struct {
	Type         Type
	Anchor       time.Time
	Appointments []models.Appointment
	// VisibleCalendarIDs limits output to these calendars; nil shows all.
	VisibleCalendarIDs []int64
	// Calendars resolve colors for appointments without their own.
	Calendars []models.Calendar
	// Statuses limits output to these statuses; nil keeps every status.
	Statuses  []models.Status
	WeekStart time.Weekday
	Location  *time.Location
	Now       time.Time
	ListWeeks int
}

type Cell struct {
	Date           time.Time           `json:"date"`
	IsCurrentMonth bool                `json:"is_current_month"`
	IsToday        bool                `json:"is_today"`
	Occurrences    []models.Occurrence `json:"occurrences"`
}

type Month struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Weeks [][]Cell   `json:"weeks"`
}

type Slot struct {
	Hour        int                 `json:"hour"`
	Start       time.Time           `json:"start"`
	End         time.Time           `json:"end"`
	Occurrences []models.Occurrence `json:"occurrences"`
}

type Day struct {
	Date    time.Time           `json:"date"`
	IsToday bool                `json:"is_today"`
	AllDay  []models.Occurrence `json:"all_day"`
	Slots   []Slot              `json:"slots"`
}

// TimeGrid backs the week and day views: one Day per date, 24 hourly slots each.
type TimeGrid struct {
	Days []Day `json:"days"`
}

// Occurrences returns every distinct occurrence on the grid in display order.
func (g *TimeGrid) Occurrences() []models.Occurrence {
	seen := make(map[string]bool)
	var out []models.Occurrence
	add := func(o models.Occurrence) {
		if !seen[o.Key] {
			seen[o.Key] = true
			out = append(out, o)
		}
	}
	for _, d := range g.Days {
		for _, o := range d.AllDay {
			add(o)
		}
		for _, s := range d.Slots {
			for _, o := range s.Occurrences {
				add(o)
			}
		}
	}
	sortOccurrences(out)
	return out
}

type View struct {
	Type  Type      `json:"type"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Month *Month              `json:"month,omitempty"`
	Grid  *TimeGrid           `json:"grid,omitempty"`
	List  []models.Occurrence `json:"list,omitempty"`

	// Truncated lists series whose expansion hit the occurrence cap.
	Truncated []int64 `json:"truncated,omitempty"`
	Invalid   []int64 `json:"invalid,omitempty"`
}

type Materializer struct {
	expander *rrule.Expander
	log      *zap.Logger
}

func NewMaterializer(expander *rrule.Expander, log *zap.Logger) *Materializer {
	if expander == nil {
		expander = rrule.NewExpander(0, log)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Materializer{expander: expander, log: log}
}

// Window returns the half-open interval a view of type t anchored at anchor
// covers. Callers use it to fetch rows before materializing.
func Window(t Type, anchor time.Time, weekStart time.Weekday, loc *time.Location, listWeeks int) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	switch t {
	case TypeMonth:
		start, end := interval.MonthGridBounds(anchor, weekStart, loc)
		return start, end, nil
	case TypeWeek:
		start := interval.StartOfWeek(anchor, weekStart, loc)
		return start, interval.AddDays(start, 7), nil
	case TypeDay:
		start := interval.StartOfDay(anchor, loc)
		return start, interval.AddDays(start, 1), nil
	case TypeList:
		if listWeeks <= 0 {
			listWeeks = DefaultListWeeks
		}
		start := interval.StartOfDay(anchor, loc)
		return start, interval.AddDays(start, 7*listWeeks), nil
	}
	return time.Time{}, time.Time{}, &models.ValidationError{Field: "view", Reason: fmt.Sprintf("unknown view type %q", t)}
}

// Materialize expands req.Appointments over the view window and assigns
// the occurrences to cells, slots or the list.
func (m *Materializer) Materialize(req Request) (View, error) {
	loc := req.Location
	if loc == nil {
		loc = time.Local
	}
	start, end, err := Window(req.Type, req.Anchor, req.WeekStart, loc, req.ListWeeks)
	if err != nil {
		return View{}, err
	}

	rows := filterCalendars(req.Appointments, req.VisibleCalendarIDs)
	set := m.expander.ExpandAll(rows, start, end, loc)
	occs := filterStatuses(set.Occurrences, req.Statuses)
	applyColors(occs, req.Calendars)
	sortOccurrences(occs)

	v := View{
		Type:      req.Type,
		Start:     start,
		End:       end,
		Truncated: set.Truncated,
		Invalid:   set.Invalid,
	}
	if len(v.Truncated) > 0 {
		m.log.Warn("view: series truncated",
			zap.String("view", string(req.Type)),
			zap.Int64s("series", v.Truncated))
	}

	switch req.Type {
	case TypeMonth:
		v.Month = buildMonth(occs, req.Anchor.In(loc), start, end, req.Now, loc)
	case TypeWeek, TypeDay:
		v.Grid = buildTimeGrid(occs, start, end, req.Now, loc)
	case TypeList:
		v.List = occs
	}
	return v, nil
}

func filterCalendars(rows []models.Appointment, visible []int64) []models.Appointment {
	if visible == nil {
		return rows
	}
	allowed := make(map[int64]bool, len(visible))
	for _, id := range visible {
		allowed[id] = true
	}
	out := make([]models.Appointment, 0, len(rows))
	for _, a := range rows {
		if allowed[a.CalendarID] {
			out = append(out, a)
		}
	}
	return out
}

func filterStatuses(occs []models.Occurrence, statuses []models.Status) []models.Occurrence {
	if statuses == nil {
		return occs
	}
	out := occs[:0]
	for _, o := range occs {
		for _, s := range statuses {
			if o.Status == s {
				out = append(out, o)
				break
			}
		}
	}
	return out
}

func applyColors(occs []models.Occurrence, calendars []models.Calendar) {
	if len(calendars) == 0 {
		return
	}
	colors := make(map[int64]string, len(calendars))
	for i := range calendars {
		colors[calendars[i].CalendarID] = calendars[i].DisplayColor()
	}
	for i := range occs {
		if occs[i].Color == "" {
			occs[i].Color = colors[occs[i].CalendarID]
		}
	}
}

func sortOccurrences(occs []models.Occurrence) {
	sort.Slice(occs, func(i, j int) bool {
		a, b := occs[i], occs[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if !a.End.Equal(b.End) {
			return a.End.Before(b.End)
		}
		if a.AppointmentID != b.AppointmentID {
			return a.AppointmentID < b.AppointmentID
		}
		return a.Key < b.Key
	})
}
