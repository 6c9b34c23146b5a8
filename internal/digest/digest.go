// Package digest compiles an owner's daily agenda across all of their
// calendars.
package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hray3182/Agenda/internal/interval"
	"github.com/hray3182/Agenda/internal/models"
	"github.com/hray3182/Agenda/internal/view"
)

type AppointmentStore interface {
	GetByWindow(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)
}

type CalendarStore interface {
	GetByOwner(ctx context.Context, ownerID int64) ([]models.Calendar, error)
}

type Compiler struct {
	appointments AppointmentStore
	calendars    CalendarStore
	views        *view.Materializer
}

func NewCompiler(appointments AppointmentStore, calendars CalendarStore, views *view.Materializer) *Compiler {
	if views == nil {
		views = view.NewMaterializer(nil, nil)
	}
	return &Compiler{appointments: appointments, calendars: calendars, views: views}
}

// Compile returns the day grid of scheduled occurrences for ownerID on the
// civil date of date in loc. Calendar visibility is ignored.
func (c *Compiler) Compile(ctx context.Context, ownerID int64, date time.Time, loc *time.Location) (view.TimeGrid, error) {
	if loc == nil {
		loc = time.Local
	}

	cals, err := c.calendars.GetByOwner(ctx, ownerID)
	if err != nil {
		return view.TimeGrid{}, fmt.Errorf("failed to get calendars: %w", err)
	}
	ids := make([]int64, 0, len(cals))
	for _, cal := range cals {
		ids = append(ids, cal.CalendarID)
	}

	start := interval.StartOfDay(date, loc)
	var rows []models.Appointment
	if len(ids) > 0 {
		rows, err = c.appointments.GetByWindow(ctx, models.AppointmentFilter{
			CalendarIDs: ids,
			From:        start,
			To:          interval.AddDays(start, 1),
		})
		if err != nil {
			return view.TimeGrid{}, fmt.Errorf("failed to get appointments: %w", err)
		}
	}

	v, err := c.views.Materialize(view.Request{
		Type:         view.TypeDay,
		Anchor:       start,
		Appointments: rows,
		Calendars:    cals,
		Statuses:     []models.Status{models.StatusScheduled},
		Location:     loc,
	})
	if err != nil {
		return view.TimeGrid{}, err
	}
	return *v.Grid, nil
}

// Text renders a compiled digest as Markdown for chat delivery. now picks
// the greeting.
func Text(grid view.TimeGrid, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder

	date := now.In(loc)
	if len(grid.Days) > 0 {
		date = grid.Days[0].Date.In(loc)
	}
	fmt.Fprintf(&b, "**%s**\n\n", greeting(now.In(loc)))
	fmt.Fprintf(&b, "📅 %s\n", date.Format("Mon, 02 Jan 2006"))

	occs := grid.Occurrences()
	b.WriteString("\n**Today's agenda**\n")
	if len(occs) == 0 {
		b.WriteString("• Nothing scheduled\n")
		return b.String()
	}
	for _, o := range occs {
		if o.AllDay {
			fmt.Fprintf(&b, "• all day %s", o.Title)
		} else {
			fmt.Fprintf(&b, "• %s–%s %s", o.Start.In(loc).Format("15:04"), o.End.In(loc).Format("15:04"), o.Title)
		}
		if o.Location != "" {
			fmt.Fprintf(&b, " @ %s", o.Location)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func greeting(t time.Time) string {
	switch h := t.Hour(); {
	case h >= 5 && h < 12:
		return "Good morning"
	case h >= 12 && h < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}
