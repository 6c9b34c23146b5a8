// Package conflict answers whether a candidate interval overlaps existing
// appointments in the same calendar.
package conflict

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/hray3182/Agenda/internal/interval"
	"github.com/hray3182/Agenda/internal/models"
	"github.com/hray3182/Agenda/internal/rrule"
)

// Store returns coarse appointment rows for a window. Recurring rows whose
// start precedes the window end are always included.
type Store interface {
	GetByWindow(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)
}

// Query describes a candidate interval. For all-day candidates Start and
// End are read as civil dates in Location.
type Query struct {
	CalendarID int64
	Start      time.Time
	End        time.Time
	AllDay     bool
	// ExcludeID skips the row under edit and every occurrence of its series.
	ExcludeID int64
	Scope     models.Scope
	Location  *time.Location
}

type Detector struct {
	store    Store
	expander *rrule.Expander
	loc      *time.Location
	log      *zap.Logger
}

func NewDetector(store Store, expander *rrule.Expander, loc *time.Location, log *zap.Logger) *Detector {
	if expander == nil {
		expander = rrule.NewExpander(0, log)
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Detector{store: store, expander: expander, loc: loc, log: log}
}

// HasConflict reports whether q overlaps any scheduled occurrence in its calendar.
func (d *Detector) HasConflict(ctx context.Context, q Query) (bool, error) {
	occ, err := d.FirstConflict(ctx, q)
	if err != nil {
		return false, err
	}
	return occ != nil, nil
}

// FirstConflict returns the earliest occurrence overlapping q, or nil.
func (d *Detector) FirstConflict(ctx context.Context, q Query) (*models.Occurrence, error) {
	loc := q.Location
	if loc == nil {
		loc = d.loc
	}

	start, end := q.Start.In(loc), q.End.In(loc)
	if q.AllDay {
		start, end = interval.AllDaySpan(q.Start, q.End, loc)
	} else if !end.After(start) {
		return nil, &models.ValidationError{Field: "end", Reason: "must be after start"}
	}

	// Lookahead covers the calendar month of the candidate, stretched to
	// the candidate's own span.
	ws := interval.StartOfMonth(start, loc)
	we := time.Date(ws.Year(), ws.Month()+1, 1, 0, 0, 0, 0, loc)
	if end.After(we) {
		we = end
	}

	rows, err := d.store.GetByWindow(ctx, models.AppointmentFilter{
		CalendarIDs: []int64{q.CalendarID},
		From:        ws,
		To:          we,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}

	visible := rows[:0:0]
	for _, a := range rows {
		if a.CalendarID == q.CalendarID && q.Scope.Allows(a.OwnerID) {
			visible = append(visible, a)
		}
	}

	// Cancelled and excluded rows still go through expansion so their forks
	// keep suppressing the series occurrences they replace.
	set := d.expander.ExpandAll(visible, ws, we, loc)
	if len(set.Truncated) > 0 {
		d.log.Warn("conflict: lookahead truncated",
			zap.Int64("calendar_id", q.CalendarID),
			zap.Int64s("series", set.Truncated))
	}

	occs := set.Occurrences[:0:0]
	for _, o := range set.Occurrences {
		if o.Status == models.StatusCancelled {
			continue
		}
		if q.ExcludeID != 0 && (o.AppointmentID == q.ExcludeID || o.SeriesID == q.ExcludeID) {
			continue
		}
		occs = append(occs, o)
	}

	hits := FindConflicts(start, end, occs)
	if len(hits) == 0 {
		return nil, nil
	}
	return &hits[0], nil
}

// FindConflicts returns the occurrences strictly overlapping [start, end),
// ordered by start. Touching intervals do not conflict.
func FindConflicts(start, end time.Time, occurrences []models.Occurrence) []models.Occurrence {
	var hits []models.Occurrence
	for _, o := range occurrences {
		if interval.Overlaps(start, end, o.Start, o.End) {
			hits = append(hits, o)
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if !hits[i].Start.Equal(hits[j].Start) {
			return hits[i].Start.Before(hits[j].Start)
		}
		return hits[i].AppointmentID < hits[j].AppointmentID
	})
	return hits
}
