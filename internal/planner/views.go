package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/hray3182/Agenda/internal/digest"
	"github.com/hray3182/Agenda/internal/ics"
	"github.com/hray3182/Agenda/internal/models"
	"github.com/hray3182/Agenda/internal/view"
)

// View materializes the owner's visible calendars in the owner's zone and
// week start.
func (s *Service) View(ctx context.Context, scope models.Scope, ownerID int64, viewType view.Type, anchor, now time.Time) (view.View, error) {
	if !scope.Allows(ownerID) {
		return view.View{}, models.ErrUnauthorized
	}
	if !viewType.Valid() {
		return view.View{}, &models.ValidationError{Field: "view", Reason: fmt.Sprintf("unknown view type %q", viewType)}
	}

	loc, weekStart := s.preferences(ctx, ownerID)
	cals, err := s.calendars.GetByOwner(ctx, ownerID)
	if err != nil {
		return view.View{}, fmt.Errorf("failed to get calendars: %w", err)
	}
	all := make([]int64, 0, len(cals))
	visible := make([]int64, 0, len(cals))
	for _, c := range cals {
		all = append(all, c.CalendarID)
		if c.Visible {
			visible = append(visible, c.CalendarID)
		}
	}

	start, end, err := view.Window(viewType, anchor, weekStart, loc, s.opts.ListWeeks)
	if err != nil {
		return view.View{}, err
	}

	var rows []models.Appointment
	if len(all) > 0 {
		fetched, err := s.appointments.GetByWindow(ctx, models.AppointmentFilter{CalendarIDs: all, From: start, To: end})
		if err != nil {
			return view.View{}, fmt.Errorf("failed to get appointments: %w", err)
		}
		for _, a := range fetched {
			if scope.Allows(a.OwnerID) {
				rows = append(rows, a)
			}
		}
	}

	return s.views.Materialize(view.Request{
		Type:               viewType,
		Anchor:             anchor,
		Appointments:       rows,
		VisibleCalendarIDs: visible,
		Calendars:          cals,
		WeekStart:          weekStart,
		Location:           loc,
		Now:                now,
		ListWeeks:          s.opts.ListWeeks,
	})
}

// Digest compiles the owner's scheduled day across all calendars.
func (s *Service) Digest(ctx context.Context, ownerID int64, date time.Time) (view.TimeGrid, error) {
	loc, _ := s.preferences(ctx, ownerID)
	return s.digests.Compile(ctx, ownerID, date, loc)
}

// DigestText compiles and renders the digest for chat delivery.
func (s *Service) DigestText(ctx context.Context, ownerID int64, now time.Time) (string, error) {
	loc, _ := s.preferences(ctx, ownerID)
	grid, err := s.digests.Compile(ctx, ownerID, now, loc)
	if err != nil {
		return "", err
	}
	return digest.Text(grid, now, loc), nil
}

// ExportList renders the list view starting at anchor as iCalendar.
func (s *Service) ExportList(ctx context.Context, scope models.Scope, ownerID int64, anchor, now time.Time) (string, error) {
	v, err := s.View(ctx, scope, ownerID, view.TypeList, anchor, now)
	if err != nil {
		return "", err
	}
	return ics.Export("Agenda", v.List, now), nil
}
