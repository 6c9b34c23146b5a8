package planner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hray3182/Agenda/internal/conflict"
	"github.com/hray3182/Agenda/internal/interval"
	"github.com/hray3182/Agenda/internal/models"
)

// CreateAppointment validates appt, resolves its calendar (the owner's
// default when CalendarID is 0), rejects overlaps and stores it together
// with its reminders.
func (s *Service) CreateAppointment(ctx context.Context, scope models.Scope, appt *models.Appointment, reminders []*models.Reminder) error {
	if appt.Status == "" {
		appt.Status = models.StatusScheduled
	}
	if err := appt.Validate(); err != nil {
		return err
	}
	for _, r := range reminders {
		if err := r.Validate(); err != nil {
			return err
		}
	}
	if !scope.Allows(appt.OwnerID) {
		return models.ErrUnauthorized
	}

	cal, err := s.resolveCalendar(ctx, scope, appt.OwnerID, appt.CalendarID)
	if err != nil {
		return err
	}
	appt.CalendarID = cal.CalendarID

	if appt.IsFork() {
		if _, err := s.seriesFor(ctx, scope, *appt.RecurrenceParentID); err != nil {
			return err
		}
	}

	if err := s.checkConflict(ctx, scope, appt); err != nil {
		return err
	}

	if err := s.appointments.Create(ctx, appt, reminders); err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	s.log.Info("appointment created",
		zap.Int64("appointment_id", appt.AppointmentID),
		zap.Int64("calendar_id", appt.CalendarID),
		zap.Bool("recurring", appt.IsRecurring()))
	return nil
}

// GetAppointment returns a row the scope may see.
func (s *Service) GetAppointment(ctx context.Context, scope models.Scope, id int64) (*models.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(appt.OwnerID) {
		return nil, models.ErrUnauthorized
	}
	return appt, nil
}

// UpdateAppointment replaces an existing row. Ownership and the fork
// relation are kept from the stored row; rule edits do not touch forked
// children.
func (s *Service) UpdateAppointment(ctx context.Context, scope models.Scope, appt *models.Appointment) error {
	existing, err := s.GetAppointment(ctx, scope, appt.AppointmentID)
	if err != nil {
		return err
	}
	appt.OwnerID = existing.OwnerID
	appt.RecurrenceParentID = existing.RecurrenceParentID
	appt.OriginalStart = existing.OriginalStart
	if appt.Status == "" {
		appt.Status = existing.Status
	}
	if err := appt.Validate(); err != nil {
		return err
	}

	if appt.CalendarID == 0 {
		appt.CalendarID = existing.CalendarID
	} else if appt.CalendarID != existing.CalendarID {
		if _, err := s.resolveCalendar(ctx, scope, appt.OwnerID, appt.CalendarID); err != nil {
			return err
		}
	}

	if err := s.checkConflict(ctx, scope, appt); err != nil {
		return err
	}
	if err := s.appointments.Update(ctx, appt); err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return nil
}

// DeleteAppointment removes the row with its reminders and forked children.
func (s *Service) DeleteAppointment(ctx context.Context, scope models.Scope, id int64) error {
	if _, err := s.GetAppointment(ctx, scope, id); err != nil {
		return err
	}
	if err := s.appointments.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	s.log.Info("appointment deleted", zap.Int64("appointment_id", id))
	return nil
}

// OccurrencePatch holds the fields a single-occurrence edit may change.
// Nil fields keep the series value.
type OccurrencePatch struct {
	Title       *string
	Description *string
	Location    *string
	Start       *time.Time
	End         *time.Time
	Status      *models.Status
}

// EditOccurrence forks one occurrence of a series into its own row. The
// child replaces the series occurrence starting at originalStart; editing
// the same occurrence again updates the existing child.
func (s *Service) EditOccurrence(ctx context.Context, scope models.Scope, seriesID int64, originalStart time.Time, patch OccurrencePatch) (*models.Appointment, error) {
	series, err := s.seriesFor(ctx, scope, seriesID)
	if err != nil {
		return nil, err
	}

	occ, err := s.occurrenceAt(series, originalStart)
	if err != nil {
		return nil, err
	}

	children, err := s.appointments.GetChildren(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("failed to get forked occurrences: %w", err)
	}
	for i := range children {
		if children[i].OriginalStart != nil && children[i].OriginalStart.Equal(occ.Start) {
			child := children[i]
			patch.apply(&child)
			if err := s.UpdateAppointment(ctx, scope, &child); err != nil {
				return nil, err
			}
			return &child, nil
		}
	}

	original := occ.Start
	child := models.Appointment{
		CalendarID:         series.CalendarID,
		OwnerID:            series.OwnerID,
		Title:              series.Title,
		Description:        series.Description,
		Location:           series.Location,
		Start:              occ.Start,
		End:                occ.End,
		IsAllDay:           series.IsAllDay,
		Color:              series.Color,
		TimeZone:           series.TimeZone,
		RecurrenceParentID: &series.AppointmentID,
		OriginalStart:      &original,
		Status:             series.Status,
	}
	if series.IsAllDay {
		// occurrence bounds are exclusive, stored all-day ends are inclusive
		child.End = occ.End.AddDate(0, 0, -1)
	}
	patch.apply(&child)

	if err := s.CreateAppointment(ctx, scope, &child, nil); err != nil {
		return nil, err
	}
	return &child, nil
}

// CancelOccurrence drops a single occurrence from a series.
func (s *Service) CancelOccurrence(ctx context.Context, scope models.Scope, seriesID int64, originalStart time.Time) (*models.Appointment, error) {
	cancelled := models.StatusCancelled
	return s.EditOccurrence(ctx, scope, seriesID, originalStart, OccurrencePatch{Status: &cancelled})
}

// AddReminder attaches a reminder to an appointment the scope may edit.
func (s *Service) AddReminder(ctx context.Context, scope models.Scope, appointmentID int64, minutesBefore int, channel models.Channel) (*models.Reminder, error) {
	rem := &models.Reminder{AppointmentID: appointmentID, MinutesBefore: minutesBefore, Channel: channel}
	if err := rem.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.GetAppointment(ctx, scope, appointmentID); err != nil {
		return nil, err
	}
	if err := s.reminders.Create(ctx, rem); err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}
	return rem, nil
}

func (p OccurrencePatch) apply(a *models.Appointment) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Location != nil {
		a.Location = *p.Location
	}
	if p.Start != nil {
		a.Start = *p.Start
	}
	if p.End != nil {
		a.End = *p.End
	}
	if p.Status != nil {
		a.Status = *p.Status
	}
}

func (s *Service) seriesFor(ctx context.Context, scope models.Scope, id int64) (*models.Appointment, error) {
	series, err := s.GetAppointment(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if !series.IsRecurring() {
		return nil, &models.ValidationError{Field: "recurrence_parent_id", Reason: fmt.Sprintf("appointment %d does not recur", id)}
	}
	return series, nil
}

// occurrenceAt finds the series occurrence starting at start. All-day
// series match by civil date.
func (s *Service) occurrenceAt(series *models.Appointment, start time.Time) (*models.Occurrence, error) {
	loc := series.Zone(s.opts.Location)
	from := start.Add(-24 * time.Hour)
	res, err := s.expander.Expand(*series, from, start.Add(24*time.Hour), loc)
	if err != nil {
		return nil, err
	}
	for i, o := range res.Occurrences {
		if o.Start.Equal(start) || (o.AllDay && interval.SameDate(o.Start, start, loc)) {
			return &res.Occurrences[i], nil
		}
	}
	return nil, &models.ValidationError{Field: "original_start", Reason: "no occurrence of the series starts at " + start.Format(time.RFC3339)}
}

func (s *Service) checkConflict(ctx context.Context, scope models.Scope, appt *models.Appointment) error {
	if s.opts.AllowConflicts || appt.Status == models.StatusCancelled {
		return nil
	}
	q := conflict.Query{
		CalendarID: appt.CalendarID,
		Start:      appt.Start,
		End:        appt.End,
		AllDay:     appt.IsAllDay,
		ExcludeID:  appt.AppointmentID,
		Scope:      scope,
		Location:   appt.Zone(s.opts.Location),
	}
	// a fork may overlap the series occurrences it sits among
	if appt.IsFork() {
		q.ExcludeID = *appt.RecurrenceParentID
	}
	occ, err := s.detector.FirstConflict(ctx, q)
	if err != nil {
		return err
	}
	if occ != nil {
		return &models.ConflictError{With: *occ}
	}
	return nil
}
