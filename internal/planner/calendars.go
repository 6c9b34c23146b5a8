package planner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hray3182/Agenda/internal/models"
)

// DefaultCalendarName names the calendar created for an owner on first use.
const DefaultCalendarName = "Personal"

func (s *Service) CreateCalendar(ctx context.Context, scope models.Scope, cal *models.Calendar) error {
	if !scope.Allows(cal.OwnerID) {
		return models.ErrUnauthorized
	}
	if cal.Name == "" {
		return &models.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	switch cal.Category {
	case "":
		cal.Category = models.CategoryPersonal
	case models.CategoryPersonal, models.CategoryBusiness, models.CategoryCustom:
	default:
		return &models.ValidationError{Field: "category", Reason: "unknown category " + string(cal.Category)}
	}
	if err := s.calendars.Create(ctx, cal); err != nil {
		return fmt.Errorf("failed to create calendar: %w", err)
	}
	return nil
}

// Calendars lists the owner's calendars.
func (s *Service) Calendars(ctx context.Context, scope models.Scope, ownerID int64) ([]models.Calendar, error) {
	if !scope.Allows(ownerID) {
		return nil, models.ErrUnauthorized
	}
	return s.calendars.GetByOwner(ctx, ownerID)
}

// SetDefaultCalendar makes calendarID the owner's only default calendar.
func (s *Service) SetDefaultCalendar(ctx context.Context, scope models.Scope, ownerID, calendarID int64) error {
	if _, err := s.resolveCalendar(ctx, scope, ownerID, calendarID); err != nil {
		return err
	}
	return s.calendars.SetDefault(ctx, ownerID, calendarID)
}

// resolveCalendar returns calendarID after an ownership check, or the
// owner's default calendar when calendarID is 0. An owner without any
// calendar gets a default one.
func (s *Service) resolveCalendar(ctx context.Context, scope models.Scope, ownerID, calendarID int64) (*models.Calendar, error) {
	if !scope.Allows(ownerID) {
		return nil, models.ErrUnauthorized
	}
	if calendarID != 0 {
		cal, err := s.calendars.GetByID(ctx, calendarID)
		if err != nil {
			return nil, err
		}
		if cal.OwnerID != ownerID {
			return nil, models.ErrUnauthorized
		}
		return cal, nil
	}

	cal, err := s.calendars.GetDefault(ctx, ownerID)
	if err == nil {
		return cal, nil
	}
	if !models.IsNotFound(err) {
		return nil, fmt.Errorf("failed to get default calendar: %w", err)
	}

	cal = &models.Calendar{
		OwnerID:   ownerID,
		Name:      DefaultCalendarName,
		Category:  models.CategoryPersonal,
		Visible:   true,
		IsDefault: true,
	}
	if err := s.calendars.Create(ctx, cal); err != nil {
		return nil, fmt.Errorf("failed to create default calendar: %w", err)
	}
	s.log.Info("default calendar created", zap.Int64("owner_id", ownerID), zap.Int64("calendar_id", cal.CalendarID))
	return cal, nil
}

// SetCalendarVisible shows or hides a calendar in views. Digests ignore it.
func (s *Service) SetCalendarVisible(ctx context.Context, scope models.Scope, ownerID, calendarID int64, visible bool) error {
	if _, err := s.resolveCalendar(ctx, scope, ownerID, calendarID); err != nil {
		return err
	}
	if err := s.calendars.SetVisible(ctx, calendarID, visible); err != nil {
		return fmt.Errorf("failed to update calendar visibility: %w", err)
	}
	return nil
}
