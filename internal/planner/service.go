// Package planner is the application service in front of the scheduling
// core: it validates and persists appointments, checks conflicts and
// serves views and digests.
package planner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hray3182/Agenda/internal/conflict"
	"github.com/hray3182/Agenda/internal/digest"
	"github.com/hray3182/Agenda/internal/interval"
	"github.com/hray3182/Agenda/internal/models"
	"github.com/hray3182/Agenda/internal/rrule"
	"github.com/hray3182/Agenda/internal/view"
)

type AppointmentStore interface {
	Create(ctx context.Context, appt *models.Appointment, reminders []*models.Reminder) error
	GetByID(ctx context.Context, id int64) (*models.Appointment, error)
	GetByWindow(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)
	GetChildren(ctx context.Context, parentID int64) ([]models.Appointment, error)
	Update(ctx context.Context, appt *models.Appointment) error
	Delete(ctx context.Context, id int64) error
}

type CalendarStore interface {
	Create(ctx context.Context, cal *models.Calendar) error
	GetByID(ctx context.Context, id int64) (*models.Calendar, error)
	GetByOwner(ctx context.Context, ownerID int64) ([]models.Calendar, error)
	GetDefault(ctx context.Context, ownerID int64) (*models.Calendar, error)
	SetDefault(ctx context.Context, ownerID, calendarID int64) error
	SetVisible(ctx context.Context, calendarID int64, visible bool) error
}

type ReminderStore interface {
	Create(ctx context.Context, rem *models.Reminder) error
	GetByAppointment(ctx context.Context, appointmentID int64) ([]models.Reminder, error)
}

type SettingsStore interface {
	GetOrCreate(ctx context.Context, ownerID int64) (*models.UserSettings, error)
}

type Options struct {
	// AllowConflicts stores overlapping appointments instead of rejecting them.
	AllowConflicts bool
	MaxOccurrences int
	ListWeeks      int
	// Location is used when an owner has no usable time zone setting.
	Location *time.Location
}

type Service struct {
	appointments AppointmentStore
	calendars    CalendarStore
	reminders    ReminderStore
	settings     SettingsStore

	expander *rrule.Expander
	detector *conflict.Detector
	views    *view.Materializer
	digests  *digest.Compiler

	opts Options
	log  *zap.Logger
}

func NewService(
	appointments AppointmentStore,
	calendars CalendarStore,
	reminders ReminderStore,
	settings SettingsStore,
	opts Options,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	expander := rrule.NewExpander(opts.MaxOccurrences, log)
	views := view.NewMaterializer(expander, log)
	return &Service{
		appointments: appointments,
		calendars:    calendars,
		reminders:    reminders,
		settings:     settings,
		expander:     expander,
		detector:     conflict.NewDetector(appointments, expander, opts.Location, log),
		views:        views,
		digests:      digest.NewCompiler(appointments, calendars, views),
		opts:         opts,
		log:          log,
	}
}

// preferences resolves the owner's zone and week start.
func (s *Service) preferences(ctx context.Context, ownerID int64) (*time.Location, time.Weekday) {
	settings, err := s.settings.GetOrCreate(ctx, ownerID)
	if err != nil {
		s.log.Warn("planner: falling back to default preferences", zap.Int64("owner_id", ownerID), zap.Error(err))
		return s.opts.Location, time.Sunday
	}
	loc := s.opts.Location
	if settings.Timezone != "" {
		if l, err := time.LoadLocation(settings.Timezone); err == nil {
			loc = l
		}
	}
	weekStart := time.Sunday
	if settings.WeekStart != "" {
		if d, err := interval.ParseWeekday(settings.WeekStart); err == nil {
			weekStart = d
		}
	}
	return loc, weekStart
}
