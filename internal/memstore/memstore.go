// Package memstore is an in-process store with the same contracts as the
// PostgreSQL repositories. It backs tests and the -memory dev mode.
package memstore

import (
	"sync"
	"time"

	"github.com/hray3182/Agenda/internal/models"
)

type Store struct {
	mu     sync.Mutex
	nextID int64
	now    func() time.Time

	appointments map[int64]models.Appointment
	calendars    map[int64]models.Calendar
	reminders    map[int64]models.Reminder
	settings     map[int64]models.UserSettings

	Appointments *AppointmentStore
	Calendars    *CalendarStore
	Reminders    *ReminderStore
	Settings     *UserSettingsStore
}

func New() *Store {
	s := &Store{
		now:          time.Now,
		appointments: make(map[int64]models.Appointment),
		calendars:    make(map[int64]models.Calendar),
		reminders:    make(map[int64]models.Reminder),
		settings:     make(map[int64]models.UserSettings),
	}
	s.Appointments = &AppointmentStore{s: s}
	s.Calendars = &CalendarStore{s: s}
	s.Reminders = &ReminderStore{s: s}
	s.Settings = &UserSettingsStore{s: s}
	return s
}

// SetClock replaces the timestamp source for created_at/updated_at.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func cloneAppointment(a models.Appointment) models.Appointment {
	if a.RecurrenceRule != nil {
		rule := *a.RecurrenceRule
		a.RecurrenceRule = &rule
	}
	if a.RecurrenceParentID != nil {
		id := *a.RecurrenceParentID
		a.RecurrenceParentID = &id
	}
	if a.OriginalStart != nil {
		t := *a.OriginalStart
		a.OriginalStart = &t
	}
	return a
}

func cloneReminder(r models.Reminder) models.Reminder {
	if r.SentAt != nil {
		t := *r.SentAt
		r.SentAt = &t
	}
	if r.ClaimedUntil != nil {
		t := *r.ClaimedUntil
		r.ClaimedUntil = &t
	}
	return r
}
