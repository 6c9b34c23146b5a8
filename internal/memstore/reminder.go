package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/hray3182/Agenda/internal/models"
)

type ReminderStore struct {
	s *Store
}

func (r *ReminderStore) Create(_ context.Context, rem *models.Reminder) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.appointments[rem.AppointmentID]; !ok {
		return &models.NotFoundError{Kind: "appointment", ID: rem.AppointmentID}
	}
	rem.ReminderID = s.id()
	rem.CreatedAt = s.now()
	s.reminders[rem.ReminderID] = cloneReminder(*rem)
	return nil
}

func (r *ReminderStore) GetByAppointment(_ context.Context, appointmentID int64) ([]models.Reminder, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Reminder
	for _, rem := range s.reminders {
		if rem.AppointmentID == appointmentID {
			out = append(out, cloneReminder(rem))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReminderID < out[j].ReminderID })
	return out, nil
}

// GetDue returns unsent, unleased reminders whose fire time has passed.
func (r *ReminderStore) GetDue(_ context.Context, now time.Time) ([]models.DueReminder, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.DueReminder
	for _, rem := range s.reminders {
		if rem.IsSent || leased(rem, now) {
			continue
		}
		appt, ok := s.appointments[rem.AppointmentID]
		if !ok || appt.Status == models.StatusCancelled || rem.DueAt(appt.Start).After(now) {
			continue
		}
		out = append(out, models.DueReminder{Reminder: cloneReminder(rem), Appointment: cloneAppointment(appt)})
	}
	sort.Slice(out, func(i, j int) bool {
		a := out[i].Reminder.DueAt(out[i].Appointment.Start)
		b := out[j].Reminder.DueAt(out[j].Appointment.Start)
		if !a.Equal(b) {
			return a.Before(b)
		}
		return out[i].Reminder.ReminderID < out[j].Reminder.ReminderID
	})
	return out, nil
}

func (r *ReminderStore) Claim(_ context.Context, reminderID int64, token string, leaseUntil, now time.Time) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	rem, ok := s.reminders[reminderID]
	if !ok || rem.IsSent || leased(rem, now) {
		return false, nil
	}
	rem.ClaimToken = token
	rem.ClaimedUntil = &leaseUntil
	s.reminders[reminderID] = rem
	return true, nil
}

func (r *ReminderStore) Confirm(_ context.Context, reminderID int64, token string, sentAt time.Time) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	rem, ok := s.reminders[reminderID]
	if !ok || rem.IsSent || rem.ClaimToken != token {
		return false, nil
	}
	rem.IsSent = true
	rem.SentAt = &sentAt
	rem.ClaimToken = ""
	rem.ClaimedUntil = nil
	s.reminders[reminderID] = rem
	return true, nil
}

func (r *ReminderStore) Release(_ context.Context, reminderID int64, token string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	rem, ok := s.reminders[reminderID]
	if !ok || rem.ClaimToken != token {
		return nil
	}
	rem.ClaimToken = ""
	rem.ClaimedUntil = nil
	s.reminders[reminderID] = rem
	return nil
}

func leased(rem models.Reminder, now time.Time) bool {
	return rem.ClaimedUntil != nil && rem.ClaimedUntil.After(now)
}
