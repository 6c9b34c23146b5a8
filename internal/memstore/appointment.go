package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/hray3182/Agenda/internal/models"
)

type AppointmentStore struct {
	s *Store
}

// Create stores appt and its reminders together, assigning ids.
func (r *AppointmentStore) Create(_ context.Context, appt *models.Appointment, reminders []*models.Reminder) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.calendars[appt.CalendarID]; !ok {
		return &models.NotFoundError{Kind: "calendar", ID: appt.CalendarID}
	}
	if appt.RecurrenceParentID != nil {
		if _, ok := s.appointments[*appt.RecurrenceParentID]; !ok {
			return &models.NotFoundError{Kind: "appointment", ID: *appt.RecurrenceParentID}
		}
	}

	now := s.now()
	appt.AppointmentID = s.id()
	appt.CreatedAt = now
	appt.UpdatedAt = now
	s.appointments[appt.AppointmentID] = cloneAppointment(*appt)

	for _, rem := range reminders {
		rem.ReminderID = s.id()
		rem.AppointmentID = appt.AppointmentID
		rem.CreatedAt = now
		s.reminders[rem.ReminderID] = cloneReminder(*rem)
	}
	return nil
}

func (r *AppointmentStore) GetByID(_ context.Context, id int64) (*models.Appointment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.appointments[id]
	if !ok {
		return nil, &models.NotFoundError{Kind: "appointment", ID: id}
	}
	a = cloneAppointment(a)
	return &a, nil
}

// GetByWindow returns rows of the given calendars that may produce an
// occurrence in [From, To). Recurring rows starting before To are always
// returned, as are forks whose replaced occurrence falls in the window
// wherever the fork itself moved.
func (r *AppointmentStore) GetByWindow(_ context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	calendars := make(map[int64]bool, len(filter.CalendarIDs))
	for _, id := range filter.CalendarIDs {
		calendars[id] = true
	}

	var out []models.Appointment
	for _, a := range s.appointments {
		if !calendars[a.CalendarID] {
			continue
		}
		if s.replacesInWindow(a, filter) {
			out = append(out, cloneAppointment(a))
			continue
		}
		if !a.Start.Before(filter.To) {
			continue
		}
		end := a.End
		if a.IsAllDay {
			// the end date is inclusive and may sit in any zone
			end = end.Add(48 * time.Hour)
		}
		if a.IsRecurring() || end.After(filter.From) {
			out = append(out, cloneAppointment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].AppointmentID < out[j].AppointmentID
	})
	return out, nil
}

// replacesInWindow reports whether a is a fork whose original occurrence
// may overlap the window. Must hold s.mu.
func (s *Store) replacesInWindow(a models.Appointment, filter models.AppointmentFilter) bool {
	if a.RecurrenceParentID == nil || a.OriginalStart == nil || !a.OriginalStart.Before(filter.To) {
		return false
	}
	span := 48 * time.Hour
	if parent, ok := s.appointments[*a.RecurrenceParentID]; ok {
		span += parent.End.Sub(parent.Start)
	}
	return a.OriginalStart.Add(span).After(filter.From)
}

// GetChildren returns the forked occurrences of a series.
func (r *AppointmentStore) GetChildren(_ context.Context, parentID int64) ([]models.Appointment, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Appointment
	for _, a := range s.appointments {
		if a.RecurrenceParentID != nil && *a.RecurrenceParentID == parentID {
			out = append(out, cloneAppointment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppointmentID < out[j].AppointmentID })
	return out, nil
}

func (r *AppointmentStore) Update(_ context.Context, appt *models.Appointment) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.appointments[appt.AppointmentID]
	if !ok {
		return &models.NotFoundError{Kind: "appointment", ID: appt.AppointmentID}
	}
	appt.CreatedAt = old.CreatedAt
	appt.UpdatedAt = s.now()
	s.appointments[appt.AppointmentID] = cloneAppointment(*appt)
	return nil
}

// Delete removes the row, its forked children and every reminder of both.
func (r *AppointmentStore) Delete(_ context.Context, id int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.appointments[id]; !ok {
		return &models.NotFoundError{Kind: "appointment", ID: id}
	}

	doomed := map[int64]bool{id: true}
	for cid, a := range s.appointments {
		if a.RecurrenceParentID != nil && *a.RecurrenceParentID == id {
			doomed[cid] = true
		}
	}
	for rid, rem := range s.reminders {
		if doomed[rem.AppointmentID] {
			delete(s.reminders, rid)
		}
	}
	for aid := range doomed {
		delete(s.appointments, aid)
	}
	return nil
}
