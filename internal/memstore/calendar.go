package memstore

import (
	"context"
	"sort"

	"github.com/hray3182/Agenda/internal/models"
)

type CalendarStore struct {
	s *Store
}

// Create stores cal. The owner's first calendar becomes the default, and a
// new default clears the previous one.
func (r *CalendarStore) Create(_ context.Context, cal *models.Calendar) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	first := true
	for _, c := range s.calendars {
		if c.OwnerID == cal.OwnerID {
			first = false
			break
		}
	}
	if first {
		cal.IsDefault = true
	}
	if cal.IsDefault {
		s.clearDefault(cal.OwnerID)
	}

	cal.CalendarID = s.id()
	cal.CreatedAt = s.now()
	s.calendars[cal.CalendarID] = *cal
	return nil
}

func (r *CalendarStore) GetByID(_ context.Context, id int64) (*models.Calendar, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.calendars[id]
	if !ok {
		return nil, &models.NotFoundError{Kind: "calendar", ID: id}
	}
	return &c, nil
}

func (r *CalendarStore) GetByOwner(_ context.Context, ownerID int64) ([]models.Calendar, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Calendar
	for _, c := range s.calendars {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CalendarID < out[j].CalendarID })
	return out, nil
}

func (r *CalendarStore) GetDefault(_ context.Context, ownerID int64) (*models.Calendar, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.calendars {
		if c.OwnerID == ownerID && c.IsDefault {
			return &c, nil
		}
	}
	return nil, &models.NotFoundError{Kind: "default calendar for owner", ID: ownerID}
}

// SetDefault clears the owner's current default and marks calendarID.
func (r *CalendarStore) SetDefault(_ context.Context, ownerID, calendarID int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.calendars[calendarID]
	if !ok {
		return &models.NotFoundError{Kind: "calendar", ID: calendarID}
	}
	if c.OwnerID != ownerID {
		return models.ErrUnauthorized
	}
	s.clearDefault(ownerID)
	c.IsDefault = true
	s.calendars[calendarID] = c
	return nil
}

func (r *CalendarStore) SetVisible(_ context.Context, calendarID int64, visible bool) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.calendars[calendarID]
	if !ok {
		return &models.NotFoundError{Kind: "calendar", ID: calendarID}
	}
	c.Visible = visible
	s.calendars[calendarID] = c
	return nil
}

func (s *Store) clearDefault(ownerID int64) {
	for id, c := range s.calendars {
		if c.OwnerID == ownerID && c.IsDefault {
			c.IsDefault = false
			s.calendars[id] = c
		}
	}
}
