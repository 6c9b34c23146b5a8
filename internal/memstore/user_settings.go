package memstore

import (
	"context"
	"sort"
	"time"

	"github.com/hray3182/Agenda/internal/models"
)

type UserSettingsStore struct {
	s *Store
}

// GetOrCreate returns the owner's settings, storing defaults on first use.
func (r *UserSettingsStore) GetOrCreate(_ context.Context, ownerID int64) (*models.UserSettings, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, ok := s.settings[ownerID]
	if !ok {
		settings = *models.NewDefaultUserSettings(ownerID)
		settings.UpdatedAt = s.now()
		s.settings[ownerID] = settings
	}
	return &settings, nil
}

func (r *UserSettingsStore) Update(_ context.Context, settings *models.UserSettings) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	settings.UpdatedAt = s.now()
	s.settings[settings.OwnerID] = *settings
	return nil
}

// GetAllWithDigestEnabled returns owner ids with the daily digest switched on.
func (r *UserSettingsStore) GetAllWithDigestEnabled(_ context.Context) ([]int64, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for id, settings := range s.settings {
		if settings.DigestEnabled {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *UserSettingsStore) SetLastDigestDate(_ context.Context, ownerID int64, date time.Time) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, ok := s.settings[ownerID]
	if !ok {
		return &models.NotFoundError{Kind: "user settings", ID: ownerID}
	}
	settings.LastDigestDate = &date
	s.settings[ownerID] = settings
	return nil
}
