package models

import (
	"time"
)

// UserSettings holds the per-owner preferences the engine consumes.
type UserSettings struct {
	OwnerID        int64      `json:"owner_id"`
	Timezone       string     `json:"timezone"`
	WeekStart      string     `json:"week_start"` // "sunday" or "monday"
	Email          string     `json:"email"`
	DigestEnabled  bool       `json:"digest_enabled"`
	DigestTime     string     `json:"digest_time"` // HH:MM format
	LastDigestDate *time.Time `json:"last_digest_date"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// NewDefaultUserSettings creates a new UserSettings with default values
func NewDefaultUserSettings(ownerID int64) *UserSettings {
	return &UserSettings{
		OwnerID:       ownerID,
		Timezone:      "UTC",
		WeekStart:     "monday",
		DigestEnabled: true,
		DigestTime:    "08:00",
		UpdatedAt:     time.Now(),
	}
}

// Location resolves Timezone, falling back to UTC.
func (s *UserSettings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ShouldSendDigest checks if it's time to send today's digest
func (s *UserSettings) ShouldSendDigest(now time.Time) bool {
	if !s.DigestEnabled {
		return false
	}

	loc := s.Location()
	localNow := now.In(loc)

	// Check if already sent today
	if s.LastDigestDate != nil {
		last := s.LastDigestDate.In(loc)
		if last.Year() == localNow.Year() && last.YearDay() == localNow.YearDay() {
			return false
		}
	}

	hour, min := parseTimeString(s.DigestTime)
	digestAt := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), hour, min, 0, 0, loc)

	return !localNow.Before(digestAt)
}

// parseTimeString parses "HH:MM" format to hours and minutes
func parseTimeString(timeStr string) (hour, min int) {
	t, err := time.Parse("15:04", timeStr)
	if err != nil {
		return 0, 0
	}
	return t.Hour(), t.Minute()
}
