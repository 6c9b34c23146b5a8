package repository

import (
	"context"
	"time"

	"github.com/hray3182/Agenda/internal/database"
	"github.com/hray3182/Agenda/internal/models"
)

type UserSettingsRepository struct {
	db *database.DB
}

func NewUserSettingsRepository(db *database.DB) *UserSettingsRepository {
	return &UserSettingsRepository{db: db}
}

// GetOrCreate retrieves user settings, creating default settings if none exist
func (r *UserSettingsRepository) GetOrCreate(ctx context.Context, ownerID int64) (*models.UserSettings, error) {
	settings := &models.UserSettings{}
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO user_settings (owner_id) VALUES ($1)
		 ON CONFLICT (owner_id) DO UPDATE SET owner_id = EXCLUDED.owner_id
		 RETURNING owner_id, timezone, week_start, email, digest_enabled,
		           to_char(digest_time, 'HH24:MI'), last_digest_date, updated_at`,
		ownerID,
	).Scan(
		&settings.OwnerID,
		&settings.Timezone,
		&settings.WeekStart,
		&settings.Email,
		&settings.DigestEnabled,
		&settings.DigestTime,
		&settings.LastDigestDate,
		&settings.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *UserSettingsRepository) Update(ctx context.Context, settings *models.UserSettings) error {
	settings.UpdatedAt = time.Now()
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO user_settings (owner_id, timezone, week_start, email, digest_enabled, digest_time, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6::time, $7)
		 ON CONFLICT (owner_id) DO UPDATE SET
		    timezone = EXCLUDED.timezone,
		    week_start = EXCLUDED.week_start,
		    email = EXCLUDED.email,
		    digest_enabled = EXCLUDED.digest_enabled,
		    digest_time = EXCLUDED.digest_time,
		    updated_at = EXCLUDED.updated_at`,
		settings.OwnerID,
		settings.Timezone,
		settings.WeekStart,
		settings.Email,
		settings.DigestEnabled,
		settings.DigestTime,
		settings.UpdatedAt,
	)
	return err
}

// GetAllWithDigestEnabled returns all owner IDs with the daily digest enabled
func (r *UserSettingsRepository) GetAllWithDigestEnabled(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT owner_id FROM user_settings WHERE digest_enabled = true ORDER BY owner_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ownerIDs []int64
	for rows.Next() {
		var ownerID int64
		if err := rows.Scan(&ownerID); err != nil {
			return nil, err
		}
		ownerIDs = append(ownerIDs, ownerID)
	}
	return ownerIDs, rows.Err()
}

func (r *UserSettingsRepository) SetLastDigestDate(ctx context.Context, ownerID int64, date time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE user_settings SET last_digest_date = $1 WHERE owner_id = $2`,
		date, ownerID,
	)
	return err
}
