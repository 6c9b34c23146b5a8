package repository

import (
	"context"
	"fmt"

	"github.com/hray3182/Agenda/internal/database"
	"github.com/hray3182/Agenda/internal/models"
)

const calendarColumns = `calendar_id, owner_id, name, color, category, visible, is_default, created_at`

type CalendarRepository struct {
	db *database.DB
}

func NewCalendarRepository(db *database.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

// Create stores cal. The owner's first calendar becomes the default, and a
// new default clears the previous one.
func (r *CalendarRepository) Create(ctx context.Context, cal *models.Calendar) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var first bool
	err = tx.QueryRow(ctx,
		`SELECT NOT EXISTS(SELECT 1 FROM calendars WHERE owner_id = $1)`,
		cal.OwnerID,
	).Scan(&first)
	if err != nil {
		return err
	}
	if first {
		cal.IsDefault = true
	}
	if cal.IsDefault {
		if _, err := tx.Exec(ctx,
			`UPDATE calendars SET is_default = false WHERE owner_id = $1 AND is_default`,
			cal.OwnerID,
		); err != nil {
			return err
		}
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO calendars (owner_id, name, color, category, visible, is_default)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING calendar_id, created_at`,
		cal.OwnerID, cal.Name, cal.Color, cal.Category, cal.Visible, cal.IsDefault,
	).Scan(&cal.CalendarID, &cal.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *CalendarRepository) GetByID(ctx context.Context, id int64) (*models.Calendar, error) {
	cal := &models.Calendar{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT `+calendarColumns+` FROM calendars WHERE calendar_id = $1`, id,
	).Scan(&cal.CalendarID, &cal.OwnerID, &cal.Name, &cal.Color, &cal.Category, &cal.Visible, &cal.IsDefault, &cal.CreatedAt)
	if err != nil {
		return nil, translate(err, "calendar", id)
	}
	return cal, nil
}

func (r *CalendarRepository) GetByOwner(ctx context.Context, ownerID int64) ([]models.Calendar, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+calendarColumns+` FROM calendars WHERE owner_id = $1 ORDER BY calendar_id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cals []models.Calendar
	for rows.Next() {
		var cal models.Calendar
		if err := rows.Scan(&cal.CalendarID, &cal.OwnerID, &cal.Name, &cal.Color, &cal.Category,
			&cal.Visible, &cal.IsDefault, &cal.CreatedAt); err != nil {
			return nil, err
		}
		cals = append(cals, cal)
	}
	return cals, rows.Err()
}

func (r *CalendarRepository) GetDefault(ctx context.Context, ownerID int64) (*models.Calendar, error) {
	cal := &models.Calendar{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT `+calendarColumns+` FROM calendars WHERE owner_id = $1 AND is_default`, ownerID,
	).Scan(&cal.CalendarID, &cal.OwnerID, &cal.Name, &cal.Color, &cal.Category, &cal.Visible, &cal.IsDefault, &cal.CreatedAt)
	if err != nil {
		return nil, translate(err, "default calendar for owner", ownerID)
	}
	return cal, nil
}

// SetDefault clears the owner's current default and marks calendarID.
func (r *CalendarRepository) SetDefault(ctx context.Context, ownerID, calendarID int64) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var owner int64
	err = tx.QueryRow(ctx,
		`SELECT owner_id FROM calendars WHERE calendar_id = $1 FOR UPDATE`, calendarID,
	).Scan(&owner)
	if err != nil {
		return translate(err, "calendar", calendarID)
	}
	if owner != ownerID {
		return models.ErrUnauthorized
	}

	if _, err := tx.Exec(ctx,
		`UPDATE calendars SET is_default = false WHERE owner_id = $1 AND is_default`, ownerID,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`UPDATE calendars SET is_default = true WHERE calendar_id = $1`, calendarID,
	); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *CalendarRepository) SetVisible(ctx context.Context, calendarID int64, visible bool) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE calendars SET visible = $1 WHERE calendar_id = $2`, visible, calendarID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &models.NotFoundError{Kind: "calendar", ID: calendarID}
	}
	return nil
}
