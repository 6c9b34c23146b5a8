package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hray3182/Agenda/internal/database"
	"github.com/hray3182/Agenda/internal/models"
	"github.com/hray3182/Agenda/internal/rrule"
)

const appointmentColumns = `appointment_id, calendar_id, owner_id, title, description, location,
	start_time, end_time, is_all_day, color, time_zone, recurrence_rule,
	recurrence_parent_id, original_start, status, created_at, updated_at`

type AppointmentRepository struct {
	db *database.DB
}

func NewAppointmentRepository(db *database.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Create inserts appt and its reminders in one transaction.
func (r *AppointmentRepository) Create(ctx context.Context, appt *models.Appointment, reminders []*models.Reminder) error {
	rule, err := encodeRule(appt.RecurrenceRule)
	if err != nil {
		return err
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO appointments (calendar_id, owner_id, title, description, location, start_time, end_time,
		 is_all_day, color, time_zone, recurrence_rule, recurrence_parent_id, original_start, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING appointment_id, created_at, updated_at`,
		appt.CalendarID, appt.OwnerID, appt.Title, appt.Description, appt.Location, appt.Start, appt.End,
		appt.IsAllDay, appt.Color, appt.TimeZone, rule, appt.RecurrenceParentID, appt.OriginalStart, appt.Status,
	).Scan(&appt.AppointmentID, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return translate(err, "calendar", appt.CalendarID)
	}

	for _, rem := range reminders {
		rem.AppointmentID = appt.AppointmentID
		if err := insertReminder(ctx, tx, rem); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*models.Appointment, error) {
	appt, err := scanAppointment(r.db.Pool.QueryRow(ctx,
		`SELECT `+appointmentColumns+` FROM appointments WHERE appointment_id = $1`, id))
	if err != nil {
		return nil, translate(err, "appointment", id)
	}
	return appt, nil
}

// GetByWindow returns rows of the given calendars that may produce an
// occurrence in [From, To). Recurring rows starting before To are always
// returned, and so are forks whose replaced occurrence may overlap the
// window. All-day ends get two days of slack since their date may sit in
// any zone.
func (r *AppointmentRepository) GetByWindow(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	if len(filter.CalendarIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+appointmentColumns+` FROM appointments a
		 WHERE calendar_id = ANY($1)
		   AND ((start_time < $3
		         AND (recurrence_rule IS NOT NULL
		              OR CASE WHEN is_all_day THEN end_time + interval '48 hours' ELSE end_time END > $2))
		        OR (recurrence_parent_id IS NOT NULL AND original_start < $3
		            AND EXISTS (SELECT 1 FROM appointments p
		                        WHERE p.appointment_id = a.recurrence_parent_id
		                          AND a.original_start + (p.end_time - p.start_time) + interval '48 hours' > $2)))
		 ORDER BY start_time ASC, appointment_id ASC`,
		filter.CalendarIDs, filter.From, filter.To,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// GetChildren returns the forked occurrences of a series.
func (r *AppointmentRepository) GetChildren(ctx context.Context, parentID int64) ([]models.Appointment, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+appointmentColumns+` FROM appointments
		 WHERE recurrence_parent_id = $1 ORDER BY appointment_id ASC`,
		parentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAppointments(rows)
}

func (r *AppointmentRepository) Update(ctx context.Context, appt *models.Appointment) error {
	rule, err := encodeRule(appt.RecurrenceRule)
	if err != nil {
		return err
	}
	err = r.db.Pool.QueryRow(ctx,
		`UPDATE appointments SET calendar_id = $1, title = $2, description = $3, location = $4,
		 start_time = $5, end_time = $6, is_all_day = $7, color = $8, time_zone = $9,
		 recurrence_rule = $10, status = $11, updated_at = $12
		 WHERE appointment_id = $13
		 RETURNING created_at, updated_at`,
		appt.CalendarID, appt.Title, appt.Description, appt.Location, appt.Start, appt.End,
		appt.IsAllDay, appt.Color, appt.TimeZone, rule, appt.Status, time.Now(), appt.AppointmentID,
	).Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return translate(err, "appointment", appt.AppointmentID)
	}
	return nil
}

// Delete removes the row. Forked children and reminders go with it through
// ON DELETE CASCADE.
func (r *AppointmentRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM appointments WHERE appointment_id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &models.NotFoundError{Kind: "appointment", ID: id}
	}
	return nil
}

func scanAppointments(rows pgx.Rows) ([]models.Appointment, error) {
	var appts []models.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *appt)
	}
	return appts, rows.Err()
}

func scanAppointment(row pgx.Row) (*models.Appointment, error) {
	appt := &models.Appointment{}
	var rule *string
	err := row.Scan(&appt.AppointmentID, &appt.CalendarID, &appt.OwnerID, &appt.Title, &appt.Description,
		&appt.Location, &appt.Start, &appt.End, &appt.IsAllDay, &appt.Color, &appt.TimeZone, &rule,
		&appt.RecurrenceParentID, &appt.OriginalStart, &appt.Status, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if appt.RecurrenceRule, err = decodeRule(rule); err != nil {
		return nil, fmt.Errorf("appointment %d: %w", appt.AppointmentID, err)
	}
	return appt, nil
}

// encodeRule stores rules as RRULE text; NULL means a single appointment.
func encodeRule(rule *models.RecurrenceRule) (*string, error) {
	if rule == nil {
		return nil, nil
	}
	s, err := rrule.Format(rule)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeRule(s *string) (*models.RecurrenceRule, error) {
	if s == nil {
		return nil, nil
	}
	return rrule.Parse(*s)
}

// translate maps driver errors onto the model errors callers check for.
func translate(err error, kind string, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &models.NotFoundError{Kind: kind, ID: id}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign_key_violation
			return &models.NotFoundError{Kind: kind, ID: id}
		case "23514": // check_violation
			return &models.ValidationError{Field: pgErr.ConstraintName, Reason: pgErr.Message}
		}
	}
	return err
}
