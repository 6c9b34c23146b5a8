package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/hray3182/Agenda/internal/database"
	"github.com/hray3182/Agenda/internal/models"
)

type ReminderRepository struct {
	db  *database.DB
	log *zap.Logger
}

func NewReminderRepository(db *database.DB, log *zap.Logger) *ReminderRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReminderRepository{db: db, log: log}
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	return insertReminder(ctx, r.db.Pool, reminder)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertReminder(ctx context.Context, q queryRower, reminder *models.Reminder) error {
	err := q.QueryRow(ctx,
		`INSERT INTO appointment_reminders (appointment_id, minutes_before, channel)
		 VALUES ($1, $2, $3)
		 RETURNING reminder_id, created_at`,
		reminder.AppointmentID, reminder.MinutesBefore, reminder.Channel,
	).Scan(&reminder.ReminderID, &reminder.CreatedAt)
	if err != nil {
		return translate(err, "appointment", reminder.AppointmentID)
	}
	return nil
}

func (r *ReminderRepository) GetByAppointment(ctx context.Context, appointmentID int64) ([]models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT reminder_id, appointment_id, minutes_before, channel, is_sent, sent_at, claim_token, claimed_until, created_at
		 FROM appointment_reminders WHERE appointment_id = $1 ORDER BY reminder_id ASC`,
		appointmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []models.Reminder
	for rows.Next() {
		var rem models.Reminder
		if err := rows.Scan(&rem.ReminderID, &rem.AppointmentID, &rem.MinutesBefore, &rem.Channel, &rem.IsSent,
			&rem.SentAt, &rem.ClaimToken, &rem.ClaimedUntil, &rem.CreatedAt); err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

// GetDue returns unsent, unleased reminders whose fire time has passed,
// joined with their appointment. Cancelled appointments never fire.
func (r *ReminderRepository) GetDue(ctx context.Context, now time.Time) ([]models.DueReminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT r.reminder_id, r.appointment_id, r.minutes_before, r.channel, r.is_sent, r.sent_at,
		        r.claim_token, r.claimed_until, r.created_at,
		        a.appointment_id, a.calendar_id, a.owner_id, a.title, a.description, a.location,
		        a.start_time, a.end_time, a.is_all_day, a.color, a.time_zone, a.recurrence_rule,
		        a.recurrence_parent_id, a.original_start, a.status, a.created_at, a.updated_at
		 FROM appointment_reminders r
		 JOIN appointments a ON a.appointment_id = r.appointment_id
		 WHERE NOT r.is_sent
		   AND (r.claimed_until IS NULL OR r.claimed_until <= $1)
		   AND a.status <> 'cancelled'
		   AND a.start_time - make_interval(mins => r.minutes_before) <= $1
		 ORDER BY a.start_time - make_interval(mins => r.minutes_before) ASC, r.reminder_id ASC`,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []models.DueReminder
	for rows.Next() {
		var d models.DueReminder
		rem, appt := &d.Reminder, &d.Appointment
		var rule *string
		if err := rows.Scan(&rem.ReminderID, &rem.AppointmentID, &rem.MinutesBefore, &rem.Channel, &rem.IsSent,
			&rem.SentAt, &rem.ClaimToken, &rem.ClaimedUntil, &rem.CreatedAt,
			&appt.AppointmentID, &appt.CalendarID, &appt.OwnerID, &appt.Title, &appt.Description, &appt.Location,
			&appt.Start, &appt.End, &appt.IsAllDay, &appt.Color, &appt.TimeZone, &rule,
			&appt.RecurrenceParentID, &appt.OriginalStart, &appt.Status, &appt.CreatedAt, &appt.UpdatedAt); err != nil {
			return nil, err
		}
		r.setRule(&d, rule)
		due = append(due, d)
	}
	return due, rows.Err()
}

// setRule decodes the appointment's rule column. A broken rule does not stop
// the reminder of the anchor occurrence; it is logged and dropped.
func (r *ReminderRepository) setRule(d *models.DueReminder, rule *string) {
	var err error
	if d.Appointment.RecurrenceRule, err = decodeRule(rule); err != nil {
		r.log.Error("invalid recurrence rule on reminder appointment",
			zap.Int64("reminder_id", d.Reminder.ReminderID),
			zap.Int64("appointment_id", d.Appointment.AppointmentID),
			zap.Error(err))
	}
}

// Claim leases the reminder to token until leaseUntil. It fails when the
// reminder was sent or another sweep holds a live lease.
func (r *ReminderRepository) Claim(ctx context.Context, reminderID int64, token string, leaseUntil, now time.Time) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE appointment_reminders SET claim_token = $1, claimed_until = $2
		 WHERE reminder_id = $3 AND NOT is_sent AND (claimed_until IS NULL OR claimed_until <= $4)`,
		token, leaseUntil, reminderID, now,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// Confirm marks the reminder sent if token still holds the claim.
func (r *ReminderRepository) Confirm(ctx context.Context, reminderID int64, token string, sentAt time.Time) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE appointment_reminders SET is_sent = true, sent_at = $1, claim_token = '', claimed_until = NULL
		 WHERE reminder_id = $2 AND NOT is_sent AND claim_token = $3`,
		sentAt, reminderID, token,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *ReminderRepository) Release(ctx context.Context, reminderID int64, token string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE appointment_reminders SET claim_token = '', claimed_until = NULL
		 WHERE reminder_id = $1 AND claim_token = $2`,
		reminderID, token,
	)
	return err
}
