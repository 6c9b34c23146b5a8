// Package reminder sweeps due appointment reminders and delivers each one
// at most once, even when sweeps overlap.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hray3182/Agenda/internal/models"
)

// DefaultLease is how long a claim blocks other sweeps before it expires.
const DefaultLease = 5 * time.Minute

// Store is the reminder persistence the dispatcher needs. Claim and Confirm
// must be atomic compare-and-set operations.
type Store interface {
	// GetDue returns unsent reminders whose fire time is at or before now,
	// joined with their appointment. It may over-approximate.
	GetDue(ctx context.Context, now time.Time) ([]models.DueReminder, error)
	// Claim succeeds only while the reminder is unsent and carries no
	// lease still live at now.
	Claim(ctx context.Context, reminderID int64, token string, leaseUntil, now time.Time) (bool, error)
	// Confirm flips is_sent for the holder of token.
	Confirm(ctx context.Context, reminderID int64, token string, sentAt time.Time) (bool, error)
	Release(ctx context.Context, reminderID int64, token string) error
}

type Notifier interface {
	Deliver(ctx context.Context, reminder models.Reminder, appt models.Appointment, channel models.Channel) error
}

type SweepResult struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

type Dispatcher struct {
	store    Store
	notifier Notifier
	lease    time.Duration
	log      *zap.Logger
	newToken func() string
}

func NewDispatcher(store Store, notifier Notifier, lease time.Duration, log *zap.Logger) *Dispatcher {
	if lease <= 0 {
		lease = DefaultLease
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		store:    store,
		notifier: notifier,
		lease:    lease,
		log:      log,
		newToken: func() string { return uuid.NewString() },
	}
}

// IsDue reports whether r should fire at now for appt. Reminders of a
// recurring series fire against the stored anchor start.
func IsDue(r models.Reminder, appt models.Appointment, now time.Time) bool {
	if r.IsSent || appt.Status == models.StatusCancelled {
		return false
	}
	return !r.DueAt(appt.Start).After(now)
}

// ProcessDue runs one sweep. A failing reminder never aborts the sweep; it
// is released and retried on the next one.
func (d *Dispatcher) ProcessDue(ctx context.Context, now time.Time) (SweepResult, error) {
	var res SweepResult

	due, err := d.store.GetDue(ctx, now)
	if err != nil {
		return res, fmt.Errorf("failed to get due reminders: %w", err)
	}

	for _, item := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if !IsDue(item.Reminder, item.Appointment, now) {
			continue
		}
		res.Total++

		switch d.dispatch(ctx, item, now) {
		case outcomeSent:
			res.Sent++
		case outcomeFailed:
			res.Failed++
		}
	}
	return res, nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeSent
	outcomeFailed
)

func (d *Dispatcher) dispatch(ctx context.Context, item models.DueReminder, now time.Time) outcome {
	r, appt := item.Reminder, item.Appointment
	log := d.log.With(
		zap.Int64("reminder_id", r.ReminderID),
		zap.Int64("appointment_id", appt.AppointmentID),
		zap.String("channel", string(r.Channel)))

	token := d.newToken()
	claimed, err := d.store.Claim(ctx, r.ReminderID, token, now.Add(d.lease), now)
	if err != nil {
		log.Error("failed to claim reminder", zap.Error(err))
		return outcomeFailed
	}
	if !claimed {
		log.Debug("reminder claimed by another sweep")
		return outcomeSkipped
	}

	// Delivery must finish while the lease still holds, or another sweep
	// could claim the reminder and send it again.
	dctx, cancel := context.WithTimeout(ctx, d.deliverTimeout())
	err = d.notifier.Deliver(dctx, r, appt, r.Channel)
	cancel()
	if err != nil {
		if !errors.Is(err, models.ErrDeliveryFailed) {
			err = fmt.Errorf("%w: %w", models.ErrDeliveryFailed, err)
		}
		log.Warn("reminder delivery failed", zap.Error(err))
		if rerr := d.store.Release(context.WithoutCancel(ctx), r.ReminderID, token); rerr != nil {
			log.Error("failed to release reminder claim", zap.Error(rerr))
		}
		return outcomeFailed
	}

	ok, err := d.store.Confirm(context.WithoutCancel(ctx), r.ReminderID, token, now)
	if err != nil {
		log.Error("failed to confirm reminder", zap.Error(err))
		return outcomeFailed
	}
	if !ok {
		log.Warn("reminder claim lost before confirm")
		return outcomeSkipped
	}
	log.Info("reminder sent")
	return outcomeSent
}

func (d *Dispatcher) deliverTimeout() time.Duration {
	return d.lease - d.lease/5
}
