package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hray3182/Agenda/internal/models"
)

func TestRuleColumnRoundTrip(t *testing.T) {
	stored, err := encodeRule(nil)
	require.NoError(t, err)
	assert.Nil(t, stored)

	rule := &models.RecurrenceRule{Frequency: models.FrequencyWeekly, Interval: 2, Boundary: models.CountOf(5)}
	stored, err = encodeRule(rule)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Contains(t, *stored, "FREQ=WEEKLY")

	back, err := decodeRule(stored)
	require.NoError(t, err)
	assert.Equal(t, rule, back)

	_, err = encodeRule(&models.RecurrenceRule{Frequency: "yearly", Interval: 1})
	assert.True(t, models.IsValidation(err))

	broken := "FREQ=SOMETIMES"
	_, err = decodeRule(&broken)
	assert.Error(t, err)
}

func TestTranslate(t *testing.T) {
	err := translate(fmt.Errorf("scan: %w", pgx.ErrNoRows), "calendar", 7)
	var nf *models.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, int64(7), nf.ID)
	assert.Equal(t, "calendar", nf.Kind)

	err = translate(&pgconn.PgError{Code: "23503"}, "calendar", 3)
	assert.True(t, models.IsNotFound(err))

	err = translate(&pgconn.PgError{Code: "23514", ConstraintName: "appointments_status_check", Message: "violates check"}, "appointment", 1)
	assert.True(t, models.IsValidation(err))

	other := errors.New("connection reset")
	assert.Same(t, other, translate(other, "appointment", 1))
}

func TestDueReminderWithBrokenRuleIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := NewReminderRepository(nil, zap.New(core))

	broken := "FREQ=SOMETIMES"
	d := models.DueReminder{
		Reminder:    models.Reminder{ReminderID: 4},
		Appointment: models.Appointment{AppointmentID: 9},
	}
	r.setRule(&d, &broken)
	assert.Nil(t, d.Appointment.RecurrenceRule)
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, int64(9), entry.ContextMap()["appointment_id"])
	assert.Equal(t, int64(4), entry.ContextMap()["reminder_id"])

	weekly := "FREQ=WEEKLY;INTERVAL=1"
	r.setRule(&d, &weekly)
	require.NotNil(t, d.Appointment.RecurrenceRule)
	assert.Equal(t, models.FrequencyWeekly, d.Appointment.RecurrenceRule.Frequency)
	assert.Equal(t, 1, logs.Len())
}
