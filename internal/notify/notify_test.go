package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/Agenda/internal/memstore"
	"github.com/hray3182/Agenda/internal/models"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	msg := c.(tgbotapi.MessageConfig)
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func standup() (models.Reminder, models.Appointment) {
	appt := models.Appointment{
		AppointmentID: 3,
		OwnerID:       42,
		Title:         "standup",
		Location:      "room 4",
		Start:         time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
		End:           time.Date(2025, 1, 6, 9, 15, 0, 0, time.UTC),
		RecurrenceRule: &models.RecurrenceRule{
			Frequency: models.FrequencyWeekly,
			Interval:  1,
			Boundary:  models.CountOf(5),
		},
	}
	return models.Reminder{ReminderID: 7, AppointmentID: 3, MinutesBefore: 15, Channel: models.ChannelBrowser}, appt
}

func TestReminderText(t *testing.T) {
	rem, appt := standup()
	text := ReminderText(rem, appt, appt.Start.Add(-15*time.Minute), time.UTC)

	assert.Contains(t, text, "**standup**")
	assert.Contains(t, text, "Mon, 06 Jan 09:00 (in 15 min)")
	assert.Contains(t, text, "📍 room 4")
	assert.Contains(t, text, "every week, 5 times")

	appt.IsAllDay = true
	appt.RecurrenceRule = nil
	text = ReminderText(rem, appt, appt.Start, time.UTC)
	assert.Contains(t, text, "Mon, 06 Jan, all day")
	assert.NotContains(t, text, "🔄")
}

func TestTelegramDeliver(t *testing.T) {
	sender := &fakeSender{}
	tg := NewTelegram(sender, time.UTC, nil)
	rem, appt := standup()

	require.NoError(t, tg.Deliver(context.Background(), rem, appt, models.ChannelBrowser))
	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, int64(42), msg.ChatID)
	assert.True(t, strings.HasPrefix(msg.Text, "⏰ Reminder"))
	assert.NotEmpty(t, msg.Entities)

	require.NoError(t, tg.SendDigest(context.Background(), 42, "**Today's agenda**\n• Nothing scheduled"))
	assert.Equal(t, "Today's agenda\n• Nothing scheduled", sender.sent[1].Text)

	sender.err = errors.New("chat not found")
	err := tg.Deliver(context.Background(), rem, appt, models.ChannelBrowser)
	assert.ErrorIs(t, err, models.ErrDeliveryFailed)
}

func TestEmailDeliver(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	settings, err := store.Settings.GetOrCreate(ctx, 42)
	require.NoError(t, err)

	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	email := NewEmail(SMTPConfig{Host: "mail.example.com", From: "agenda@example.com"}, store.Settings, nil)
	email.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}
	rem, appt := standup()

	// no address on file yet
	err = email.Deliver(ctx, rem, appt, models.ChannelEmail)
	assert.ErrorIs(t, err, models.ErrDeliveryFailed)

	settings.Email = "owner@example.com"
	require.NoError(t, store.Settings.Update(ctx, settings))
	require.NoError(t, email.Deliver(ctx, rem, appt, models.ChannelEmail))
	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.Equal(t, []string{"owner@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Reminder: standup\r\n")
	assert.NotContains(t, string(gotMsg), "**")

	email.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("421 try later") }
	assert.ErrorIs(t, email.Deliver(ctx, rem, appt, models.ChannelEmail), models.ErrDeliveryFailed)
}

type countingNotifier struct{ calls int }

func (c *countingNotifier) Deliver(context.Context, models.Reminder, models.Appointment, models.Channel) error {
	c.calls++
	return nil
}

func TestRouter(t *testing.T) {
	browser := &countingNotifier{}
	r := NewRouter().Handle(models.ChannelBrowser, browser)
	rem, appt := standup()

	require.NoError(t, r.Deliver(context.Background(), rem, appt, models.ChannelBrowser))
	assert.Equal(t, 1, browser.calls)

	err := r.Deliver(context.Background(), rem, appt, models.ChannelEmail)
	assert.ErrorIs(t, err, models.ErrDeliveryFailed)
}
