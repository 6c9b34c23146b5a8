package notify

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/hray3182/Agenda/internal/models"
)

// Sender is the part of *tgbotapi.BotAPI the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram pushes reminders and digests to the owner's chat. The chat id is
// the owner id.
type Telegram struct {
	api Sender
	loc *time.Location
	now func() time.Time
	log *zap.Logger
}

func NewTelegram(api Sender, loc *time.Location, log *zap.Logger) *Telegram {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Telegram{api: api, loc: loc, now: time.Now, log: log}
}

func (t *Telegram) Deliver(ctx context.Context, rem models.Reminder, appt models.Appointment, _ models.Channel) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: telegram: %v", models.ErrDeliveryFailed, err)
	}
	text := ReminderText(rem, appt, t.now(), appt.Zone(t.loc))
	msg, err := t.send(appt.OwnerID, text)
	if err != nil {
		return fmt.Errorf("%w: telegram: %v", models.ErrDeliveryFailed, err)
	}
	t.log.Info("reminder pushed",
		zap.Int64("reminder_id", rem.ReminderID),
		zap.Int64("owner_id", appt.OwnerID),
		zap.Int("message_id", msg.MessageID))
	return nil
}

// SendDigest posts a rendered digest to the owner's chat.
func (t *Telegram) SendDigest(_ context.Context, ownerID int64, text string) error {
	if _, err := t.send(ownerID, text); err != nil {
		return fmt.Errorf("failed to send digest: %w", err)
	}
	return nil
}

func (t *Telegram) send(chatID int64, text string) (tgbotapi.Message, error) {
	f := Markdown(text)
	msg := tgbotapi.NewMessage(chatID, f.Text)
	msg.Entities = f.Entities
	return t.api.Send(msg)
}
