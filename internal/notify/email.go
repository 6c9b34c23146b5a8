package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hray3182/Agenda/internal/models"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// AddressBook resolves the owner's email address.
type AddressBook interface {
	GetOrCreate(ctx context.Context, ownerID int64) (*models.UserSettings, error)
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email delivers reminders over SMTP to the address in the owner's settings.
type Email struct {
	cfg      SMTPConfig
	settings AddressBook
	send     sendFunc
	now      func() time.Time
	log      *zap.Logger
}

func NewEmail(cfg SMTPConfig, settings AddressBook, log *zap.Logger) *Email {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Email{cfg: cfg, settings: settings, send: smtp.SendMail, now: time.Now, log: log}
}

func (e *Email) Deliver(ctx context.Context, rem models.Reminder, appt models.Appointment, _ models.Channel) error {
	settings, err := e.settings.GetOrCreate(ctx, appt.OwnerID)
	if err != nil {
		return fmt.Errorf("%w: failed to get settings: %v", models.ErrDeliveryFailed, err)
	}
	if settings.Email == "" {
		return fmt.Errorf("%w: owner %d has no email address", models.ErrDeliveryFailed, appt.OwnerID)
	}

	body := Markdown(ReminderText(rem, appt, e.now(), appt.Zone(settings.Location()))).Text
	msg := buildMessage(e.cfg.From, settings.Email, "Reminder: "+appt.Title, body)

	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}
	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: smtp: %v", models.ErrDeliveryFailed, err)
	}
	if err := e.send(addr, auth, e.cfg.From, []string{settings.Email}, msg); err != nil {
		return fmt.Errorf("%w: smtp: %v", models.ErrDeliveryFailed, err)
	}
	e.log.Info("reminder emailed", zap.Int64("reminder_id", rem.ReminderID), zap.Int64("owner_id", appt.OwnerID))
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
