package models

import "time"

type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelBrowser Channel = "browser"
)

func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelBrowser
}

type Reminder struct {
	ReminderID    int64      `json:"reminder_id"`
	AppointmentID int64      `json:"appointment_id"`
	MinutesBefore int        `json:"minutes_before"`
	Channel       Channel    `json:"channel"`
	IsSent        bool       `json:"is_sent"`
	SentAt        *time.Time `json:"sent_at"`
	ClaimToken    string     `json:"-"`
	ClaimedUntil  *time.Time `json:"-"` // lease held by the sweep currently delivering it
	CreatedAt     time.Time  `json:"created_at"`
}

func (r *Reminder) Validate() error {
	if r.MinutesBefore < 0 {
		return &ValidationError{Field: "minutes_before", Reason: "must not be negative"}
	}
	if !r.Channel.Valid() {
		return &ValidationError{Field: "channel", Reason: "unknown channel " + string(r.Channel)}
	}
	return nil
}

// DueAt is the instant the reminder fires for the given appointment start.
func (r *Reminder) DueAt(start time.Time) time.Time {
	return start.Add(-time.Duration(r.MinutesBefore) * time.Minute)
}

// DueReminder pairs a reminder with the appointment it belongs to.
type DueReminder struct {
	Reminder    Reminder
	Appointment Appointment
}
