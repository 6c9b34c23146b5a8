// Package notify delivers reminders and digests: Telegram for the browser
// channel, SMTP for email.
package notify

import (
	"context"
	"fmt"

	"github.com/hray3182/Agenda/internal/models"
	"github.com/hray3182/Agenda/internal/reminder"
)

// Router hands each reminder to the notifier registered for its channel.
type Router struct {
	routes map[models.Channel]reminder.Notifier
}

func NewRouter() *Router {
	return &Router{routes: make(map[models.Channel]reminder.Notifier)}
}

// Handle registers n for channel. A nil notifier leaves the channel unrouted.
func (r *Router) Handle(channel models.Channel, n reminder.Notifier) *Router {
	if n != nil {
		r.routes[channel] = n
	}
	return r
}

func (r *Router) Deliver(ctx context.Context, rem models.Reminder, appt models.Appointment, channel models.Channel) error {
	n, ok := r.routes[channel]
	if !ok {
		return fmt.Errorf("%w: no notifier for channel %q", models.ErrDeliveryFailed, channel)
	}
	return n.Deliver(ctx, rem, appt, channel)
}
