package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/hray3182/Agenda/internal/models"
	"github.com/hray3182/Agenda/internal/rrule"
)

// ReminderText renders the reminder body shared by every channel.
func ReminderText(rem models.Reminder, appt models.Appointment, now time.Time, loc *time.Location) string {
	start := appt.Start.In(loc)

	var b strings.Builder
	b.WriteString("⏰ **Reminder**\n\n")
	fmt.Fprintf(&b, "**%s**\n", appt.Title)
	if appt.IsAllDay {
		b.WriteString("📅 " + start.Format("Mon, 02 Jan") + ", all day")
	} else {
		b.WriteString("📅 " + start.Format("Mon, 02 Jan 15:04"))
		if until := appt.Start.Sub(now); until > 0 {
			b.WriteString(" (in " + humanDuration(until) + ")")
		}
	}
	if appt.Location != "" {
		b.WriteString("\n📍 " + appt.Location)
	}
	if appt.IsRecurring() {
		b.WriteString("\n🔄 " + rrule.Describe(appt.RecurrenceRule))
	}
	if appt.Description != "" {
		b.WriteString("\n\n" + appt.Description)
	}
	return b.String()
}

func humanDuration(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	minutes := int(d.Minutes())
	if d < time.Hour {
		return fmt.Sprintf("%d min", minutes)
	}
	hours := minutes / 60
	if mins := minutes % 60; mins != 0 {
		return fmt.Sprintf("%d h %d min", hours, mins)
	}
	return fmt.Sprintf("%d h", hours)
}
