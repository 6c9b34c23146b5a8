// Package ics exports materialized occurrences as an iCalendar feed.
package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/hray3182/Agenda/internal/models"
)

const productID = "Agenda"

// Export renders one VEVENT per occurrence. Occurrence keys become UIDs,
// so a re-export of the same window is stable.
func Export(name string, occurrences []models.Occurrence, stamp time.Time) string {
	cal := ical.NewCalendarFor(productID)
	cal.SetMethod(ical.MethodPublish)
	if name != "" {
		cal.SetName(name)
		cal.SetXWRCalName(name)
	}

	for _, o := range occurrences {
		e := cal.AddEvent(o.Key + "@agenda")
		e.SetDtStampTime(stamp)
		if o.AllDay {
			e.SetAllDayStartAt(o.Start)
			e.SetAllDayEndAt(o.End)
		} else {
			e.SetStartAt(o.Start)
			e.SetEndAt(o.End)
		}
		e.SetSummary(o.Title)
		if o.Location != "" {
			e.SetLocation(o.Location)
		}
		if o.Color != "" {
			e.SetColor(o.Color)
		}
		e.SetStatus(objectStatus(o.Status))
	}
	return cal.Serialize()
}

func objectStatus(s models.Status) ical.ObjectStatus {
	switch s {
	case models.StatusCancelled:
		return ical.ObjectStatusCancelled
	default:
		return ical.ObjectStatusConfirmed
	}
}
