package models

import "time"

// Occurrence is one concrete instance of an appointment, either the row
// itself or one step of its recurrence rule.
type Occurrence struct {
	AppointmentID int64     `json:"appointment_id"`
	SeriesID      int64     `json:"series_id,omitempty"` // anchor row of a recurring series
	Index         int       `json:"index"`
	Key           string    `json:"key"`
	CalendarID    int64     `json:"calendar_id"`
	OwnerID       int64     `json:"owner_id"`
	Title         string    `json:"title"`
	Location      string    `json:"location,omitempty"`
	Color         string    `json:"color,omitempty"`
	Status        Status    `json:"status"`
	AllDay        bool      `json:"all_day"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
}
