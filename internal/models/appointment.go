package models

import "time"

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Appointment struct {
	AppointmentID      int64           `json:"appointment_id"`
	CalendarID         int64           `json:"calendar_id"`
	OwnerID            int64           `json:"owner_id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Location           string          `json:"location"`
	Start              time.Time       `json:"start"`
	End                time.Time       `json:"end"`
	IsAllDay           bool            `json:"is_all_day"`
	Color              string          `json:"color"`
	TimeZone           string          `json:"time_zone"` // IANA zone the start/end wall clock belongs to
	RecurrenceRule     *RecurrenceRule `json:"recurrence_rule,omitempty"`
	RecurrenceParentID *int64          `json:"recurrence_parent_id,omitempty"`
	OriginalStart      *time.Time      `json:"original_start,omitempty"` // series occurrence replaced by this row
	Status             Status          `json:"status"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// IsRecurring returns true if this appointment carries a recurrence rule
func (a *Appointment) IsRecurring() bool {
	return a.RecurrenceRule != nil
}

// IsFork returns true if this row replaces a single occurrence of a series
func (a *Appointment) IsFork() bool {
	return a.RecurrenceParentID != nil
}

// Duration returns the length of the stored interval.
func (a *Appointment) Duration() time.Duration {
	return a.End.Sub(a.Start)
}

// Zone resolves the stored time zone, falling back to def.
func (a *Appointment) Zone(def *time.Location) *time.Location {
	if a.TimeZone != "" {
		if loc, err := time.LoadLocation(a.TimeZone); err == nil {
			return loc
		}
	}
	if def == nil {
		return time.Local
	}
	return def
}

// Validate checks the row-level invariants. It never mutates a.
func (a *Appointment) Validate() error {
	if a.Title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if a.Start.IsZero() {
		return &ValidationError{Field: "start", Reason: "must be set"}
	}
	if !a.IsAllDay && !a.End.After(a.Start) {
		return &ValidationError{Field: "end", Reason: "must be after start"}
	}
	if a.IsAllDay && a.End.Before(a.Start) {
		return &ValidationError{Field: "end", Reason: "must not be before start"}
	}
	if a.Status != "" && !a.Status.Valid() {
		return &ValidationError{Field: "status", Reason: "unknown status " + string(a.Status)}
	}
	if a.TimeZone != "" {
		if _, err := time.LoadLocation(a.TimeZone); err != nil {
			return &ValidationError{Field: "time_zone", Reason: err.Error()}
		}
	}
	if a.RecurrenceRule != nil {
		if a.RecurrenceParentID != nil {
			return &ValidationError{Field: "recurrence_rule", Reason: "a forked occurrence cannot recur"}
		}
		if err := a.RecurrenceRule.Validate(); err != nil {
			return err
		}
	}
	if a.RecurrenceParentID != nil {
		if a.AppointmentID != 0 && *a.RecurrenceParentID == a.AppointmentID {
			return &ValidationError{Field: "recurrence_parent_id", Reason: "must not reference itself"}
		}
		if a.OriginalStart == nil {
			return &ValidationError{Field: "original_start", Reason: "required for a forked occurrence"}
		}
	}
	return nil
}

// AppointmentFilter is the coarse pre-filter handed to stores. Exact window
// inclusion is decided after expansion.
type AppointmentFilter struct {
	CalendarIDs []int64
	From        time.Time
	To          time.Time
}
