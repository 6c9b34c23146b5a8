package models

import (
	"fmt"
	"time"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

type BoundaryKind int

const (
	BoundaryUnbounded BoundaryKind = iota
	BoundaryCount
	BoundaryUntil
)

// Boundary ends a series: after Count occurrences, at Until (inclusive), or never.
type Boundary struct {
	Kind  BoundaryKind `json:"kind"`
	Count int          `json:"count,omitempty"`
	Until time.Time    `json:"until,omitempty"`
}

func Unbounded() Boundary            { return Boundary{Kind: BoundaryUnbounded} }
func CountOf(n int) Boundary         { return Boundary{Kind: BoundaryCount, Count: n} }
func UntilDate(t time.Time) Boundary { return Boundary{Kind: BoundaryUntil, Until: t} }

type RecurrenceRule struct {
	Frequency Frequency `json:"frequency"`
	Interval  int       `json:"interval"`
	Boundary  Boundary  `json:"boundary"`
}

func (r *RecurrenceRule) Validate() error {
	switch r.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
	default:
		return &ValidationError{Field: "recurrence_rule.frequency", Reason: fmt.Sprintf("unknown frequency %q", r.Frequency)}
	}
	if r.Interval < 1 {
		return &ValidationError{Field: "recurrence_rule.interval", Reason: "must be at least 1"}
	}
	switch r.Boundary.Kind {
	case BoundaryUnbounded:
	case BoundaryCount:
		if r.Boundary.Count < 1 {
			return &ValidationError{Field: "recurrence_rule.count", Reason: "must be at least 1"}
		}
	case BoundaryUntil:
		if r.Boundary.Until.IsZero() {
			return &ValidationError{Field: "recurrence_rule.until", Reason: "must be set"}
		}
	default:
		return &ValidationError{Field: "recurrence_rule.boundary", Reason: "unknown boundary"}
	}
	return nil
}
