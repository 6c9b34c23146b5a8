package rrule

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/hray3182/Agenda/internal/models"
)

var toFrequency = map[rrule.Frequency]models.Frequency{
	rrule.DAILY:   models.FrequencyDaily,
	rrule.WEEKLY:  models.FrequencyWeekly,
	rrule.MONTHLY: models.FrequencyMonthly,
}

var fromFrequency = map[models.Frequency]rrule.Frequency{
	models.FrequencyDaily:   rrule.DAILY,
	models.FrequencyWeekly:  rrule.WEEKLY,
	models.FrequencyMonthly: rrule.MONTHLY,
}

// Parse parses a stored RFC 5545 RRULE string and narrows it to the closed
// rule variant. Frequencies other than daily/weekly/monthly and any BY*
// part are rejected here, so nothing loosely typed enters the engine.
func Parse(ruleStr string) (*models.RecurrenceRule, error) {
	// Handle RRULE: prefix if present
	ruleStr = strings.TrimSpace(strings.TrimPrefix(ruleStr, "RRULE:"))
	if ruleStr == "" {
		return nil, nil
	}

	opt, err := rrule.StrToROption(ruleStr)
	if err != nil {
		return nil, &models.ValidationError{Field: "recurrence_rule", Reason: err.Error()}
	}

	freq, ok := toFrequency[opt.Freq]
	if !ok {
		return nil, &models.ValidationError{Field: "recurrence_rule.frequency", Reason: fmt.Sprintf("unsupported frequency %v", opt.Freq)}
	}
	if len(opt.Byweekday) > 0 || len(opt.Bymonthday) > 0 || len(opt.Bymonth) > 0 ||
		len(opt.Bysetpos) > 0 || len(opt.Byyearday) > 0 || len(opt.Byweekno) > 0 ||
		len(opt.Byhour) > 0 || len(opt.Byminute) > 0 || len(opt.Bysecond) > 0 {
		return nil, &models.ValidationError{Field: "recurrence_rule", Reason: "BY* parts are not supported"}
	}

	interval := opt.Interval
	if interval == 0 && !strings.Contains(strings.ToUpper(ruleStr), "INTERVAL=") {
		interval = 1
	}

	rule := &models.RecurrenceRule{Frequency: freq, Interval: interval}
	switch {
	case opt.Count > 0 && !opt.Until.IsZero():
		return nil, &models.ValidationError{Field: "recurrence_rule", Reason: "COUNT and UNTIL are mutually exclusive"}
	case opt.Count > 0:
		rule.Boundary = models.CountOf(opt.Count)
	case !opt.Until.IsZero():
		rule.Boundary = models.UntilDate(opt.Until)
	default:
		rule.Boundary = models.Unbounded()
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	return rule, nil
}

// Format renders a rule back into its RRULE string for storage.
func Format(rule *models.RecurrenceRule) (string, error) {
	if rule == nil {
		return "", nil
	}
	if err := rule.Validate(); err != nil {
		return "", err
	}
	return options(rule).RRuleString(), nil
}

// Build creates a rrule-go rule anchored at dtstart. Expand never calls it;
// it is the reference the expansion is checked against.
func Build(rule *models.RecurrenceRule, dtstart time.Time) (*rrule.RRule, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	opt := options(rule)
	opt.Dtstart = dtstart
	return rrule.NewRRule(*opt)
}

func options(rule *models.RecurrenceRule) *rrule.ROption {
	opt := &rrule.ROption{
		Freq:     fromFrequency[rule.Frequency],
		Interval: rule.Interval,
	}
	switch rule.Boundary.Kind {
	case models.BoundaryCount:
		opt.Count = rule.Boundary.Count
	case models.BoundaryUntil:
		opt.Until = rule.Boundary.Until.UTC()
	}
	return opt
}

// Describe returns a short human-readable description of the rule
func Describe(rule *models.RecurrenceRule) string {
	if rule == nil {
		return "once"
	}

	units := map[models.Frequency]string{
		models.FrequencyDaily:   "day",
		models.FrequencyWeekly:  "week",
		models.FrequencyMonthly: "month",
	}

	var b strings.Builder
	unit := units[rule.Frequency]
	if rule.Interval <= 1 {
		b.WriteString("every " + unit)
	} else {
		b.WriteString(fmt.Sprintf("every %d %ss", rule.Interval, unit))
	}

	switch rule.Boundary.Kind {
	case models.BoundaryCount:
		if rule.Boundary.Count == 1 {
			b.WriteString(", once")
		} else {
			b.WriteString(fmt.Sprintf(", %d times", rule.Boundary.Count))
		}
	case models.BoundaryUntil:
		b.WriteString(", until " + rule.Boundary.Until.Format("2006-01-02"))
	}
	return b.String()
}
