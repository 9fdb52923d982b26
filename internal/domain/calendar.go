package domain

import (
	"time"

	"github.com/google/uuid"
)

type RecurrenceFrequency string

const (
	RecurrenceWeekly  RecurrenceFrequency = "weekly"
	RecurrenceMonthly RecurrenceFrequency = "monthly"
)

// CalendarRule is one version of a meeting calendar's recurrence. Prior
// versions remain valid for periods computed before the rule changed.
type CalendarRule struct {
	Frequency RecurrenceFrequency `json:"frequency" db:"frequency"`
	Interval  int                 `json:"interval" db:"interval"`
	// Weekday anchors weekly rules; DayOfMonth anchors monthly rules.
	Weekday       time.Weekday `json:"weekday" db:"weekday"`
	DayOfMonth    int          `json:"day_of_month" db:"day_of_month"`
	StartDate     time.Time    `json:"start_date" db:"start_date"`
	EffectiveFrom time.Time    `json:"effective_from" db:"effective_from"`
}

// MeetingCalendar drives due-date resolution for calendar-linked loans.
type MeetingCalendar struct {
	ID uuid.UUID `json:"id" db:"id"`
	// Rules ordered by EffectiveFrom ascending; the last rule whose
	// EffectiveFrom is on/before a date governs that date.
	Rules               []CalendarRule `json:"rules"`
	SkipFirstDayOfMonth bool           `json:"skip_first_day_of_month" db:"skip_first_day_of_month"`
	// WorkingDays[weekday] is false for non-working days; resolved dates
	// landing on one shift forward to the next working day. A zero value
	// (all false) is treated as every day working.
	WorkingDays [7]bool `json:"working_days"`
}

// RuleAt returns the rule version governing the given date.
func (c MeetingCalendar) RuleAt(date time.Time) CalendarRule {
	if len(c.Rules) == 0 {
		return CalendarRule{}
	}
	governing := c.Rules[0]
	for _, rule := range c.Rules {
		if rule.EffectiveFrom.After(date) {
			break
		}
		governing = rule
	}
	return governing
}

// IsWorkingDay reports whether d falls on a working day.
func (c MeetingCalendar) IsWorkingDay(d time.Time) bool {
	all := false
	for _, w := range c.WorkingDays {
		if w {
			all = true
			break
		}
	}
	if !all {
		return true
	}
	return c.WorkingDays[int(d.Weekday())]
}
