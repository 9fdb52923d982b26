package schedule

import (
	"time"

	"github.com/pradipta/schedule-engine/internal/domain"
	"github.com/pradipta/schedule-engine/pkg/datetime"
)

// Resolver resolves due dates against a recurring meeting calendar. It is a
// pure function over the calendar state and a candidate date: rule versions
// are picked by the candidate's date, so periods computed before a rule
// change keep their old-rule dates.
type Resolver struct {
	Calendar domain.MeetingCalendar
}

// NextOccurrence returns the first occurrence on/after candidate under the
// rule version governing candidate, with the skip-first-day-of-month and
// working-day policies applied.
func (r Resolver) NextOccurrence(candidate time.Time) time.Time {
	candidate = datetime.Date(candidate)
	rule := r.Calendar.RuleAt(candidate)

	var occurrence time.Time
	switch rule.Frequency {
	case domain.RecurrenceMonthly:
		occurrence = r.nextMonthly(rule, candidate)
	default:
		occurrence = r.nextWeekly(rule, candidate)
	}

	if r.Calendar.SkipFirstDayOfMonth && occurrence.Day() == 1 {
		occurrence = occurrence.AddDate(0, 0, 1)
	}
	for !r.Calendar.IsWorkingDay(occurrence) {
		occurrence = occurrence.AddDate(0, 0, 1)
	}
	return occurrence
}

// DueDates projects count successive occurrences starting on/after first.
func (r Resolver) DueDates(first time.Time, count int) []time.Time {
	dates := make([]time.Time, 0, count)
	next := datetime.Date(first)
	for i := 0; i < count; i++ {
		occurrence := r.NextOccurrence(next)
		dates = append(dates, occurrence)
		next = occurrence.AddDate(0, 0, 1)
	}
	return dates
}

func (r Resolver) nextWeekly(rule domain.CalendarRule, candidate time.Time) time.Time {
	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}
	anchor := datetime.Date(rule.StartDate)
	// Walk forward to the anchor weekday, then check interval alignment
	// against the rule's start date. Bounded by one full cycle.
	d := candidate
	for i := 0; i <= interval*7; i++ {
		if d.Weekday() == rule.Weekday {
			weeks := datetime.DaysBetween(anchor, d) / 7
			if weeks%interval == 0 || d.Before(anchor) {
				return d
			}
		}
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func (r Resolver) nextMonthly(rule domain.CalendarRule, candidate time.Time) time.Time {
	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}
	day := rule.DayOfMonth
	if day < 1 {
		day = rule.StartDate.Day()
	}

	anchor := rule.StartDate
	year, month := candidate.Year(), candidate.Month()
	for i := 0; i <= interval+12; i++ {
		occurrence := monthlyOccurrence(year, month, day)
		if !occurrence.Before(candidate) {
			months := monthsBetween(anchor, occurrence)
			if months%interval == 0 {
				return occurrence
			}
		}
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return monthlyOccurrence(year, month, day)
}

// monthlyOccurrence clamps the anchor day to the month's length, so a
// day-31 rule lands on the 30th or 28th when the month is short.
func monthlyOccurrence(year int, month time.Month, day int) time.Time {
	lastDay := datetime.NewDate(year, month, 1).AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return datetime.NewDate(year, month, day)
}

func monthsBetween(a, b time.Time) int {
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	if months < 0 {
		return -months
	}
	return months
}

// StepDate advances from by one repayment interval for loans that are not
// linked to a meeting calendar.
func StepDate(terms domain.LoanTerms, from time.Time) time.Time {
	from = datetime.Date(from)
	switch terms.RepaymentFrequency {
	case domain.PeriodFrequencyMonths:
		return from.AddDate(0, terms.RepaymentEvery, 0)
	case domain.PeriodFrequencyWeeks:
		return from.AddDate(0, 0, 7*terms.RepaymentEvery)
	default:
		return from.AddDate(0, 0, terms.RepaymentEvery)
	}
}
