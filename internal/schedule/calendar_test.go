package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pradipta/schedule-engine/internal/domain"
	"github.com/pradipta/schedule-engine/pkg/datetime"
)

func weeklyCalendar(weekday time.Weekday, start time.Time) domain.MeetingCalendar {
	return domain.MeetingCalendar{
		Rules: []domain.CalendarRule{{
			Frequency:     domain.RecurrenceWeekly,
			Interval:      1,
			Weekday:       weekday,
			StartDate:     start,
			EffectiveFrom: start,
		}},
	}
}

func TestNextOccurrenceWeekly(t *testing.T) {
	// 2014-03-03 was a Monday.
	anchor := datetime.NewDate(2014, time.March, 3)
	r := Resolver{Calendar: weeklyCalendar(time.Monday, anchor)}

	got := r.NextOccurrence(anchor)
	assert.True(t, datetime.SameDay(got, anchor))

	// Mid-week candidates roll forward to the next Monday.
	got = r.NextOccurrence(datetime.NewDate(2014, time.March, 5))
	assert.True(t, datetime.SameDay(got, datetime.NewDate(2014, time.March, 10)))
}

func TestNextOccurrenceBiweekly(t *testing.T) {
	anchor := datetime.NewDate(2014, time.March, 3)
	cal := weeklyCalendar(time.Monday, anchor)
	cal.Rules[0].Interval = 2
	r := Resolver{Calendar: cal}

	// The Monday one week after the anchor is off-cycle; the resolver
	// lands on the aligned occurrence two weeks out.
	got := r.NextOccurrence(datetime.NewDate(2014, time.March, 4))
	assert.True(t, datetime.SameDay(got, datetime.NewDate(2014, time.March, 17)),
		"got %s", got)
}

func TestNextOccurrenceRuleChange(t *testing.T) {
	anchor := datetime.NewDate(2014, time.March, 3)
	cal := weeklyCalendar(time.Monday, anchor)
	// 2014-04-01 was a Tuesday; the meeting moves to Tuesdays from then.
	change := datetime.NewDate(2014, time.April, 1)
	cal.Rules = append(cal.Rules, domain.CalendarRule{
		Frequency:     domain.RecurrenceWeekly,
		Interval:      1,
		Weekday:       time.Tuesday,
		StartDate:     change,
		EffectiveFrom: change,
	})
	r := Resolver{Calendar: cal}

	// Candidates before the change keep resolving Mondays.
	got := r.NextOccurrence(datetime.NewDate(2014, time.March, 20))
	assert.Equal(t, time.Monday, got.Weekday())

	// Candidates on/after the change resolve Tuesdays.
	got = r.NextOccurrence(change)
	assert.Equal(t, time.Tuesday, got.Weekday())
	assert.True(t, datetime.SameDay(got, change))
}

func TestNextOccurrenceMonthlyClamped(t *testing.T) {
	anchor := datetime.NewDate(2021, time.January, 31)
	cal := domain.MeetingCalendar{
		Rules: []domain.CalendarRule{{
			Frequency:     domain.RecurrenceMonthly,
			Interval:      1,
			DayOfMonth:    31,
			StartDate:     anchor,
			EffectiveFrom: anchor,
		}},
	}
	r := Resolver{Calendar: cal}

	// February has no 31st; the occurrence clamps to the last day.
	got := r.NextOccurrence(datetime.NewDate(2021, time.February, 1))
	assert.True(t, datetime.SameDay(got, datetime.NewDate(2021, time.February, 28)),
		"got %s", got)
}

func TestNextOccurrenceSkipsFirstOfMonth(t *testing.T) {
	anchor := datetime.NewDate(2021, time.March, 1)
	cal := domain.MeetingCalendar{
		Rules: []domain.CalendarRule{{
			Frequency:     domain.RecurrenceMonthly,
			Interval:      1,
			DayOfMonth:    1,
			StartDate:     anchor,
			EffectiveFrom: anchor,
		}},
		SkipFirstDayOfMonth: true,
	}
	r := Resolver{Calendar: cal}

	got := r.NextOccurrence(datetime.NewDate(2021, time.April, 1))
	assert.True(t, datetime.SameDay(got, datetime.NewDate(2021, time.April, 2)), "got %s", got)
}

func TestNextOccurrenceWorkingDayShift(t *testing.T) {
	anchor := datetime.NewDate(2014, time.March, 2) // a Sunday
	cal := weeklyCalendar(time.Sunday, anchor)
	var working [7]bool
	for d := time.Monday; d <= time.Friday; d++ {
		working[int(d)] = true
	}
	cal.WorkingDays = working
	r := Resolver{Calendar: cal}

	// Sunday occurrences shift forward to Monday.
	got := r.NextOccurrence(anchor)
	assert.Equal(t, time.Monday, got.Weekday())
	assert.True(t, datetime.SameDay(got, datetime.NewDate(2014, time.March, 3)))
}

func TestDueDatesProjection(t *testing.T) {
	anchor := datetime.NewDate(2014, time.March, 3)
	r := Resolver{Calendar: weeklyCalendar(time.Monday, anchor)}

	dates := r.DueDates(anchor.AddDate(0, 0, 1), 4)
	require.Len(t, dates, 4)
	prev := anchor
	for _, d := range dates {
		assert.Equal(t, time.Monday, d.Weekday())
		assert.True(t, d.After(prev))
		prev = d
	}
	assert.True(t, datetime.SameDay(dates[0], datetime.NewDate(2014, time.March, 10)))
	assert.True(t, datetime.SameDay(dates[3], datetime.NewDate(2014, time.March, 31)))
}

func TestStepDate(t *testing.T) {
	from := datetime.NewDate(2020, time.January, 31)

	monthly := domain.LoanTerms{RepaymentFrequency: domain.PeriodFrequencyMonths, RepaymentEvery: 1}
	assert.True(t, datetime.SameDay(StepDate(monthly, from), datetime.NewDate(2020, time.March, 2)))

	weekly := domain.LoanTerms{RepaymentFrequency: domain.PeriodFrequencyWeeks, RepaymentEvery: 2}
	assert.True(t, datetime.SameDay(StepDate(weekly, from), datetime.NewDate(2020, time.February, 14)))

	daily := domain.LoanTerms{RepaymentFrequency: domain.PeriodFrequencyDays, RepaymentEvery: 10}
	assert.True(t, datetime.SameDay(StepDate(daily, from), datetime.NewDate(2020, time.February, 10)))
}
