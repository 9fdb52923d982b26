package schedule

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pradipta/schedule-engine/internal/domain"
	"github.com/pradipta/schedule-engine/pkg/datetime"
)

func monthlyTerms(principal int64, monthlyRatePct string, months int) domain.LoanTerms {
	rate, _ := decimal.NewFromString(monthlyRatePct)
	return domain.LoanTerms{
		Principal:          decimal.NewFromInt(principal),
		InterestRate:       rate,
		RateFrequency:      domain.RateFrequencyMonthly,
		TermPeriods:        months,
		RepaymentEvery:     1,
		RepaymentFrequency: domain.PeriodFrequencyMonths,
		Amortization:       domain.AmortizationEqualInstallments,
		InterestCalcPeriod: domain.InterestCalcSameAsRepayment,
	}
}

func monthlyDueDates(start time.Time, count int) []time.Time {
	dates := make([]time.Time, 0, count)
	for i := 1; i <= count; i++ {
		dates = append(dates, start.AddDate(0, i, 0))
	}
	return dates
}

func TestPlanEqualInstallments(t *testing.T) {
	calc := NewCalculator(2)
	terms := monthlyTerms(10000, "2.0", 12)
	start := datetime.NewDate(2014, time.March, 1)

	periods, err := calc.Plan(terms, terms.Principal, start, monthlyDueDates(start, 12))
	require.NoError(t, err)
	require.Len(t, periods, 12)

	// First period: interest on the full principal at the periodic rate.
	assert.True(t, periods[0].Interest.Equal(decimal.NewFromInt(200)),
		"expected 200, got %s", periods[0].Interest)
	assert.True(t, periods[0].Principal.Equal(decimal.RequireFromString("745.60")),
		"expected 745.60, got %s", periods[0].Principal)

	// Outstanding balance after the final period is exactly zero.
	assert.True(t, periods[11].Balance.IsZero(), "final balance %s", periods[11].Balance)

	// Principal portions sum back to the disbursed amount.
	sum := decimal.Zero
	for _, p := range periods {
		sum = sum.Add(p.Principal)
	}
	assert.True(t, sum.Equal(decimal.NewFromInt(10000)), "principal sum %s", sum)

	// Balances decline monotonically.
	prev := terms.Principal
	for _, p := range periods {
		assert.True(t, p.Balance.LessThanOrEqual(prev))
		prev = p.Balance
	}
}

func TestPlanEqualPrincipal(t *testing.T) {
	calc := NewCalculator(2)
	terms := monthlyTerms(1200, "2.0", 12)
	terms.Amortization = domain.AmortizationEqualPrincipal
	start := datetime.NewDate(2020, time.January, 1)

	periods, err := calc.Plan(terms, terms.Principal, start, monthlyDueDates(start, 12))
	require.NoError(t, err)
	require.Len(t, periods, 12)

	for i := 0; i < 11; i++ {
		assert.True(t, periods[i].Principal.Equal(decimal.NewFromInt(100)),
			"period %d principal %s", i+1, periods[i].Principal)
	}
	assert.True(t, periods[11].Balance.IsZero())
	assert.True(t, periods[0].Interest.Equal(decimal.NewFromInt(24)),
		"expected 24, got %s", periods[0].Interest)
	// Declining balance means declining interest.
	assert.True(t, periods[5].Interest.LessThan(periods[0].Interest))
}

func TestPlanDailyInterestDivergesFromPeriodic(t *testing.T) {
	calc := NewCalculator(2)
	start := datetime.NewDate(2021, time.March, 1)
	dueDates := monthlyDueDates(start, 12)

	flat := monthlyTerms(10000, "1.0", 12)
	flatPeriods, err := calc.Plan(flat, flat.Principal, start, dueDates)
	require.NoError(t, err)

	daily := flat
	daily.InterestCalcPeriod = domain.InterestCalcDaily
	dailyPeriods, err := calc.Plan(daily, daily.Principal, start, dueDates)
	require.NoError(t, err)

	// March has 31 days, so actual-day interest exceeds the flat periodic
	// figure of balance * 1%.
	assert.True(t, flatPeriods[0].Interest.Equal(decimal.NewFromInt(100)))
	assert.True(t, dailyPeriods[0].Interest.GreaterThan(flatPeriods[0].Interest),
		"daily %s vs flat %s", dailyPeriods[0].Interest, flatPeriods[0].Interest)
}

func TestPlanGracePeriods(t *testing.T) {
	calc := NewCalculator(2)
	terms := monthlyTerms(10000, "2.0", 12)
	terms.PrincipalGrace = 2
	terms.InterestFreeGrace = 1
	start := datetime.NewDate(2020, time.June, 1)

	periods, err := calc.Plan(terms, terms.Principal, start, monthlyDueDates(start, 12))
	require.NoError(t, err)
	require.Len(t, periods, 12)

	assert.True(t, periods[0].Principal.IsZero())
	assert.True(t, periods[0].Interest.IsZero())
	assert.True(t, periods[1].Principal.IsZero())
	assert.True(t, periods[1].Interest.IsPositive())
	assert.True(t, periods[2].Principal.IsPositive())
	assert.True(t, periods[11].Balance.IsZero())
}

func TestPlanFixedEMIShortensTail(t *testing.T) {
	calc := NewCalculator(2)
	terms := monthlyTerms(10000, "2.0", 12)
	fixed := decimal.NewFromInt(2000)
	terms.FixedEMI = &fixed
	start := datetime.NewDate(2020, time.January, 1)

	periods, err := calc.Plan(terms, terms.Principal, start, monthlyDueDates(start, 12))
	require.NoError(t, err)
	assert.Less(t, len(periods), 12)
	assert.True(t, periods[len(periods)-1].Balance.IsZero())
}

func TestPlanInvalidTerms(t *testing.T) {
	calc := NewCalculator(2)
	start := datetime.NewDate(2020, time.January, 1)
	dates := monthlyDueDates(start, 12)

	tests := []struct {
		name  string
		terms domain.LoanTerms
	}{
		{
			name:  "zero principal",
			terms: monthlyTerms(0, "2.0", 12),
		},
		{
			name: "negative rate",
			terms: func() domain.LoanTerms {
				tm := monthlyTerms(10000, "2.0", 12)
				tm.InterestRate = decimal.NewFromInt(-1)
				return tm
			}(),
		},
		{
			name: "zero term",
			terms: func() domain.LoanTerms {
				tm := monthlyTerms(10000, "2.0", 12)
				tm.TermPeriods = 0
				return tm
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.Plan(tt.terms, tt.terms.Principal, start, dates)
			assert.Error(t, err)
			assert.Contains(t, err.Error(), "INVALID_TERMS")
		})
	}
}

func TestAnnuityZeroRate(t *testing.T) {
	payment := Annuity(decimal.NewFromInt(1200), decimal.Zero, 12)
	assert.True(t, payment.Equal(decimal.NewFromInt(100)))
}

func TestPeriodicRateConversions(t *testing.T) {
	monthly := domain.LoanTerms{
		RateFrequency:      domain.RateFrequencyMonthly,
		RepaymentEvery:     1,
		RepaymentFrequency: domain.PeriodFrequencyMonths,
	}
	rate := PeriodicRate(monthly, decimal.NewFromInt(2))
	assert.True(t, rate.Equal(decimal.RequireFromString("0.02")), "got %s", rate)

	yearly := domain.LoanTerms{
		RateFrequency:      domain.RateFrequencyYearly,
		RepaymentEvery:     1,
		RepaymentFrequency: domain.PeriodFrequencyMonths,
	}
	rate = PeriodicRate(yearly, decimal.NewFromInt(24))
	assert.True(t, rate.Equal(decimal.RequireFromString("0.02")), "got %s", rate)
}
