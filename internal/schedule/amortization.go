package schedule

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pradipta/schedule-engine/internal/domain"
	apperrors "github.com/pradipta/schedule-engine/pkg/errors"
	"github.com/pradipta/schedule-engine/pkg/datetime"
)

var (
	one         = decimal.NewFromInt(1)
	hundred     = decimal.NewFromInt(100)
	daysPerYear = decimal.NewFromInt(365)
)

// Calculator produces period-by-period principal/interest splits for a
// single principal amount. It is a pure function over its inputs; the
// recalculation engine reuses it to rebuild the open tail of a schedule.
type Calculator struct {
	// CurrencyDigits is the display precision; principal portions round to
	// it half-up, with the residual absorbed by the final period.
	CurrencyDigits int32
	// InternalDigits is the intermediate precision carried by interest
	// figures to avoid cumulative rounding drift.
	InternalDigits int32
}

func NewCalculator(currencyDigits int32) Calculator {
	return Calculator{CurrencyDigits: currencyDigits, InternalDigits: currencyDigits + 4}
}

// PlanPeriod is one computed row: Balance is the principal outstanding
// after the period's principal falls due.
type PlanPeriod struct {
	FromDate  time.Time
	DueDate   time.Time
	Principal decimal.Decimal
	Interest  decimal.Decimal
	Balance   decimal.Decimal
}

// Plan amortizes principal over the given due dates, assuming a single,
// unchanged disbursement on startDate.
func (c Calculator) Plan(terms domain.LoanTerms, principal decimal.Decimal, startDate time.Time, dueDates []time.Time) ([]PlanPeriod, error) {
	if err := validateTerms(terms, principal); err != nil {
		return nil, err
	}
	if len(dueDates) == 0 {
		return nil, apperrors.WrapInvalidTerms("no repayment periods")
	}
	amortizing := len(dueDates) - terms.PrincipalGrace
	if amortizing <= 0 {
		return nil, apperrors.WrapInvalidTerms("principal grace consumes the whole term")
	}

	rate := PeriodicRate(terms, terms.InterestRate)
	daily := DailyRate(terms, terms.InterestRate)

	installment := decimal.Zero
	switch terms.Amortization {
	case domain.AmortizationEqualInstallments:
		if terms.FixedEMI != nil {
			installment = *terms.FixedEMI
		} else {
			installment = Annuity(principal, rate, amortizing).Round(c.CurrencyDigits)
		}
	case domain.AmortizationEqualPrincipal:
		installment = principal.Div(decimal.NewFromInt(int64(amortizing))).Round(c.CurrencyDigits)
	default:
		return nil, apperrors.WrapInvalidTerms("unknown amortization type")
	}

	periods := make([]PlanPeriod, 0, len(dueDates))
	balance := principal
	from := datetime.Date(startDate)

	for i, due := range dueDates {
		due = datetime.Date(due)
		interest := decimal.Zero
		if i >= terms.InterestFreeGrace {
			interest = c.PeriodInterest(terms, balance, rate, daily, from, due)
		}

		var principalDue decimal.Decimal
		last := i == len(dueDates)-1
		switch {
		case i < terms.PrincipalGrace:
			principalDue = decimal.Zero
		case last:
			principalDue = balance
		case terms.Amortization == domain.AmortizationEqualPrincipal:
			principalDue = installment
		default:
			principalDue = installment.Sub(interest).Round(c.CurrencyDigits)
			if principalDue.IsNegative() {
				principalDue = decimal.Zero
			}
		}
		if principalDue.GreaterThan(balance) {
			principalDue = balance
		}

		balance = balance.Sub(principalDue)
		periods = append(periods, PlanPeriod{
			FromDate:  from,
			DueDate:   due,
			Principal: principalDue,
			Interest:  interest,
			Balance:   balance,
		})
		from = due

		// A fixed-EMI override can clear the balance before the nominal
		// term runs out; the tail simply drops off.
		if balance.IsZero() && !last {
			break
		}
	}

	return periods, nil
}

// PeriodInterest computes one period's interest on balance: actual day
// counts under daily interest-calculation, flat periodic rate otherwise.
func (c Calculator) PeriodInterest(terms domain.LoanTerms, balance, rate, daily decimal.Decimal, from, due time.Time) decimal.Decimal {
	if balance.IsNegative() {
		return decimal.Zero
	}
	var interest decimal.Decimal
	if terms.InterestCalcPeriod == domain.InterestCalcDaily {
		days := decimal.NewFromInt(int64(datetime.DaysBetween(from, due)))
		interest = balance.Mul(daily).Mul(days)
	} else {
		interest = balance.Mul(rate)
	}
	return interest.Round(c.InternalDigits)
}

// Annuity solves for the constant per-period payment that amortizes
// principal to zero over n periods at periodic rate r.
func Annuity(principal, rate decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	periods := decimal.NewFromInt(int64(n))
	if rate.IsZero() {
		return principal.Div(periods)
	}
	compound := one.Add(rate).Pow(periods)
	return principal.Mul(rate).Mul(compound).Div(compound.Sub(one))
}

// PeriodicRate converts the nominal rate (percent per RateFrequency) to a
// fraction per repayment period.
func PeriodicRate(terms domain.LoanTerms, nominalRate decimal.Decimal) decimal.Decimal {
	fraction := nominalRate.Div(hundred)
	switch terms.RepaymentFrequency {
	case domain.PeriodFrequencyMonths:
		months := decimal.NewFromInt(int64(terms.RepaymentEvery))
		switch terms.RateFrequency {
		case domain.RateFrequencyMonthly:
			return fraction.Mul(months)
		case domain.RateFrequencyYearly:
			return fraction.Mul(months).Div(decimal.NewFromInt(12))
		case domain.RateFrequencyDaily:
			return fraction.Mul(daysPerYear).Mul(months).Div(decimal.NewFromInt(12))
		}
	case domain.PeriodFrequencyWeeks:
		days := decimal.NewFromInt(int64(7 * terms.RepaymentEvery))
		return annualFraction(terms.RateFrequency, fraction).Mul(days).Div(daysPerYear)
	case domain.PeriodFrequencyDays:
		days := decimal.NewFromInt(int64(terms.RepaymentEvery))
		return annualFraction(terms.RateFrequency, fraction).Mul(days).Div(daysPerYear)
	}
	return fraction
}

// DailyRate converts the nominal rate to a fraction per day.
func DailyRate(terms domain.LoanTerms, nominalRate decimal.Decimal) decimal.Decimal {
	fraction := nominalRate.Div(hundred)
	return annualFraction(terms.RateFrequency, fraction).Div(daysPerYear)
}

func annualFraction(freq domain.RateFrequency, fraction decimal.Decimal) decimal.Decimal {
	switch freq {
	case domain.RateFrequencyDaily:
		return fraction.Mul(daysPerYear)
	case domain.RateFrequencyMonthly:
		return fraction.Mul(decimal.NewFromInt(12))
	}
	return fraction
}

func validateTerms(terms domain.LoanTerms, principal decimal.Decimal) error {
	if !principal.IsPositive() {
		return apperrors.WrapInvalidTerms("principal must be greater than zero")
	}
	if terms.TermPeriods <= 0 {
		return apperrors.WrapInvalidTerms("term must be greater than zero")
	}
	if terms.InterestRate.IsNegative() {
		return apperrors.WrapInvalidTerms("interest rate must not be negative")
	}
	if terms.RepaymentEvery <= 0 {
		return apperrors.WrapInvalidTerms("repayment interval must be greater than zero")
	}
	return nil
}
