package schedule

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pradipta/schedule-engine/internal/domain"
	"github.com/pradipta/schedule-engine/pkg/datetime"
	apperrors "github.com/pradipta/schedule-engine/pkg/errors"
)

// SubsidyProvider supplies the active subsidy amount at a date. The engine
// subtracts it from the interest-bearing balance of open periods only.
type SubsidyProvider interface {
	EffectiveSubsidy(atDate time.Time) decimal.Decimal
}

// Overrides carries the parameter changes of an approved reschedule request.
type Overrides struct {
	NewInterestRate   *decimal.Decimal
	PrincipalGrace    *int
	InterestFreeGrace *int
	AdjustedDueDate   *time.Time
}

// Input is everything a recalculation operates on. The engine never mutates
// its input; it returns a fresh schedule.
type Input struct {
	Loan          *domain.Loan
	Periods       []domain.RepaymentPeriod
	Tranches      []domain.DisbursementTranche
	Subsidies     SubsidyProvider
	Resolver      *Resolver
	EffectiveDate time.Time
	Overrides     *Overrides
}

// Engine regenerates the remaining schedule whenever a mutating event
// occurs: disbursement, tranche edits, calendar changes, subsidy events,
// approved reschedules, and out-of-schedule repayments.
type Engine struct {
	Calc Calculator
}

func NewEngine(calc Calculator) Engine {
	return Engine{Calc: calc}
}

// balanceEvent is a principal join (tranche) taking effect at a date.
type balanceEvent struct {
	date   time.Time
	amount decimal.Decimal
}

// Recalculate freezes fully settled periods due before the effective date
// and rebuilds everything after it from the current outstanding balance.
func (e Engine) Recalculate(in Input) ([]domain.RepaymentPeriod, error) {
	effective := datetime.Date(in.EffectiveDate)
	terms := in.Loan.Terms
	settings := in.Loan.Settings
	if in.Overrides != nil {
		if in.Overrides.NewInterestRate != nil {
			terms.InterestRate = *in.Overrides.NewInterestRate
		}
		if in.Overrides.PrincipalGrace != nil {
			terms.PrincipalGrace = *in.Overrides.PrincipalGrace
		}
		if in.Overrides.InterestFreeGrace != nil {
			terms.InterestFreeGrace = *in.Overrides.InterestFreeGrace
		}
	}
	if terms.InterestRate.IsNegative() {
		return nil, apperrors.WrapInvalidTerms("interest rate must not be negative")
	}

	frozen, open, err := splitSettled(in.Loan.LoanID, in.Periods, effective)
	if err != nil {
		return nil, err
	}

	outstanding, err := e.outstandingAt(in, effective)
	if err != nil {
		return nil, err
	}

	remaining := terms.TermPeriods - len(frozen)
	if remaining <= 0 {
		if outstanding.IsZero() {
			return renumber(frozen), nil
		}
		return nil, apperrors.WrapIrreconcilableReschedule(in.Loan.LoanID)
	}

	// Unpaid interest from periods already due. Non-compounding settings
	// carry it as an arrear on the first recomputed period; compounding
	// settings fold it into the interest base.
	arrears := interestArrears(in.Periods, effective, settings.Compounding)
	compounded := decimal.Zero
	carried := decimal.Zero
	if settings.Compounding == domain.CompoundingNone {
		carried = arrears
	} else {
		compounded = arrears
	}

	// An effective date inside the first open period keeps the existing
	// cadence; one past an open due date restarts it from the interruption.
	fromDate := effective
	if len(open) > 0 && !effective.After(datetime.Date(open[0].DueDate)) {
		if len(frozen) > 0 {
			fromDate = datetime.Date(frozen[len(frozen)-1].DueDate)
		} else {
			fromDate = datetime.Date(open[0].FromDate)
		}
	}

	nextDue := e.dueDateSource(terms, in.Resolver, in.Overrides, fromDate)
	events := futureEvents(in, effective)
	lastTrancheDate := lastPlannedTrancheDate(in.Tranches)

	priorInstallment := currentInstallment(open)
	rate := PeriodicRate(terms, terms.InterestRate)
	daily := DailyRate(terms, terms.InterestRate)

	tail := make([]domain.RepaymentPeriod, 0, remaining)
	balance := outstanding
	from := fromDate
	installment := decimal.Zero
	maxPeriods := remaining
	if settings.Strategy == domain.StrategyReduceInstallments {
		// The tail may lengthen when payments shrink relative to interest.
		maxPeriods = terms.TermPeriods * 4
		if maxPeriods < remaining {
			maxPeriods = remaining
		}
	}

	eventIdx := 0
	for i := 0; i < maxPeriods; i++ {
		due := nextDue()
		if !due.After(from) {
			return nil, apperrors.WrapIrreconcilableReschedule(in.Loan.LoanID)
		}

		// Tranches effective on/before the period start join the balance
		// outright; mid-period ones are handled inside the interest calc.
		var midPeriod []balanceEvent
		for eventIdx < len(events) && !events[eventIdx].date.After(due) {
			ev := events[eventIdx]
			if ev.date.After(from) {
				midPeriod = append(midPeriod, ev)
			} else {
				balance = balance.Add(ev.amount)
			}
			eventIdx++
		}

		subsidy := decimal.Zero
		if in.Subsidies != nil {
			subsidy = in.Subsidies.EffectiveSubsidy(due)
		}

		interest := decimal.Zero
		if i >= terms.InterestFreeGrace {
			interest = e.openPeriodInterest(terms, settings, balance, compounded, subsidy, rate, daily, from, due, midPeriod)
		}
		if i == 0 {
			interest = interest.Add(carried)
		}

		// Mid-period joins are part of the closing balance regardless of
		// the rest frequency; resting only defers their interest effect.
		for _, ev := range midPeriod {
			balance = balance.Add(ev.amount)
		}

		interestOnly := !lastTrancheDate.IsZero() && due.Before(lastTrancheDate)
		var principalDue decimal.Decimal
		switch {
		case i < terms.PrincipalGrace || interestOnly:
			principalDue = decimal.Zero
		case settings.Strategy == domain.StrategyReduceInstallments:
			if priorInstallment.IsPositive() {
				installment = priorInstallment
			} else if installment.IsZero() {
				installment = Annuity(balance, rate, remaining-i).Round(e.Calc.CurrencyDigits)
			}
			principalDue = installment.Sub(interest).Round(e.Calc.CurrencyDigits)
		default:
			if installment.IsZero() {
				if terms.FixedEMI != nil {
					installment = *terms.FixedEMI
				} else if terms.Amortization == domain.AmortizationEqualPrincipal {
					installment = balance.Div(decimal.NewFromInt(int64(remaining - i))).Round(e.Calc.CurrencyDigits)
				} else {
					installment = Annuity(balance, rate, remaining-i).Round(e.Calc.CurrencyDigits)
				}
			}
			if terms.Amortization == domain.AmortizationEqualPrincipal {
				principalDue = installment
			} else {
				principalDue = installment.Sub(interest).Round(e.Calc.CurrencyDigits)
			}
		}
		if principalDue.IsNegative() {
			principalDue = decimal.Zero
		}

		// The final period absorbs the rounding residue so the balance
		// lands on exactly zero.
		lastFixedPeriod := settings.Strategy != domain.StrategyReduceInstallments && i == remaining-1 && !interestOnly
		if lastFixedPeriod || principalDue.GreaterThan(balance) {
			principalDue = balance
		}

		balance = balance.Sub(principalDue)
		tail = append(tail, domain.RepaymentPeriod{
			FromDate:           from,
			DueDate:            due,
			PrincipalDue:       principalDue,
			PrincipalPaid:      decimal.Zero,
			InterestDue:        interest,
			InterestPaid:       decimal.Zero,
			FeesDue:            decimal.Zero,
			PenaltiesDue:       decimal.Zero,
			OutstandingBalance: balance,
		})
		from = due

		if balance.IsZero() && eventIdx >= len(events) {
			break
		}
	}

	if !balance.IsZero() {
		return nil, apperrors.WrapIrreconcilableReschedule(in.Loan.LoanID)
	}

	carryPayments(open, tail)
	return renumber(append(frozen, tail...)), nil
}

// carryPayments preserves amounts already paid on open periods across a
// rebuild, matched by due date. The principal ledger stays consistent
// because the outstanding balance already nets out all principal paid.
func carryPayments(old, rebuilt []domain.RepaymentPeriod) {
	for i := range rebuilt {
		for _, p := range old {
			if datetime.SameDay(p.DueDate, rebuilt[i].DueDate) {
				rebuilt[i].PrincipalPaid = p.PrincipalPaid
				rebuilt[i].InterestPaid = p.InterestPaid
				break
			}
		}
	}
}

// Payoff computes the amounts owed on an early close: the full outstanding
// principal plus interest accrued per the pre-close interest rule.
func (e Engine) Payoff(in Input, closeDate time.Time) (principal, interest decimal.Decimal, err error) {
	closeDate = datetime.Date(closeDate)
	principal, err = e.outstandingAt(in, closeDate)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	terms := in.Loan.Terms
	settings := in.Loan.Settings
	accrueFrom := datetime.Date(in.Loan.DisbursementDate)
	for _, p := range in.Periods {
		due := datetime.Date(p.DueDate)
		if due.After(closeDate) {
			break
		}
		accrueFrom = due
		interest = interest.Add(p.InterestOutstanding())
	}

	accrueTo := closeDate
	if settings.PreCloseInterest == domain.PreCloseInterestTillRestDate {
		accrueTo = restBoundaryAfter(settings, terms, accrueFrom, closeDate)
	}

	subsidy := decimal.Zero
	if in.Subsidies != nil {
		subsidy = in.Subsidies.EffectiveSubsidy(closeDate)
	}
	base := principal.Sub(subsidy)
	if base.IsNegative() {
		base = decimal.Zero
	}
	daily := DailyRate(terms, terms.InterestRate)
	days := decimal.NewFromInt(int64(datetime.DaysBetween(accrueFrom, accrueTo)))
	interest = interest.Add(base.Mul(daily).Mul(days).Round(e.Calc.InternalDigits))
	return principal, interest, nil
}

// openPeriodInterest computes interest for one recomputed period, resting
// mid-period balance joins to the configured rest boundary.
func (e Engine) openPeriodInterest(terms domain.LoanTerms, settings domain.RecalculationSettings,
	balance, compounded, subsidy, rate, daily decimal.Decimal,
	from, due time.Time, midPeriod []balanceEvent) decimal.Decimal {

	base := func(b decimal.Decimal) decimal.Decimal {
		adjusted := b.Add(compounded).Sub(subsidy)
		if adjusted.IsNegative() {
			return decimal.Zero
		}
		return adjusted
	}

	if terms.InterestCalcPeriod != domain.InterestCalcDaily {
		// Flat periodic rate on the balance as rested at period start;
		// mid-period joins only affect subsequent periods.
		return base(balance).Mul(rate).Round(e.Calc.InternalDigits)
	}

	// Daily interest: split the period at each rest-adjusted join date and
	// day-weight the segments.
	type segment struct {
		start time.Time
		bal   decimal.Decimal
	}
	segments := []segment{{start: from, bal: balance}}
	running := balance
	for _, ev := range midPeriod {
		at := restAdjusted(settings, ev.date, from, due)
		if !at.Before(due) {
			continue
		}
		running = running.Add(ev.amount)
		segments = append(segments, segment{start: at, bal: running})
	}

	interest := decimal.Zero
	for i, seg := range segments {
		end := due
		if i+1 < len(segments) {
			end = segments[i+1].start
		}
		days := decimal.NewFromInt(int64(datetime.DaysBetween(seg.start, end)))
		interest = interest.Add(base(seg.bal).Mul(daily).Mul(days))
	}
	return interest.Round(e.Calc.InternalDigits)
}

// dueDateSource returns a generator of successive due dates, honoring an
// adjusted first date from a reschedule and the meeting calendar when one
// is linked.
func (e Engine) dueDateSource(terms domain.LoanTerms, resolver *Resolver, ov *Overrides, fromDate time.Time) func() time.Time {
	var prev time.Time
	first := true
	return func() time.Time {
		if first {
			first = false
			switch {
			case ov != nil && ov.AdjustedDueDate != nil:
				prev = datetime.Date(*ov.AdjustedDueDate)
			case resolver != nil:
				prev = resolver.NextOccurrence(fromDate.AddDate(0, 0, 1))
			default:
				prev = StepDate(terms, fromDate)
			}
			return prev
		}
		if resolver != nil {
			prev = resolver.NextOccurrence(prev.AddDate(0, 0, 1))
		} else {
			prev = StepDate(terms, prev)
		}
		return prev
	}
}

// outstandingAt establishes the principal balance at a date: everything
// disbursed on/before it minus everything repaid.
func (e Engine) outstandingAt(in Input, at time.Time) (decimal.Decimal, error) {
	disbursed := decimal.Zero
	if len(in.Tranches) == 0 {
		disbursed = in.Loan.Terms.Principal
	} else {
		for _, t := range in.Tranches {
			if t.Disbursed && !datetime.Date(t.EffectiveDate()).After(at) {
				disbursed = disbursed.Add(t.Principal)
			}
		}
	}
	paid := decimal.Zero
	for _, p := range in.Periods {
		paid = paid.Add(p.PrincipalPaid)
	}
	outstanding := disbursed.Sub(paid)
	if outstanding.IsNegative() {
		return decimal.Zero, apperrors.WrapRunningBalanceNotCalculated(in.Loan.LoanID)
	}
	return outstanding, nil
}

// splitSettled freezes the fully settled prefix due before the effective
// date. Payments applied out of order leave no settled baseline and abort
// the recalculation.
func splitSettled(loanID string, periods []domain.RepaymentPeriod, effective time.Time) (frozen, open []domain.RepaymentPeriod, err error) {
	i := 0
	for ; i < len(periods); i++ {
		p := periods[i]
		if datetime.Date(p.DueDate).Before(effective) && p.Settled() {
			frozen = append(frozen, p)
			continue
		}
		break
	}
	if i < len(periods) && datetime.Date(periods[i].DueDate).Before(effective) {
		// An overdue period is still open; a settled period after it means
		// payments were applied out of order and no baseline exists.
		for j := i + 1; j < len(periods); j++ {
			if periods[j].PrincipalPaid.IsPositive() && periods[j].Settled() {
				return nil, nil, apperrors.WrapRunningBalanceNotCalculated(loanID)
			}
		}
	}
	open = periods[i:]
	return frozen, open, nil
}

// interestArrears sums unpaid interest (and fees, for interest-and-fees
// compounding) on periods already due.
func interestArrears(periods []domain.RepaymentPeriod, effective time.Time, compounding domain.CompoundingMethod) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range periods {
		if !datetime.Date(p.DueDate).Before(effective) {
			break
		}
		if out := p.InterestOutstanding(); out.IsPositive() {
			sum = sum.Add(out)
		}
		if compounding == domain.CompoundingInterestAndFees {
			if fees := p.FeesDue; fees.IsPositive() {
				sum = sum.Add(fees)
			}
		}
	}
	return sum
}

// futureEvents lists tranche principal joins at/after the effective date.
// Undisbursed tranches whose expected date already passed join immediately.
func futureEvents(in Input, effective time.Time) []balanceEvent {
	var events []balanceEvent
	for _, t := range in.Tranches {
		d := datetime.Date(t.EffectiveDate())
		if t.Disbursed {
			if d.After(effective) {
				events = append(events, balanceEvent{date: d, amount: t.Principal})
			}
			continue
		}
		if d.Before(effective) {
			d = effective
		}
		events = append(events, balanceEvent{date: d, amount: t.Principal})
	}
	sort.Slice(events, func(i, j int) bool { return events[i].date.Before(events[j].date) })
	return events
}

func lastPlannedTrancheDate(tranches []domain.DisbursementTranche) time.Time {
	var last time.Time
	for _, t := range tranches {
		if d := datetime.Date(t.EffectiveDate()); d.After(last) {
			last = d
		}
	}
	return last
}

// currentInstallment finds the loan's established payment amount from the
// first open amortizing period, used when the reschedule strategy holds the
// installment constant.
func currentInstallment(open []domain.RepaymentPeriod) decimal.Decimal {
	for _, p := range open {
		if p.PrincipalDue.IsPositive() {
			return p.PrincipalDue.Add(p.InterestDue)
		}
	}
	return decimal.Zero
}

// restAdjusted snaps a balance-change date forward to the next rest
// boundary within the period.
func restAdjusted(settings domain.RecalculationSettings, d, periodFrom, periodDue time.Time) time.Time {
	interval := settings.RestInterval
	if interval < 1 {
		interval = 1
	}
	switch settings.RestFrequency {
	case domain.RestDaily:
		return d
	case domain.RestWeekly:
		step := 7 * interval
		at := periodFrom
		for at.Before(d) {
			at = at.AddDate(0, 0, step)
		}
		return at
	case domain.RestMonthly:
		at := periodFrom
		for at.Before(d) {
			at = at.AddDate(0, interval, 0)
		}
		return at
	default:
		// Same-as-repayment rests at period boundaries.
		return periodDue
	}
}

// restBoundaryAfter returns the first rest boundary on/after d, anchored at
// the last settled due date. Used by the till-rest-frequency-date pre-close
// interest rule.
func restBoundaryAfter(settings domain.RecalculationSettings, terms domain.LoanTerms, anchor, d time.Time) time.Time {
	interval := settings.RestInterval
	if interval < 1 {
		interval = 1
	}
	at := anchor
	for at.Before(d) {
		switch settings.RestFrequency {
		case domain.RestDaily:
			return d
		case domain.RestWeekly:
			at = at.AddDate(0, 0, 7*interval)
		case domain.RestMonthly:
			at = at.AddDate(0, interval, 0)
		default:
			at = StepDate(terms, at)
		}
	}
	return at
}

func renumber(periods []domain.RepaymentPeriod) []domain.RepaymentPeriod {
	for i := range periods {
		periods[i].Number = i + 1
	}
	return periods
}
