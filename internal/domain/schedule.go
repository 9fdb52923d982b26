package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/pradipta/schedule-engine/pkg/datetime"
)

// RepaymentPeriod is one row of the amortization schedule. Amounts are held
// at intermediate precision; display rounding happens at the response edge.
type RepaymentPeriod struct {
	Number             int             `json:"number" db:"number"`
	FromDate           time.Time       `json:"from_date" db:"from_date"`
	DueDate            time.Time       `json:"due_date" db:"due_date"`
	PrincipalDue       decimal.Decimal `json:"principal_due" db:"principal_due"`
	PrincipalPaid      decimal.Decimal `json:"principal_paid" db:"principal_paid"`
	InterestDue        decimal.Decimal `json:"interest_due" db:"interest_due"`
	InterestPaid       decimal.Decimal `json:"interest_paid" db:"interest_paid"`
	FeesDue            decimal.Decimal `json:"fees_due" db:"fees_due"`
	PenaltiesDue       decimal.Decimal `json:"penalties_due" db:"penalties_due"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance" db:"outstanding_balance"`
}

// Settled reports whether the period's principal is fully repaid.
func (p RepaymentPeriod) Settled() bool {
	return p.PrincipalPaid.GreaterThanOrEqual(p.PrincipalDue)
}

func (p RepaymentPeriod) PrincipalOutstanding() decimal.Decimal {
	return p.PrincipalDue.Sub(p.PrincipalPaid)
}

func (p RepaymentPeriod) InterestOutstanding() decimal.Decimal {
	return p.InterestDue.Sub(p.InterestPaid)
}

func (p RepaymentPeriod) TotalDue() decimal.Decimal {
	return p.PrincipalDue.Add(p.InterestDue).Add(p.FeesDue).Add(p.PenaltiesDue)
}

// PeriodResponse is the wire shape of a period: dates as [y, m, d] triples,
// amounts rounded to the currency's display precision.
type PeriodResponse struct {
	Number             int                 `json:"number"`
	FromDate           datetime.DateTriple `json:"from_date"`
	DueDate            datetime.DateTriple `json:"due_date"`
	PrincipalDue       decimal.Decimal     `json:"principal_due"`
	PrincipalPaid      decimal.Decimal     `json:"principal_paid"`
	InterestDue        decimal.Decimal     `json:"interest_due"`
	InterestPaid       decimal.Decimal     `json:"interest_paid"`
	FeesDue            decimal.Decimal     `json:"fees_due"`
	PenaltiesDue       decimal.Decimal     `json:"penalties_due"`
	OutstandingBalance decimal.Decimal     `json:"outstanding_balance"`
}

func (p RepaymentPeriod) ToResponse(currencyDigits int32) PeriodResponse {
	return PeriodResponse{
		Number:             p.Number,
		FromDate:           datetime.FromTime(p.FromDate),
		DueDate:            datetime.FromTime(p.DueDate),
		PrincipalDue:       p.PrincipalDue.Round(currencyDigits),
		PrincipalPaid:      p.PrincipalPaid.Round(currencyDigits),
		InterestDue:        p.InterestDue.Round(currencyDigits),
		InterestPaid:       p.InterestPaid.Round(currencyDigits),
		FeesDue:            p.FeesDue.Round(currencyDigits),
		PenaltiesDue:       p.PenaltiesDue.Round(currencyDigits),
		OutstandingBalance: p.OutstandingBalance.Round(currencyDigits),
	}
}

type ScheduleResponse struct {
	LoanID  string           `json:"loan_id"`
	Periods []PeriodResponse `json:"periods"`
}

func NewScheduleResponse(loanID string, periods []RepaymentPeriod, currencyDigits int32) *ScheduleResponse {
	resp := &ScheduleResponse{LoanID: loanID, Periods: make([]PeriodResponse, 0, len(periods))}
	for _, p := range periods {
		resp.Periods = append(resp.Periods, p.ToResponse(currencyDigits))
	}
	return resp
}
