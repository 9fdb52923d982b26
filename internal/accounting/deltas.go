package accounting

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	Debit  Side = "debit"
	Credit Side = "credit"
)

// AccountRole names the ledger account a delta targets. The engine never
// performs double-entry posting itself; it emits deltas for the accounting
// collaborator to consume.
type AccountRole string

const (
	RoleLoanPortfolio      AccountRole = "loan-portfolio"
	RoleFundSource         AccountRole = "fund-source"
	RoleInterestReceivable AccountRole = "interest-receivable"
	RoleInterestIncome     AccountRole = "interest-income"
	RoleSubsidyReserve     AccountRole = "subsidy-reserve"
)

type JournalDelta struct {
	Date        time.Time       `json:"date"`
	Side        Side            `json:"side"`
	AccountRole AccountRole     `json:"account_role"`
	Amount      decimal.Decimal `json:"amount"`
}

// Poster is the accounting collaborator.
type Poster interface {
	Post(ctx context.Context, loanID string, deltas []JournalDelta) error
}

// NopPoster discards deltas; used when no accounting collaborator is wired.
type NopPoster struct{}

func (NopPoster) Post(ctx context.Context, loanID string, deltas []JournalDelta) error {
	return nil
}

func DisbursementDeltas(date time.Time, amount decimal.Decimal) []JournalDelta {
	return []JournalDelta{
		{Date: date, Side: Debit, AccountRole: RoleLoanPortfolio, Amount: amount},
		{Date: date, Side: Credit, AccountRole: RoleFundSource, Amount: amount},
	}
}

func UndoDisbursalDeltas(date time.Time, amount decimal.Decimal) []JournalDelta {
	return []JournalDelta{
		{Date: date, Side: Debit, AccountRole: RoleFundSource, Amount: amount},
		{Date: date, Side: Credit, AccountRole: RoleLoanPortfolio, Amount: amount},
	}
}

func RepaymentDeltas(date time.Time, principal, interest decimal.Decimal) []JournalDelta {
	deltas := []JournalDelta{
		{Date: date, Side: Debit, AccountRole: RoleFundSource, Amount: principal.Add(interest)},
		{Date: date, Side: Credit, AccountRole: RoleLoanPortfolio, Amount: principal},
	}
	if interest.IsPositive() {
		deltas = append(deltas, JournalDelta{Date: date, Side: Credit, AccountRole: RoleInterestIncome, Amount: interest})
	}
	return deltas
}

func AccrualDeltas(date time.Time, interest decimal.Decimal) []JournalDelta {
	return []JournalDelta{
		{Date: date, Side: Debit, AccountRole: RoleInterestReceivable, Amount: interest},
		{Date: date, Side: Credit, AccountRole: RoleInterestIncome, Amount: interest},
	}
}

func SubsidyGrantDeltas(date time.Time, amount decimal.Decimal) []JournalDelta {
	return []JournalDelta{
		{Date: date, Side: Debit, AccountRole: RoleSubsidyReserve, Amount: amount},
		{Date: date, Side: Credit, AccountRole: RoleLoanPortfolio, Amount: amount},
	}
}

func SubsidyRevokeDeltas(date time.Time, amount decimal.Decimal) []JournalDelta {
	return []JournalDelta{
		{Date: date, Side: Debit, AccountRole: RoleLoanPortfolio, Amount: amount},
		{Date: date, Side: Credit, AccountRole: RoleSubsidyReserve, Amount: amount},
	}
}
