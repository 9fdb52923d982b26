package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pradipta/schedule-engine/internal/domain"
	"github.com/pradipta/schedule-engine/pkg/datetime"
	apperrors "github.com/pradipta/schedule-engine/pkg/errors"
)

// TrancheLedger tracks planned vs actually-disbursed principal tranches for
// one loan. It is an in-memory ledger; persistence happens at the service
// boundary together with the schedule recomputation.
type TrancheLedger struct {
	loanID          string
	maxCount        int
	requireExpected bool
	tranches        []domain.DisbursementTranche
	nextSeq         int
}

// NewTrancheLedger builds a ledger over the loan's existing tranches.
func NewTrancheLedger(loan *domain.Loan, tranches []domain.DisbursementTranche) *TrancheLedger {
	l := &TrancheLedger{
		loanID:          loan.LoanID,
		maxCount:        loan.MaxTrancheCount,
		requireExpected: loan.RequireExpectedDisbursementDate,
		tranches:        make([]domain.DisbursementTranche, len(tranches)),
	}
	copy(l.tranches, tranches)
	sort.Slice(l.tranches, func(i, j int) bool {
		return l.tranches[i].ExpectedDate.Before(l.tranches[j].ExpectedDate)
	})
	for _, t := range l.tranches {
		if t.DisbursalSeq > l.nextSeq {
			l.nextSeq = t.DisbursalSeq
		}
	}
	return l
}

// Add plans a new tranche. Expected dates are unique across the loan,
// disbursed or not.
func (l *TrancheLedger) Add(expectedDate time.Time, principal decimal.Decimal) (*domain.DisbursementTranche, error) {
	expectedDate = datetime.Date(expectedDate)
	if !principal.IsPositive() {
		return nil, apperrors.WrapInvalidTerms("tranche principal must be greater than zero")
	}
	for _, t := range l.tranches {
		if datetime.SameDay(t.ExpectedDate, expectedDate) {
			return nil, apperrors.WrapDuplicateDisbursementDate(datetime.FromTime(expectedDate).String())
		}
	}
	if l.maxCount > 0 && len(l.tranches) >= l.maxCount {
		return nil, apperrors.WrapMaxTrancheCountExceeded(l.maxCount)
	}

	tranche := domain.DisbursementTranche{
		ID:           uuid.New(),
		LoanID:       l.loanID,
		ExpectedDate: expectedDate,
		Principal:    principal,
		CreatedAt:    time.Now(),
	}
	l.tranches = append(l.tranches, tranche)
	l.sortByExpected()
	return &tranche, nil
}

// Edit changes an un-disbursed tranche's expected date and amount.
func (l *TrancheLedger) Edit(id uuid.UUID, newDate time.Time, newAmount decimal.Decimal) error {
	newDate = datetime.Date(newDate)
	idx := l.indexOf(id)
	if idx < 0 {
		return apperrors.WrapTrancheNotFound(id.String())
	}
	if l.tranches[idx].Disbursed {
		return apperrors.WrapTrancheAlreadyDisbursed(id.String())
	}
	if !newAmount.IsPositive() {
		return apperrors.WrapInvalidTerms("tranche principal must be greater than zero")
	}
	for i, t := range l.tranches {
		if i != idx && datetime.SameDay(t.ExpectedDate, newDate) {
			return apperrors.WrapDuplicateDisbursementDate(datetime.FromTime(newDate).String())
		}
	}
	l.tranches[idx].ExpectedDate = newDate
	l.tranches[idx].Principal = newAmount
	l.sortByExpected()
	return nil
}

// Delete removes an un-disbursed tranche.
func (l *TrancheLedger) Delete(id uuid.UUID) error {
	idx := l.indexOf(id)
	if idx < 0 {
		return apperrors.WrapTrancheNotFound(id.String())
	}
	if l.tranches[idx].Disbursed {
		return apperrors.WrapTrancheAlreadyDisbursed(id.String())
	}
	l.tranches = append(l.tranches[:idx], l.tranches[idx+1:]...)
	return nil
}

// Disburse marks the tranche disbursed on actualDate. A nil actualAmount
// keeps the planned principal.
func (l *TrancheLedger) Disburse(id uuid.UUID, actualDate time.Time, actualAmount *decimal.Decimal) (*domain.DisbursementTranche, error) {
	actualDate = datetime.Date(actualDate)
	idx := l.indexOf(id)
	if idx < 0 {
		return nil, apperrors.WrapTrancheNotFound(id.String())
	}
	t := &l.tranches[idx]
	if t.Disbursed {
		return nil, apperrors.WrapTrancheAlreadyDisbursed(id.String())
	}
	if l.requireExpected && !datetime.SameDay(t.ExpectedDate, actualDate) {
		return nil, apperrors.WrapDisbursementDateMismatch(
			datetime.FromTime(t.ExpectedDate).String(),
			datetime.FromTime(actualDate).String(),
		)
	}
	if actualAmount != nil {
		if !actualAmount.IsPositive() {
			return nil, apperrors.WrapInvalidTerms("disbursed amount must be greater than zero")
		}
		t.Principal = *actualAmount
	}
	t.Disbursed = true
	t.ActualDate = &actualDate
	l.nextSeq++
	t.DisbursalSeq = l.nextSeq

	out := *t
	return &out, nil
}

// UndoLastDisbursal reverses the most recently disbursed tranche, by
// disbursal order rather than expected-date order, and returns its
// principal amount.
func (l *TrancheLedger) UndoLastDisbursal() (decimal.Decimal, *domain.DisbursementTranche, error) {
	lastIdx := -1
	for i, t := range l.tranches {
		if t.Disbursed && (lastIdx < 0 || t.DisbursalSeq > l.tranches[lastIdx].DisbursalSeq) {
			lastIdx = i
		}
	}
	if lastIdx < 0 {
		return decimal.Zero, nil, apperrors.WrapNoDisbursedTranche(l.loanID)
	}
	t := &l.tranches[lastIdx]
	amount := t.Principal
	t.Disbursed = false
	t.ActualDate = nil
	t.DisbursalSeq = 0

	out := *t
	return amount, &out, nil
}

// ValidateOnApproval enforces the tranche-sum invariants against the
// approved and proposed principal amounts.
func (l *TrancheLedger) ValidateOnApproval(approved, proposed decimal.Decimal) error {
	sum := l.TotalPlanned()
	if sum.GreaterThan(approved) {
		return apperrors.WrapTrancheSumExceedsApproved(sum.String(), approved.String())
	}
	if sum.GreaterThan(proposed) {
		return apperrors.WrapTrancheSumExceedsProposed(sum.String(), proposed.String())
	}
	return nil
}

// TotalPlanned sums all tranche principals, disbursed or not.
func (l *TrancheLedger) TotalPlanned() decimal.Decimal {
	sum := decimal.Zero
	for _, t := range l.tranches {
		sum = sum.Add(t.Principal)
	}
	return sum
}

// TotalDisbursed sums principal actually paid out.
func (l *TrancheLedger) TotalDisbursed() decimal.Decimal {
	sum := decimal.Zero
	for _, t := range l.tranches {
		if t.Disbursed {
			sum = sum.Add(t.Principal)
		}
	}
	return sum
}

// Tranches returns the ledger's rows ordered by expected date.
func (l *TrancheLedger) Tranches() []domain.DisbursementTranche {
	out := make([]domain.DisbursementTranche, len(l.tranches))
	copy(out, l.tranches)
	return out
}

// LastPlannedDate returns the latest effective date across all tranches,
// or the zero time for an empty ledger. Principal amortization starts once
// the schedule passes this date.
func (l *TrancheLedger) LastPlannedDate() time.Time {
	var last time.Time
	for _, t := range l.tranches {
		if d := t.EffectiveDate(); d.After(last) {
			last = d
		}
	}
	return last
}

func (l *TrancheLedger) indexOf(id uuid.UUID) int {
	for i, t := range l.tranches {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (l *TrancheLedger) sortByExpected() {
	sort.Slice(l.tranches, func(i, j int) bool {
		return l.tranches[i].ExpectedDate.Before(l.tranches[j].ExpectedDate)
	})
}
