package ledger

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pradipta/schedule-engine/internal/domain"
	"github.com/pradipta/schedule-engine/pkg/datetime"
	apperrors "github.com/pradipta/schedule-engine/pkg/errors"
)

func trancheTestLoan() *domain.Loan {
	return &domain.Loan{
		LoanID:            "LOAN-001",
		ApprovedPrincipal: decimal.NewFromInt(10000),
		ProposedPrincipal: decimal.NewFromInt(10000),
		MaxTrancheCount:   3,
	}
}

func TestTrancheLedgerAdd(t *testing.T) {
	l := NewTrancheLedger(trancheTestLoan(), nil)
	date := datetime.NewDate(2020, time.March, 1)

	tranche, err := l.Add(date, decimal.NewFromInt(4000))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, tranche.ID)
	assert.False(t, tranche.Disbursed)
	assert.True(t, l.TotalPlanned().Equal(decimal.NewFromInt(4000)))

	_, err = l.Add(date, decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateDisbursementDate)

	_, err = l.Add(date.AddDate(0, 1, 0), decimal.Zero)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTerms)
}

func TestTrancheLedgerMaxCount(t *testing.T) {
	l := NewTrancheLedger(trancheTestLoan(), nil)
	date := datetime.NewDate(2020, time.March, 1)
	for i := 0; i < 3; i++ {
		_, err := l.Add(date.AddDate(0, i, 0), decimal.NewFromInt(1000))
		require.NoError(t, err)
	}

	_, err := l.Add(date.AddDate(0, 3, 0), decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, apperrors.ErrMaxTrancheCountExceeded)
}

func TestTrancheLedgerEditAndDelete(t *testing.T) {
	l := NewTrancheLedger(trancheTestLoan(), nil)
	first, err := l.Add(datetime.NewDate(2020, time.March, 1), decimal.NewFromInt(4000))
	require.NoError(t, err)
	second, err := l.Add(datetime.NewDate(2020, time.April, 1), decimal.NewFromInt(1000))
	require.NoError(t, err)

	// Moving onto another tranche's date is a duplicate.
	err = l.Edit(second.ID, datetime.NewDate(2020, time.March, 1), decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateDisbursementDate)

	err = l.Edit(second.ID, datetime.NewDate(2020, time.May, 1), decimal.NewFromInt(2000))
	require.NoError(t, err)
	assert.True(t, l.TotalPlanned().Equal(decimal.NewFromInt(6000)))

	// Disbursed tranches are immutable.
	_, err = l.Disburse(first.ID, datetime.NewDate(2020, time.March, 1), nil)
	require.NoError(t, err)
	err = l.Edit(first.ID, datetime.NewDate(2020, time.June, 1), decimal.NewFromInt(4000))
	assert.ErrorIs(t, err, apperrors.ErrTrancheAlreadyDisbursed)
	err = l.Delete(first.ID)
	assert.ErrorIs(t, err, apperrors.ErrTrancheAlreadyDisbursed)

	require.NoError(t, l.Delete(second.ID))
	assert.True(t, l.TotalPlanned().Equal(decimal.NewFromInt(4000)))

	err = l.Delete(uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrTrancheNotFound)
}

func TestTrancheLedgerDisburse(t *testing.T) {
	loan := trancheTestLoan()
	loan.RequireExpectedDisbursementDate = true
	l := NewTrancheLedger(loan, nil)
	expected := datetime.NewDate(2020, time.March, 1)
	tranche, err := l.Add(expected, decimal.NewFromInt(4000))
	require.NoError(t, err)

	// The product pins disbursal to the expected date.
	_, err = l.Disburse(tranche.ID, expected.AddDate(0, 0, 3), nil)
	assert.ErrorIs(t, err, apperrors.ErrDisbursementDateMismatch)

	actualAmount := decimal.NewFromInt(3500)
	disbursed, err := l.Disburse(tranche.ID, expected, &actualAmount)
	require.NoError(t, err)
	assert.True(t, disbursed.Disbursed)
	assert.Equal(t, 1, disbursed.DisbursalSeq)
	assert.True(t, disbursed.Principal.Equal(actualAmount))
	assert.True(t, l.TotalDisbursed().Equal(actualAmount))

	_, err = l.Disburse(tranche.ID, expected, nil)
	assert.ErrorIs(t, err, apperrors.ErrTrancheAlreadyDisbursed)
}

func TestTrancheLedgerUndoLastDisbursal(t *testing.T) {
	l := NewTrancheLedger(trancheTestLoan(), nil)

	_, _, err := l.UndoLastDisbursal()
	assert.ErrorIs(t, err, apperrors.ErrNoDisbursedTranche)

	first, err := l.Add(datetime.NewDate(2020, time.March, 1), decimal.NewFromInt(4000))
	require.NoError(t, err)
	second, err := l.Add(datetime.NewDate(2020, time.April, 1), decimal.NewFromInt(1000))
	require.NoError(t, err)
	_, err = l.Disburse(first.ID, datetime.NewDate(2020, time.March, 1), nil)
	require.NoError(t, err)
	_, err = l.Disburse(second.ID, datetime.NewDate(2020, time.April, 1), nil)
	require.NoError(t, err)

	// Undo walks disbursal order, so the April tranche reverses first.
	amount, undone, err := l.UndoLastDisbursal()
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(1000)), "got %s", amount)
	assert.Equal(t, second.ID, undone.ID)
	assert.False(t, undone.Disbursed)
	assert.True(t, l.TotalDisbursed().Equal(decimal.NewFromInt(4000)))

	// The undone tranche is plannable and disbursable again.
	redone, err := l.Disburse(second.ID, datetime.NewDate(2020, time.April, 5), nil)
	require.NoError(t, err)
	assert.True(t, redone.Disbursed)

	amount, undone, err = l.UndoLastDisbursal()
	require.NoError(t, err)
	assert.Equal(t, second.ID, undone.ID)
	assert.True(t, amount.Equal(decimal.NewFromInt(1000)))
	amount, undone, err = l.UndoLastDisbursal()
	require.NoError(t, err)
	assert.Equal(t, first.ID, undone.ID)
	assert.True(t, amount.Equal(decimal.NewFromInt(4000)))
}

func TestTrancheLedgerValidateOnApproval(t *testing.T) {
	l := NewTrancheLedger(trancheTestLoan(), nil)
	_, err := l.Add(datetime.NewDate(2020, time.March, 1), decimal.NewFromInt(7000))
	require.NoError(t, err)
	_, err = l.Add(datetime.NewDate(2020, time.April, 1), decimal.NewFromInt(3000))
	require.NoError(t, err)

	assert.NoError(t, l.ValidateOnApproval(decimal.NewFromInt(10000), decimal.NewFromInt(10000)))

	err = l.ValidateOnApproval(decimal.NewFromInt(9000), decimal.NewFromInt(10000))
	assert.ErrorIs(t, err, apperrors.ErrTrancheSumExceedsApproved)

	err = l.ValidateOnApproval(decimal.NewFromInt(10000), decimal.NewFromInt(9500))
	assert.ErrorIs(t, err, apperrors.ErrTrancheSumExceedsProposed)
}

func TestTrancheLedgerLastPlannedDate(t *testing.T) {
	l := NewTrancheLedger(trancheTestLoan(), nil)
	assert.True(t, l.LastPlannedDate().IsZero())

	_, err := l.Add(datetime.NewDate(2020, time.March, 1), decimal.NewFromInt(4000))
	require.NoError(t, err)
	later, err := l.Add(datetime.NewDate(2020, time.July, 1), decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.True(t, datetime.SameDay(l.LastPlannedDate(), later.ExpectedDate))
}
