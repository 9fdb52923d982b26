package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pradipta/schedule-engine/pkg/datetime"
)

// DisbursementTranche is one planned or actual partial disbursement of the
// loan's principal. Expected dates are unique within a loan; a tranche is
// editable and deletable only while not disbursed.
type DisbursementTranche struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	LoanID       string          `json:"loan_id" db:"loan_id"`
	ExpectedDate time.Time       `json:"expected_date" db:"expected_date"`
	Principal    decimal.Decimal `json:"principal" db:"principal"`
	Disbursed    bool            `json:"disbursed" db:"disbursed"`
	ActualDate   *time.Time      `json:"actual_date,omitempty" db:"actual_date"`
	// DisbursalSeq orders tranches by when they were disbursed, which is the
	// order undo walks back through. Zero while not disbursed.
	DisbursalSeq int       `json:"disbursal_seq" db:"disbursal_seq"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// EffectiveDate is the date the tranche's principal joins the balance: the
// actual disbursal date once disbursed, the expected date before that.
func (t DisbursementTranche) EffectiveDate() time.Time {
	if t.Disbursed && t.ActualDate != nil {
		return *t.ActualDate
	}
	return t.ExpectedDate
}

type TrancheResponse struct {
	ID           uuid.UUID            `json:"id"`
	ExpectedDate datetime.DateTriple  `json:"expected_date"`
	Principal    decimal.Decimal      `json:"principal"`
	Disbursed    bool                 `json:"disbursed"`
	ActualDate   *datetime.DateTriple `json:"actual_date,omitempty"`
}

func (t DisbursementTranche) ToResponse(currencyDigits int32) TrancheResponse {
	resp := TrancheResponse{
		ID:           t.ID,
		ExpectedDate: datetime.FromTime(t.ExpectedDate),
		Principal:    t.Principal.Round(currencyDigits),
		Disbursed:    t.Disbursed,
	}
	if t.ActualDate != nil {
		actual := datetime.FromTime(*t.ActualDate)
		resp.ActualDate = &actual
	}
	return resp
}

type DisbursementDetailsResponse struct {
	LoanID   string            `json:"loan_id"`
	Tranches []TrancheResponse `json:"tranches"`
}
