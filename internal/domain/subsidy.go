package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type SubsidyDirection string

const (
	SubsidyGrant  SubsidyDirection = "grant"
	SubsidyRevoke SubsidyDirection = "revoke"
)

// SubsidyEvent reduces (grant) or restores (revoke) the balance used for
// interest computation. Principal amortization is never altered by subsidy.
type SubsidyEvent struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	LoanID        string           `json:"loan_id" db:"loan_id"`
	EffectiveDate time.Time        `json:"effective_date" db:"effective_date"`
	Amount        decimal.Decimal  `json:"amount" db:"amount"`
	Direction     SubsidyDirection `json:"direction" db:"direction"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
}
