package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pradipta/schedule-engine/pkg/datetime"
)

// RescheduleStatus is a three-state machine: submitted is the only
// non-terminal state.
type RescheduleStatus string

const (
	RescheduleStatusSubmitted RescheduleStatus = "submitted"
	RescheduleStatusApproved  RescheduleStatus = "approved"
	RescheduleStatusRejected  RescheduleStatus = "rejected"
)

// Terminal reports whether the status admits no further transitions.
func (s RescheduleStatus) Terminal() bool {
	switch s {
	case RescheduleStatusApproved, RescheduleStatusRejected:
		return true
	case RescheduleStatusSubmitted:
		return false
	}
	return false
}

// RescheduleRequest stages a future recalculation pending approval.
// Submitting one never touches the schedule; approval feeds the parameters
// into the recalculation engine as of RescheduleFrom.
type RescheduleRequest struct {
	ID                uuid.UUID        `json:"id" db:"id"`
	LoanID            string           `json:"loan_id" db:"loan_id"`
	RescheduleFrom    time.Time        `json:"reschedule_from" db:"reschedule_from"`
	NewInterestRate   *decimal.Decimal `json:"new_interest_rate,omitempty" db:"new_interest_rate"`
	PrincipalGrace    *int             `json:"principal_grace,omitempty" db:"principal_grace"`
	InterestFreeGrace *int             `json:"interest_free_grace,omitempty" db:"interest_free_grace"`
	AdjustedDueDate   *time.Time       `json:"adjusted_due_date,omitempty" db:"adjusted_due_date"`
	Reason            string           `json:"reason" db:"reason"`
	SubmittedBy       string           `json:"submitted_by" db:"submitted_by"`
	SubmittedAt       time.Time        `json:"submitted_at" db:"submitted_at"`
	Status            RescheduleStatus `json:"status" db:"status"`
	DecidedBy         string           `json:"decided_by" db:"decided_by"`
	DecidedAt         *time.Time       `json:"decided_at,omitempty" db:"decided_at"`
}

type SubmitRescheduleRequest struct {
	LoanID            string               `json:"loan_id" validate:"required"`
	RescheduleFrom    datetime.DateTriple  `json:"reschedule_from" validate:"required"`
	NewInterestRate   *decimal.Decimal     `json:"new_interest_rate,omitempty"`
	PrincipalGrace    *int                 `json:"principal_grace,omitempty" validate:"omitempty,gte=0"`
	InterestFreeGrace *int                 `json:"interest_free_grace,omitempty" validate:"omitempty,gte=0"`
	AdjustedDueDate   *datetime.DateTriple `json:"adjusted_due_date,omitempty"`
	Reason            string               `json:"reason"`
	SubmittedBy       string               `json:"submitted_by" validate:"required"`
}

type RescheduleDecisionRequest struct {
	DecidedBy string `json:"decided_by" validate:"required"`
}

type RescheduleResponse struct {
	ID             uuid.UUID           `json:"id"`
	LoanID         string              `json:"loan_id"`
	RescheduleFrom datetime.DateTriple `json:"reschedule_from"`
	Status         RescheduleStatus    `json:"status"`
}

func (r RescheduleRequest) ToResponse() RescheduleResponse {
	return RescheduleResponse{
		ID:             r.ID,
		LoanID:         r.LoanID,
		RescheduleFrom: datetime.FromTime(r.RescheduleFrom),
		Status:         r.Status,
	}
}
