package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/pradipta/schedule-engine/internal/domain"
)

// LoanRepository defines the interface for loan and schedule persistence.
type LoanRepository interface {
	// Create creates a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByLoanID retrieves a loan by its loan ID
	GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error)

	// Update updates a loan
	Update(ctx context.Context, loan *domain.Loan) error

	// GetScheduleByLoanID retrieves the repayment periods for a loan
	GetScheduleByLoanID(ctx context.Context, loanID string) ([]domain.RepaymentPeriod, error)

	// SaveMutation atomically persists the loan, its recomputed schedule and
	// ledger rows in one transaction. Partial application of a mutation is
	// an invariant violation, so everything lands or nothing does.
	SaveMutation(ctx context.Context, loan *domain.Loan, periods []domain.RepaymentPeriod,
		tranches []domain.DisbursementTranche, subsidies []domain.SubsidyEvent) error

	// ListActiveLoanIDs lists loans eligible for batch accrual
	ListActiveLoanIDs(ctx context.Context) ([]string, error)
}

// TrancheRepository defines the interface for disbursement tranche rows.
type TrancheRepository interface {
	GetByLoanID(ctx context.Context, loanID string) ([]domain.DisbursementTranche, error)
}

// SubsidyRepository defines the interface for subsidy event rows.
type SubsidyRepository interface {
	GetByLoanID(ctx context.Context, loanID string) ([]domain.SubsidyEvent, error)
}

// RescheduleRepository defines the interface for reschedule requests.
type RescheduleRepository interface {
	Create(ctx context.Context, request *domain.RescheduleRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.RescheduleRequest, error)
	Update(ctx context.Context, request *domain.RescheduleRequest) error
}

// CalendarRepository supplies meeting calendar definitions, including the
// version history of their recurrence rules.
type CalendarRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.MeetingCalendar, error)
	AppendRule(ctx context.Context, id uuid.UUID, rule domain.CalendarRule) error
}
