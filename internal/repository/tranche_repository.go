package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/pradipta/schedule-engine/internal/domain"
)

type trancheRepository struct {
	db *sqlx.DB
}

func NewTrancheRepository(db *sqlx.DB) TrancheRepository {
	return &trancheRepository{db: db}
}

func (r *trancheRepository) GetByLoanID(ctx context.Context, loanID string) ([]domain.DisbursementTranche, error) {
	query := `
		SELECT id, loan_id, expected_date, principal, disbursed, actual_date, disbursal_seq, created_at
		FROM loan_tranches
		WHERE loan_id = $1
		ORDER BY expected_date
	`

	var tranches []domain.DisbursementTranche
	if err := r.db.SelectContext(ctx, &tranches, query, loanID); err != nil {
		return nil, err
	}
	return tranches, nil
}

type subsidyRepository struct {
	db *sqlx.DB
}

func NewSubsidyRepository(db *sqlx.DB) SubsidyRepository {
	return &subsidyRepository{db: db}
}

func (r *subsidyRepository) GetByLoanID(ctx context.Context, loanID string) ([]domain.SubsidyEvent, error) {
	query := `
		SELECT id, loan_id, effective_date, amount, direction, created_at
		FROM subsidy_events
		WHERE loan_id = $1
		ORDER BY effective_date
	`

	var events []domain.SubsidyEvent
	if err := r.db.SelectContext(ctx, &events, query, loanID); err != nil {
		return nil, err
	}
	return events, nil
}
