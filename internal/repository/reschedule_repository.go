package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pradipta/schedule-engine/internal/domain"
)

type rescheduleRepository struct {
	db *sqlx.DB
}

func NewRescheduleRepository(db *sqlx.DB) RescheduleRepository {
	return &rescheduleRepository{db: db}
}

func (r *rescheduleRepository) Create(ctx context.Context, request *domain.RescheduleRequest) error {
	query := `
		INSERT INTO reschedule_requests (id, loan_id, reschedule_from, new_interest_rate,
		       principal_grace, interest_free_grace, adjusted_due_date, reason,
		       submitted_by, submitted_at, status, decided_by, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		request.ID, request.LoanID, request.RescheduleFrom, request.NewInterestRate,
		request.PrincipalGrace, request.InterestFreeGrace, request.AdjustedDueDate, request.Reason,
		request.SubmittedBy, request.SubmittedAt, request.Status, request.DecidedBy, request.DecidedAt,
	)
	return err
}

func (r *rescheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RescheduleRequest, error) {
	query := `
		SELECT id, loan_id, reschedule_from, new_interest_rate, principal_grace,
		       interest_free_grace, adjusted_due_date, reason, submitted_by,
		       submitted_at, status, decided_by, decided_at
		FROM reschedule_requests
		WHERE id = $1
	`

	var request domain.RescheduleRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *rescheduleRepository) Update(ctx context.Context, request *domain.RescheduleRequest) error {
	query := `
		UPDATE reschedule_requests
		SET status = $2, decided_by = $3, decided_at = $4
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, request.ID, request.Status, request.DecidedBy, request.DecidedAt)
	return err
}
