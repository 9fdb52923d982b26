package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pradipta/schedule-engine/internal/domain"
	"github.com/pradipta/schedule-engine/internal/repository"
	"github.com/pradipta/schedule-engine/internal/schedule"
	"github.com/pradipta/schedule-engine/pkg/datetime"
	customError "github.com/pradipta/schedule-engine/pkg/errors"
)

// RescheduleService runs the request/approval workflow. Submitting never
// touches the schedule; only approval feeds the parameters into the
// recalculation engine.
type RescheduleService struct {
	Requests repository.RescheduleRepository
	Loans    *LoanService
	log      *logrus.Entry
}

func NewRescheduleService(requests repository.RescheduleRepository, loans *LoanService) *RescheduleService {
	return &RescheduleService{
		Requests: requests,
		Loans:    loans,
		log:      logrus.WithField("component", "reschedule-service"),
	}
}

// Submit stages a reschedule request in the submitted state.
func (s *RescheduleService) Submit(ctx context.Context, req *domain.SubmitRescheduleRequest) (*domain.RescheduleRequest, error) {
	if _, err := s.Loans.LoanRepo.GetByLoanID(ctx, req.LoanID); err != nil {
		return nil, customError.WrapLoanNotFound(req.LoanID)
	}
	if req.NewInterestRate != nil && req.NewInterestRate.IsNegative() {
		return nil, customError.WrapInvalidTerms("new interest rate must not be negative")
	}

	request := &domain.RescheduleRequest{
		ID:                uuid.New(),
		LoanID:            req.LoanID,
		RescheduleFrom:    req.RescheduleFrom.Time(),
		NewInterestRate:   req.NewInterestRate,
		PrincipalGrace:    req.PrincipalGrace,
		InterestFreeGrace: req.InterestFreeGrace,
		Reason:            req.Reason,
		SubmittedBy:       req.SubmittedBy,
		SubmittedAt:       time.Now(),
		Status:            domain.RescheduleStatusSubmitted,
	}
	if req.AdjustedDueDate != nil {
		adjusted := req.AdjustedDueDate.Time()
		request.AdjustedDueDate = &adjusted
	}

	if err := s.Requests.Create(ctx, request); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	s.log.WithFields(logrus.Fields{
		"request_id": request.ID,
		"loan_id":    request.LoanID,
	}).Info("reschedule request submitted")
	return request, nil
}

// Approve transitions the request to approved and recalculates the loan's
// schedule with its parameters as of the reschedule-from date.
func (s *RescheduleService) Approve(ctx context.Context, requestID uuid.UUID, decidedBy string) (*domain.RescheduleRequest, error) {
	request, err := s.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, customError.WrapRescheduleRequestNotFound(requestID.String())
	}
	if request.Status.Terminal() {
		return nil, customError.WrapInvalidRequestState(requestID.String(), string(request.Status))
	}

	overrides := &schedule.Overrides{
		NewInterestRate:   request.NewInterestRate,
		PrincipalGrace:    request.PrincipalGrace,
		InterestFreeGrace: request.InterestFreeGrace,
		AdjustedDueDate:   request.AdjustedDueDate,
	}
	err = s.Loans.RecalculateWithOverrides(ctx, request.LoanID, datetime.Date(request.RescheduleFrom), overrides)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	request.Status = domain.RescheduleStatusApproved
	request.DecidedBy = decidedBy
	request.DecidedAt = &now
	if err := s.Requests.Update(ctx, request); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	s.log.WithFields(logrus.Fields{
		"request_id": request.ID,
		"loan_id":    request.LoanID,
	}).Info("reschedule request approved")
	return request, nil
}

// Reject transitions the request to rejected; the schedule is untouched.
func (s *RescheduleService) Reject(ctx context.Context, requestID uuid.UUID, decidedBy string) (*domain.RescheduleRequest, error) {
	request, err := s.Requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, customError.WrapRescheduleRequestNotFound(requestID.String())
	}
	if request.Status.Terminal() {
		return nil, customError.WrapInvalidRequestState(requestID.String(), string(request.Status))
	}

	now := time.Now()
	request.Status = domain.RescheduleStatusRejected
	request.DecidedBy = decidedBy
	request.DecidedAt = &now
	if err := s.Requests.Update(ctx, request); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return request, nil
}
