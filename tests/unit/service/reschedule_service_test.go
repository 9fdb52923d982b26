package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pradipta/schedule-engine/internal/domain"
	loanService "github.com/pradipta/schedule-engine/internal/service"
	"github.com/pradipta/schedule-engine/pkg/datetime"
	"github.com/pradipta/schedule-engine/tests/mocks"
)

func newRescheduleService() (*loanService.RescheduleService, *mocks.MockRescheduleRepository, *serviceMocks) {
	loans, m := newTestService()
	requests := &mocks.MockRescheduleRepository{}
	return loanService.NewRescheduleService(requests, loans), requests, m
}

func TestSubmitReschedule(t *testing.T) {
	tests := []struct {
		name          string
		request       *domain.SubmitRescheduleRequest
		setupMocks    func(*mocks.MockRescheduleRepository, *serviceMocks)
		expectedError bool
		errorContains string
	}{
		{
			name: "Success - request staged as submitted",
			request: &domain.SubmitRescheduleRequest{
				LoanID:         "LOAN-001",
				RescheduleFrom: datetime.DateTriple{Year: 2020, Month: time.June, Day: 1},
				Reason:         "borrower hardship",
				SubmittedBy:    "officer-1",
			},
			setupMocks: func(requests *mocks.MockRescheduleRepository, m *serviceMocks) {
				m.loanRepo.On("GetByLoanID", mock.Anything, "LOAN-001").Return(activeLoan(), nil)
				requests.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.RescheduleRequest) bool {
					return r.Status == domain.RescheduleStatusSubmitted && r.LoanID == "LOAN-001"
				})).Return(nil)
			},
		},
		{
			name: "Failure - loan not found",
			request: &domain.SubmitRescheduleRequest{
				LoanID:         "MISSING",
				RescheduleFrom: datetime.DateTriple{Year: 2020, Month: time.June, Day: 1},
				SubmittedBy:    "officer-1",
			},
			setupMocks: func(requests *mocks.MockRescheduleRepository, m *serviceMocks) {
				m.loanRepo.On("GetByLoanID", mock.Anything, "MISSING").Return(nil, errors.New("sql: no rows in result set"))
			},
			expectedError: true,
			errorContains: "LOAN_NOT_FOUND",
		},
		{
			name: "Failure - negative interest rate",
			request: func() *domain.SubmitRescheduleRequest {
				rate := decimal.NewFromInt(-1)
				return &domain.SubmitRescheduleRequest{
					LoanID:          "LOAN-001",
					RescheduleFrom:  datetime.DateTriple{Year: 2020, Month: time.June, Day: 1},
					NewInterestRate: &rate,
					SubmittedBy:     "officer-1",
				}
			}(),
			setupMocks: func(requests *mocks.MockRescheduleRepository, m *serviceMocks) {
				m.loanRepo.On("GetByLoanID", mock.Anything, "LOAN-001").Return(activeLoan(), nil)
			},
			expectedError: true,
			errorContains: "INVALID_TERMS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, requests, m := newRescheduleService()
			tt.setupMocks(requests, m)

			staged, err := svc.Submit(context.Background(), tt.request)
			if tt.expectedError {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				requests.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.RescheduleStatusSubmitted, staged.Status)
			assert.NotEqual(t, uuid.Nil, staged.ID)
			// Submitting never mutates the schedule.
			m.loanRepo.AssertNotCalled(t, "SaveMutation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			requests.AssertExpectations(t)
		})
	}
}

func TestApproveReschedule(t *testing.T) {
	t.Run("Success - approval recalculates with the request parameters", func(t *testing.T) {
		svc, requests, m := newRescheduleService()
		loan := activeLoan()
		newRate := decimal.NewFromInt(1)
		requestID := uuid.New()
		staged := &domain.RescheduleRequest{
			ID:              requestID,
			LoanID:          "LOAN-001",
			RescheduleFrom:  datetime.NewDate(2020, time.June, 1),
			NewInterestRate: &newRate,
			Status:          domain.RescheduleStatusSubmitted,
		}

		requests.On("GetByID", mock.Anything, requestID).Return(staged, nil)
		m.loanRepo.On("GetByLoanID", mock.Anything, "LOAN-001").Return(loan, nil)
		m.loanRepo.On("GetScheduleByLoanID", mock.Anything, "LOAN-001").Return(buildSchedule(t, loan), nil)
		m.trancheRepo.On("GetByLoanID", mock.Anything, "LOAN-001").Return([]domain.DisbursementTranche{}, nil)
		m.subsidyRepo.On("GetByLoanID", mock.Anything, "LOAN-001").Return([]domain.SubsidyEvent{}, nil)
		m.loanRepo.On("SaveMutation", mock.Anything,
			mock.MatchedBy(func(l *domain.Loan) bool {
				// The approved rate lands on the loan itself.
				return l.Terms.InterestRate.Equal(newRate)
			}),
			mock.Anything, mock.Anything, mock.Anything).Return(nil)
		requests.On("Update", mock.Anything, mock.MatchedBy(func(r *domain.RescheduleRequest) bool {
			return r.Status == domain.RescheduleStatusApproved && r.DecidedBy == "manager-1"
		})).Return(nil)

		decided, err := svc.Approve(context.Background(), requestID, "manager-1")
		require.NoError(t, err)
		assert.Equal(t, domain.RescheduleStatusApproved, decided.Status)
		require.NotNil(t, decided.DecidedAt)
		requests.AssertExpectations(t)
		m.loanRepo.AssertExpectations(t)
	})

	t.Run("Failure - terminal request cannot be decided again", func(t *testing.T) {
		svc, requests, _ := newRescheduleService()
		requestID := uuid.New()
		requests.On("GetByID", mock.Anything, requestID).Return(&domain.RescheduleRequest{
			ID:     requestID,
			LoanID: "LOAN-001",
			Status: domain.RescheduleStatusRejected,
		}, nil)

		_, err := svc.Approve(context.Background(), requestID, "manager-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "INVALID_REQUEST_STATE")
		requests.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("Failure - unknown request", func(t *testing.T) {
		svc, requests, _ := newRescheduleService()
		requestID := uuid.New()
		requests.On("GetByID", mock.Anything, requestID).Return(nil, errors.New("sql: no rows in result set"))

		_, err := svc.Approve(context.Background(), requestID, "manager-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RESCHEDULE_REQUEST_NOT_FOUND")
	})
}

func TestRejectReschedule(t *testing.T) {
	svc, requests, m := newRescheduleService()
	requestID := uuid.New()
	requests.On("GetByID", mock.Anything, requestID).Return(&domain.RescheduleRequest{
		ID:     requestID,
		LoanID: "LOAN-001",
		Status: domain.RescheduleStatusSubmitted,
	}, nil)
	requests.On("Update", mock.Anything, mock.MatchedBy(func(r *domain.RescheduleRequest) bool {
		return r.Status == domain.RescheduleStatusRejected
	})).Return(nil)

	decided, err := svc.Reject(context.Background(), requestID, "manager-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RescheduleStatusRejected, decided.Status)
	// Rejection leaves the schedule untouched.
	m.loanRepo.AssertNotCalled(t, "SaveMutation", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	requests.AssertExpectations(t)
}
