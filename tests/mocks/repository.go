package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/pradipta/schedule-engine/internal/accounting"
	"github.com/pradipta/schedule-engine/internal/domain"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetScheduleByLoanID(ctx context.Context, loanID string) ([]domain.RepaymentPeriod, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RepaymentPeriod), args.Error(1)
}

func (m *MockLoanRepository) SaveMutation(ctx context.Context, loan *domain.Loan, periods []domain.RepaymentPeriod,
	tranches []domain.DisbursementTranche, subsidies []domain.SubsidyEvent) error {
	args := m.Called(ctx, loan, periods, tranches, subsidies)
	return args.Error(0)
}

func (m *MockLoanRepository) ListActiveLoanIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockTrancheRepository struct {
	mock.Mock
}

func (m *MockTrancheRepository) GetByLoanID(ctx context.Context, loanID string) ([]domain.DisbursementTranche, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DisbursementTranche), args.Error(1)
}

type MockSubsidyRepository struct {
	mock.Mock
}

func (m *MockSubsidyRepository) GetByLoanID(ctx context.Context, loanID string) ([]domain.SubsidyEvent, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SubsidyEvent), args.Error(1)
}

type MockRescheduleRepository struct {
	mock.Mock
}

func (m *MockRescheduleRepository) Create(ctx context.Context, request *domain.RescheduleRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockRescheduleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.RescheduleRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RescheduleRequest), args.Error(1)
}

func (m *MockRescheduleRepository) Update(ctx context.Context, request *domain.RescheduleRequest) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

type MockCalendarRepository struct {
	mock.Mock
}

func (m *MockCalendarRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.MeetingCalendar, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MeetingCalendar), args.Error(1)
}

func (m *MockCalendarRepository) AppendRule(ctx context.Context, id uuid.UUID, rule domain.CalendarRule) error {
	args := m.Called(ctx, id, rule)
	return args.Error(0)
}

type MockPoster struct {
	mock.Mock
}

func (m *MockPoster) Post(ctx context.Context, loanID string, deltas []accounting.JournalDelta) error {
	args := m.Called(ctx, loanID, deltas)
	return args.Error(0)
}
