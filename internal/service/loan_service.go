package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/pradipta/schedule-engine/internal/accounting"
	"github.com/pradipta/schedule-engine/internal/config"
	"github.com/pradipta/schedule-engine/internal/domain"
	"github.com/pradipta/schedule-engine/internal/ledger"
	"github.com/pradipta/schedule-engine/internal/repository"
	"github.com/pradipta/schedule-engine/internal/schedule"
	"github.com/pradipta/schedule-engine/pkg/datetime"
	customError "github.com/pradipta/schedule-engine/pkg/errors"
)

// LoanService orchestrates schedule reads and mutations. Every mutation runs
// under the loan's lock and persists the loan, ledgers and recomputed
// schedule in one transaction; accounting deltas are emitted afterwards.
type LoanService struct {
	LoanRepo     repository.LoanRepository
	TrancheRepo  repository.TrancheRepository
	SubsidyRepo  repository.SubsidyRepository
	CalendarRepo repository.CalendarRepository
	Poster       accounting.Poster
	redis        *redis.Client
	config       *config.Config
	engine       schedule.Engine
	locks        sync.Map
	log          *logrus.Entry
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	trancheRepo repository.TrancheRepository,
	subsidyRepo repository.SubsidyRepository,
	calendarRepo repository.CalendarRepository,
	poster accounting.Poster,
	redisClient *redis.Client,
	cfg *config.Config,
) *LoanService {
	if poster == nil {
		poster = accounting.NopPoster{}
	}
	return &LoanService{
		LoanRepo:     loanRepo,
		TrancheRepo:  trancheRepo,
		SubsidyRepo:  subsidyRepo,
		CalendarRepo: calendarRepo,
		Poster:       poster,
		redis:        redisClient,
		config:       cfg,
		engine:       schedule.NewEngine(schedule.NewCalculator(int32(cfg.Business.CurrencyDigits))),
		log:          logrus.WithField("component", "loan-service"),
	}
}

// lockLoan serializes all recalculation for one loan; across loans the
// engine is embarrassingly parallel.
func (s *LoanService) lockLoan(loanID string) func() {
	v, _ := s.locks.LoadOrStore(loanID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// aggregate is the in-memory working set of one loan mutation.
type aggregate struct {
	loan      *domain.Loan
	periods   []domain.RepaymentPeriod
	tranches  *ledger.TrancheLedger
	subsidies *ledger.SubsidyLedger
	resolver  *schedule.Resolver
}

func (s *LoanService) loadAggregate(ctx context.Context, loanID string) (*aggregate, error) {
	loan, err := s.LoanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapLoanNotFound(loanID)
	}
	periods, err := s.LoanRepo.GetScheduleByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	tranches, err := s.TrancheRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	subsidies, err := s.SubsidyRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	agg := &aggregate{
		loan:      loan,
		periods:   periods,
		tranches:  ledger.NewTrancheLedger(loan, tranches),
		subsidies: ledger.NewSubsidyLedger(loanID, subsidies),
	}
	if loan.CalendarID != nil {
		cal, err := s.CalendarRepo.GetByID(ctx, *loan.CalendarID)
		if err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		agg.resolver = &schedule.Resolver{Calendar: *cal}
	}
	return agg, nil
}

// recalcAndSave recomputes the schedule from effectiveDate and persists the
// whole aggregate atomically. Consistency errors propagate without writing.
func (s *LoanService) recalcAndSave(ctx context.Context, agg *aggregate, effectiveDate time.Time, overrides *schedule.Overrides) error {
	recomputed, err := s.engine.Recalculate(schedule.Input{
		Loan:          agg.loan,
		Periods:       agg.periods,
		Tranches:      agg.tranches.Tranches(),
		Subsidies:     agg.subsidies,
		Resolver:      agg.resolver,
		EffectiveDate: effectiveDate,
		Overrides:     overrides,
	})
	if err != nil {
		if customError.IsConsistencyError(err) {
			s.log.WithField("loan_id", agg.loan.LoanID).WithError(err).Error("recalculation invariant breach")
		}
		return err
	}
	agg.periods = recomputed

	err = s.LoanRepo.SaveMutation(ctx, agg.loan, agg.periods, agg.tranches.Tranches(), agg.subsidies.Events())
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	s.invalidateScheduleCache(ctx, agg.loan.LoanID)
	return nil
}

// GetSchedule returns the loan's repayment schedule. Idempotent; reads go
// through the redis cache.
func (s *LoanService) GetSchedule(ctx context.Context, loanID string) (*domain.ScheduleResponse, error) {
	cacheKey := scheduleCacheKey(loanID)
	if s.redis != nil {
		if raw, err := s.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var cached domain.ScheduleResponse
			if json.Unmarshal(raw, &cached) == nil {
				return &cached, nil
			}
		}
	}

	loan, err := s.LoanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapLoanNotFound(loanID)
	}
	periods, err := s.LoanRepo.GetScheduleByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	resp := domain.NewScheduleResponse(loanID, periods, loan.CurrencyDigits)
	if s.redis != nil {
		if raw, err := json.Marshal(resp); err == nil {
			if err := s.redis.Set(ctx, cacheKey, raw, s.config.ScheduleCacheTTL()).Err(); err != nil {
				s.log.WithError(err).Warn("schedule cache write failed")
			}
		}
	}
	return resp, nil
}

// GetDisbursementDetails lists the loan's tranches. Idempotent, no mutation.
func (s *LoanService) GetDisbursementDetails(ctx context.Context, loanID string) (*domain.DisbursementDetailsResponse, error) {
	loan, err := s.LoanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapLoanNotFound(loanID)
	}
	tranches, err := s.TrancheRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	resp := &domain.DisbursementDetailsResponse{LoanID: loanID}
	for _, t := range ledger.NewTrancheLedger(loan, tranches).Tranches() {
		resp.Tranches = append(resp.Tranches, t.ToResponse(loan.CurrencyDigits))
	}
	return resp, nil
}

// AddTranche plans a new disbursement tranche and regenerates the open tail
// of the schedule from its expected date.
func (s *LoanService) AddTranche(ctx context.Context, loanID string, expectedDate time.Time, principal decimal.Decimal) (*domain.DisbursementTranche, error) {
	defer s.lockLoan(loanID)()

	agg, err := s.loadAggregate(ctx, loanID)
	if err != nil {
		return nil, err
	}
	tranche, err := agg.tranches.Add(expectedDate, principal)
	if err != nil {
		return nil, err
	}
	if err = agg.tranches.ValidateOnApproval(agg.loan.ApprovedPrincipal, agg.loan.ProposedPrincipal); err != nil {
		return nil, err
	}
	if err = s.recalcAndSave(ctx, agg, expectedDate, nil); err != nil {
		return nil, err
	}
	return tranche, nil
}

// EditTranche changes an un-disbursed tranche's date and amount.
func (s *LoanService) EditTranche(ctx context.Context, loanID string, trancheID uuid.UUID, newDate time.Time, newAmount decimal.Decimal) error {
	defer s.lockLoan(loanID)()

	agg, err := s.loadAggregate(ctx, loanID)
	if err != nil {
		return err
	}
	effective := earliestAffectedDate(agg.tranches, trancheID, newDate)
	if err = agg.tranches.Edit(trancheID, newDate, newAmount); err != nil {
		return err
	}
	if err = agg.tranches.ValidateOnApproval(agg.loan.ApprovedPrincipal, agg.loan.ProposedPrincipal); err != nil {
		return err
	}
	return s.recalcAndSave(ctx, agg, effective, nil)
}

// DeleteTranche removes an un-disbursed tranche.
func (s *LoanService) DeleteTranche(ctx context.Context, loanID string, trancheID uuid.UUID) error {
	defer s.lockLoan(loanID)()

	agg, err := s.loadAggregate(ctx, loanID)
	if err != nil {
		return err
	}
	effective := earliestAffectedDate(agg.tranches, trancheID, time.Time{})
	if err = agg.tranches.Delete(trancheID); err != nil {
		return err
	}
	return s.recalcAndSave(ctx, agg, effective, nil)
}

// Disburse pays out a tranche and emits the disbursement deltas.
func (s *LoanService) Disburse(ctx context.Context, loanID string, trancheID uuid.UUID, actualDate time.Time, amount *decimal.Decimal) error {
	defer s.lockLoan(loanID)()

	agg, err := s.loadAggregate(ctx, loanID)
	if err != nil {
		return err
	}
	tranche, err := agg.tranches.Disburse(trancheID, actualDate, amount)
	if err != nil {
		return err
	}
	if agg.loan.Status == domain.LoanStatusApproved {
		agg.loan.Status = domain.LoanStatusActive
		agg.loan.DisbursementDate = datetime.Date(actualDate)
	}
	if err = s.recalcAndSave(ctx, agg, actualDate, nil); err != nil {
		return err
	}
	s.post(ctx, loanID, accounting.DisbursementDeltas(datetime.Date(actualDate), tranche.Principal))
	return nil
}

// UndoLastDisbursal reverses the most recent disbursal and returns the
// reversed principal amount.
func (s *LoanService) UndoLastDisbursal(ctx context.Context, loanID string) (decimal.Decimal, error) {
	defer s.lockLoan(loanID)()

	agg, err := s.loadAggregate(ctx, loanID)
	if err != nil {
		return decimal.Zero, err
	}
	amount, tranche, err := agg.tranches.UndoLastDisbursal()
	if err != nil {
		return decimal.Zero, err
	}
	if err = s.recalcAndSave(ctx, agg, tranche.ExpectedDate, nil); err != nil {
		return decimal.Zero, err
	}
	s.post(ctx, loanID, accounting.UndoDisbursalDeltas(datetime.Date(time.Now()), amount))
	return amount.Round(agg.loan.CurrencyDigits), nil
}

// GrantSubsidy reduces the interest-bearing balance from date onwards.
func (s *LoanService) GrantSubsidy(ctx context.Context, loanID string, date time.Time, amount decimal.Decimal) error {
	defer s.lockLoan(loanID)()

	agg, err := s.loadAggregate(ctx, loanID)
	if err != nil {
		return err
	}
	event, err := agg.subsidies.Grant(date, amount)
	if err != nil {
		return err
	}
	if err = s.recalcAndSave(ctx, agg, date, nil); err != nil {
		return err
	}
	s.post(ctx, loanID, accounting.SubsidyGrantDeltas(event.EffectiveDate, event.Amount))
	return nil
}

// RevokeSubsidy restores unsubsidized interest computation from date.
func (s *LoanService) RevokeSubsidy(ctx context.Context, loanID string, date time.Time) error {
	defer s.lockLoan(loanID)()

	agg, err := s.loadAggregate(ctx, loanID)
	if err != nil {
		return err
	}
	event, err := agg.subsidies.Revoke(date)
	if err != nil {
		return err
	}
	if err = s.recalcAndSave(ctx, agg, date, nil); err != nil {
		return err
	}
	s.post(ctx, loanID, accounting.SubsidyRevokeDeltas(event.EffectiveDate, event.Amount))
	return nil
}

// ApplyRepayment allocates a payment across open periods, interest first,
// then triggers a recalculation from the transaction date. Early or late
// payments both come through here.
func (s *LoanService) ApplyRepayment(ctx context.Context, loanID string, date time.Time, amount decimal.Decimal) error {
	defer s.lockLoan(loanID)()

	if !amount.IsPositive() {
		return customError.WrapInvalidTerms("repayment amount must be greater than zero")
	}
	agg, err := s.loadAggregate(ctx, loanID)
	if err != nil {
		return err
	}

	remaining := amount
	var principalPaid, interestPaid decimal.Decimal
	for i := range agg.periods {
		p := &agg.periods[i]
		if !remaining.IsPositive() {
			break
		}
		if pay := decimal.Min(remaining, p.InterestOutstanding()); pay.IsPositive() {
			p.InterestPaid = p.InterestPaid.Add(pay)
			interestPaid = interestPaid.Add(pay)
			remaining = remaining.Sub(pay)
		}
		if pay := decimal.Min(remaining, p.PrincipalOutstanding()); pay.IsPositive() {
			p.PrincipalPaid = p.PrincipalPaid.Add(pay)
			principalPaid = principalPaid.Add(pay)
			remaining = remaining.Sub(pay)
		}
	}

	if err = s.recalcAndSave(ctx, agg, date, nil); err != nil {
		return err
	}

	if len(agg.periods) > 0 && agg.periods[len(agg.periods)-1].OutstandingBalance.IsZero() {
		allSettled := true
		for _, p := range agg.periods {
			if !p.Settled() {
				allSettled = false
				break
			}
		}
		if allSettled {
			agg.loan.Status = domain.LoanStatusClosed
			if err = s.LoanRepo.Update(ctx, agg.loan); err != nil {
				return customError.WrapDatabaseError(err)
			}
		}
	}

	s.post(ctx, loanID, accounting.RepaymentDeltas(datetime.Date(date), principalPaid, interestPaid))
	return nil
}

// ApplyCalendarChange records a new recurrence rule version and shifts only
// periods due on/after the rule's effective date.
func (s *LoanService) ApplyCalendarChange(ctx context.Context, loanID string, rule domain.CalendarRule) error {
	defer s.lockLoan(loanID)()

	agg, err := s.loadAggregate(ctx, loanID)
	if err != nil {
		return err
	}
	if agg.loan.CalendarID == nil {
		return customError.WrapInvalidTerms("loan is not linked to a meeting calendar")
	}
	if err = s.CalendarRepo.AppendRule(ctx, *agg.loan.CalendarID, rule); err != nil {
		return customError.WrapDatabaseError(err)
	}
	cal, err := s.CalendarRepo.GetByID(ctx, *agg.loan.CalendarID)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}
	agg.resolver = &schedule.Resolver{Calendar: *cal}
	return s.recalcAndSave(ctx, agg, rule.EffectiveFrom, nil)
}

// RecalculateWithOverrides reruns the engine with reschedule parameters.
// Invoked by the reschedule workflow on approval.
func (s *LoanService) RecalculateWithOverrides(ctx context.Context, loanID string, effectiveDate time.Time, overrides *schedule.Overrides) error {
	defer s.lockLoan(loanID)()

	agg, err := s.loadAggregate(ctx, loanID)
	if err != nil {
		return err
	}
	if overrides != nil && overrides.NewInterestRate != nil {
		agg.loan.Terms.InterestRate = *overrides.NewInterestRate
	}
	return s.recalcAndSave(ctx, agg, effectiveDate, overrides)
}

// PostAccrual accrues interest earned up to asOf for one loan and emits the
// accrual deltas. Used by the daily batch job.
func (s *LoanService) PostAccrual(ctx context.Context, loanID string, asOf time.Time) error {
	defer s.lockLoan(loanID)()

	agg, err := s.loadAggregate(ctx, loanID)
	if err != nil {
		return err
	}
	accrued := accruedInterest(agg.loan, agg.periods, asOf)
	if !accrued.IsPositive() {
		return nil
	}
	s.post(ctx, loanID, accounting.AccrualDeltas(datetime.Date(asOf), accrued))
	return nil
}

// ListActiveLoanIDs exposes the batch job's work list.
func (s *LoanService) ListActiveLoanIDs(ctx context.Context) ([]string, error) {
	ids, err := s.LoanRepo.ListActiveLoanIDs(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return ids, nil
}

func (s *LoanService) post(ctx context.Context, loanID string, deltas []accounting.JournalDelta) {
	if err := s.Poster.Post(ctx, loanID, deltas); err != nil {
		s.log.WithField("loan_id", loanID).WithError(err).Error("posting accounting deltas failed")
	}
}

func (s *LoanService) invalidateScheduleCache(ctx context.Context, loanID string) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, scheduleCacheKey(loanID)).Err(); err != nil {
		s.log.WithField("loan_id", loanID).WithError(err).Warn("schedule cache invalidation failed")
	}
}

func scheduleCacheKey(loanID string) string {
	return fmt.Sprintf("schedule:%s", loanID)
}

// accruedInterest sums interest earned up to asOf: full interest of periods
// already due plus a day-weighted share of the running period.
func accruedInterest(loan *domain.Loan, periods []domain.RepaymentPeriod, asOf time.Time) decimal.Decimal {
	asOf = datetime.Date(asOf)
	accrued := decimal.Zero
	for _, p := range periods {
		due := datetime.Date(p.DueDate)
		if !due.After(asOf) {
			accrued = accrued.Add(p.InterestDue)
			continue
		}
		from := datetime.Date(p.FromDate)
		if from.Before(asOf) {
			total := datetime.DaysBetween(from, due)
			elapsed := datetime.DaysBetween(from, asOf)
			if total > 0 {
				share := decimal.NewFromInt(int64(elapsed)).Div(decimal.NewFromInt(int64(total)))
				accrued = accrued.Add(p.InterestDue.Mul(share))
			}
		}
		break
	}
	return accrued.Round(loan.CurrencyDigits + 4)
}

// earliestAffectedDate picks the recalculation trigger date for a tranche
// edit or delete: the earlier of the tranche's current and new dates.
func earliestAffectedDate(l *ledger.TrancheLedger, trancheID uuid.UUID, newDate time.Time) time.Time {
	earliest := newDate
	for _, t := range l.Tranches() {
		if t.ID == trancheID {
			if earliest.IsZero() || t.ExpectedDate.Before(earliest) {
				earliest = t.ExpectedDate
			}
			break
		}
	}
	return earliest
}
