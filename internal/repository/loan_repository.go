package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/pradipta/schedule-engine/internal/domain"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

const loanColumns = `
	id, loan_id, principal, interest_rate, rate_frequency, term_periods,
	repayment_every, repayment_frequency, amortization, interest_calc_period,
	fixed_emi, principal_grace, interest_free_grace,
	compounding, strategy, rest_frequency, rest_interval, pre_close_interest,
	approved_principal, proposed_principal, max_tranche_count,
	require_expected_disbursement_date, disbursement_date, calendar_id,
	currency_digits, status, created_at, updated_at
`

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
	`
	_, err := r.db.ExecContext(ctx, query, loanArgs(loan)...)
	return err
}

func (r *loanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE loan_id = $1`

	var row loanRow
	if err := r.db.GetContext(ctx, &row, query, loanID); err != nil {
		return nil, err
	}
	loan := row.toDomain()
	return &loan, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	return r.update(ctx, r.db, loan)
}

func (r *loanRepository) GetScheduleByLoanID(ctx context.Context, loanID string) ([]domain.RepaymentPeriod, error) {
	query := `
		SELECT number, from_date, due_date, principal_due, principal_paid,
		       interest_due, interest_paid, fees_due, penalties_due, outstanding_balance
		FROM loan_schedule
		WHERE loan_id = $1
		ORDER BY number
	`

	var periods []domain.RepaymentPeriod
	if err := r.db.SelectContext(ctx, &periods, query, loanID); err != nil {
		return nil, err
	}
	return periods, nil
}

func (r *loanRepository) SaveMutation(ctx context.Context, loan *domain.Loan, periods []domain.RepaymentPeriod,
	tranches []domain.DisbursementTranche, subsidies []domain.SubsidyEvent) error {

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err = r.update(ctx, tx, loan); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM loan_schedule WHERE loan_id = $1`, loan.LoanID); err != nil {
		return err
	}
	periodQuery := `
		INSERT INTO loan_schedule (loan_id, number, from_date, due_date, principal_due, principal_paid,
		                           interest_due, interest_paid, fees_due, penalties_due, outstanding_balance)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	for _, p := range periods {
		_, err = tx.ExecContext(ctx, periodQuery,
			loan.LoanID, p.Number, p.FromDate, p.DueDate, p.PrincipalDue, p.PrincipalPaid,
			p.InterestDue, p.InterestPaid, p.FeesDue, p.PenaltiesDue, p.OutstandingBalance,
		)
		if err != nil {
			return err
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM loan_tranches WHERE loan_id = $1`, loan.LoanID); err != nil {
		return err
	}
	trancheQuery := `
		INSERT INTO loan_tranches (id, loan_id, expected_date, principal, disbursed, actual_date, disbursal_seq, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, t := range tranches {
		_, err = tx.ExecContext(ctx, trancheQuery,
			t.ID, t.LoanID, t.ExpectedDate, t.Principal, t.Disbursed, t.ActualDate, t.DisbursalSeq, t.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM subsidy_events WHERE loan_id = $1`, loan.LoanID); err != nil {
		return err
	}
	subsidyQuery := `
		INSERT INTO subsidy_events (id, loan_id, effective_date, amount, direction, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, s := range subsidies {
		_, err = tx.ExecContext(ctx, subsidyQuery,
			s.ID, s.LoanID, s.EffectiveDate, s.Amount, s.Direction, s.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *loanRepository) ListActiveLoanIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `SELECT loan_id FROM loans WHERE status = $1 ORDER BY loan_id`, domain.LoanStatusActive)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *loanRepository) update(ctx context.Context, ext sqlx.ExtContext, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET principal = $2, interest_rate = $3, rate_frequency = $4, term_periods = $5,
		    repayment_every = $6, repayment_frequency = $7, amortization = $8,
		    interest_calc_period = $9, fixed_emi = $10, principal_grace = $11,
		    interest_free_grace = $12, compounding = $13, strategy = $14,
		    rest_frequency = $15, rest_interval = $16, pre_close_interest = $17,
		    approved_principal = $18, proposed_principal = $19, max_tranche_count = $20,
		    require_expected_disbursement_date = $21, disbursement_date = $22,
		    calendar_id = $23, currency_digits = $24, status = $25, updated_at = $26
		WHERE loan_id = $1
	`
	_, err := ext.ExecContext(ctx, query,
		loan.LoanID, loan.Terms.Principal, loan.Terms.InterestRate, loan.Terms.RateFrequency,
		loan.Terms.TermPeriods, loan.Terms.RepaymentEvery, loan.Terms.RepaymentFrequency,
		loan.Terms.Amortization, loan.Terms.InterestCalcPeriod, loan.Terms.FixedEMI,
		loan.Terms.PrincipalGrace, loan.Terms.InterestFreeGrace,
		loan.Settings.Compounding, loan.Settings.Strategy, loan.Settings.RestFrequency,
		loan.Settings.RestInterval, loan.Settings.PreCloseInterest,
		loan.ApprovedPrincipal, loan.ProposedPrincipal, loan.MaxTrancheCount,
		loan.RequireExpectedDisbursementDate, loan.DisbursementDate, loan.CalendarID,
		loan.CurrencyDigits, loan.Status, time.Now(),
	)
	return err
}

func loanArgs(loan *domain.Loan) []interface{} {
	return []interface{}{
		loan.ID, loan.LoanID, loan.Terms.Principal, loan.Terms.InterestRate,
		loan.Terms.RateFrequency, loan.Terms.TermPeriods, loan.Terms.RepaymentEvery,
		loan.Terms.RepaymentFrequency, loan.Terms.Amortization, loan.Terms.InterestCalcPeriod,
		loan.Terms.FixedEMI, loan.Terms.PrincipalGrace, loan.Terms.InterestFreeGrace,
		loan.Settings.Compounding, loan.Settings.Strategy, loan.Settings.RestFrequency,
		loan.Settings.RestInterval, loan.Settings.PreCloseInterest,
		loan.ApprovedPrincipal, loan.ProposedPrincipal, loan.MaxTrancheCount,
		loan.RequireExpectedDisbursementDate, loan.DisbursementDate, loan.CalendarID,
		loan.CurrencyDigits, loan.Status, loan.CreatedAt, loan.UpdatedAt,
	}
}

// loanRow flattens the loan aggregate for sqlx scanning.
type loanRow struct {
	domain.LoanTerms
	domain.RecalculationSettings
	ID                              uuid.UUID       `db:"id"`
	LoanID                          string          `db:"loan_id"`
	ApprovedPrincipal               decimal.Decimal `db:"approved_principal"`
	ProposedPrincipal               decimal.Decimal `db:"proposed_principal"`
	MaxTrancheCount                 int             `db:"max_tranche_count"`
	RequireExpectedDisbursementDate bool            `db:"require_expected_disbursement_date"`
	DisbursementDate                time.Time       `db:"disbursement_date"`
	CalendarID                      *uuid.UUID      `db:"calendar_id"`
	CurrencyDigits                  int32           `db:"currency_digits"`
	Status                          string          `db:"status"`
	CreatedAt                       time.Time       `db:"created_at"`
	UpdatedAt                       time.Time       `db:"updated_at"`
}

func (r loanRow) toDomain() domain.Loan {
	return domain.Loan{
		ID:                              r.ID,
		LoanID:                          r.LoanID,
		Terms:                           r.LoanTerms,
		Settings:                        r.RecalculationSettings,
		ApprovedPrincipal:               r.ApprovedPrincipal,
		ProposedPrincipal:               r.ProposedPrincipal,
		MaxTrancheCount:                 r.MaxTrancheCount,
		RequireExpectedDisbursementDate: r.RequireExpectedDisbursementDate,
		DisbursementDate:                r.DisbursementDate,
		CalendarID:                      r.CalendarID,
		CurrencyDigits:                  r.CurrencyDigits,
		Status:                          r.Status,
		CreatedAt:                       r.CreatedAt,
		UpdatedAt:                       r.UpdatedAt,
	}
}
