package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pradipta/schedule-engine/pkg/datetime"
)

const (
	LoanStatusApproved = "approved"
	LoanStatusActive   = "active"
	LoanStatusClosed   = "closed"
)

// AmortizationType selects how principal is split across periods.
type AmortizationType string

const (
	AmortizationEqualInstallments AmortizationType = "equal-installment"
	AmortizationEqualPrincipal    AmortizationType = "equal-principal"
)

// RateFrequency is the period the nominal interest rate is quoted against.
type RateFrequency string

const (
	RateFrequencyDaily   RateFrequency = "daily"
	RateFrequencyMonthly RateFrequency = "monthly"
	RateFrequencyYearly  RateFrequency = "yearly"
)

// PeriodFrequency is the repayment cadence unit.
type PeriodFrequency string

const (
	PeriodFrequencyDays   PeriodFrequency = "days"
	PeriodFrequencyWeeks  PeriodFrequency = "weeks"
	PeriodFrequencyMonths PeriodFrequency = "months"
)

// InterestCalcPeriod controls whether interest follows actual day counts or
// a flat periodic rate. The two diverge when periods are irregular, which is
// what forces a recalculation after calendar shifts.
type InterestCalcPeriod string

const (
	InterestCalcDaily           InterestCalcPeriod = "daily"
	InterestCalcSameAsRepayment InterestCalcPeriod = "same-as-repayment"
)

// LoanTerms is immutable once the loan is disbursed, except through an
// approved reschedule request.
type LoanTerms struct {
	Principal          decimal.Decimal    `json:"principal" db:"principal"`
	InterestRate       decimal.Decimal    `json:"interest_rate" db:"interest_rate"`
	RateFrequency      RateFrequency      `json:"rate_frequency" db:"rate_frequency"`
	TermPeriods        int                `json:"term_periods" db:"term_periods"`
	RepaymentEvery     int                `json:"repayment_every" db:"repayment_every"`
	RepaymentFrequency PeriodFrequency    `json:"repayment_frequency" db:"repayment_frequency"`
	Amortization       AmortizationType   `json:"amortization" db:"amortization"`
	InterestCalcPeriod InterestCalcPeriod `json:"interest_calc_period" db:"interest_calc_period"`
	FixedEMI           *decimal.Decimal   `json:"fixed_emi,omitempty" db:"fixed_emi"`
	PrincipalGrace     int                `json:"principal_grace" db:"principal_grace"`
	InterestFreeGrace  int                `json:"interest_free_grace" db:"interest_free_grace"`
}

// Loan is the aggregate the engine operates on.
type Loan struct {
	ID                uuid.UUID             `json:"id" db:"id"`
	LoanID            string                `json:"loan_id" db:"loan_id"`
	Terms             LoanTerms             `json:"terms"`
	Settings          RecalculationSettings `json:"settings"`
	ApprovedPrincipal decimal.Decimal       `json:"approved_principal" db:"approved_principal"`
	ProposedPrincipal decimal.Decimal       `json:"proposed_principal" db:"proposed_principal"`
	MaxTrancheCount   int                   `json:"max_tranche_count" db:"max_tranche_count"`
	// RequireExpectedDisbursementDate forces disbursal on the tranche's
	// expected date when set on the product.
	RequireExpectedDisbursementDate bool       `json:"require_expected_disbursement_date" db:"require_expected_disbursement_date"`
	DisbursementDate                time.Time  `json:"disbursement_date" db:"disbursement_date"`
	CalendarID                      *uuid.UUID `json:"calendar_id,omitempty" db:"calendar_id"`
	CurrencyDigits                  int32      `json:"currency_digits" db:"currency_digits"`
	Status                          string     `json:"status" db:"status"`
	CreatedAt                       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt                       time.Time  `json:"updated_at" db:"updated_at"`
}

// CompoundingMethod controls whether unpaid interest joins the interest base.
type CompoundingMethod string

const (
	CompoundingNone            CompoundingMethod = "none"
	CompoundingInterestOnly    CompoundingMethod = "interest-on-interest"
	CompoundingInterestAndFees CompoundingMethod = "interest-and-fees"
)

// RescheduleStrategy controls what a recalculation holds constant.
type RescheduleStrategy string

const (
	StrategyReduceInstallments      RescheduleStrategy = "reduce-number-of-installments"
	StrategyReduceInstallmentAmount RescheduleStrategy = "reduce-installment-amount"
)

// RestFrequency is the cadence at which the interest-bearing balance is
// fixed between recalculations.
type RestFrequency string

const (
	RestSameAsRepayment RestFrequency = "same-as-repayment"
	RestDaily           RestFrequency = "daily"
	RestWeekly          RestFrequency = "weekly"
	RestMonthly         RestFrequency = "monthly"
)

// PreCloseInterestRule controls interest charged on early payoff.
type PreCloseInterestRule string

const (
	PreCloseInterestTillDate     PreCloseInterestRule = "till-pre-close-date"
	PreCloseInterestTillRestDate PreCloseInterestRule = "till-rest-frequency-date"
)

// RecalculationSettings are product-level configuration copied onto the loan
// at creation.
type RecalculationSettings struct {
	Compounding      CompoundingMethod    `json:"compounding" db:"compounding"`
	Strategy         RescheduleStrategy   `json:"strategy" db:"strategy"`
	RestFrequency    RestFrequency        `json:"rest_frequency" db:"rest_frequency"`
	RestInterval     int                  `json:"rest_interval" db:"rest_interval"`
	PreCloseInterest PreCloseInterestRule `json:"pre_close_interest" db:"pre_close_interest"`
}

// DTOs for requests and responses

type AddTrancheRequest struct {
	ExpectedDate datetime.DateTriple `json:"expected_date" validate:"required"`
	Principal    decimal.Decimal     `json:"principal" validate:"required"`
}

type EditTrancheRequest struct {
	ExpectedDate datetime.DateTriple `json:"expected_date" validate:"required"`
	Principal    decimal.Decimal     `json:"principal" validate:"required"`
}

type DisburseRequest struct {
	ActualDate datetime.DateTriple `json:"actual_date" validate:"required"`
	Amount     *decimal.Decimal    `json:"amount,omitempty"`
}

type UndoDisbursalResponse struct {
	LoanID         string          `json:"loan_id"`
	ReversedAmount decimal.Decimal `json:"reversed_amount"`
}

type SubsidyGrantRequest struct {
	EffectiveDate datetime.DateTriple `json:"effective_date" validate:"required"`
	Amount        decimal.Decimal     `json:"amount" validate:"required"`
}

type SubsidyRevokeRequest struct {
	EffectiveDate datetime.DateTriple `json:"effective_date" validate:"required"`
}

type RepaymentRequest struct {
	TransactionDate datetime.DateTriple `json:"transaction_date" validate:"required"`
	Amount          decimal.Decimal     `json:"amount" validate:"required"`
}

type CalendarRuleRequest struct {
	Frequency     RecurrenceFrequency `json:"frequency" validate:"required,oneof=weekly monthly"`
	Interval      int                 `json:"interval" validate:"omitempty,gte=1"`
	Weekday       int                 `json:"weekday" validate:"gte=0,lte=6"`
	DayOfMonth    int                 `json:"day_of_month" validate:"gte=0,lte=31"`
	StartDate     datetime.DateTriple `json:"start_date" validate:"required"`
	EffectiveFrom datetime.DateTriple `json:"effective_from" validate:"required"`
}
