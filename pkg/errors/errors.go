package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound                = errors.New("loan not found")
	ErrInvalidTerms                = errors.New("invalid loan terms")
	ErrDuplicateDisbursementDate   = errors.New("duplicate disbursement date")
	ErrMaxTrancheCountExceeded     = errors.New("maximum tranche count exceeded")
	ErrTrancheSumExceedsApproved   = errors.New("tranche sum exceeds approved principal")
	ErrTrancheSumExceedsProposed   = errors.New("tranche sum exceeds proposed principal")
	ErrDisbursementDateMismatch    = errors.New("actual disbursement date differs from expected date")
	ErrTrancheAlreadyDisbursed     = errors.New("tranche is already disbursed")
	ErrTrancheNotFound             = errors.New("tranche not found")
	ErrNoDisbursedTranche          = errors.New("no disbursed tranche to undo")
	ErrNoActiveSubsidy             = errors.New("no active subsidy to revoke")
	ErrInvalidRequestState         = errors.New("reschedule request is in a terminal state")
	ErrRescheduleRequestNotFound   = errors.New("reschedule request not found")
	ErrRunningBalanceNotCalculated = errors.New("running balance could not be established")
	ErrIrreconcilableReschedule    = errors.New("reschedule produces a negative remaining term")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound                = "LOAN_NOT_FOUND"
	ErrCodeInvalidTerms                = "INVALID_TERMS"
	ErrCodeDuplicateDisbursementDate   = "DUPLICATE_DISBURSEMENT_DATE"
	ErrCodeMaxTrancheCountExceeded     = "MAX_TRANCHE_COUNT_EXCEEDED"
	ErrCodeTrancheSumExceedsApproved   = "TRANCHE_SUM_EXCEEDS_APPROVED_AMOUNT"
	ErrCodeTrancheSumExceedsProposed   = "TRANCHE_SUM_EXCEEDS_PROPOSED_AMOUNT"
	ErrCodeDisbursementDateMismatch    = "DISBURSEMENT_DATE_MISMATCH"
	ErrCodeTrancheAlreadyDisbursed     = "TRANCHE_ALREADY_DISBURSED"
	ErrCodeTrancheNotFound             = "TRANCHE_NOT_FOUND"
	ErrCodeNoDisbursedTranche          = "NO_DISBURSED_TRANCHE"
	ErrCodeNoActiveSubsidy             = "NO_ACTIVE_SUBSIDY"
	ErrCodeInvalidRequestState         = "INVALID_REQUEST_STATE"
	ErrCodeRescheduleRequestNotFound   = "RESCHEDULE_REQUEST_NOT_FOUND"
	ErrCodeRunningBalanceNotCalculated = "RUNNING_BALANCE_NOT_CALCULATED"
	ErrCodeIrreconcilableReschedule    = "IRRECONCILABLE_RESCHEDULE"
	ErrCodeDatabaseError               = "DATABASE_ERROR"
	ErrCodeCacheError                  = "CACHE_ERROR"
)

// Wrap common errors with business context

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapInvalidTerms(reason string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidTerms,
		fmt.Sprintf("Invalid loan terms: %s", reason),
		ErrInvalidTerms,
	)
}

func WrapDuplicateDisbursementDate(date string) *BusinessError {
	return NewBusinessError(
		ErrCodeDuplicateDisbursementDate,
		fmt.Sprintf("A disbursement tranche already exists on %s", date),
		ErrDuplicateDisbursementDate,
	)
}

func WrapMaxTrancheCountExceeded(max int) *BusinessError {
	return NewBusinessError(
		ErrCodeMaxTrancheCountExceeded,
		fmt.Sprintf("Loan product allows at most %d disbursement tranches", max),
		ErrMaxTrancheCountExceeded,
	)
}

func WrapTrancheSumExceedsApproved(sum, approved string) *BusinessError {
	return NewBusinessError(
		ErrCodeTrancheSumExceedsApproved,
		fmt.Sprintf("Tranche sum %s exceeds approved principal %s", sum, approved),
		ErrTrancheSumExceedsApproved,
	)
}

func WrapTrancheSumExceedsProposed(sum, proposed string) *BusinessError {
	return NewBusinessError(
		ErrCodeTrancheSumExceedsProposed,
		fmt.Sprintf("Tranche sum %s exceeds proposed principal %s", sum, proposed),
		ErrTrancheSumExceedsProposed,
	)
}

func WrapDisbursementDateMismatch(expected, actual string) *BusinessError {
	return NewBusinessError(
		ErrCodeDisbursementDateMismatch,
		fmt.Sprintf("Disbursal on %s does not match expected tranche date %s", actual, expected),
		ErrDisbursementDateMismatch,
	)
}

func WrapTrancheAlreadyDisbursed(trancheID string) *BusinessError {
	return NewBusinessError(
		ErrCodeTrancheAlreadyDisbursed,
		fmt.Sprintf("Tranche %s is already disbursed and cannot be modified", trancheID),
		ErrTrancheAlreadyDisbursed,
	)
}

func WrapTrancheNotFound(trancheID string) *BusinessError {
	return NewBusinessError(
		ErrCodeTrancheNotFound,
		fmt.Sprintf("Tranche %s not found", trancheID),
		ErrTrancheNotFound,
	)
}

func WrapNoDisbursedTranche(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNoDisbursedTranche,
		fmt.Sprintf("Loan %s has no disbursed tranche to undo", loanID),
		ErrNoDisbursedTranche,
	)
}

func WrapNoActiveSubsidy(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNoActiveSubsidy,
		fmt.Sprintf("Loan %s has no active subsidy to revoke", loanID),
		ErrNoActiveSubsidy,
	)
}

func WrapInvalidRequestState(requestID, status string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidRequestState,
		fmt.Sprintf("Reschedule request %s is already %s", requestID, status),
		ErrInvalidRequestState,
	)
}

func WrapRescheduleRequestNotFound(requestID string) *BusinessError {
	return NewBusinessError(
		ErrCodeRescheduleRequestNotFound,
		fmt.Sprintf("Reschedule request %s not found", requestID),
		ErrRescheduleRequestNotFound,
	)
}

func WrapRunningBalanceNotCalculated(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeRunningBalanceNotCalculated,
		fmt.Sprintf("Could not establish a settled running balance for loan %s", loanID),
		ErrRunningBalanceNotCalculated,
	)
}

func WrapIrreconcilableReschedule(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeIrreconcilableReschedule,
		fmt.Sprintf("Reschedule of loan %s would leave a negative remaining term", loanID),
		ErrIrreconcilableReschedule,
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

// IsConsistencyError reports whether err indicates an invariant breach.
// Consistency errors abort the mutation and must not be retried by callers.
func IsConsistencyError(err error) bool {
	return errors.Is(err, ErrRunningBalanceNotCalculated) ||
		errors.Is(err, ErrIrreconcilableReschedule)
}
