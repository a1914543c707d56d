package core

import (
	"errors"
	"fmt"
)

// Error kinds returned by the services. Callers branch on them with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("conflict")
	ErrDependency = errors.New("dependency failure")

	// ErrInvalidSchedule is a BadRequest raised by obligation validation.
	ErrInvalidSchedule = fmt.Errorf("%w: invalid schedule", ErrBadRequest)

	// ErrScheduleNotAdvanced reports a pay whose ledger entry was committed
	// but whose obligation could not be advanced or retired afterwards.
	ErrScheduleNotAdvanced = errors.New("payment recorded but schedule not advanced")
)

// Validation causes. Obligation.Validate wraps them with ErrInvalidSchedule.
var (
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrDescriptionTooLong     = errors.New("description too long (max 200 characters)")
	ErrMissingCreatedDate     = errors.New("created date is required")
	ErrDateOutOfRange         = errors.New("date must fall between years 1 and 9999")
	ErrScheduleTooLong        = errors.New("schedule would run past year 9999")
	ErrMissingPayload         = errors.New("transaction or transfer payload is required")
	ErrInvalidReference       = errors.New("referenced id must be positive")
	ErrSameAccount            = errors.New("origin and destination accounts must differ")
	ErrMissingRepeatFrequency = errors.New("repeat frequency is required when repeating")
	ErrInvalidFrequency       = errors.New("invalid repeat frequency")
	ErrInvalidInterval        = errors.New("repeat interval must be at least 1")
	ErrMissingEndAfter        = errors.New("end after repeats is required for a finite schedule")
	ErrUnexpectedEndAfter     = errors.New("end after repeats must be absent for an infinite schedule")
	ErrRepeatCapReached       = errors.New("end after repeats must exceed the current repeat count")
	ErrNegativeRepeatCount    = errors.New("current repeat count cannot be negative")
	ErrNextDateMismatch       = errors.New("next date of a one-shot obligation must equal its created date")
	ErrAnchorChanged          = errors.New("created date cannot be changed")
	ErrKindMismatch           = errors.New("payload kind does not match the obligation")
	ErrTransferCategory       = errors.New("transfer category types are display only")
	ErrInvalidCategoryType    = errors.New("invalid category type")
	ErrEmptyName              = errors.New("empty name")
)

func invalidSchedule(cause error) error {
	return fmt.Errorf("%w: %w", ErrInvalidSchedule, cause)
}

func badRequest(cause error) error {
	return fmt.Errorf("%w: %w", ErrBadRequest, cause)
}

// AdvanceError is returned by a pay whose ledger entry was created but whose
// retire or advance step failed. Retrying the whole pay would materialize the
// entry twice.
type AdvanceError struct {
	ObligationID int64
	Entry        LedgerEntry
	Err          error
}

func (e *AdvanceError) Error() string {
	return fmt.Sprintf("obligation %d: %s: %v", e.ObligationID, ErrScheduleNotAdvanced, e.Err)
}

// Unwrap exposes both ErrScheduleNotAdvanced and the underlying cause.
func (e *AdvanceError) Unwrap() []error {
	return []error{ErrScheduleNotAdvanced, e.Err}
}
