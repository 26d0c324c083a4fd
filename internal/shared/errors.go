package shared

import (
	"errors"
	"fmt"
)

// Code classifies domain failures surfaced to API clients.
type Code string

const (
	CodeNotFound              Code = "NotFound"
	CodeMissingField          Code = "MissingField"
	CodeInvalidAmount         Code = "InvalidAmount"
	CodeInvalidState          Code = "InvalidState"
	CodeFinalized             Code = "Finalized"
	CodeAlreadyCleared        Code = "AlreadyCleared"
	CodeAlreadyBounced        Code = "AlreadyBounced"
	CodeAlreadyCancelled      Code = "AlreadyCancelled"
	CodeUnauthorized          Code = "Unauthorized"
	CodeForbidden             Code = "Forbidden"
	CodeUnauthenticated       Code = "Unauthenticated"
	CodeDuplicateEntry        Code = "DuplicateEntry"
	CodeScheduleAlreadyExists Code = "ScheduleAlreadyExists"
	CodeValidationFailed      Code = "ValidationFailed"
	CodeInternal              Code = "InternalError"
)

// DomainError carries a taxonomy code and a client-safe message.
type DomainError struct {
	Code    Code
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError with the same code, so wrapped variants still
// satisfy errors.Is against the sentinels below.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// NewDomainError builds a DomainError.
func NewDomainError(code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

var (
	// ErrNotFound indicates the id does not resolve to an active record.
	ErrNotFound = NewDomainError(CodeNotFound, "resource not found")
	// ErrMissingField indicates a required input is absent.
	ErrMissingField = NewDomainError(CodeMissingField, "required field missing")
	// ErrInvalidAmount indicates an amount that is not strictly positive.
	ErrInvalidAmount = NewDomainError(CodeInvalidAmount, "amount must be greater than zero")
	// ErrInvalidState indicates the current status does not permit the action.
	ErrInvalidState = NewDomainError(CodeInvalidState, "action not allowed in current status")
	// ErrFinalized indicates the record reached a terminal status.
	ErrFinalized = NewDomainError(CodeFinalized, "record is finalized")
	// ErrAlreadyCleared indicates a cheque is already cleared.
	ErrAlreadyCleared = NewDomainError(CodeAlreadyCleared, "cheque already cleared")
	// ErrAlreadyBounced indicates a cheque is already bounced.
	ErrAlreadyBounced = NewDomainError(CodeAlreadyBounced, "cheque already bounced")
	// ErrAlreadyCancelled indicates a cheque is already cancelled.
	ErrAlreadyCancelled = NewDomainError(CodeAlreadyCancelled, "cheque already cancelled")
	// ErrUnauthorized indicates the caller role does not own the current stage.
	ErrUnauthorized = NewDomainError(CodeUnauthorized, "role not permitted for this stage")
	// ErrForbidden indicates the caller role may not perform the action.
	ErrForbidden = NewDomainError(CodeForbidden, "forbidden")
	// ErrUnauthenticated indicates a missing or invalid principal.
	ErrUnauthenticated = NewDomainError(CodeUnauthenticated, "authentication required")
	// ErrDuplicateEntry indicates a uniqueness violation.
	ErrDuplicateEntry = NewDomainError(CodeDuplicateEntry, "duplicate entry")
	// ErrScheduleAlreadyExists indicates a refund schedule already exists.
	ErrScheduleAlreadyExists = NewDomainError(CodeScheduleAlreadyExists, "refund schedule already exists")
	// ErrValidation indicates malformed input.
	ErrValidation = NewDomainError(CodeValidationFailed, "validation failed")
	// ErrStaleState is returned when a conditional transition matched no row.
	ErrStaleState = NewDomainError(CodeInvalidState, "record was modified concurrently")
)

// Wrap returns a copy of the sentinel code with a more specific message.
func Wrap(base error, message string) error {
	var de *DomainError
	if !errors.As(base, &de) {
		return fmt.Errorf("%s: %w", message, base)
	}
	return &DomainError{Code: de.Code, Message: message}
}

// Wrapf is Wrap with formatting.
func Wrapf(base error, format string, args ...any) error {
	return Wrap(base, fmt.Sprintf(format, args...))
}

// CodeOf extracts the taxonomy code, defaulting to InternalError.
func CodeOf(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
