package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeStorage          = "STORAGE_ERROR"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
)

// Validation errors
var (
	ErrInvalidEntryType     = NewDomainError(ErrCodeValidation, "invalid entry type")
	ErrInvalidScopeType     = NewDomainError(ErrCodeValidation, "invalid scope type")
	ErrInvalidPriorityRange = NewDomainError(ErrCodeValidation, "priority range min must not exceed max")
	ErrInvalidTimeRange     = NewDomainError(ErrCodeValidation, "time range start must not be after end")
	ErrInvalidLimit         = NewDomainError(ErrCodeValidation, "limit must not be negative")
	ErrInvalidOffset        = NewDomainError(ErrCodeValidation, "offset must not be negative")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrEntryNotFound  = NewDomainError(ErrCodeNotFound, "entry not found")
	ErrScopeNotFound  = NewDomainError(ErrCodeNotFound, "scope not found")
	ErrAPIKeyNotFound = NewDomainError(ErrCodeNotFound, "api key not found")
)

// Already exists errors
var (
	ErrEntryAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "entry already exists")
	ErrScopeAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "scope already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Operation errors
var (
	ErrCannotDeleteEntry = NewDomainError(ErrCodeInvalidOperation, "entries cannot be deleted, deactivate instead")
)

// NewStorageError wraps an underlying read failure with the entry type
// and scope it happened on, so callers can see what failed without
// unwinding the pipeline stages.
func NewStorageError(entryType EntryType, scope ScopeRef, err error) *DomainError {
	msg := fmt.Sprintf("storage read failed for %s entries in %s scope", entryType, scope.Type)
	if scope.ID != "" {
		msg = fmt.Sprintf("%s %s", msg, scope.ID)
	}
	return NewDomainErrorWithCause(ErrCodeStorage, msg, err)
}
