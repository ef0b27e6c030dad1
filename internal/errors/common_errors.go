package errors

import (
	"errors"
	"fmt"

	"employcli/pkg/contracts/domain"
)

// ErrorType represents the type of pipeline error
type ErrorType string

const (
	ErrTypeParse            ErrorType = "PARSE"
	ErrTypeStoreUnavailable ErrorType = "STORE_UNAVAILABLE"
	ErrTypeInsufficientData ErrorType = "INSUFFICIENT_DATA"
	ErrTypeDivisionByZero   ErrorType = "DIVISION_BY_ZERO"
	ErrTypeIncompleteYear   ErrorType = "INCOMPLETE_YEAR"
	ErrTypeConfig           ErrorType = "CONFIG"
)

// Sentinels for errors.Is matching against a whole category.
var (
	ErrParse            = &AppError{Type: ErrTypeParse}
	ErrStoreUnavailable = &AppError{Type: ErrTypeStoreUnavailable}
	ErrInsufficientData = &AppError{Type: ErrTypeInsufficientData}
	ErrDivisionByZero   = &AppError{Type: ErrTypeDivisionByZero}
	ErrIncompleteYear   = &AppError{Type: ErrTypeIncompleteYear}
)

// AppError represents a pipeline failure with enough context to diagnose it
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError of the same type, so callers can compare against
// the package sentinels.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewParseError records a row that could not be normalized. Parse errors are
// recovered locally by dropping the row.
func NewParseError(row int, field, value string, cause error) *AppError {
	return NewAppError(ErrTypeParse, fmt.Sprintf("row %d: invalid %s %q", row, field, value), cause).
		WithContext("row", row).
		WithContext("field", field).
		WithContext("value", value)
}

// NewStoreUnavailableError wraps a record store failure
func NewStoreUnavailableError(operation string, cause error) *AppError {
	return NewAppError(ErrTypeStoreUnavailable, fmt.Sprintf("record store %s failed", operation), cause).
		WithContext("operation", operation)
}

// NewInsufficientDataError reports that an analysis lacks the rows it needs
func NewInsufficientDataError(message string) *AppError {
	return NewAppError(ErrTypeInsufficientData, message, nil)
}

// NewDivisionByZeroError reports a zero denominator for the named subject
func NewDivisionByZeroError(subject string) *AppError {
	return NewAppError(ErrTypeDivisionByZero, fmt.Sprintf("zero baseline for %s", subject), nil).
		WithContext("subject", subject)
}

// NewIncompleteYearError reports a year that lacks one employment type total
func NewIncompleteYearError(year int, missing domain.EmploymentType) *AppError {
	return NewAppError(ErrTypeIncompleteYear, fmt.Sprintf("year %d has no %s total", year, missing), nil).
		WithContext("year", year).
		WithContext("missing", string(missing))
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// TypeOf returns the ErrorType of the first AppError in the chain, or ""
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsFatal reports whether err must abort the run. Only row-level parse
// failures are recoverable.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return TypeOf(err) != ErrTypeParse
}
