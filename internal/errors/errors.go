// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrNoData           = errors.New("no data available")
	ErrQuoteUnavailable = errors.New("quote unavailable")
	ErrNoStrikeCombo    = errors.New("no viable strike combination")
	ErrInvalidContract  = errors.New("invalid contract identifier")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrConnectionFailed = errors.New("connection failed")
	ErrRateLimited      = errors.New("rate limited")
	ErrRunNotFound      = errors.New("run not found")
	ErrDatabaseError    = errors.New("database error")
)

// DataError represents an error from a market data source.
type DataError struct {
	Symbol  string
	Request string
	Err     error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %v", e.Symbol, e.Request, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s", e.Symbol, e.Request)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(symbol, request string, err error) *DataError {
	return &DataError{
		Symbol:  symbol,
		Request: request,
		Err:     err,
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Is wraps errors.Is for convenience.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Database wraps a storage failure with its operation context.
func Database(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrDatabaseError, op, err)
}
