package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError reports malformed or out-of-range input. It carries the
// offending field and, for over-withdrawals, the computed remaining balance
// so the presentation layer can render a specific message without another
// ledger query. State is never touched when one of these is returned.
type ValidationError struct {
	Field     string
	Message   string
	Remaining *decimal.Decimal
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
	}
	return "validation failed: " + e.Message
}

// NewValidationError wraps a field-level failure.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NewBalanceError reports an amount exceeding the remaining balance.
func NewBalanceError(remaining decimal.Decimal) *ValidationError {
	return &ValidationError{
		Field:     "amount",
		Message:   fmt.Sprintf("amount exceeds remaining balance of %s", FormatAmount(remaining)),
		Remaining: &remaining,
	}
}

// NotFoundError reports a reference to an employee or withdrawal that does
// not exist (anymore).
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ConflictError reports a withdrawal that passed the service-level check but
// lost a race against a concurrent writer at the store. Callers should retry
// against the fresh balance.
type ConflictError struct {
	Message   string
	Remaining *decimal.Decimal
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Message
}

// StorageError wraps store-level failures (connectivity, constraint
// violations). The command is considered not applied.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
