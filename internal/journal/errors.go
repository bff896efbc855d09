package journal

import (
	"errors"
	"fmt"
)

// Error codes for the journal module
const (
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeRepository       = "REPOSITORY_ERROR"
	ErrCodePrunerState      = "PRUNER_STATE"
)

// JournalError interface for journal-specific errors
type JournalError interface {
	error
	Code() string
	Message() string
	Temporary() bool
}

// RecordValidationError represents a record that cannot be stored
type RecordValidationError struct {
	Field      string
	Value      interface{}
	ErrMessage string
}

func (e RecordValidationError) Error() string {
	return fmt.Sprintf("record validation failed for field '%s': %s (value: %v)", e.Field, e.ErrMessage, e.Value)
}

func (e RecordValidationError) Code() string {
	return ErrCodeValidationFailed
}

func (e RecordValidationError) Message() string {
	return e.ErrMessage
}

func (e RecordValidationError) Temporary() bool {
	return false
}

// RepositoryError represents database operation failures
type RepositoryError struct {
	Operation string
	Details   string
	Cause     error
}

func (e RepositoryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("repository error during %s: %s (caused by: %v)", e.Operation, e.Details, e.Cause)
	}
	return fmt.Sprintf("repository error during %s: %s", e.Operation, e.Details)
}

func (e RepositoryError) Code() string {
	return ErrCodeRepository
}

func (e RepositoryError) Message() string {
	return e.Details
}

func (e RepositoryError) Temporary() bool {
	return true
}

func (e RepositoryError) Unwrap() error {
	return e.Cause
}

// PrunerStateError is returned when Start or Stop is called in the wrong state
type PrunerStateError struct {
	ErrMessage string
}

func (e PrunerStateError) Error() string {
	return fmt.Sprintf("pruner error: %s", e.ErrMessage)
}

func (e PrunerStateError) Code() string {
	return ErrCodePrunerState
}

func (e PrunerStateError) Message() string {
	return e.ErrMessage
}

func (e PrunerStateError) Temporary() bool {
	return false
}

// WrapRepositoryError wraps an error as a RepositoryError
func WrapRepositoryError(err error, operation string) error {
	if err == nil {
		return nil
	}
	return RepositoryError{
		Operation: operation,
		Details:   "database operation failed",
		Cause:     err,
	}
}

// NewRecordValidationError creates a new RecordValidationError
func NewRecordValidationError(field string, value interface{}, message string) error {
	return RecordValidationError{
		Field:      field,
		Value:      value,
		ErrMessage: message,
	}
}

// IsValidationError checks if the error is a record validation error
func IsValidationError(err error) bool {
	var journalErr JournalError
	if errors.As(err, &journalErr) {
		return journalErr.Code() == ErrCodeValidationFailed
	}
	return false
}

// IsTemporaryError checks if the error is temporary and can be retried
func IsTemporaryError(err error) bool {
	var journalErr JournalError
	if errors.As(err, &journalErr) {
		return journalErr.Temporary()
	}
	return false
}
