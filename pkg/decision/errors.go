package decision

import (
	"errors"
	"fmt"
)

// ErrRecorderClosed is returned by Record once Close has been called.
var ErrRecorderClosed = errors.New("decision recorder is closed")

// StorageError is returned when a storage backend operation fails.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new storage error.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// RetentionError is returned when pruning fails.
type RetentionError struct {
	RetentionDays int
	Cause         error
}

func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention error [retention_days=%d]: %v", e.RetentionDays, e.Cause)
}

func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new retention error.
func NewRetentionError(retentionDays int, cause error) *RetentionError {
	return &RetentionError{
		RetentionDays: retentionDays,
		Cause:         cause,
	}
}

// RecorderError is returned when a decision could not be queued for writing.
type RecorderError struct {
	DecisionID string
	Cause      error
}

func (e *RecorderError) Error() string {
	return fmt.Sprintf("recorder error [decision_id=%s]: %v", e.DecisionID, e.Cause)
}

func (e *RecorderError) Unwrap() error {
	return e.Cause
}

// NewRecorderError creates a new recorder error.
func NewRecorderError(decisionID string, cause error) *RecorderError {
	return &RecorderError{
		DecisionID: decisionID,
		Cause:      cause,
	}
}
