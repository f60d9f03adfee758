package types

import (
	"errors"
	"fmt"
)

// Failure kinds. Use errors.Is to classify an error returned anywhere in ghia.
var (
	// ErrValidation marks malformed input rejected before any core logic runs.
	ErrValidation = errors.New("validation failed")
	// ErrFetch marks a failure talking to the issue tracker.
	ErrFetch = errors.New("fetch failed")
	// ErrStorage marks a failure reading or writing the issue store.
	ErrStorage = errors.New("storage failure")
)

// ValidationError describes one rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is reports ErrValidation as a match so callers can classify the error.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StorageError wraps an I/O or transaction failure from the issue store.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err as a storage failure of op. An error that is
// already a StorageError is returned unchanged.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is reports ErrStorage as a match so callers can classify the error.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}
