package store

import (
	"errors"
	"fmt"
)

// StoreError represents a failure raised by the store layer itself,
// before or instead of touching the remote store.
//
// Store errors include:
//   - Missing model name: a descriptor without a Name cannot be indexed
//   - Record not found: a subscribed path yielded no data
//
// Remote write failures are WriteError, which carries the attempted
// payload.
type StoreError struct {
	// Code identifies the error category.
	Code StoreErrorCode

	// Message is a human-readable description.
	Message string

	// Model identifies the model type, when known.
	Model string

	// ID identifies the record, when known.
	ID string

	// Path is the remote path involved, when known.
	Path string
}

// StoreErrorCode categorizes store errors.
type StoreErrorCode string

const (
	// ErrCodeMissingModelName indicates a descriptor with no type name.
	ErrCodeMissingModelName StoreErrorCode = "MISSING_MODEL_NAME"

	// ErrCodeRecordNotFound indicates a load found no data at the
	// record's path and the record was not flagged deleted.
	ErrCodeRecordNotFound StoreErrorCode = "RECORD_NOT_FOUND"
)

// Error implements the error interface.
func (e *StoreError) Error() string {
	switch {
	case e.Path != "":
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	case e.Model != "" && e.ID != "":
		return fmt.Sprintf("%s: %s (model=%s, id=%s)", e.Code, e.Message, e.Model, e.ID)
	case e.Model != "":
		return fmt.Sprintf("%s: %s (model=%s)", e.Code, e.Message, e.Model)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// WriteError represents a failed atomic write. The write is
// all-or-nothing, so nothing was applied remotely and the in-memory
// dirty state is safe to retry the save from.
type WriteError struct {
	// Payload is the full merged path map the write attempted.
	Payload map[string]any

	// Err is the underlying cause from the remote client.
	Err error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("WRITE_FAILED: atomic update of %d path(s): %v", len(e.Payload), e.Err)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsNotFound returns true if the error is a record-not-found error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code == ErrCodeRecordNotFound
	}
	return false
}

// IsMissingModelName returns true if the error is a missing-model-name
// configuration error.
func IsMissingModelName(err error) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code == ErrCodeMissingModelName
	}
	return false
}

// IsWriteError returns true if the error is a failed atomic write.
func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}

// newMissingModelName builds the fail-fast configuration error.
func newMissingModelName() *StoreError {
	return &StoreError{
		Code:    ErrCodeMissingModelName,
		Message: "record descriptor has no model name",
	}
}

// newNotFound builds the rejected-load error for a path.
func newNotFound(model, id, path string) *StoreError {
	return &StoreError{
		Code:    ErrCodeRecordNotFound,
		Message: "no record found at path",
		Model:   model,
		ID:      id,
		Path:    path,
	}
}
