package npy

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when reading or writing an array whose
	// header has not been written yet (no initial append).
	ErrNotInitialized = errors.New("npy: array is not initialized")

	// ErrClosed is returned when operating on a closed array.
	ErrClosed = errors.New("npy: array is closed")

	// ErrDeleted is returned when operating on a deleted array.
	ErrDeleted = errors.New("npy: array has been deleted")

	// ErrHeaderOverflow is returned when the serialized header no longer
	// fits the length reserved at initialization. This only happens when
	// the leading dimension outgrows the configured digit budget.
	ErrHeaderOverflow = errors.New("npy: header exceeds reserved length")

	// ErrOutOfRange is returned when a slice or write falls outside the
	// currently allocated leading dimension.
	ErrOutOfRange = errors.New("npy: index out of range")
)

// FormatError indicates an unsupported or corrupt file on open.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type FormatError struct {
	Path   string
	Reason string
	cause  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("npy: invalid file %s: %s", e.Path, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.cause }

// ShapeMismatchError indicates that an array's trailing shape differs from
// the store's fixed trailing shape.
type ShapeMismatchError struct {
	Expected []int
	Actual   []int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("npy: trailing shape mismatch: expected %v, got %v", e.Expected, e.Actual)
}

// DtypeMismatchError indicates that an array's dtype differs from the
// store's fixed dtype.
type DtypeMismatchError struct {
	Expected Dtype
	Actual   Dtype
}

func (e *DtypeMismatchError) Error() string {
	return fmt.Sprintf("npy: dtype mismatch: expected %s, got %s", e.Expected, e.Actual)
}
