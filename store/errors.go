package store

import "errors"

var (
	// ErrNotFound is returned when a batch index is not present in a store.
	ErrNotFound = errors.New("store: batch not found")

	// ErrOutOfOrder is returned when a set skips ahead of the next
	// expected batch index (or is negative). Batches must be inserted
	// contiguously starting at index 0.
	ErrOutOfOrder = errors.New("store: batch index out of order")

	// ErrInsufficientSpace is returned when the next batch does not fit
	// the backing array and the backing does not support appending.
	ErrInsufficientSpace = errors.New("store: not enough space in the backing array")

	// ErrMiddleRemoval is returned when deleting any batch other than the
	// last one.
	ErrMiddleRemoval = errors.New("store: only the last batch can be removed")

	// ErrBatchSize is returned when the data's leading dimension does not
	// match the store's batch size.
	ErrBatchSize = errors.New("store: data length does not match batch size")
)
