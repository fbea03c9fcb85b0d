package store

import "github.com/alxsoares/elfi/npy"

// BatchStore stores batches of output values for a single output,
// keyed by a non-negative batch index.
type BatchStore interface {
	// Get returns the batch at the given index, or ErrNotFound.
	Get(batchIndex int) (npy.Array, error)
	// Set stores data under the given index.
	Set(batchIndex int, data npy.Array) error
	// Delete removes the batch at the given index.
	Delete(batchIndex int) error
	// Has reports whether the index is present.
	Has(batchIndex int) bool
	// Len returns the number of batches in the store.
	Len() int
	// Clear removes all batches.
	Clear() error
}

// Backing is the minimal surface a BatchArrayStore needs from its array:
// random-access reads and in-place overwrites over the leading dimension.
type Backing interface {
	// Len returns the current leading-dimension length.
	Len() int
	// Slice returns a view over rows [start, stop).
	Slice(start, stop int) (npy.Array, error)
	// SetSlice overwrites already-allocated rows starting at start.
	SetSlice(start int, values npy.Array) error
}

// Appender is implemented by backings that can grow, such as
// npy.PersistedArray. Without it a BatchArrayStore is limited to the
// backing's pre-allocated capacity.
type Appender interface {
	Append(values npy.Array) error
}

// Truncater is implemented by backings that can release rows from the
// end. Without it Delete only forgets the batch.
type Truncater interface {
	Truncate(length int) error
}

// Clearer is implemented by backings that can drop all rows.
type Clearer interface {
	Clear() error
}
