package store

import (
	"fmt"

	"github.com/alxsoares/elfi/npy"
)

// BatchArrayStore windows an array backing into fixed-size batches.
//
// Batch i occupies leading-dimension rows [i*batchSize, (i+1)*batchSize).
// nBatches counts the complete, contiguous batches stored starting at
// index 0; insertion is append-only and gap-free.
//
// Not safe for concurrent use.
type BatchArrayStore struct {
	backing   Backing
	batchSize int
	nBatches  int
}

// BatchArrayStoreOption configures NewBatchArrayStore.
type BatchArrayStoreOption func(*BatchArrayStore)

// WithBatchCount sets the number of batches already present in the
// backing. Use it when reopening a persisted array or wrapping a
// pre-allocated one whose rows are not all valid batches.
func WithBatchCount(n int) BatchArrayStoreOption {
	return func(s *BatchArrayStore) {
		s.nBatches = n
	}
}

// NewBatchArrayStore wraps backing as a batch store with the given batch
// size. Without options, every complete window of existing rows counts as
// a stored batch.
func NewBatchArrayStore(backing Backing, batchSize int, opts ...BatchArrayStoreOption) (*BatchArrayStore, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("store: batch size must be positive, got %d", batchSize)
	}
	s := &BatchArrayStore{
		backing:   backing,
		batchSize: batchSize,
		nBatches:  backing.Len() / batchSize,
	}
	for _, fn := range opts {
		fn(s)
	}
	return s, nil
}

// Backing returns the wrapped array.
func (s *BatchArrayStore) Backing() Backing { return s.backing }

// BatchSize returns the fixed batch size.
func (s *BatchArrayStore) BatchSize() int { return s.batchSize }

// BatchCount returns the number of contiguous batches currently tracked.
// Unlike Len it does not count pre-allocated rows that were never set.
func (s *BatchArrayStore) BatchCount() int { return s.nBatches }

// Has reports whether batchIndex is present: it must be below nBatches
// and its full slice must be covered by the backing's current length.
func (s *BatchArrayStore) Has(batchIndex int) bool {
	if batchIndex < 0 || batchIndex >= s.nBatches {
		return false
	}
	return (batchIndex+1)*s.batchSize <= s.backing.Len()
}

// Get returns a view over the batch at batchIndex.
func (s *BatchArrayStore) Get(batchIndex int) (npy.Array, error) {
	if !s.Has(batchIndex) {
		return npy.Array{}, fmt.Errorf("%w: batch %d", ErrNotFound, batchIndex)
	}
	start := batchIndex * s.batchSize
	return s.backing.Slice(start, start+s.batchSize)
}

// Set stores data under batchIndex. Present batches are overwritten in
// place. The next expected index (nBatches) is written in place when the
// backing already covers it, appended when the backing ends exactly at
// the slice start, and fails with ErrInsufficientSpace otherwise. Any
// index further ahead fails with ErrOutOfOrder.
func (s *BatchArrayStore) Set(batchIndex int, data npy.Array) error {
	if data.Len() != s.batchSize {
		return fmt.Errorf("%w: got %d rows, want %d", ErrBatchSize, data.Len(), s.batchSize)
	}

	start := batchIndex * s.batchSize
	if s.Has(batchIndex) {
		return s.backing.SetSlice(start, data)
	}
	if batchIndex != s.nBatches {
		return fmt.Errorf("%w: batch %d, next expected %d", ErrOutOfOrder, batchIndex, s.nBatches)
	}

	switch {
	case start+s.batchSize <= s.backing.Len():
		// Pre-allocated space covers the whole slice.
		if err := s.backing.SetSlice(start, data); err != nil {
			return err
		}
	case start == s.backing.Len():
		ap, ok := s.backing.(Appender)
		if !ok {
			return fmt.Errorf("%w: batch %d", ErrInsufficientSpace, batchIndex)
		}
		if err := ap.Append(data); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: batch %d", ErrInsufficientSpace, batchIndex)
	}

	s.nBatches++
	return nil
}

// Delete removes the batch at batchIndex. Only the last batch can be
// removed; the backing is truncated to the slice start when it supports
// truncation.
func (s *BatchArrayStore) Delete(batchIndex int) error {
	if !s.Has(batchIndex) {
		return fmt.Errorf("%w: batch %d", ErrNotFound, batchIndex)
	}
	if batchIndex != s.nBatches-1 {
		return fmt.Errorf("%w: batch %d of %d", ErrMiddleRemoval, batchIndex, s.nBatches)
	}

	if tr, ok := s.backing.(Truncater); ok {
		if err := tr.Truncate(batchIndex * s.batchSize); err != nil {
			return err
		}
	}
	s.nBatches--
	return nil
}

// Len returns the number of complete batches the backing currently holds.
func (s *BatchArrayStore) Len() int {
	return s.backing.Len() / s.batchSize
}

// Clear drops all batches, clearing the backing when it supports it.
func (s *BatchArrayStore) Clear() error {
	if c, ok := s.backing.(Clearer); ok {
		if err := c.Clear(); err != nil {
			return err
		}
	}
	s.nBatches = 0
	return nil
}
