package store

import (
	"fmt"

	"github.com/alxsoares/elfi/npy"
)

// MemoryStore is a plain in-memory BatchStore: a mapping from batch index
// to an owned copy of the data. Unlike BatchArrayStore it accepts any
// non-negative index, so it can hold sparse batches.
type MemoryStore struct {
	batches map[int]npy.Array
}

// NewMemoryStore creates an empty in-memory batch store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{batches: make(map[int]npy.Array)}
}

// Get returns the batch stored under batchIndex, or ErrNotFound.
func (s *MemoryStore) Get(batchIndex int) (npy.Array, error) {
	a, ok := s.batches[batchIndex]
	if !ok {
		return npy.Array{}, fmt.Errorf("%w: batch %d", ErrNotFound, batchIndex)
	}
	return a, nil
}

// Set stores a copy of data under batchIndex, overwriting any previous
// value. Copying detaches the stored batch from caller-owned buffers and
// file mappings.
func (s *MemoryStore) Set(batchIndex int, data npy.Array) error {
	if batchIndex < 0 {
		return fmt.Errorf("%w: batch %d", ErrOutOfOrder, batchIndex)
	}
	s.batches[batchIndex] = data.Copy()
	return nil
}

// Delete removes the batch stored under batchIndex.
func (s *MemoryStore) Delete(batchIndex int) error {
	if _, ok := s.batches[batchIndex]; !ok {
		return fmt.Errorf("%w: batch %d", ErrNotFound, batchIndex)
	}
	delete(s.batches, batchIndex)
	return nil
}

// Has reports whether batchIndex is present.
func (s *MemoryStore) Has(batchIndex int) bool {
	_, ok := s.batches[batchIndex]
	return ok
}

// Len returns the number of stored batches.
func (s *MemoryStore) Len() int {
	return len(s.batches)
}

// Clear removes all batches.
func (s *MemoryStore) Clear() error {
	s.batches = make(map[int]npy.Array)
	return nil
}
