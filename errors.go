package elfi

import (
	"errors"
	"fmt"
)

var (
	// ErrContextAlreadySet is returned when setting a pool's computation
	// context a second time.
	ErrContextAlreadySet = errors.New("elfi: context is already set")

	// ErrContextRequired is returned when an operation needs the pool's
	// computation context and none has been set.
	ErrContextRequired = errors.New("elfi: pool has no context set")

	// ErrInvalidContext is returned when setting a context whose batch
	// size is not positive.
	ErrInvalidContext = errors.New("elfi: batch size must be positive")

	// ErrStoreExists is returned when adding a store for an output that
	// already has one.
	ErrStoreExists = errors.New("elfi: store already exists")

	// ErrNoStore is returned when accessing a store for an output the
	// pool does not know.
	ErrNoStore = errors.New("elfi: no store for output")
)

// DescriptorError reports a partial Close failure: every array file was
// flushed and closed successfully, but writing the pool descriptor
// failed, so OpenArrayPool will not find the pool until a retry succeeds.
//
// The original underlying error can be accessed via errors.Unwrap.
type DescriptorError struct {
	Path  string
	cause error
}

func (e *DescriptorError) Error() string {
	return fmt.Sprintf("elfi: arrays were persisted, but writing the pool descriptor %s failed: %v", e.Path, e.cause)
}

func (e *DescriptorError) Unwrap() error { return e.cause }
