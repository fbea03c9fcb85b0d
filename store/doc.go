// Package store provides batch-indexed stores over array backings.
//
// A batch is one fixed-size contiguous group of rows, keyed by a
// non-negative integer index. BatchArrayStore windows an array backing
// (typically a npy.PersistedArray) into batches of a fixed size and
// enforces contiguous, append-only insertion: batch i can only be written
// when batches 0..i-1 already exist, and only the last batch can be
// removed. MemoryStore is the lighter-weight alternative, a plain mapping
// from batch index to an owned copy of the data.
//
// Backings are described by small capability interfaces (Appender,
// Truncater, Clearer) so fixed-capacity and growable arrays share one
// store implementation.
package store
