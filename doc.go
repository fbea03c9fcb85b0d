// Package elfi provides batch-indexed output pools backed by persistent
// NumPy arrays.
//
// An OutputPool maps named output channels to independent batch stores
// sharing one execution context (batch size and seed). The default store
// is an in-memory mapping; an ArrayPool persists each output to its own
// appendable .npy file instead, so simulation results survive the process
// and can be reused by later inference runs.
//
// # Quick Start
//
//	pool, _ := elfi.NewArrayPool([]string{"x", "d"}, elfi.WithName("run1"))
//	pool.SetContext(elfi.ComputationContext{BatchSize: 3, Seed: 42})
//
//	pool.AddBatch(map[string]npy.Array{
//	    "x": npy.FromFloat64s([]float64{1, 2, 3}),
//	}, 0)
//	batch := pool.GetBatch(0)
//
//	pool.Close() // arrays flushed; pool reopenable via OpenArrayPool
//
// # Layers
//
// Underneath the pool sit two layers: package store windows an array into
// fixed-size batches with append-only ordering, and package npy manages
// the growable on-disk array file itself.
//
// # Concurrency
//
// Pools and their stores are single-writer, single-process objects with
// no internal locking. Concurrent writers to the same backing file
// produce undefined results.
package elfi
