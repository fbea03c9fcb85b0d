package elfi

// ComputationContext identifies the execution parameters a pool's batches
// were computed with. All stores belonging to one pool share the same
// batch size; the seed ties stored results to the random stream that
// produced them.
type ComputationContext struct {
	BatchSize int
	Seed      int64
}
