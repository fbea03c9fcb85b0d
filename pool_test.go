package elfi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alxsoares/elfi/npy"
	"github.com/alxsoares/elfi/store"
)

func TestOutputPool_ContextSetOnce(t *testing.T) {
	p := NewOutputPool([]string{"x"})

	assert.False(t, p.ContextSet())
	require.NoError(t, p.SetContext(ComputationContext{BatchSize: 3, Seed: 42}))
	assert.True(t, p.ContextSet())

	ctx, ok := p.Context()
	require.True(t, ok)
	assert.Equal(t, 3, ctx.BatchSize)
	assert.Equal(t, int64(42), ctx.Seed)

	err := p.SetContext(ComputationContext{BatchSize: 5, Seed: 1})
	assert.ErrorIs(t, err, ErrContextAlreadySet)
}

func TestOutputPool_RejectsInvalidContext(t *testing.T) {
	p := NewOutputPool([]string{"x"})
	assert.ErrorIs(t, p.SetContext(ComputationContext{BatchSize: 0}), ErrInvalidContext)
	assert.ErrorIs(t, p.SetContext(ComputationContext{BatchSize: -1}), ErrInvalidContext)
}

func TestOutputPool_AddGetBatch(t *testing.T) {
	p := NewOutputPool([]string{"x", "d"})

	batch := map[string]npy.Array{
		"x": npy.FromFloat64s([]float64{1, 2, 3}),
		"d": npy.FromFloat64s([]float64{0.1, 0.2, 0.3}),
	}
	require.NoError(t, p.AddBatch(batch, 0))

	got := p.GetBatch(0)
	require.Len(t, got, 2)
	assert.Equal(t, []float64{1, 2, 3}, got["x"].Float64s())
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, got["d"].Float64s())

	// Selecting a subset of outputs.
	got = p.GetBatch(0, "x")
	require.Len(t, got, 1)
	assert.Contains(t, got, "x")

	// Missing indices and unknown names are omitted, not errors.
	assert.Empty(t, p.GetBatch(7))
	assert.Empty(t, p.GetBatch(0, "unknown"))
}

func TestOutputPool_UndeclaredOutputsIgnored(t *testing.T) {
	p := NewOutputPool([]string{"x"})

	require.NoError(t, p.AddBatch(map[string]npy.Array{
		"x": npy.FromFloat64s([]float64{1}),
		"y": npy.FromFloat64s([]float64{2}),
	}, 0))

	assert.False(t, p.HasStore("y"))
	assert.Empty(t, p.GetBatch(0, "y"))
}

func TestOutputPool_IdempotentAdd(t *testing.T) {
	p := NewOutputPool([]string{"x"})

	require.NoError(t, p.AddBatch(map[string]npy.Array{"x": npy.FromFloat64s([]float64{1, 2})}, 0))
	// Re-adding the same index must keep the first value.
	require.NoError(t, p.AddBatch(map[string]npy.Array{"x": npy.FromFloat64s([]float64{8, 9})}, 0))

	got := p.GetBatch(0)
	assert.Equal(t, []float64{1, 2}, got["x"].Float64s())
}

func TestOutputPool_RemoveBatch(t *testing.T) {
	p := NewOutputPool([]string{"x", "d"})

	require.NoError(t, p.AddBatch(map[string]npy.Array{"x": npy.FromFloat64s([]float64{1})}, 0))
	require.NoError(t, p.AddBatch(map[string]npy.Array{"x": npy.FromFloat64s([]float64{2})}, 1))

	require.NoError(t, p.RemoveBatch(1))
	assert.Empty(t, p.GetBatch(1))
	// Removing an absent index is a no-op.
	require.NoError(t, p.RemoveBatch(5))
}

func TestOutputPool_LenAndHas(t *testing.T) {
	p := NewOutputPool([]string{"x", "d"})
	assert.Equal(t, 0, p.Len())
	assert.False(t, p.Has(0))

	require.NoError(t, p.AddBatch(map[string]npy.Array{"x": npy.FromFloat64s([]float64{1})}, 0))
	require.NoError(t, p.AddBatch(map[string]npy.Array{"x": npy.FromFloat64s([]float64{2})}, 1))
	require.NoError(t, p.AddBatch(map[string]npy.Array{"d": npy.FromFloat64s([]float64{3})}, 0))

	// Len is the largest store length across outputs.
	assert.Equal(t, 2, p.Len())
	assert.True(t, p.Has(0))
	assert.True(t, p.Has(1))
	assert.False(t, p.Has(2))
	assert.False(t, p.Has(-1))
}

func TestOutputPool_StoreManagement(t *testing.T) {
	p := NewOutputPool([]string{"x"})

	assert.True(t, p.HasStore("x"))
	assert.False(t, p.HasStore("y"))

	// Declared but unrealized.
	st, err := p.GetStore("x")
	require.NoError(t, err)
	assert.Nil(t, st)

	_, err = p.GetStore("y")
	assert.ErrorIs(t, err, ErrNoStore)

	// Registering an external store declares the output.
	ms := store.NewMemoryStore()
	require.NoError(t, p.AddStore("y", ms))
	assert.True(t, p.HasStore("y"))
	assert.ErrorIs(t, p.AddStore("y", store.NewMemoryStore()), ErrStoreExists)

	// Nil registration declares for lazy realization.
	require.NoError(t, p.AddStore("z", nil))
	assert.True(t, p.HasStore("z"))
	require.NoError(t, p.AddStore("z", store.NewMemoryStore()))

	removed, err := p.RemoveStore("y")
	require.NoError(t, err)
	assert.Equal(t, ms, removed)
	assert.False(t, p.HasStore("y"))

	_, err = p.RemoveStore("y")
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestOutputPool_Clear(t *testing.T) {
	p := NewOutputPool([]string{"x", "d"})

	require.NoError(t, p.AddBatch(map[string]npy.Array{
		"x": npy.FromFloat64s([]float64{1}),
		"d": npy.FromFloat64s([]float64{2}),
	}, 0))

	require.NoError(t, p.Clear())
	assert.Equal(t, 0, p.Len())
	assert.Empty(t, p.GetBatch(0))
}
