package npy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempArrayPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "data")
}

func TestPersistedArray_ExtensionAppended(t *testing.T) {
	p, err := Open(tempArrayPath(t))
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, ".npy", filepath.Ext(p.Path()))

	q, err := Open(p.Path())
	require.NoError(t, err)
	defer q.Close()
	assert.Equal(t, p.Path(), q.Path())
}

func TestPersistedArray_AppendAndSlice(t *testing.T) {
	p, err := Open(tempArrayPath(t))
	require.NoError(t, err)
	defer p.Close()

	assert.False(t, p.Initialized())
	assert.Equal(t, 0, p.Len())

	require.NoError(t, p.Append(FromFloat64s([]float64{1, 2, 3})))
	assert.True(t, p.Initialized())
	assert.Equal(t, Float64, p.Dtype())
	assert.Equal(t, 3, p.Len())

	require.NoError(t, p.Append(FromFloat64s([]float64{4, 5})))
	assert.Equal(t, 5, p.Len())

	got, err := p.Slice(0, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, got.Float64s())

	mid, err := p.Slice(1, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3}, mid.Float64s())
}

func TestPersistedArray_LiveViews(t *testing.T) {
	p, err := Open(tempArrayPath(t), WithInitial(FromFloat64s([]float64{1, 2, 3, 4})))
	require.NoError(t, err)
	defer p.Close()

	view, err := p.Slice(0, 4)
	require.NoError(t, err)

	// Writes through the object are visible in the earlier view.
	require.NoError(t, p.SetSlice(1, FromFloat64s([]float64{20})))
	assert.Equal(t, []float64{1, 20, 3, 4}, view.Float64s())

	// Writes through the view land in the file.
	view.Float64s()[0] = 10
	back, err := p.Slice(0, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{10}, back.Float64s())

	// Views survive a later append.
	require.NoError(t, p.Append(FromFloat64s([]float64{5})))
	assert.Equal(t, []float64{10, 20, 3, 4}, view.Float64s())
}

func TestPersistedArray_SliceBounds(t *testing.T) {
	p, err := Open(tempArrayPath(t), WithInitial(FromFloat64s([]float64{1, 2})))
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Slice(0, 3)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = p.Slice(-1, 1)
	assert.ErrorIs(t, err, ErrOutOfRange)

	err = p.SetSlice(1, FromFloat64s([]float64{8, 9}))
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestPersistedArray_NotInitialized(t *testing.T) {
	p, err := Open(tempArrayPath(t))
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Slice(0, 0)
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.ErrorIs(t, p.SetSlice(0, FromFloat64s(nil)), ErrNotInitialized)
	assert.ErrorIs(t, p.Truncate(0), ErrNotInitialized)
}

func TestPersistedArray_Mismatches(t *testing.T) {
	p, err := Open(tempArrayPath(t), WithInitial(FromInt32s([]int32{1, 2, 3})))
	require.NoError(t, err)
	defer p.Close()

	// Wrong dtype fails and leaves the stored length unchanged.
	err = p.Append(FromFloat64s([]float64{1.5}))
	var dm *DtypeMismatchError
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, Int32, dm.Expected)
	assert.Equal(t, Float64, dm.Actual)
	assert.Equal(t, 3, p.Len())

	// Wrong trailing shape likewise.
	err = p.Append(New(Int32, 1, 4))
	var sm *ShapeMismatchError
	require.ErrorAs(t, err, &sm)
	assert.Equal(t, 3, p.Len())
}

func TestPersistedArray_ReopenRoundTrip(t *testing.T) {
	path := tempArrayPath(t)

	p, err := Open(path, WithInitial(New(Float32, 2, 3)))
	require.NoError(t, err)
	require.NoError(t, p.Append(New(Float32, 4, 3)))
	require.NoError(t, p.Close())

	q, err := Open(path)
	require.NoError(t, err)
	defer q.Close()

	assert.Equal(t, Float32, q.Dtype())
	assert.Equal(t, []int{3}, q.Trailing())
	assert.Equal(t, 6, q.Len())

	got, err := q.Slice(0, 6)
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 18), got.Float32s())
}

func TestPersistedArray_ReopenPreservesValues(t *testing.T) {
	path := tempArrayPath(t)
	want := []float64{1.25, -2.5, 3.75, 4, 5.125}

	p, err := Open(path, WithInitial(FromFloat64s(want)))
	require.NoError(t, err)
	require.NoError(t, p.Close())

	q, err := Open(path)
	require.NoError(t, err)
	defer q.Close()

	got, err := q.Slice(0, 5)
	require.NoError(t, err)
	assert.Equal(t, want, got.Float64s())
}

func TestPersistedArray_TruncateAppendInverse(t *testing.T) {
	path := tempArrayPath(t)

	p, err := Open(path, WithInitial(FromFloat64s([]float64{1, 2, 3})))
	require.NoError(t, err)
	require.NoError(t, p.Flush())

	before, err := os.ReadFile(p.Path())
	require.NoError(t, err)

	require.NoError(t, p.Append(FromFloat64s([]float64{4, 5})))
	require.NoError(t, p.Truncate(3))
	require.NoError(t, p.Flush())
	assert.Equal(t, 3, p.Len())
	require.NoError(t, p.Close())

	after, err := os.ReadFile(p.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestPersistedArray_HeaderPrefixStable(t *testing.T) {
	path := tempArrayPath(t)

	p, err := Open(path, WithInitial(FromInt64s([]int64{1})))
	require.NoError(t, err)

	initial, err := os.ReadFile(p.Path())
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		require.NoError(t, p.Append(FromInt64s([]int64{int64(i)})))
	}
	require.NoError(t, p.Flush())
	require.NoError(t, p.Close())

	final, err := os.ReadFile(p.Path())
	require.NoError(t, err)
	assert.Equal(t, initial[:12], final[:12])
}

func TestPersistedArray_HeaderOverflow(t *testing.T) {
	// Craft a file whose header reservation fits exactly one digit, the
	// tightest layout another writer could legally produce.
	path := tempArrayPath(t) + Extension
	hlen := len(headerDict("<f8", false, "9", nil)) + 1
	buf, err := encodeHeader(header{descr: "<f8", shape: []int{9}}, hlen)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(buf, make([]byte, 9*8)...), 0o644))

	p, err := Open(path)
	require.NoError(t, err)
	defer p.Close()
	require.Equal(t, 9, p.Len())

	// Growing to 10 rows needs a second digit that the reservation
	// cannot hold; the length must stay unchanged.
	err = p.Append(FromFloat64s([]float64{1}))
	assert.ErrorIs(t, err, ErrHeaderOverflow)
	assert.Equal(t, 9, p.Len())
}

func TestPersistedArray_Truncate(t *testing.T) {
	p, err := Open(tempArrayPath(t), WithInitial(FromFloat64s([]float64{1, 2, 3, 4})))
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Truncate(2))
	assert.Equal(t, 2, p.Len())

	got, err := p.Slice(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, got.Float64s())

	assert.ErrorIs(t, p.Truncate(5), ErrOutOfRange)
	assert.ErrorIs(t, p.Truncate(-1), ErrOutOfRange)

	require.NoError(t, p.Clear())
	assert.Equal(t, 0, p.Len())
	assert.True(t, p.Initialized())

	// The array can grow again after clearing.
	require.NoError(t, p.Append(FromFloat64s([]float64{7})))
	assert.Equal(t, 1, p.Len())
}

func TestPersistedArray_TruncateShrinksFile(t *testing.T) {
	p, err := Open(tempArrayPath(t), WithInitial(FromFloat64s(make([]float64, 100))))
	require.NoError(t, err)
	defer p.Close()

	before, err := os.Stat(p.Path())
	require.NoError(t, err)

	require.NoError(t, p.Truncate(10))

	after, err := os.Stat(p.Path())
	require.NoError(t, err)
	assert.Equal(t, before.Size()-90*8, after.Size())
}

func TestPersistedArray_Closed(t *testing.T) {
	p, err := Open(tempArrayPath(t), WithInitial(FromFloat64s([]float64{1})))
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close()) // idempotent

	assert.ErrorIs(t, p.Append(FromFloat64s([]float64{2})), ErrClosed)
	_, err = p.Slice(0, 1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, p.Truncate(0), ErrClosed)
	assert.ErrorIs(t, p.Flush(), ErrClosed)
	assert.False(t, p.Initialized())
}

func TestPersistedArray_Delete(t *testing.T) {
	p, err := Open(tempArrayPath(t), WithInitial(FromFloat64s([]float64{1})))
	require.NoError(t, err)

	path := p.Path()
	require.NoError(t, p.Delete())
	require.NoError(t, p.Delete()) // idempotent

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, p.Append(FromFloat64s([]float64{2})), ErrDeleted)
	_, err = p.Slice(0, 1)
	assert.ErrorIs(t, err, ErrDeleted)
	assert.ErrorIs(t, p.Close(), ErrDeleted)
	assert.ErrorIs(t, p.Flush(), ErrDeleted)
}

func TestPersistedArray_OpenRejectsFortranOrder(t *testing.T) {
	path := tempArrayPath(t) + Extension

	buf, err := encodeHeader(header{descr: "<f8", fortranOrder: true, shape: []int{2, 2}}, reservedHeaderLen("<f8", []int{2}, 20))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(buf, make([]byte, 32)...), 0o644))

	_, err = Open(path)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Reason, "Fortran")
	assert.Equal(t, path, fe.Path)
}

func TestPersistedArray_OpenRejectsGarbage(t *testing.T) {
	path := tempArrayPath(t) + Extension
	require.NoError(t, os.WriteFile(path, []byte("not a npy file at all"), 0o644))

	_, err := Open(path)
	var fe *FormatError
	assert.ErrorAs(t, err, &fe)
}

func TestPersistedArray_WithTruncateDiscards(t *testing.T) {
	path := tempArrayPath(t)

	p, err := Open(path, WithInitial(FromFloat64s([]float64{1, 2, 3})))
	require.NoError(t, err)
	require.NoError(t, p.Close())

	q, err := Open(path, WithTruncate(), WithInitial(FromInt32s([]int32{7})))
	require.NoError(t, err)
	defer q.Close()

	assert.Equal(t, Int32, q.Dtype())
	assert.Equal(t, 1, q.Len())
}
