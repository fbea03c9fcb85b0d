package npy

import (
	"bytes"
	"fmt"
	"unsafe"
)

// Array is a dense row-major array value: a dtype, a shape, and the raw
// little-endian element bytes. The zero value is an empty, invalid array.
//
// An Array may own its bytes (constructors, Copy) or borrow them from a
// larger buffer such as a file mapping (Slice, PersistedArray.Slice).
// Borrowed views alias their source: writing through a typed accessor
// mutates the source bytes.
type Array struct {
	dtype Dtype
	shape []int
	data  []byte
}

// New returns a zero-filled array of the given dtype and shape.
func New(dtype Dtype, shape ...int) Array {
	n := prod(shape) * dtype.ItemSize()
	return Array{dtype: dtype, shape: append([]int(nil), shape...), data: make([]byte, n)}
}

// NewFromBytes wraps raw row-major element bytes without copying.
// The byte length must match the shape and dtype exactly.
func NewFromBytes(dtype Dtype, shape []int, data []byte) (Array, error) {
	want := prod(shape) * dtype.ItemSize()
	if len(data) != want {
		return Array{}, fmt.Errorf("npy: %d data bytes for shape %v of %s (want %d)", len(data), shape, dtype, want)
	}
	return Array{dtype: dtype, shape: append([]int(nil), shape...), data: data}, nil
}

// FromFloat64s returns a 1-D Float64 array backed by a copy of v.
func FromFloat64s(v []float64) Array {
	a := New(Float64, len(v))
	copy(a.Float64s(), v)
	return a
}

// FromFloat32s returns a 1-D Float32 array backed by a copy of v.
func FromFloat32s(v []float32) Array {
	a := New(Float32, len(v))
	copy(a.Float32s(), v)
	return a
}

// FromInt32s returns a 1-D Int32 array backed by a copy of v.
func FromInt32s(v []int32) Array {
	a := New(Int32, len(v))
	copy(a.Int32s(), v)
	return a
}

// FromInt64s returns a 1-D Int64 array backed by a copy of v.
func FromInt64s(v []int64) Array {
	a := New(Int64, len(v))
	copy(a.Int64s(), v)
	return a
}

// Dtype returns the element type.
func (a Array) Dtype() Dtype { return a.dtype }

// Shape returns a copy of the full shape.
func (a Array) Shape() []int { return append([]int(nil), a.shape...) }

// Len returns the length of the leading dimension (0 for an empty shape).
func (a Array) Len() int {
	if len(a.shape) == 0 {
		return 0
	}
	return a.shape[0]
}

// Trailing returns a copy of the shape after the leading dimension.
func (a Array) Trailing() []int {
	if len(a.shape) == 0 {
		return nil
	}
	return append([]int(nil), a.shape[1:]...)
}

// RowBytes returns the byte size of one leading-dimension element.
func (a Array) RowBytes() int {
	if len(a.shape) == 0 {
		return a.dtype.ItemSize()
	}
	return prod(a.shape[1:]) * a.dtype.ItemSize()
}

// Bytes returns the raw backing bytes without copying.
func (a Array) Bytes() []byte { return a.data }

// Slice returns a view over leading-dimension indices [start, stop).
// The view shares the backing bytes.
func (a Array) Slice(start, stop int) (Array, error) {
	if start < 0 || stop < start || stop > a.Len() {
		return Array{}, fmt.Errorf("npy: slice [%d:%d) out of range for length %d", start, stop, a.Len())
	}
	rb := a.RowBytes()
	shape := append([]int{stop - start}, a.shape[1:]...)
	return Array{dtype: a.dtype, shape: shape, data: a.data[start*rb : stop*rb]}, nil
}

// Copy returns a deep copy of the array that owns its bytes.
func (a Array) Copy() Array {
	c := Array{dtype: a.dtype, shape: append([]int(nil), a.shape...), data: make([]byte, len(a.data))}
	copy(c.data, a.data)
	return c
}

// Equal reports whether b has the same dtype, shape and element bytes.
func (a Array) Equal(b Array) bool {
	if a.dtype != b.dtype || len(a.shape) != len(b.shape) {
		return false
	}
	for i := range a.shape {
		if a.shape[i] != b.shape[i] {
			return false
		}
	}
	return bytes.Equal(a.data, b.data)
}

// Float64s returns the elements as a live []float64 view.
// Panics if the dtype is not Float64.
func (a Array) Float64s() []float64 {
	a.mustDtype(Float64)
	return typedView[float64](a.data)
}

// Float32s returns the elements as a live []float32 view.
// Panics if the dtype is not Float32.
func (a Array) Float32s() []float32 {
	a.mustDtype(Float32)
	return typedView[float32](a.data)
}

// Int32s returns the elements as a live []int32 view.
// Panics if the dtype is not Int32.
func (a Array) Int32s() []int32 {
	a.mustDtype(Int32)
	return typedView[int32](a.data)
}

// Int64s returns the elements as a live []int64 view.
// Panics if the dtype is not Int64.
func (a Array) Int64s() []int64 {
	a.mustDtype(Int64)
	return typedView[int64](a.data)
}

// Uint8s returns the elements as a live []uint8 view.
// Panics if the dtype is not Uint8.
func (a Array) Uint8s() []uint8 {
	a.mustDtype(Uint8)
	return a.data
}

func (a Array) mustDtype(want Dtype) {
	if a.dtype != want {
		panic(fmt.Sprintf("npy: accessing %s array as %s", a.dtype, want))
	}
}

// typedView reinterprets raw little-endian bytes as a slice of T. Files
// written by this package keep the data region 64-byte aligned, so views
// over them are aligned for every supported element width.
func typedView[T any](data []byte) []T {
	if len(data) == 0 {
		return nil
	}
	var t T
	n := len(data) / int(unsafe.Sizeof(t))
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), n)
}

func prod(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}
