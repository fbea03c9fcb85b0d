package npy

import "fmt"

// Dtype identifies the element type of an array. The zero value is invalid.
type Dtype int

const (
	// DtypeInvalid is the zero Dtype.
	DtypeInvalid Dtype = iota
	// Bool is a 1-byte boolean ("|b1").
	Bool
	// Int8 is a signed 8-bit integer ("|i1").
	Int8
	// Int16 is a little-endian signed 16-bit integer ("<i2").
	Int16
	// Int32 is a little-endian signed 32-bit integer ("<i4").
	Int32
	// Int64 is a little-endian signed 64-bit integer ("<i8").
	Int64
	// Uint8 is an unsigned 8-bit integer ("|u1").
	Uint8
	// Uint16 is a little-endian unsigned 16-bit integer ("<u2").
	Uint16
	// Uint32 is a little-endian unsigned 32-bit integer ("<u4").
	Uint32
	// Uint64 is a little-endian unsigned 64-bit integer ("<u8").
	Uint64
	// Float32 is a little-endian IEEE 754 single ("<f4").
	Float32
	// Float64 is a little-endian IEEE 754 double ("<f8").
	Float64
)

var dtypeDescrs = map[Dtype]string{
	Bool:    "|b1",
	Int8:    "|i1",
	Int16:   "<i2",
	Int32:   "<i4",
	Int64:   "<i8",
	Uint8:   "|u1",
	Uint16:  "<u2",
	Uint32:  "<u4",
	Uint64:  "<u8",
	Float32: "<f4",
	Float64: "<f8",
}

var dtypeSizes = map[Dtype]int{
	Bool:    1,
	Int8:    1,
	Int16:   2,
	Int32:   4,
	Int64:   8,
	Uint8:   1,
	Uint16:  2,
	Uint32:  4,
	Uint64:  8,
	Float32: 4,
	Float64: 8,
}

// Descr returns the NumPy dtype descriptor string, e.g. "<f8".
func (d Dtype) Descr() string {
	if s, ok := dtypeDescrs[d]; ok {
		return s
	}
	return fmt.Sprintf("invalid(%d)", int(d))
}

// ItemSize returns the element width in bytes.
func (d Dtype) ItemSize() int {
	return dtypeSizes[d]
}

// Valid reports whether d is a supported dtype.
func (d Dtype) Valid() bool {
	_, ok := dtypeSizes[d]
	return ok
}

func (d Dtype) String() string {
	return d.Descr()
}

// ParseDescr maps a NumPy dtype descriptor string back to a Dtype.
//
// Single-byte types are accepted with either "|" or "<" byte-order marks.
// Big-endian descriptors (">") and anything outside the fixed-width
// numeric set are rejected.
func ParseDescr(descr string) (Dtype, error) {
	for d, s := range dtypeDescrs {
		if descr == s {
			return d, nil
		}
		// numpy emits '|' for 1-byte types but tolerates '<'.
		if d.ItemSize() == 1 && len(descr) == 3 && descr[0] == '<' && descr[1:] == s[1:] {
			return d, nil
		}
	}
	return DtypeInvalid, fmt.Errorf("unsupported dtype descriptor %q", descr)
}
