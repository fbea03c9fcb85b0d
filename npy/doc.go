// Package npy implements an appendable persistent array stored in the
// NumPy .npy version 2.0 file format.
//
// # Overview
//
// A PersistedArray is one homogeneous array in one binary file: a fixed
// element dtype, fixed trailing dimensions, and a leading dimension that
// grows as data is appended. Random-access reads and in-place writes are
// served through a shared memory mapping over the live file, so views
// returned by Slice reflect later writes without copying.
//
// # File Format
//
// Files are bit-compatible with NumPy's versioned array format:
//
//	Magic   (6 bytes)  - \x93NUMPY
//	Version (2 bytes)  - major 2, minor 0
//	HLen    (4 bytes)  - little-endian header length
//	Header  (HLen)     - Python dict literal, space padded, '\n' terminated
//	Data               - raw row-major element bytes
//
// Any .npy reader can open files written by this package, and version 2.0
// row-major .npy files open here.
//
// # Header Reservation
//
// On first initialization the header is sized for a leading dimension of
// up to a configurable digit budget (default 20 digits, enough for any
// uint64 length). Later header rewrites change only the padded dict in
// place; the 12-byte prefix and the data offset never move, which is what
// makes unbounded append possible without rewriting element data.
//
// # Constraints
//
// Row-major (C order) layout only; column-major files are rejected on
// open. Element bytes are little-endian. The dtype and trailing shape are
// fixed for the lifetime of the file.
package npy
