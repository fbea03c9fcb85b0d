package npy

import (
	"fmt"
	"os"
	"strings"

	"github.com/alxsoares/elfi/internal/mmap"
)

// Extension is the reserved file extension, appended when missing.
const Extension = ".npy"

// DefaultLeadingDigits reserves header room for a leading dimension of up
// to 20 decimal digits, enough for any uint64 length.
const DefaultLeadingDigits = 20

type openOptions struct {
	initial       *Array
	truncate      bool
	leadingDigits int
}

// OpenOption configures Open.
type OpenOption func(*openOptions)

// WithInitial appends a to the array after opening. If the file is fresh,
// a also fixes the dtype and trailing shape and sizes the header
// reservation.
func WithInitial(a Array) OpenOption {
	return func(o *openOptions) {
		o.initial = &a
	}
}

// WithTruncate discards any existing file content instead of parsing it.
func WithTruncate() OpenOption {
	return func(o *openOptions) {
		o.truncate = true
	}
}

// WithLeadingDigits sets the decimal digit budget reserved in the header
// for the leading dimension. Appends that grow the length beyond this
// many digits fail with ErrHeaderOverflow. Values < 1 keep the default.
func WithLeadingDigits(n int) OpenOption {
	return func(o *openOptions) {
		o.leadingDigits = n
	}
}

// PersistedArray is one growable homogeneous array persisted in a .npy
// version 2.0 file. The dtype and trailing shape are fixed at
// initialization; the leading dimension grows with Append and shrinks
// with Truncate.
//
// A PersistedArray owns its file handle. The owner must call Close (or
// Delete) on every exit path; a skipped Close can leave a header on disk
// that under-reports the true length.
//
// Not safe for concurrent use.
type PersistedArray struct {
	path   string
	f      *os.File
	digits int

	dtype      Dtype
	trailing   []int
	leading    int
	dataOffset int // 0 means not initialized

	pending []byte // serialized header awaiting flush, nil when clean
	m       *mmap.Mapping
	// retired holds outgrown mappings. They stay mapped so views handed
	// out before an append remain valid; the file only ever grows under
	// them. Truncate, Close and Delete release them all.
	retired []*mmap.Mapping

	closed  bool
	deleted bool
}

// Open opens or creates the persisted array stored at path. Extension is
// appended to path when missing.
//
// When the file exists and WithTruncate is not given, its header is
// parsed to recover dtype, trailing shape and current length; column
// major files and unsupported format versions fail with *FormatError.
// Otherwise a fresh, uninitialized file is created.
//
// Reconstructing a previously flushed array needs only its path.
func Open(path string, opts ...OpenOption) (*PersistedArray, error) {
	o := openOptions{leadingDigits: DefaultLeadingDigits}
	for _, fn := range opts {
		fn(&o)
	}
	if o.leadingDigits < 1 {
		o.leadingDigits = DefaultLeadingDigits
	}
	if !strings.HasSuffix(path, Extension) {
		path += Extension
	}

	p := &PersistedArray{path: path, digits: o.leadingDigits}

	_, statErr := os.Stat(path)
	if !o.truncate && statErr == nil {
		f, err := os.OpenFile(path, os.O_RDWR, 0o644)
		if err != nil {
			return nil, err
		}
		p.f = f
		if err := p.initFromFile(); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, err
		}
		p.f = f
	}

	if o.initial != nil {
		if err := p.Append(*o.initial); err != nil {
			p.f.Close()
			return nil, err
		}
		if err := p.Flush(); err != nil {
			p.f.Close()
			return nil, err
		}
	}

	return p, nil
}

// Path returns the file path, including the extension.
func (p *PersistedArray) Path() string { return p.path }

// Len returns the current length of the leading dimension.
func (p *PersistedArray) Len() int { return p.leading }

// Dtype returns the element type, or DtypeInvalid before initialization.
func (p *PersistedArray) Dtype() Dtype { return p.dtype }

// Trailing returns a copy of the fixed trailing shape.
func (p *PersistedArray) Trailing() []int {
	return append([]int(nil), p.trailing...)
}

// Initialized reports whether the header has been written, i.e. dtype and
// trailing shape are fixed.
func (p *PersistedArray) Initialized() bool {
	return p.dataOffset > 0 && !p.closed && !p.deleted
}

// Append writes the raw bytes of a at the current end of the data region
// and grows the leading dimension by a's length. The header rewrite is
// deferred until the next Flush, Truncate or Close.
//
// The first Append on a fresh file initializes the array from a. A failed
// Append leaves the observable length unchanged.
func (p *PersistedArray) Append(a Array) error {
	if err := p.state(); err != nil {
		return err
	}
	if p.dataOffset == 0 {
		if err := p.initFromArray(a); err != nil {
			return err
		}
	}
	if err := p.checkCompatible(a); err != nil {
		return err
	}

	newLeading := p.leading + a.Len()
	hdr, err := p.encodeFor(newLeading)
	if err != nil {
		return err
	}

	off := int64(p.dataOffset + p.leading*p.rowBytes())
	if _, err := p.f.WriteAt(a.Bytes(), off); err != nil {
		// Drop any partially written tail so the file stays consistent
		// with the unchanged header.
		_ = p.f.Truncate(off)
		return err
	}

	p.leading = newLeading
	p.pending = hdr
	p.retire()
	return nil
}

// Slice returns a live read/write view over leading-dimension indices
// [start, stop). The view is backed by a shared mapping of the file:
// later writes through this PersistedArray are visible in it, and writes
// through its typed accessors land in the file. No atomicity is implied
// between a view read and an overlapping write.
//
// Views stay valid across Append but are invalidated by Truncate, Clear,
// Close and Delete.
func (p *PersistedArray) Slice(start, stop int) (Array, error) {
	if err := p.state(); err != nil {
		return Array{}, err
	}
	if p.dataOffset == 0 {
		return Array{}, ErrNotInitialized
	}
	if start < 0 || stop < start || stop > p.leading {
		return Array{}, fmt.Errorf("%w: slice [%d:%d) of length %d", ErrOutOfRange, start, stop, p.leading)
	}

	m, err := p.mapping()
	if err != nil {
		return Array{}, err
	}

	rb := p.rowBytes()
	data := m.Bytes()[p.dataOffset+start*rb : p.dataOffset+stop*rb]
	shape := append([]int{stop - start}, p.trailing...)
	return Array{dtype: p.dtype, shape: shape, data: data}, nil
}

// SetSlice overwrites already-allocated rows starting at start with the
// values. Writing past the current length fails with ErrOutOfRange; use
// Append to grow the array.
func (p *PersistedArray) SetSlice(start int, values Array) error {
	if err := p.state(); err != nil {
		return err
	}
	if p.dataOffset == 0 {
		return ErrNotInitialized
	}
	if err := p.checkCompatible(values); err != nil {
		return err
	}
	if start < 0 || start+values.Len() > p.leading {
		return fmt.Errorf("%w: write [%d:%d) of length %d", ErrOutOfRange, start, start+values.Len(), p.leading)
	}

	m, err := p.mapping()
	if err != nil {
		return err
	}

	copy(m.Bytes()[p.dataOffset+start*p.rowBytes():], values.Bytes())
	return nil
}

// Truncate shrinks the leading dimension to length, rewrites the header
// and physically shortens the file to the new data size.
func (p *PersistedArray) Truncate(length int) error {
	if err := p.state(); err != nil {
		return err
	}
	if p.dataOffset == 0 {
		return ErrNotInitialized
	}
	if length < 0 || length > p.leading {
		return fmt.Errorf("%w: truncate to %d of length %d", ErrOutOfRange, length, p.leading)
	}

	hdr, err := p.encodeFor(length)
	if err != nil {
		return err
	}

	p.unmap()
	p.leading = length
	p.pending = hdr
	if err := p.writeHeader(); err != nil {
		return err
	}
	return p.f.Truncate(int64(p.dataOffset + length*p.rowBytes()))
}

// Clear truncates the array to zero length. The dtype, trailing shape and
// header reservation are kept.
func (p *PersistedArray) Clear() error {
	return p.Truncate(0)
}

// Flush writes any pending header, syncs mapped pages and issues an
// fsync. A failed Flush keeps the pending header so a retry can succeed.
func (p *PersistedArray) Flush() error {
	if err := p.state(); err != nil {
		return err
	}
	if err := p.writeHeader(); err != nil {
		return err
	}
	if p.m != nil {
		if err := p.m.Sync(); err != nil {
			return err
		}
	}
	return p.f.Sync()
}

// Close writes any pending header and closes the file handle. Further
// operations fail with ErrClosed. Close is idempotent.
func (p *PersistedArray) Close() error {
	if p.deleted {
		return ErrDeleted
	}
	if p.closed {
		return nil
	}

	p.unmap()
	var firstErr error
	if p.dataOffset > 0 {
		if err := p.writeHeader(); err != nil {
			firstErr = err
		}
	}
	if err := p.f.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	p.closed = true
	return firstErr
}

// Delete closes the array if needed and removes the file from disk.
// Delete is idempotent; all later operations fail with ErrDeleted.
func (p *PersistedArray) Delete() error {
	if p.deleted {
		return nil
	}
	if !p.closed {
		_ = p.Close()
	}
	err := os.Remove(p.path)
	p.deleted = true
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (p *PersistedArray) state() error {
	if p.deleted {
		return ErrDeleted
	}
	if p.closed {
		return ErrClosed
	}
	return nil
}

func (p *PersistedArray) rowBytes() int {
	return prod(p.trailing) * p.dtype.ItemSize()
}

func (p *PersistedArray) checkCompatible(a Array) error {
	actual := a.Trailing()
	if len(actual) != len(p.trailing) {
		return &ShapeMismatchError{Expected: p.Trailing(), Actual: actual}
	}
	for i := range actual {
		if actual[i] != p.trailing[i] {
			return &ShapeMismatchError{Expected: p.Trailing(), Actual: actual}
		}
	}
	if a.Dtype() != p.dtype {
		return &DtypeMismatchError{Expected: p.dtype, Actual: a.Dtype()}
	}
	return nil
}

// initFromFile recovers dtype, trailing shape and length from an existing
// file's header.
func (p *PersistedArray) initFromFile() error {
	h, dataOffset, err := decodeHeader(p.f)
	if err != nil {
		if fe, ok := err.(*FormatError); ok {
			fe.Path = p.path
		}
		return err
	}
	if h.fortranOrder {
		return &FormatError{Path: p.path, Reason: "column-major (Fortran order) files are not supported"}
	}
	if len(h.shape) == 0 {
		return &FormatError{Path: p.path, Reason: "zero-dimensional arrays are not supported"}
	}
	dtype, err := ParseDescr(h.descr)
	if err != nil {
		return &FormatError{Path: p.path, Reason: err.Error(), cause: err}
	}

	p.dtype = dtype
	p.leading = h.shape[0]
	p.trailing = append([]int(nil), h.shape[1:]...)
	p.dataOffset = dataOffset
	return nil
}

// initFromArray fixes dtype and trailing shape from the first array and
// writes the oversized header for a zero-length array. The reserved
// header length never changes afterwards.
func (p *PersistedArray) initFromArray(a Array) error {
	if !a.Dtype().Valid() {
		return fmt.Errorf("npy: cannot initialize from array with invalid dtype")
	}
	if len(a.Shape()) == 0 {
		return fmt.Errorf("npy: cannot initialize from zero-dimensional array")
	}

	p.dtype = a.Dtype()
	p.trailing = a.Trailing()
	p.leading = 0

	hlen := reservedHeaderLen(p.dtype.Descr(), p.trailing, p.digits)
	buf, err := p.encodeWithLen(0, hlen)
	if err != nil {
		return err
	}
	if _, err := p.f.WriteAt(buf, 0); err != nil {
		return err
	}
	p.dataOffset = headerPrefixLen + hlen
	return nil
}

func (p *PersistedArray) encodeFor(leading int) ([]byte, error) {
	return p.encodeWithLen(leading, p.dataOffset-headerPrefixLen)
}

func (p *PersistedArray) encodeWithLen(leading, hlen int) ([]byte, error) {
	h := header{
		descr:        p.dtype.Descr(),
		fortranOrder: false,
		shape:        append([]int{leading}, p.trailing...),
	}
	buf, err := encodeHeader(h, hlen)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, p.path)
	}
	return buf, nil
}

// writeHeader flushes the pending header bytes, skipping the fixed
// 12-byte prefix which is never rewritten.
func (p *PersistedArray) writeHeader() error {
	if p.pending == nil {
		return nil
	}
	if _, err := p.f.WriteAt(p.pending[headerPrefixLen:], headerPrefixLen); err != nil {
		return err
	}
	p.pending = nil
	return nil
}

// mapping returns a shared read-write mapping covering the header and all
// currently allocated rows, remapping after any size change.
func (p *PersistedArray) mapping() (*mmap.Mapping, error) {
	size := p.dataOffset + p.leading*p.rowBytes()
	if p.m != nil && p.m.Size() == size {
		return p.m, nil
	}
	p.retire()

	m, err := mmap.Map(p.f, size)
	if err != nil {
		return nil, err
	}
	_ = m.Advise(mmap.AccessRandom)
	p.m = m
	return m, nil
}

// retire parks the current mapping instead of unmapping it, keeping
// previously returned views alive across file growth.
func (p *PersistedArray) retire() {
	if p.m != nil {
		p.retired = append(p.retired, p.m)
		p.m = nil
	}
}

// unmap releases the current and all retired mappings. Every view handed
// out so far becomes invalid.
func (p *PersistedArray) unmap() {
	if p.m != nil {
		_ = p.m.Close()
		p.m = nil
	}
	for _, m := range p.retired {
		_ = m.Close()
	}
	p.retired = nil
}
