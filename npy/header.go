package npy

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// .npy version 2.0 layout constants.
const (
	headerPrefixLen = 12 // magic (6) + version (2) + header length (4)
	headerAlign     = 64 // prefix + header is padded to a multiple of this
	headerFill      = ' '
	headerTerm      = '\n'
)

var headerMagic = []byte("\x93NUMPY")

// header is the decoded textual metadata block of a .npy file.
type header struct {
	descr        string
	fortranOrder bool
	shape        []int
}

// headerDict renders the Python dict literal. The leading dimension is
// passed as text so the oversized placeholder used for reservation sizing
// can be rendered without being a representable integer.
func headerDict(descr string, fortranOrder bool, leading string, trailing []int) string {
	order := "False"
	if fortranOrder {
		order = "True"
	}

	var shape strings.Builder
	shape.WriteByte('(')
	shape.WriteString(leading)
	if len(trailing) == 0 {
		shape.WriteByte(',')
	} else {
		for _, t := range trailing {
			shape.WriteString(", ")
			shape.WriteString(strconv.Itoa(t))
		}
	}
	shape.WriteByte(')')

	return fmt.Sprintf("{'descr': '%s', 'fortran_order': %s, 'shape': %s, }", descr, order, shape.String())
}

// reservedHeaderLen returns the header-length field value that reserves
// room for a leading dimension of up to digits decimal digits, keeping
// the whole prefix+header a multiple of headerAlign.
func reservedHeaderLen(descr string, trailing []int, digits int) int {
	placeholder := strings.Repeat("9", digits)
	dict := headerDict(descr, false, placeholder, trailing)
	unpadded := headerPrefixLen + len(dict) + 1 // +1 for the terminator
	padded := (unpadded + headerAlign - 1) / headerAlign * headerAlign
	return padded - headerPrefixLen
}

// encodeHeader serializes the full on-disk header (prefix included) into
// exactly headerPrefixLen+hlen bytes, padding with the fill byte. It
// fails with ErrHeaderOverflow when the dict no longer fits hlen.
func encodeHeader(h header, hlen int) ([]byte, error) {
	var leading string
	trailing := h.shape
	if len(h.shape) > 0 {
		leading = strconv.Itoa(h.shape[0])
		trailing = h.shape[1:]
	} else {
		leading = "0"
	}
	dict := headerDict(h.descr, h.fortranOrder, leading, trailing)
	if len(dict)+1 > hlen {
		return nil, ErrHeaderOverflow
	}

	buf := make([]byte, headerPrefixLen+hlen)
	copy(buf, headerMagic)
	buf[6] = 2 // major
	buf[7] = 0 // minor
	binary.LittleEndian.PutUint32(buf[8:12], uint32(hlen))
	copy(buf[headerPrefixLen:], dict)
	for i := headerPrefixLen + len(dict); i < len(buf)-1; i++ {
		buf[i] = headerFill
	}
	buf[len(buf)-1] = headerTerm
	return buf, nil
}

// decodeHeader parses a .npy header from r. It returns the parsed fields
// and the data offset (prefix + declared header length). Errors are
// *FormatError with the path left for the caller to fill in.
func decodeHeader(r io.Reader) (header, int, error) {
	prefix := make([]byte, headerPrefixLen)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return header{}, 0, &FormatError{Reason: "truncated header prefix", cause: err}
	}
	if string(prefix[:6]) != string(headerMagic) {
		return header{}, 0, &FormatError{Reason: fmt.Sprintf("bad magic %q", prefix[:6])}
	}
	if prefix[6] != 2 || prefix[7] != 0 {
		return header{}, 0, &FormatError{Reason: fmt.Sprintf("unsupported format version %d.%d", prefix[6], prefix[7])}
	}
	hlen := int(binary.LittleEndian.Uint32(prefix[8:12]))

	raw := make([]byte, hlen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return header{}, 0, &FormatError{Reason: "truncated header", cause: err}
	}

	h, err := parseHeaderDict(string(raw))
	if err != nil {
		return header{}, 0, &FormatError{Reason: err.Error(), cause: err}
	}
	return h, headerPrefixLen + hlen, nil
}

// parseHeaderDict extracts descr, fortran_order and shape from the Python
// dict literal. It tolerates arbitrary key order and padding.
func parseHeaderDict(s string) (header, error) {
	s = strings.TrimRight(s, "\n \t\x00")
	if !strings.HasPrefix(strings.TrimSpace(s), "{") {
		return header{}, fmt.Errorf("header is not a dict literal")
	}

	var h header

	descr, err := quotedValue(s, "'descr':")
	if err != nil {
		return header{}, err
	}
	h.descr = descr

	rest, ok := cutAfter(s, "'fortran_order':")
	if !ok {
		return header{}, fmt.Errorf("missing key 'fortran_order'")
	}
	rest = strings.TrimLeft(rest, " ")
	switch {
	case strings.HasPrefix(rest, "False"):
		h.fortranOrder = false
	case strings.HasPrefix(rest, "True"):
		h.fortranOrder = true
	default:
		return header{}, fmt.Errorf("bad 'fortran_order' value")
	}

	rest, ok = cutAfter(s, "'shape':")
	if !ok {
		return header{}, fmt.Errorf("missing key 'shape'")
	}
	rest = strings.TrimLeft(rest, " ")
	if !strings.HasPrefix(rest, "(") {
		return header{}, fmt.Errorf("bad 'shape' value")
	}
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return header{}, fmt.Errorf("unterminated 'shape' tuple")
	}
	for _, part := range strings.Split(rest[1:end], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return header{}, fmt.Errorf("bad 'shape' component %q", part)
		}
		h.shape = append(h.shape, n)
	}

	return h, nil
}

func quotedValue(s, key string) (string, error) {
	rest, ok := cutAfter(s, key)
	if !ok {
		return "", fmt.Errorf("missing key %s", key)
	}
	rest = strings.TrimLeft(rest, " ")
	if !strings.HasPrefix(rest, "'") {
		return "", fmt.Errorf("bad value for %s", key)
	}
	rest = rest[1:]
	end := strings.IndexByte(rest, '\'')
	if end < 0 {
		return "", fmt.Errorf("unterminated value for %s", key)
	}
	return rest[:end], nil
}

func cutAfter(s, key string) (string, bool) {
	i := strings.Index(s, key)
	if i < 0 {
		return "", false
	}
	return s[i+len(key):], true
}
