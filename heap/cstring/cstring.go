// Package cstring stores and loads NUL-terminated strings in heap blocks.
//
// Strings are encoded on the way in and decoded on the way out with a
// golang.org/x/text encoding, so callers can keep byte-oriented (UTF-8,
// Windows-1252) and wide (UTF-16LE) strings in the same heap. The
// terminator is one zero code unit of the encoding: a single byte for
// UTF-8 and Windows-1252, two bytes for UTF-16.
package cstring

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/joshuapare/heapkit/heap/alloc"
)

var (
	// ErrEmbeddedNUL is returned for strings that contain U+0000, which
	// would read back truncated.
	ErrEmbeddedNUL = errors.New("cstring: string contains NUL")

	// ErrUnterminated is returned when a block holds no terminator.
	ErrUnterminated = errors.New("cstring: no terminator in block")
)

// UTF8 is the default encoding, used when a nil encoding is passed.
var UTF8 encoding.Encoding = unicode.UTF8

// UTF16LE is little-endian UTF-16 without a byte order mark.
var UTF16LE encoding.Encoding = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Lookup returns the encoding for a WHATWG label such as "utf-8",
// "windows-1252" (or "cp1252") and "utf-16le".
func Lookup(name string) (encoding.Encoding, error) {
	if name == "" {
		return UTF8, nil
	}
	enc, err := htmlindex.Get(strings.TrimSpace(name))
	if err != nil {
		return nil, errors.Wrapf(err, "cstring: encoding %q", name)
	}
	return enc, nil
}

// Dup copies s into a new heap block, encoded with enc and NUL-terminated.
// A nil enc means UTF-8.
func Dup(h *alloc.Heap, s string, enc encoding.Encoding) (alloc.Ptr, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return alloc.Null, ErrEmbeddedNUL
	}
	enc = orUTF8(enc)
	data, _, err := transform.Bytes(enc.NewEncoder(), []byte(s))
	if err != nil {
		return alloc.Null, errors.Wrapf(err, "cstring: encode %q", s)
	}
	width := unitWidth(enc)

	p, err := h.Allocate(len(data) + width)
	if err != nil {
		return alloc.Null, err
	}
	b, err := h.Bytes(p)
	if err != nil {
		return alloc.Null, err
	}
	n := copy(b, data)
	clear(b[n : n+width])
	return p, nil
}

// DupN is Dup limited to the first n bytes of s. The cut backs off to a
// rune boundary so a multi-byte character is never split.
func DupN(h *alloc.Heap, s string, n int, enc encoding.Encoding) (alloc.Ptr, error) {
	if n < 0 {
		return alloc.Null, errors.Wrapf(alloc.ErrInvalidSize, "cstring: dupn %d", n)
	}
	if n < len(s) {
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n]
	}
	return Dup(h, s, enc)
}

// Read decodes the NUL-terminated string stored at p.
func Read(h *alloc.Heap, p alloc.Ptr, enc encoding.Encoding) (string, error) {
	b, err := h.Bytes(p)
	if err != nil {
		return "", err
	}
	enc = orUTF8(enc)
	end := terminator(b, unitWidth(enc))
	if end < 0 {
		return "", errors.Wrapf(ErrUnterminated, "cstring: %s (%d bytes)", p, len(b))
	}
	s, _, err := transform.String(enc.NewDecoder(), string(b[:end]))
	if err != nil {
		return "", errors.Wrapf(err, "cstring: decode %s", p)
	}
	return s, nil
}

// Len returns the encoded length in bytes of the string at p, excluding the
// terminator.
func Len(h *alloc.Heap, p alloc.Ptr, enc encoding.Encoding) (int, error) {
	b, err := h.Bytes(p)
	if err != nil {
		return 0, err
	}
	end := terminator(b, unitWidth(orUTF8(enc)))
	if end < 0 {
		return 0, errors.Wrapf(ErrUnterminated, "cstring: %s (%d bytes)", p, len(b))
	}
	return end, nil
}

func orUTF8(enc encoding.Encoding) encoding.Encoding {
	if enc == nil {
		return UTF8
	}
	return enc
}

// unitWidth is the size of the encoding's NUL code unit.
func unitWidth(enc encoding.Encoding) int {
	nul, err := enc.NewEncoder().Bytes([]byte{0})
	if err != nil || len(nul) == 0 {
		return 1
	}
	return len(nul)
}

// terminator returns the offset of the first all-zero code unit of the
// given width, or -1.
func terminator(b []byte, width int) int {
	if width == 1 {
		return bytes.IndexByte(b, 0)
	}
	for i := 0; i+width <= len(b); i += width {
		zero := true
		for _, c := range b[i : i+width] {
			if c != 0 {
				zero = false
				break
			}
		}
		if zero {
			return i
		}
	}
	return -1
}
