package cstring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/joshuapare/heapkit/heap/alloc"
)

func newHeap(t *testing.T) *alloc.Heap {
	t.Helper()
	h, err := alloc.New(&alloc.ConfigSmall)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestDupRead(t *testing.T) {
	tests := []struct {
		name    string
		enc     encoding.Encoding
		in      string
		wantLen int
	}{
		{"utf8 default", nil, "hello", 5},
		{"utf8 multibyte", UTF8, "héllo wörld", 13},
		{"windows-1252", charmap.Windows1252, "café", 4},
		{"utf16le", UTF16LE, "hi €", 8},
		{"empty", nil, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHeap(t)
			p, err := Dup(h, tt.in, tt.enc)
			require.NoError(t, err)

			n, err := Len(h, p, tt.enc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, n)

			got, err := Read(h, p, tt.enc)
			require.NoError(t, err)
			assert.Equal(t, tt.in, got)
		})
	}
}

func TestDupWindows1252Bytes(t *testing.T) {
	h := newHeap(t)
	p, err := Dup(h, "café", charmap.Windows1252)
	require.NoError(t, err)
	b, err := h.Bytes(p)
	require.NoError(t, err)
	assert.Equal(t, []byte{'c', 'a', 'f', 0xE9, 0}, b[:5])
}

func TestDupRejects(t *testing.T) {
	h := newHeap(t)

	_, err := Dup(h, "a\x00b", nil)
	assert.ErrorIs(t, err, ErrEmbeddedNUL)

	_, err = Dup(h, "日本", charmap.Windows1252)
	assert.Error(t, err, "not representable in Windows-1252")
	assert.Equal(t, 0, h.LiveCount(), "nothing allocated on failure")
}

func TestDupN(t *testing.T) {
	h := newHeap(t)

	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"hello", 3, "hel"},
		{"hello", 10, "hello"},
		{"hello", 0, ""},
		{"héllo", 2, "h"}, // é is two bytes; don't split it
		{"héllo", 3, "hé"},
	}
	for _, tt := range tests {
		p, err := DupN(h, tt.in, tt.n, nil)
		require.NoError(t, err)
		got, err := Read(h, p, nil)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "DupN(%q, %d)", tt.in, tt.n)
	}

	_, err := DupN(h, "x", -1, nil)
	assert.ErrorIs(t, err, alloc.ErrInvalidSize)
}

func TestReadUnterminated(t *testing.T) {
	h := newHeap(t)
	p, err := h.Allocate(8)
	require.NoError(t, err)
	b, _ := h.Bytes(p)
	copy(b, "abcdefgh")

	_, err = Read(h, p, nil)
	assert.ErrorIs(t, err, ErrUnterminated)
	_, err = Len(h, p, nil)
	assert.ErrorIs(t, err, ErrUnterminated)

	_, err = Read(h, alloc.Ptr(4000), nil)
	assert.ErrorIs(t, err, alloc.ErrDoubleFreeOrInvalidPointer)
}

func TestReadUTF16NeedsAlignedTerminator(t *testing.T) {
	h := newHeap(t)
	p, err := h.Allocate(8)
	require.NoError(t, err)
	b, _ := h.Bytes(p)
	// "Ā" is 0x0100: its low byte is zero but the unit is not.
	copy(b, []byte{0x00, 0x01, 0x41, 0x00, 0x00, 0x00, 0xff, 0xff})

	got, err := Read(h, p, UTF16LE)
	require.NoError(t, err)
	assert.Equal(t, "ĀA", got)
}

func TestLookup(t *testing.T) {
	for _, name := range []string{"", "utf-8", "windows-1252", "cp1252", "utf-16le"} {
		enc, err := Lookup(name)
		require.NoError(t, err, name)
		require.NotNil(t, enc, name)
	}
	_, err := Lookup("klingon")
	assert.Error(t, err)

	enc, err := Lookup("cp1252")
	require.NoError(t, err)
	h := newHeap(t)
	p, err := Dup(h, "café", enc)
	require.NoError(t, err)
	n, err := Len(h, p, enc)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
