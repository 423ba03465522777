package snapshot

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/verify"
	"github.com/joshuapare/heapkit/internal/layout"
)

func buildHeap(t *testing.T) (*alloc.Heap, []alloc.Ptr) {
	t.Helper()
	cfg := alloc.ConfigSmall
	cfg.Strategy = alloc.BestFit
	h, err := alloc.New(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	var ptrs []alloc.Ptr
	for i := range 12 {
		p, err := h.Allocate(16 + 24*i)
		require.NoError(t, err)
		b, _ := h.Bytes(p)
		for j := range b {
			b[j] = byte(i)
		}
		ptrs = append(ptrs, p)
	}
	for i := 0; i < len(ptrs); i += 2 {
		require.NoError(t, h.Free(ptrs[i]))
	}
	return h, ptrs
}

func TestWriteRead(t *testing.T) {
	h, ptrs := buildHeap(t)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, h, brotli.DefaultCompression))
	assert.Less(t, buf.Len(), h.Break(), "image should compress")

	r, err := Read(&buf, &alloc.Config{Paranoid: true})
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, h.Config().Capacity, r.Config().Capacity)
	assert.Equal(t, alloc.BestFit, r.Config().Strategy)
	assert.True(t, r.Config().Paranoid)
	assert.Equal(t, h.Break(), r.Break())
	assert.Equal(t, h.FreeBlocks(), r.FreeBlocks())
	assert.Equal(t, h.LiveSpans(), r.LiveSpans())
	require.NoError(t, verify.All(r))

	b, err := r.Bytes(ptrs[5])
	require.NoError(t, err)
	assert.Equal(t, byte(5), b[0])
	assert.Equal(t, byte(5), b[len(b)-1])

	// The restored heap is fully usable.
	require.NoError(t, r.Free(ptrs[5]))
	_, err = r.Allocate(500)
	require.NoError(t, err)
	require.NoError(t, verify.All(r))
}

func TestWriteReadFile(t *testing.T) {
	h, _ := buildHeap(t)
	path := filepath.Join(t.TempDir(), "heap.snap")

	require.NoError(t, WriteFile(path, h, brotli.BestSpeed))
	r, err := ReadFile(path, nil)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, h.State(), r.State())

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.snap"), nil)
	assert.Error(t, err)
}

// compress wraps raw snapshot bytes in a brotli stream.
func compress(t *testing.T, raw []byte) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	_, err := w.Write(raw)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf
}

// rawSnapshot returns the decompressed bytes of a snapshot of h.
func rawSnapshot(t *testing.T, h *alloc.Heap) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, h, brotli.BestSpeed))
	var raw bytes.Buffer
	_, err := raw.ReadFrom(brotli.NewReader(&buf))
	require.NoError(t, err)
	return raw.Bytes()
}

func TestReadRejects(t *testing.T) {
	h, _ := buildHeap(t)
	good := rawSnapshot(t, h)

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"bad magic", func(b []byte) []byte { copy(b, "NOTASNAP"); return b }},
		{"bad version", func(b []byte) []byte { layout.PutU32(b, 0x08, 9); return b }},
		{"bad strategy", func(b []byte) []byte { layout.PutU32(b, 0x0C, 9); return b }},
		{"break past capacity", func(b []byte) []byte { layout.PutWord(b, 0x28, 1<<40); return b }},
		{"absurd live count", func(b []byte) []byte { layout.PutWord(b, 0x40, 1<<30); return b }},
		{"truncated header", func(b []byte) []byte { return b[:20] }},
		{"truncated image", func(b []byte) []byte { return b[:len(b)-100] }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.mutate(append([]byte(nil), good...))
			_, err := Read(compress(t, raw), nil)
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestReadRejectsCorruptImage(t *testing.T) {
	h, _ := buildHeap(t)
	raw := rawSnapshot(t, h)

	// Point the head's prev link somewhere: the image decodes but the free
	// list check fails.
	image := raw[len(raw)-h.Break():]
	layout.PutWord(image, h.Head()+layout.PrevOffset, 8)

	_, err := Read(compress(t, raw), nil)
	assert.ErrorIs(t, err, alloc.ErrCorruptFreeList)
}
