package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// tinyConfig gives a 232-byte first block at offset 0 and 128-byte growth
// steps, small enough that every block position in a test can be worked out
// by hand.
func tinyConfig() Config {
	return Config{
		Name:        "tiny",
		Capacity:    2048,
		InitialSize: 256,
		GrowthStep:  128,
		Strategy:    FirstFit,
		Paranoid:    true,
	}
}

// newTestHeap builds a heap from tinyConfig after applying mods.
func newTestHeap(t *testing.T, mods ...func(*Config)) *Heap {
	t.Helper()
	cfg := tinyConfig()
	for _, m := range mods {
		m(&cfg)
	}
	h, err := New(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func withStrategy(s Strategy) func(*Config) {
	return func(c *Config) { c.Strategy = s }
}

// mustAlloc allocates size bytes and fails the test on error.
func mustAlloc(t *testing.T, h *Heap, size int) Ptr {
	t.Helper()
	p, err := h.Allocate(size)
	require.NoError(t, err)
	require.NotEqual(t, Null, p)
	return p
}

func mustFree(t *testing.T, h *Heap, p Ptr) {
	t.Helper()
	require.NoError(t, h.Free(p))
}

// freeList returns (addr, size) pairs of the free list in order.
func freeList(h *Heap) [][2]int {
	var out [][2]int
	h.Walk(func(b FreeBlock) bool {
		out = append(out, [2]int{b.Addr, b.Size})
		return true
	})
	return out
}

// fill writes v over the whole data region of p.
func fill(t *testing.T, h *Heap, p Ptr, v byte) {
	t.Helper()
	b, err := h.Bytes(p)
	require.NoError(t, err)
	for i := range b {
		b[i] = v
	}
}

// requireAccounted checks that free blocks, live blocks and their headers
// add up to exactly the committed region.
func requireAccounted(t *testing.T, h *Heap) {
	t.Helper()
	u := h.Usage()
	require.Equal(t, u.Committed, u.FreeBytes+u.LiveBytes+u.HeaderBytes,
		"free %d + live %d + headers %d != break %d", u.FreeBytes, u.LiveBytes, u.HeaderBytes, u.Committed)
}
