package verify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/store"
	"github.com/joshuapare/heapkit/internal/layout"
)

func testConfig() alloc.Config {
	return alloc.Config{
		Name:        "verify",
		Capacity:    2048,
		InitialSize: 256,
		GrowthStep:  128,
		Strategy:    alloc.FirstFit,
	}
}

// newFixture returns a heap with free blocks at 0 (16 bytes) and 80 (152
// bytes) around a live 16-byte block at 40.
func newFixture(t *testing.T) *alloc.Heap {
	t.Helper()
	cfg := testConfig()
	h, err := alloc.New(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	a, err := h.Allocate(16)
	require.NoError(t, err)
	_, err = h.Allocate(16)
	require.NoError(t, err)
	require.NoError(t, h.Free(a))
	return h
}

func requireValidation(t *testing.T, err error, typ, msg string) {
	t.Helper()
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "want *ValidationError, got %T", err)
	assert.Equal(t, typ, verr.Type)
	assert.Contains(t, verr.Message, msg)
}

// TestAll_Valid tests that a heap built through the API passes every check.
func TestAll_Valid(t *testing.T) {
	h := newFixture(t)
	require.NoError(t, All(h))

	// And after growth, splits and merges.
	var ptrs []alloc.Ptr
	for i := range 20 {
		p, err := h.Allocate(8 + 8*(i%5))
		require.NoError(t, err)
		ptrs = append(ptrs, p)
	}
	for i := 0; i < len(ptrs); i += 3 {
		require.NoError(t, h.Free(ptrs[i]))
	}
	require.NoError(t, All(h))
}

// TestFreeList_BadLink tests detection of a link leaving committed memory.
func TestFreeList_BadLink(t *testing.T) {
	h := newFixture(t)
	h.Store().PutWord(0+layout.NextOffset, 4096)

	requireValidation(t, FreeList(h), "FreeList", "does not address a header")
	requireValidation(t, All(h), "FreeList", "does not address a header")
}

// TestFreeList_PrevMismatch tests detection of a stale back link.
func TestFreeList_PrevMismatch(t *testing.T) {
	h := newFixture(t)
	h.Store().PutWord(80+layout.PrevOffset, 40)

	requireValidation(t, FreeList(h), "FreeList", "prev link mismatch")
}

// TestFreeList_SizePastBreak tests detection of a size that runs off the heap.
func TestFreeList_SizePastBreak(t *testing.T) {
	h := newFixture(t)
	h.Store().PutWord(80+layout.SizeOffset, 5000)

	err := FreeList(h)
	requireValidation(t, err, "FreeList", "runs past break")
	assert.Equal(t, 80, err.(*ValidationError).Offset)
}

// threadLiveBlock splices the live block at 40 into the free list without
// merging it, as a buggy free would.
func threadLiveBlock(h *alloc.Heap) {
	st := h.Store()
	st.PutWord(40+layout.PrevOffset, 0)
	st.PutWord(40+layout.NextOffset, 80)
	st.PutWord(0+layout.NextOffset, 40)
	st.PutWord(80+layout.PrevOffset, 40)
}

// TestCoalesced_Touching tests detection of adjacent free blocks.
func TestCoalesced_Touching(t *testing.T) {
	h := newFixture(t)
	threadLiveBlock(h)

	require.NoError(t, FreeList(h), "list shape is still sound")
	requireValidation(t, Coalesced(h), "Coalesced", "reaches free block 0x28")
}

// TestNoOverlap_FreeAndLive tests detection of a block that is both live and free.
func TestNoOverlap_FreeAndLive(t *testing.T) {
	h := newFixture(t)
	threadLiveBlock(h)

	requireValidation(t, NoOverlap(h), "NoOverlap", "overlaps live block 0x28")
}

// TestTiling_Leak tests detection of a free block that dropped off the list.
func TestTiling_Leak(t *testing.T) {
	h := newFixture(t)

	// Rebuild the heap with the list starting at 80, orphaning block 0.
	s := h.State()
	s.Head = 80
	st, err := store.New(h.Store().Capacity())
	require.NoError(t, err)
	require.NoError(t, st.SetBreak(s.Break))
	copy(st.Committed(), h.Store().Committed())
	st.PutWord(80+layout.PrevOffset, -1)

	cfg := testConfig()
	leaky, err := alloc.Restore(st, &cfg, s)
	require.NoError(t, err)
	defer leaky.Close()

	require.NoError(t, FreeList(leaky))
	requireValidation(t, Tiling(leaky), "Tiling", "leaked")
}

// TestTiling_BadSize tests detection of a header that breaks the physical walk.
func TestTiling_BadSize(t *testing.T) {
	h := newFixture(t)
	h.Store().PutWord(40+layout.SizeOffset, 12)

	requireValidation(t, Tiling(h), "Tiling", "has size 12")
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Type: "FreeList", Message: "boom", Offset: 0x28}
	assert.Equal(t, "FreeList at offset 0x28: boom", err.Error())

	err = &ValidationError{Type: "Tiling", Message: "boom", Offset: -1}
	assert.Equal(t, "Tiling: boom", err.Error())
}
