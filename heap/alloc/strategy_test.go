package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// holes leaves free blocks of 64 bytes at 0, 16 bytes at 120 and a 40-byte
// tail at 192, separated by live 8-byte guards.
func holes(t *testing.T, h *Heap) {
	t.Helper()
	a := mustAlloc(t, h, 64) // 0
	mustAlloc(t, h, 8)       // 88
	b := mustAlloc(t, h, 16) // 120
	mustAlloc(t, h, 8)       // 160
	mustFree(t, h, a)
	mustFree(t, h, b)
	require.Equal(t, [][2]int{{0, 64}, {120, 16}, {192, 40}}, freeList(h))
}

func Test_StrategyChoosesBlock(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		size     int
		wantAddr int
		wantList [][2]int
	}{
		{"first fit takes lowest", FirstFit, 16, 0, [][2]int{{40, 24}, {120, 16}, {192, 40}}},
		{"best fit takes exact", BestFit, 16, 120, [][2]int{{0, 64}, {192, 40}}},
		{"best fit takes smallest", BestFit, 40, 192, [][2]int{{0, 64}, {120, 16}}},
		{"first fit skips small", FirstFit, 48, 0, [][2]int{{120, 16}, {192, 40}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHeap(t, withStrategy(tt.strategy))
			holes(t, h)
			p := mustAlloc(t, h, tt.size)
			assert.Equal(t, Ptr(tt.wantAddr+HeaderSize), p)
			assert.Equal(t, tt.wantList, freeList(h))
		})
	}
}

func Test_BestFitTieGoesToLowestAddress(t *testing.T) {
	h := newTestHeap(t, withStrategy(BestFit))
	a := mustAlloc(t, h, 16) // 0
	mustAlloc(t, h, 8)       // 40
	b := mustAlloc(t, h, 16) // 72
	mustAlloc(t, h, 8)       // 112
	mustFree(t, h, a)
	mustFree(t, h, b)
	require.Equal(t, [][2]int{{0, 16}, {72, 16}, {144, 88}}, freeList(h))

	p := mustAlloc(t, h, 8)
	assert.Equal(t, Ptr(HeaderSize), p)
	n, err := h.QuerySize(p)
	require.NoError(t, err)
	assert.Equal(t, 16, n, "8 spare bytes cannot hold a header")
}

func Test_PaddingRule(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		wantSize int
		wantList [][2]int
	}{
		// 232-216 = 16 spare bytes: too small for a header, block handed out whole
		// and the list re-seeded by growth.
		{"consume whole", 216, 232, [][2]int{{256, 104}}},
		// 232-208 = 24: exactly a header, leaving a zero-size free block.
		{"split to empty remainder", 208, 208, [][2]int{{232, 0}}},
		{"split", 100, 104, [][2]int{{128, 104}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHeap(t)
			p := mustAlloc(t, h, tt.size)
			n, err := h.QuerySize(p)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSize, n)
			assert.Equal(t, tt.wantList, freeList(h))
			requireAccounted(t, h)
		})
	}
}

func Test_ParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{
		"first":     FirstFit,
		"first-fit": FirstFit,
		" BEST ":    BestFit,
		"best-fit":  BestFit,
	} {
		got, err := ParseStrategy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseStrategy("worst")
	assert.ErrorIs(t, err, ErrBadConfig)

	assert.Equal(t, "first-fit", FirstFit.String())
	assert.Equal(t, "best-fit", BestFit.String())
	assert.Equal(t, "strategy(9)", Strategy(9).String())
}
