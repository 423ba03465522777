package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/alloc"
)

func testHeap(t *testing.T) *alloc.Heap {
	t.Helper()
	cfg := alloc.Config{
		Name:        "report",
		Capacity:    2048,
		InitialSize: 256,
		GrowthStep:  128,
	}
	h, err := alloc.New(&cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })

	a, err := h.Allocate(16) // 0
	require.NoError(t, err)
	_, err = h.Allocate(16) // 40
	require.NoError(t, err)
	require.NoError(t, h.Free(a))
	return h
}

type jsonReport struct {
	Config struct {
		Name     string `json:"name"`
		Capacity int    `json:"capacity"`
		Strategy string `json:"strategy"`
	} `json:"config"`
	Usage struct {
		Committed     int     `json:"committed"`
		FreeBlocks    int     `json:"freeBlocks"`
		FreeBytes     int     `json:"freeBytes"`
		LiveBlocks    int     `json:"liveBlocks"`
		Fragmentation float64 `json:"fragmentation"`
	} `json:"usage"`
	Head  int `json:"head"`
	Tail  int `json:"tail"`
	Stats *struct {
		AllocCalls int `json:"allocCalls"`
		Coalesce   struct {
			InsertBeforeHead int `json:"insertBeforeHead"`
		} `json:"coalesce"`
	} `json:"stats"`
	FreeList []struct {
		Addr int `json:"addr"`
		Size int `json:"size"`
		Prev int `json:"prev"`
		Next int `json:"next"`
	} `json:"freeList"`
	Live []struct {
		Addr int `json:"addr"`
		Ptr  int `json:"ptr"`
		Size int `json:"size"`
	} `json:"live"`
}

func TestJSONFull(t *testing.T) {
	h := testHeap(t)

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, h, Full))

	var got jsonReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got), buf.String())

	assert.Equal(t, "report", got.Config.Name)
	assert.Equal(t, 2048, got.Config.Capacity)
	assert.Equal(t, "first-fit", got.Config.Strategy)

	assert.Equal(t, 256, got.Usage.Committed)
	assert.Equal(t, 2, got.Usage.FreeBlocks)
	assert.Equal(t, 16+152, got.Usage.FreeBytes)
	assert.Equal(t, 1, got.Usage.LiveBlocks)
	assert.InDelta(t, 1-152.0/168.0, got.Usage.Fragmentation, 1e-9)

	assert.Equal(t, 0, got.Head)
	assert.Equal(t, 80, got.Tail)

	require.NotNil(t, got.Stats)
	assert.Equal(t, 2, got.Stats.AllocCalls)
	assert.Equal(t, 1, got.Stats.Coalesce.InsertBeforeHead)

	require.Len(t, got.FreeList, 2)
	assert.Equal(t, 0, got.FreeList[0].Addr)
	assert.Equal(t, -1, got.FreeList[0].Prev)
	assert.Equal(t, 80, got.FreeList[0].Next)
	assert.Equal(t, 152, got.FreeList[1].Size)

	require.Len(t, got.Live, 1)
	assert.Equal(t, 40, got.Live[0].Addr)
	assert.Equal(t, 64, got.Live[0].Ptr)
}

func TestJSONSummaryOnly(t *testing.T) {
	h := testHeap(t)

	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, h, Options{}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Contains(t, got, "config")
	assert.Contains(t, got, "usage")
	assert.NotContains(t, got, "stats")
	assert.NotContains(t, got, "freeList")
	assert.NotContains(t, got, "live")
}

func TestText(t *testing.T) {
	h := testHeap(t)

	var buf bytes.Buffer
	require.NoError(t, Text(&buf, h, Full))
	out := buf.String()

	assert.Contains(t, out, "first-fit")
	assert.Contains(t, out, "256 / 2048 bytes")
	assert.Contains(t, out, "168 bytes in 2 blocks (largest 152)")
	assert.Contains(t, out, "ADDR")
	assert.Contains(t, out, "allocated")
	assert.Contains(t, out, "0x50")

	buf.Reset()
	require.NoError(t, Text(&buf, h, Options{}))
	assert.NotContains(t, buf.String(), "ADDR")
}
