package alloc

// Stats holds allocator counters for testing and instrumentation.
type Stats struct {
	AllocCalls    int // Total Allocate() calls with a non-zero size
	AllocSlowPath int // Allocations that had to grow the break
	AllocFailures int // Allocations that returned an error
	FreeCalls     int // Total Free() calls with a non-null pointer
	FreeRejected  int // Frees refused as double free or invalid pointer
	ReallocCalls  int // Reallocate() calls that moved a block

	SplitCount     int // Free blocks split by an allocation
	RemoveCount    int // Free blocks consumed whole
	SentinelMisses int // Times the list was left empty because growth failed

	GrowCalls int   // Break extensions
	GrowBytes int64 // Total bytes added via growth
	TrimCalls int   // Successful Trim() calls
	TrimBytes int64 // Total bytes handed back by Trim()

	// Free() outcomes, one counter per coalescing path
	FreeSeed         int // list was empty
	MergeBeforeHead  int // below Head and touching it
	InsertBeforeHead int // below Head with a gap
	MergeAfterTail   int // above Tail and touching it
	AppendAfterTail  int // above Tail with a gap
	MergeLeft        int // between, touching the lower neighbour only
	MergeRight       int // between, touching the upper neighbour only
	MergeBoth        int // between, touching both
	InsertMiddle     int // between, touching neither

	BytesInUse int64 // usable bytes held by live allocations
}

// Stats returns a copy of the allocator counters.
func (h *Heap) Stats() Stats {
	return h.stats
}

// Usage summarizes how committed memory is split between free and live blocks.
type Usage struct {
	Capacity      int // fixed store size
	Committed     int // current break
	FreeBlocks    int // nodes on the free list
	FreeBytes     int // usable bytes across free blocks
	LargestFree   int // size of the largest free block
	LiveBlocks    int // live allocations
	LiveBytes     int // usable bytes across live allocations
	HeaderBytes   int // bytes spent on headers, free and live
	Fragmentation float64
}

// Usage walks the free list and the live registry. Fragmentation is
// 1 - LargestFree/FreeBytes: zero when all free memory is one block.
func (h *Heap) Usage() Usage {
	u := Usage{Capacity: h.st.Capacity(), Committed: h.st.Break()}
	h.Walk(func(b FreeBlock) bool {
		u.FreeBlocks++
		u.FreeBytes += b.Size
		u.LargestFree = max(u.LargestFree, b.Size)
		return true
	})
	h.Live(func(s Span) bool {
		u.LiveBlocks++
		u.LiveBytes += s.Size
		return true
	})
	u.HeaderBytes = (u.FreeBlocks + u.LiveBlocks) * HeaderSize
	if u.FreeBytes > 0 {
		u.Fragmentation = 1 - float64(u.LargestFree)/float64(u.FreeBytes)
	}
	return u
}
