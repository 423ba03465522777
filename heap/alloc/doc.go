// Package alloc provides a free-list heap allocator over a fixed-capacity
// byte store with an sbrk-style break.
//
// # Overview
//
// The heap hands out word-aligned regions of a store.Store. Memory below the
// store's break is tiled by blocks; each block starts with a three-word header
// (see internal/layout) followed by its usable bytes. Free blocks are threaded
// onto one address-ordered, doubly-linked free list whose links live in the
// headers themselves. Live blocks are tracked in an ordered registry so that
// double frees and foreign pointers are rejected before anything is touched.
//
// # Heap Interface
//
//   - Allocate(size): word-rounded block, uninitialized
//   - AllocateZeroed(count, elemSize): overflow-checked, zero-filled
//   - Reallocate(p, size): move and copy min(old, new) bytes
//   - Free(p): return a block, merging with touching free neighbours
//   - QuerySize(p) / Bytes(p): inspect a live block
//   - Grow(n) / Trim(): move the break by whole growth steps
//
// Heap.C returns the same operations with C allocator signatures (Malloc,
// FreePtr, Realloc, Calloc, UsableSize) for callers that expect Null on
// failure rather than an error.
//
// # Usage Example
//
//	h, err := alloc.New(&alloc.ConfigSmall)
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	p, err := h.Allocate(100) // 104 usable bytes
//	if err != nil {
//	    return err
//	}
//	b, _ := h.Bytes(p)
//	copy(b, "hello")
//
//	err = h.Free(p)
//
// # Block Layout
//
//	 header (24 bytes)                 data (size bytes)
//	+--------+--------+--------+--------------------------------+
//	|  size  |  prev  |  next  |  ...                           |
//	+--------+--------+--------+--------------------------------+
//	^ block address            ^ Ptr returned to the caller
//
// Ptr values are byte offsets into the store, so Null (0) can never be a
// valid data pointer: offset 0 is always a header.
//
// # Allocation
//
// The free list is searched first-fit or best-fit (Config.Strategy). The
// chosen block is split when the remainder can hold a header of its own;
// otherwise the whole block goes to the caller. If no block fits, the break
// is extended one GrowthStep at a time until the Tail is large enough. A
// request that could not fit even in the whole remaining capacity fails
// with ErrOutOfSpace without committing anything.
//
// # Coalescing
//
// Free places the block by address relative to Head and Tail and merges it
// with whichever free neighbours it touches, so two free blocks are never
// adjacent in memory:
//
//	empty list:   new Head and Tail
//	below Head:   merge or insert
//	above Tail:   merge or append
//	in between:   merge left, right, both, or insert
//
// # Checking
//
// Check walks the list both ways and cross-checks the live registry. With
// Config.Paranoid set, every mutating call runs Check and panics on failure;
// package verify offers the same checks as standalone validators.
//
// # Thread Safety
//
// Heap is NOT thread-safe. Callers must serialize access.
package alloc
