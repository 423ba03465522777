// Package verify provides validation functions for heap images.
//
// # Overview
//
// The allocator keeps its free list inside the heap memory it manages, so a
// stray write can break it silently. This package re-derives the list
// invariants from the raw store and the allocator's exported views, for use
// in tests and by heapctl's check command.
//
// Validation categories:
//   - FreeList: link bounds, back links, address order, Head/Tail ends
//   - Coalesced: no two free blocks touch
//   - NoOverlap: live blocks are disjoint from each other and from free blocks
//   - Tiling: blocks cover [0, break) exactly and every free block is listed
//
// # Quick Start
//
//	if err := verify.All(h); err != nil {
//	    fmt.Printf("Validation failed: %v\n", err)
//	}
//
// # ValidationError
//
// All validation functions return *ValidationError on failure:
//
//	type ValidationError struct {
//	    Type    string                 // Check that failed (e.g., "FreeList")
//	    Message string                 // Human-readable description
//	    Offset  int                    // Heap offset of the offending block (-1 if N/A)
//	    Details map[string]interface{} // Additional context
//	}
//
// FreeList reads links with bounds checks and never follows a link outside
// committed memory. The other checks go through the allocator's own walkers
// and assume FreeList passed; All runs them in that order.
package verify
