// Package verify provides validation functions for heap images.
// These helpers are used in tests and by heapctl to ensure allocator
// invariants are maintained.
package verify

import (
	"fmt"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/internal/layout"
)

// Error types for different validation failures.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]interface{}
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// All validates all heap invariants in one call.
// Returns the first error encountered, or nil if all checks pass.
func All(h *alloc.Heap) error {
	if err := FreeList(h); err != nil {
		return err
	}
	if err := Coalesced(h); err != nil {
		return err
	}
	if err := NoOverlap(h); err != nil {
		return err
	}
	if err := Tiling(h); err != nil {
		return err
	}
	return nil
}

// FreeList validates the free list structure by reading links straight out
// of the store: bounds, alignment, back links, address order, and the
// Head/Tail ends. A cyclic list is reported rather than walked forever.
func FreeList(h *alloc.Heap) error {
	st := h.Store()
	brk := st.Break()
	head, tail := h.Head(), h.Tail()

	if (head < 0) != (tail < 0) {
		return &ValidationError{
			Type:    "FreeList",
			Message: fmt.Sprintf("head=%d tail=%d: exactly one end is null", head, tail),
			Offset:  -1,
		}
	}

	limit := brk/layout.HeaderSize + 1
	prev, count := -1, 0
	for b := head; b >= 0; {
		count++
		if count > limit {
			return &ValidationError{
				Type:    "FreeList",
				Message: fmt.Sprintf("more than %d nodes; list is cyclic", limit),
				Offset:  b,
			}
		}
		if !layout.IsWordAligned(b) || !st.InBounds(b, layout.HeaderSize) {
			return &ValidationError{
				Type:    "FreeList",
				Message: fmt.Sprintf("link after 0x%X does not address a header below break 0x%X", prev, brk),
				Offset:  b,
			}
		}
		if got := int(st.Word(b + layout.PrevOffset)); got != prev {
			return &ValidationError{
				Type:    "FreeList",
				Message: fmt.Sprintf("prev link mismatch: field=%d, expected=%d", got, prev),
				Offset:  b,
			}
		}
		size := int(st.Word(b + layout.SizeOffset))
		if size < 0 || b+layout.HeaderSize+size > brk {
			return &ValidationError{
				Type:    "FreeList",
				Message: fmt.Sprintf("block size %d runs past break 0x%X", size, brk),
				Offset:  b,
				Details: map[string]interface{}{"size": size, "break": brk},
			}
		}
		if prev >= 0 && b <= prev {
			return &ValidationError{
				Type:    "FreeList",
				Message: fmt.Sprintf("not in address order: 0x%X follows 0x%X", b, prev),
				Offset:  b,
			}
		}
		prev = b
		b = int(st.Word(b + layout.NextOffset))
	}

	if prev != tail {
		return &ValidationError{
			Type:    "FreeList",
			Message: fmt.Sprintf("walk ends at 0x%X, tail is 0x%X", prev, tail),
			Offset:  prev,
		}
	}
	return nil
}

// Coalesced validates that no two free blocks touch: every free block is
// followed in memory by an allocated block or the break. Assumes FreeList
// passes.
func Coalesced(h *alloc.Heap) error {
	var err error
	var last *alloc.FreeBlock
	h.Walk(func(b alloc.FreeBlock) bool {
		if last != nil && last.End() >= b.Addr {
			err = &ValidationError{
				Type:    "Coalesced",
				Message: fmt.Sprintf("free block 0x%X (size %d) reaches free block 0x%X", last.Addr, last.Size, b.Addr),
				Offset:  last.Addr,
				Details: map[string]interface{}{"end": last.End(), "next": b.Addr},
			}
			return false
		}
		last = &b
		return true
	})
	return err
}

// NoOverlap validates that live blocks are disjoint from each other and from
// every free block.
func NoOverlap(h *alloc.Heap) error {
	spans := h.LiveSpans()
	for i := 1; i < len(spans); i++ {
		if spans[i-1].End() > spans[i].Addr {
			return &ValidationError{
				Type:    "NoOverlap",
				Message: fmt.Sprintf("live block 0x%X (size %d) overlaps live block 0x%X", spans[i-1].Addr, spans[i-1].Size, spans[i].Addr),
				Offset:  spans[i-1].Addr,
			}
		}
	}

	// Both sequences are address ordered; merge-walk them.
	var err error
	i := 0
	h.Walk(func(b alloc.FreeBlock) bool {
		for i < len(spans) && spans[i].End() <= b.Addr {
			i++
		}
		if i < len(spans) && spans[i].Addr < b.End() {
			err = &ValidationError{
				Type:    "NoOverlap",
				Message: fmt.Sprintf("free block 0x%X (size %d) overlaps live block 0x%X (size %d)", b.Addr, b.Size, spans[i].Addr, spans[i].Size),
				Offset:  b.Addr,
			}
			return false
		}
		return true
	})
	return err
}

// Tiling validates that blocks cover committed memory exactly: a physical
// walk from offset 0 meets the break, each header is either on the free
// list or registered live, and the byte accounting adds up.
func Tiling(h *alloc.Heap) error {
	onList := make(map[int]bool)
	h.Walk(func(b alloc.FreeBlock) bool {
		onList[b.Addr] = true
		return true
	})

	var err error
	end, free := 0, 0
	walkErr := h.Blocks(func(b alloc.BlockHeader) bool {
		if b.Kind == alloc.KindFree {
			free++
			if !onList[b.Addr] {
				err = &ValidationError{
					Type:    "Tiling",
					Message: "block is neither live nor on the free list (leaked)",
					Offset:  b.Addr,
					Details: map[string]interface{}{"size": b.Size},
				}
				return false
			}
		}
		end = b.End()
		return true
	})
	if walkErr != nil {
		return &ValidationError{
			Type:    "Tiling",
			Message: walkErr.Error(),
			Offset:  end,
		}
	}
	if err != nil {
		return err
	}

	if end != h.Break() {
		return &ValidationError{
			Type:    "Tiling",
			Message: fmt.Sprintf("blocks end at 0x%X, break is 0x%X", end, h.Break()),
			Offset:  end,
		}
	}
	if free != len(onList) {
		return &ValidationError{
			Type:    "Tiling",
			Message: fmt.Sprintf("free list has %d blocks, memory walk found %d", len(onList), free),
			Offset:  -1,
		}
	}

	u := h.Usage()
	if u.FreeBytes+u.LiveBytes+u.HeaderBytes != u.Committed {
		return &ValidationError{
			Type: "Tiling",
			Message: fmt.Sprintf(
				"accounting mismatch: free=%d + live=%d + headers=%d != committed=%d",
				u.FreeBytes, u.LiveBytes, u.HeaderBytes, u.Committed,
			),
			Offset: -1,
			Details: map[string]interface{}{
				"free":      u.FreeBytes,
				"live":      u.LiveBytes,
				"headers":   u.HeaderBytes,
				"committed": u.Committed,
			},
		}
	}
	return nil
}
