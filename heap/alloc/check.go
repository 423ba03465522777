package alloc

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/heapkit/internal/layout"
)

// Check walks the free list in both directions and the live registry, and
// reports the first broken invariant wrapped in ErrCorruptFreeList:
//
//   - Head.prev and Tail.next are null, and Head/Tail are both null or both set
//   - every link lands on a word-aligned header inside committed memory
//   - each node's prev link names the node visited before it
//   - addresses strictly increase and consecutive blocks never touch
//   - the backward walk visits as many nodes as the forward walk
//   - no free block is also registered live
//   - every live header still holds its size and allocation tags
func (h *Heap) Check() error {
	if (h.head == nilRef) != (h.tail == nilRef) {
		return corrupt("head 0x%x and tail 0x%x disagree on emptiness", int(h.head), int(h.tail))
	}

	brk := h.st.Break()
	limit := brk/HeaderSize + 1
	count := 0
	prev, prevEnd := nilRef, 0
	for b := h.head; b != nilRef; b = h.next(b) {
		count++
		if count > limit {
			return corrupt("forward walk exceeds %d nodes (cycle?)", limit)
		}
		if b < 0 || !layout.IsWordAligned(int(b)) || !h.st.InBounds(int(b), HeaderSize) {
			return corrupt("link 0x%x after 0x%x is outside committed memory", int(b), int(prev))
		}
		if got := h.prev(b); got != prev {
			return corrupt("block 0x%x has prev 0x%x, want 0x%x", int(b), int(got), int(prev))
		}
		sz := h.size(b)
		if sz < 0 || int(b)+HeaderSize+sz > brk {
			return corrupt("block 0x%x has size %d past break %d", int(b), sz, brk)
		}
		if prev != nilRef {
			switch {
			case b <= prev:
				return corrupt("block 0x%x follows 0x%x out of address order", int(b), int(prev))
			case prevEnd == int(b):
				return corrupt("blocks 0x%x and 0x%x touch but are not merged", int(prev), int(b))
			case prevEnd > int(b):
				return corrupt("blocks 0x%x and 0x%x overlap", int(prev), int(b))
			}
		}
		if h.isLive(b) {
			return corrupt("block 0x%x is both free and allocated", int(b))
		}
		prev, prevEnd = b, int(b)+HeaderSize+sz
	}
	if prev != h.tail {
		return corrupt("forward walk ends at 0x%x, tail is 0x%x", int(prev), int(h.tail))
	}

	back := 0
	for b := h.tail; b != nilRef; b = h.prev(b) {
		back++
		if back > count {
			return corrupt("backward walk visits more than %d nodes", count)
		}
	}
	if back != count {
		return corrupt("backward walk visits %d nodes, forward walk %d", back, count)
	}

	var liveErr error
	h.live.Ascend(func(s Span) bool {
		b := blockRef(s.Addr)
		if s.End() > brk {
			liveErr = corrupt("live block 0x%x (size %d) extends past break %d", s.Addr, s.Size, brk)
			return false
		}
		if h.size(b) != s.Size {
			liveErr = corrupt("live block 0x%x header says %d, registry %d", s.Addr, h.size(b), s.Size)
			return false
		}
		if h.st.Word(s.Addr+layout.PrevOffset) != layout.AllocTag ||
			h.st.Word(s.Addr+layout.NextOffset) != layout.AllocTag {
			liveErr = corrupt("live block 0x%x lost its allocation tag", s.Addr)
			return false
		}
		return true
	})
	return liveErr
}

func corrupt(format string, args ...any) error {
	return errors.Wrapf(ErrCorruptFreeList, format, args...)
}
