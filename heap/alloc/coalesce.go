package alloc

import "github.com/cockroachdb/errors"

// release returns the allocated block b to the free list, merging it with
// any free block it touches. The position of b relative to Head and Tail
// picks the case:
//
//	empty list     b becomes Head and Tail
//	below Head     merge into b if b touches Head, else new Head
//	above Tail     Tail absorbs b if they touch, else new Tail
//	in between     left, right, both or no neighbour touches
//
// Nothing is modified when b overlaps a free block; that only happens for
// memory the caller does not own.
func (h *Heap) release(b blockRef) error {
	switch {
	case h.head == nilRef:
		h.link(b, nilRef, nilRef)
		h.stats.FreeSeed++
		return nil
	case b < h.head:
		if h.end(b) > int(h.head) {
			return h.overlapErr(b, h.head)
		}
		h.freeBeforeHead(b)
		return nil
	case b > h.tail:
		if h.end(h.tail) > int(b) {
			return h.overlapErr(b, h.tail)
		}
		h.freeAfterTail(b)
		return nil
	}

	prev, next := h.neighbors(b)
	if prev == nilRef || next == nilRef || next == b {
		return errors.Wrapf(ErrDoubleFreeOrInvalidPointer, "block 0x%x is already on the free list", int(b))
	}
	if h.end(prev) > int(b) {
		return h.overlapErr(b, prev)
	}
	if h.end(b) > int(next) {
		return h.overlapErr(b, next)
	}
	h.freeBetween(b, prev, next)
	return nil
}

func (h *Heap) freeBeforeHead(b blockRef) {
	head := h.head
	if h.adjacent(b, head) {
		h.setSize(b, h.size(b)+HeaderSize+h.size(head))
		h.link(b, nilRef, h.next(head))
		h.stats.MergeBeforeHead++
		return
	}
	h.link(b, nilRef, head)
	h.stats.InsertBeforeHead++
}

func (h *Heap) freeAfterTail(b blockRef) {
	tail := h.tail
	if h.adjacent(tail, b) {
		h.setSize(tail, h.size(tail)+HeaderSize+h.size(b))
		h.stats.MergeAfterTail++
		return
	}
	h.link(b, tail, nilRef)
	h.stats.AppendAfterTail++
}

// freeBetween handles b with free neighbours on both sides: prev below and
// next above.
func (h *Heap) freeBetween(b, prev, next blockRef) {
	left := h.adjacent(prev, b)
	right := h.adjacent(b, next)

	switch {
	case left && right:
		// prev swallows b and next; whatever followed next now follows prev.
		h.setSize(prev, h.size(prev)+HeaderSize+h.size(b)+HeaderSize+h.size(next))
		h.link(prev, h.prev(prev), h.next(next))
		h.stats.MergeBoth++
	case left:
		h.setSize(prev, h.size(prev)+HeaderSize+h.size(b))
		h.stats.MergeLeft++
	case right:
		// b takes next's place in the list and its bytes.
		h.setSize(b, h.size(b)+HeaderSize+h.size(next))
		h.link(b, prev, h.next(next))
		h.stats.MergeRight++
	default:
		h.link(b, prev, next)
		h.stats.InsertMiddle++
	}
}

func (h *Heap) overlapErr(b, free blockRef) error {
	return errors.Wrapf(ErrDoubleFreeOrInvalidPointer,
		"block 0x%x (size %d) overlaps free block 0x%x (size %d)", int(b), h.size(b), int(free), h.size(free))
}
