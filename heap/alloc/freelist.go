package alloc

// The free list is address ordered and doubly linked through the prev/next
// words of each free header. head and tail on the Heap are the only outside
// references; both are nilRef only when every committed byte is allocated.

// link places b between prev and next, either of which may be nilRef, and
// points the neighbours (or head/tail) back at b. It serves insertion and
// replacement alike: whatever prev and next pointed at before is overwritten.
func (h *Heap) link(b, prev, next blockRef) {
	h.setPrev(b, prev)
	h.setNext(b, next)
	if prev == nilRef {
		h.head = b
	} else {
		h.setNext(prev, b)
	}
	if next == nilRef {
		h.tail = b
	} else {
		h.setPrev(next, b)
	}
}

// unlink removes b from the list, joining its neighbours.
func (h *Heap) unlink(b blockRef) {
	prev, next := h.prev(b), h.next(b)
	if prev == nilRef {
		h.head = next
	} else {
		h.setNext(prev, next)
	}
	if next == nilRef {
		h.tail = prev
	} else {
		h.setPrev(next, prev)
	}
}

// neighbors returns the free blocks immediately below and above addr.
// It walks from whichever end of the list is closer. Either result may be
// nilRef. A free block starting exactly at addr is reported as next.
func (h *Heap) neighbors(addr blockRef) (prev, next blockRef) {
	if h.head == nilRef {
		return nilRef, nilRef
	}
	if int(addr)-int(h.head) <= int(h.tail)-int(addr) {
		next = h.head
		for next != nilRef && next < addr {
			next = h.next(next)
		}
		if next == nilRef {
			return h.tail, nilRef
		}
		return h.prev(next), next
	}
	prev = h.tail
	for prev != nilRef && prev >= addr {
		prev = h.prev(prev)
	}
	if prev == nilRef {
		return nilRef, h.head
	}
	return prev, h.next(prev)
}

// FreeBlock is an exported view of one free-list node.
type FreeBlock = BlockHeader

// Walk calls fn for every free block from Head to Tail until fn returns false.
func (h *Heap) Walk(fn func(FreeBlock) bool) {
	for b := h.head; b != nilRef; b = h.next(b) {
		if !fn(h.freeHeader(b)) {
			return
		}
	}
}

// WalkBackward calls fn for every free block from Tail to Head until fn returns false.
func (h *Heap) WalkBackward(fn func(FreeBlock) bool) {
	for b := h.tail; b != nilRef; b = h.prev(b) {
		if !fn(h.freeHeader(b)) {
			return
		}
	}
}

// FreeBlocks returns the free list in address order.
func (h *Heap) FreeBlocks() []FreeBlock {
	var out []FreeBlock
	h.Walk(func(b FreeBlock) bool {
		out = append(out, b)
		return true
	})
	return out
}

// Head returns the header address of the lowest free block, or -1.
func (h *Heap) Head() int { return int(h.head) }

// Tail returns the header address of the highest free block, or -1.
func (h *Heap) Tail() int { return int(h.tail) }

func (h *Heap) freeHeader(b blockRef) FreeBlock {
	return BlockHeader{
		Kind: KindFree,
		Addr: int(b),
		Size: h.size(b),
		Prev: int(h.prev(b)),
		Next: int(h.next(b)),
	}
}
