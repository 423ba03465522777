package alloc

// carve hands out need bytes from the free block b, which must satisfy
// size(b) >= need. A remainder too small to hold a header of its own is
// given to the caller rather than left as a sliver.
func (h *Heap) carve(b blockRef, need int) Ptr {
	sz := h.size(b)
	if sz-need < HeaderSize {
		need = sz
	}
	if sz > need {
		h.split(b, need)
	} else {
		h.remove(b)
	}
	h.markAllocated(b, need)
	h.register(b, need)
	h.stats.BytesInUse += int64(need)
	return b.data()
}

// split keeps the first need bytes of b and turns the rest into a new free
// block that takes b's place in the list.
func (h *Heap) split(b blockRef, need int) {
	rest := blockRef(int(b) + HeaderSize + need)
	h.setSize(rest, h.size(b)-need-HeaderSize)
	h.link(rest, h.prev(b), h.next(b))
	h.stats.SplitCount++
}

// remove consumes b whole. When b was the only free block the list is
// re-seeded with a fresh growth step. If that growth fails the allocation
// still stands and the list stays empty until the next Free or growth.
func (h *Heap) remove(b blockRef) {
	sole := h.head == b && h.tail == b
	h.unlink(b)
	h.stats.RemoveCount++
	if !sole {
		return
	}
	if err := h.grow(); err != nil {
		h.stats.SentinelMisses++
		h.log.Debug("free list left empty", "block", int(b), "err", err)
	}
}
