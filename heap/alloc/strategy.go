package alloc

import "github.com/cockroachdb/errors"

// firstFit returns the lowest-addressed free block with size >= need.
func (h *Heap) firstFit(need int) blockRef {
	for b := h.head; b != nilRef; b = h.next(b) {
		if h.size(b) >= need {
			return b
		}
	}
	return nilRef
}

// bestFit returns the smallest free block with size >= need. The list is
// walked once; only a strictly smaller block replaces the current pick, so
// ties resolve to the lowest address. An exact fit ends the walk early.
func (h *Heap) bestFit(need int) blockRef {
	best, bestSize := nilRef, 0
	for b := h.head; b != nilRef; b = h.next(b) {
		sz := h.size(b)
		if sz < need {
			continue
		}
		if best == nilRef || sz < bestSize {
			best, bestSize = b, sz
			if sz == need {
				break
			}
		}
	}
	return best
}

// search runs the configured strategy.
func (h *Heap) search(need int) blockRef {
	if h.cfg.Strategy == BestFit {
		return h.bestFit(need)
	}
	return h.firstFit(need)
}

// find locates a block for need bytes, growing the break when the free list
// has nothing large enough. Growth always lands on or merges into the Tail,
// so the retry only has to look there.
func (h *Heap) find(need int) (blockRef, error) {
	if b := h.search(need); b != nilRef {
		return b, nil
	}
	if !h.canGrowTo(need) {
		return nilRef, errors.Wrapf(ErrOutOfSpace, "alloc: %d bytes requested, break %d of %d",
			need, h.st.Break(), h.st.Capacity())
	}
	h.stats.AllocSlowPath++
	for {
		if err := h.grow(); err != nil {
			return nilRef, err
		}
		if h.tail != nilRef && h.size(h.tail) >= need {
			return h.tail, nil
		}
	}
}
