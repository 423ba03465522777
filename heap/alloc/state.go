package alloc

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/heapkit/heap/store"
)

// State is the allocator bookkeeping that lives outside the store: the
// break, the list ends and the live registry. Together with the committed
// bytes it is everything needed to bring a heap back.
type State struct {
	Break int
	Head  int
	Tail  int
	Live  []Span
}

// State captures the heap's out-of-store bookkeeping.
func (h *Heap) State() State {
	return State{
		Break: h.st.Break(),
		Head:  int(h.head),
		Tail:  int(h.tail),
		Live:  h.LiveSpans(),
	}
}

// Restore rebuilds a heap over st, whose committed bytes must already hold
// the image s was captured with. The break is moved to s.Break and the
// result is checked; an inconsistent image fails with ErrCorruptFreeList.
func Restore(st *store.Store, cfg *Config, s State) (*Heap, error) {
	c := resolve(cfg)
	c.Capacity = st.Capacity()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if s.Break < c.InitialSize {
		return nil, errors.Wrapf(ErrCorruptFreeList, "break %d below initial size %d", s.Break, c.InitialSize)
	}
	if err := st.SetBreak(s.Break); err != nil {
		return nil, errors.Wrap(err, "alloc: restore")
	}

	h := newHeap(st, c)
	h.head, h.tail = blockRef(s.Head), blockRef(s.Tail)
	for _, sp := range s.Live {
		if sp.Addr < 0 || sp.Size < 0 {
			return nil, errors.Wrapf(ErrCorruptFreeList, "live span at %d size %d", sp.Addr, sp.Size)
		}
		if !st.InBounds(sp.Addr, HeaderSize) {
			return nil, errors.Wrapf(ErrCorruptFreeList, "live span at %d outside break %d", sp.Addr, s.Break)
		}
		if _, dup := h.live.ReplaceOrInsert(sp); dup {
			return nil, errors.Wrapf(ErrCorruptFreeList, "live span at %d listed twice", sp.Addr)
		}
		h.stats.BytesInUse += int64(sp.Size)
	}
	if err := h.Check(); err != nil {
		return nil, errors.Wrap(err, "alloc: restore")
	}
	if err := h.checkTiling(); err != nil {
		return nil, errors.Wrap(err, "alloc: restore")
	}
	return h, nil
}

// checkTiling walks committed memory header to header and requires each
// block to be either the next free-list node or a live block of the size the
// registry holds. A live block stretched over free memory, or a free node
// that does not sit on a block boundary, breaks the walk.
func (h *Heap) checkTiling() error {
	free := h.head
	live := 0
	var bad error
	err := h.Blocks(func(b BlockHeader) bool {
		ref := blockRef(b.Addr)
		switch {
		case ref == free:
			free = h.next(free)
		case h.isLive(ref):
			sp, _ := h.live.Get(Span{Addr: b.Addr})
			if sp.Size != b.Size {
				bad = corrupt("live block 0x%x: header says %d, registry %d", b.Addr, b.Size, sp.Size)
				return false
			}
			live++
		default:
			bad = corrupt("block 0x%x is neither free nor allocated", b.Addr)
			return false
		}
		return true
	})
	switch {
	case err != nil:
		return err
	case bad != nil:
		return bad
	case free != nilRef:
		return corrupt("free block 0x%x is not on a block boundary", int(free))
	case live != h.live.Len():
		return corrupt("%d of %d live blocks sit on block boundaries", live, h.live.Len())
	}
	return nil
}
