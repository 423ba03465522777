package alloc

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/heapkit/internal/layout"
)

func (h *Heap) register(b blockRef, size int) {
	h.live.ReplaceOrInsert(Span{Addr: int(b), Size: size})
}

func (h *Heap) unregister(b blockRef) {
	h.live.Delete(Span{Addr: int(b)})
}

func (h *Heap) isLive(b blockRef) bool {
	return h.live.Has(Span{Addr: int(b)})
}

// lookup maps a data pointer to its live block and size.
func (h *Heap) lookup(p Ptr) (blockRef, int, error) {
	b := refOf(p)
	if b < 0 || !layout.IsWordAligned(int(b)) {
		return nilRef, 0, errors.Wrapf(ErrDoubleFreeOrInvalidPointer, "%s is not a block address", p)
	}
	span, ok := h.live.Get(Span{Addr: int(b)})
	if !ok {
		return nilRef, 0, errors.Wrapf(ErrDoubleFreeOrInvalidPointer, "%s is not allocated", p)
	}
	return b, span.Size, nil
}

// Live calls fn for every live allocation in address order until fn returns false.
func (h *Heap) Live(fn func(Span) bool) {
	h.live.Ascend(fn)
}

// LiveSpans returns all live allocations in address order.
func (h *Heap) LiveSpans() []Span {
	out := make([]Span, 0, h.live.Len())
	h.live.Ascend(func(s Span) bool {
		out = append(out, s)
		return true
	})
	return out
}

// LiveCount returns the number of live allocations.
func (h *Heap) LiveCount() int {
	return h.live.Len()
}
