package alloc

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/heapkit/internal/layout"
)

// Blocks walks committed memory physically, header to header from offset 0
// up to the break, and calls fn for each block until fn returns false.
// Allocated and free blocks tile the committed region with no gaps, so a
// header whose size runs past the break or off the word grid is reported
// as ErrCorruptFreeList.
func (h *Heap) Blocks(fn func(BlockHeader) bool) error {
	brk := h.st.Break()
	off := 0
	for off < brk {
		if !h.st.InBounds(off, HeaderSize) {
			return errors.Wrapf(ErrCorruptFreeList, "truncated header at 0x%x (break %d)", off, brk)
		}
		b := blockRef(off)
		sz := h.size(b)
		if sz < 0 || !layout.IsWordAligned(sz) || off+HeaderSize+sz > brk {
			return errors.Wrapf(ErrCorruptFreeList, "block 0x%x has size %d (break %d)", off, sz, brk)
		}
		if !fn(h.header(b)) {
			return nil
		}
		off += HeaderSize + sz
	}
	return nil
}
