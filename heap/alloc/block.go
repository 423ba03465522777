package alloc

import "github.com/joshuapare/heapkit/internal/layout"

// blockRef is the header address of a block. All header reads and writes
// go through the accessors below so offset math lives in one place.
type blockRef int

// nilRef is the absent block; it is also what NilLink decodes to.
const nilRef blockRef = blockRef(layout.NilLink)

func refOf(p Ptr) blockRef {
	return blockRef(int(p) - HeaderSize)
}

func (b blockRef) data() Ptr {
	return Ptr(int(b) + HeaderSize)
}

func (h *Heap) size(b blockRef) int {
	return int(h.st.Word(int(b) + layout.SizeOffset))
}

func (h *Heap) setSize(b blockRef, n int) {
	h.st.PutWord(int(b)+layout.SizeOffset, int64(n))
}

func (h *Heap) prev(b blockRef) blockRef {
	return blockRef(h.st.Word(int(b) + layout.PrevOffset))
}

func (h *Heap) next(b blockRef) blockRef {
	return blockRef(h.st.Word(int(b) + layout.NextOffset))
}

func (h *Heap) setPrev(b, p blockRef) {
	h.st.PutWord(int(b)+layout.PrevOffset, int64(p))
}

func (h *Heap) setNext(b, n blockRef) {
	h.st.PutWord(int(b)+layout.NextOffset, int64(n))
}

// end returns the address just past b's data region.
func (h *Heap) end(b blockRef) int {
	return int(b) + HeaderSize + h.size(b)
}

// adjacent reports whether b's data region runs right into c's header.
func (h *Heap) adjacent(b, c blockRef) bool {
	return h.end(b) == int(c)
}

// markAllocated writes an allocated header: the size plus the tag in both
// link words.
func (h *Heap) markAllocated(b blockRef, n int) {
	h.setSize(b, n)
	h.st.PutWord(int(b)+layout.PrevOffset, layout.AllocTag)
	h.st.PutWord(int(b)+layout.NextOffset, layout.AllocTag)
}

// header decodes the block header at b.
func (h *Heap) header(b blockRef) BlockHeader {
	hdr := BlockHeader{Addr: int(b), Size: h.size(b), Prev: -1, Next: -1}
	if h.isLive(b) {
		hdr.Kind = KindAllocated
		return hdr
	}
	hdr.Kind = KindFree
	hdr.Prev = int(h.prev(b))
	hdr.Next = int(h.next(b))
	return hdr
}
