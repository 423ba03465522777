package alloc

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/google/btree"

	"github.com/joshuapare/heapkit/heap/store"
	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/layout"
)

// Heap is a free-list allocator over a store.Store.
//
// Free blocks form an address-ordered doubly-linked list whose links live in
// the block headers inside the store. Allocation searches the list with the
// configured Strategy, splits or consumes the chosen block, and extends the
// store's break when nothing fits. Free merges the block with any touching
// free neighbours.
//
// Heap is not safe for concurrent use.
type Heap struct {
	st  *store.Store
	cfg Config
	log *slog.Logger

	head blockRef
	tail blockRef

	// Live allocations keyed by header address. Free consults it before
	// touching the list so foreign pointers and double frees are rejected
	// without corrupting anything.
	live *btree.BTreeG[Span]

	stats Stats

	// onGrow observes every break extension. Only tests set it.
	onGrow func(step int)
}

// New creates a heap on a fresh Go-slice store of cfg.Capacity bytes.
// A nil cfg selects DefaultConfig.
func New(cfg *Config) (*Heap, error) {
	c := resolve(cfg)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	st, err := store.New(c.Capacity)
	if err != nil {
		return nil, err
	}
	return NewWithStore(st, &c)
}

// NewWithStore creates a heap on st, which must have its break at the
// origin. cfg.Capacity is replaced by the store's capacity.
func NewWithStore(st *store.Store, cfg *Config) (*Heap, error) {
	c := resolve(cfg)
	c.Capacity = st.Capacity()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if st.Break() != 0 {
		return nil, errors.Wrapf(ErrBadConfig, "store break is %d, want 0", st.Break())
	}
	if _, err := st.ExtendBreak(c.InitialSize); err != nil {
		return nil, errors.Wrap(err, "alloc: initial extent")
	}

	h := newHeap(st, c)
	first := blockRef(0)
	h.setSize(first, c.InitialSize-HeaderSize)
	h.link(first, nilRef, nilRef)
	return h, nil
}

func resolve(cfg *Config) Config {
	if cfg == nil {
		return DefaultConfig
	}
	return *cfg
}

func newHeap(st *store.Store, c Config) *Heap {
	return &Heap{
		st:   st,
		cfg:  c,
		log:  c.logger(),
		head: nilRef,
		tail: nilRef,
		live: btree.NewG[Span](16, func(a, b Span) bool { return a.Addr < b.Addr }),
	}
}

// Allocate returns a pointer to at least size bytes of uninitialized memory.
// The size is rounded up to a whole word; QuerySize reports what the block
// really holds. Allocate(0) returns Null and no error.
func (h *Heap) Allocate(size int) (Ptr, error) {
	if size < 0 {
		return Null, errors.Wrapf(ErrInvalidSize, "allocate %d", size)
	}
	if size == 0 {
		return Null, nil
	}
	h.stats.AllocCalls++
	if size > h.st.Capacity() {
		h.stats.AllocFailures++
		return Null, errors.Wrapf(ErrOutOfSpace, "alloc: %d bytes exceeds capacity %d", size, h.st.Capacity())
	}
	need := layout.AlignWord(size)

	b, err := h.find(need)
	if err != nil {
		h.stats.AllocFailures++
		h.checkAfter("allocate")
		return Null, err
	}
	p := h.carve(b, need)
	h.checkAfter("allocate")
	return p, nil
}

// Free releases a pointer returned by Allocate, Reallocate or AllocateZeroed.
// Freeing Null is a no-op. Anything else that is not currently allocated
// fails with ErrDoubleFreeOrInvalidPointer and leaves the heap untouched.
func (h *Heap) Free(p Ptr) error {
	if p == Null {
		return nil
	}
	h.stats.FreeCalls++
	b, sz, err := h.lookup(p)
	if err != nil {
		h.stats.FreeRejected++
		h.log.Debug("free rejected", "ptr", p.String(), "err", err)
		return err
	}
	if err := h.release(b); err != nil {
		h.stats.FreeRejected++
		h.log.Debug("free rejected", "ptr", p.String(), "err", err)
		return err
	}
	h.unregister(b)
	h.stats.BytesInUse -= int64(sz)
	h.checkAfter("free")
	return nil
}

// Reallocate resizes the allocation at p to size bytes.
//
//   - p == Null behaves as Allocate(size).
//   - size == 0 behaves as Free(p) and returns Null.
//   - Otherwise a new block is allocated, min(old, size) bytes are copied and
//     the old block is freed. If the allocation fails the old block is left
//     intact and Null is returned with the error.
func (h *Heap) Reallocate(p Ptr, size int) (Ptr, error) {
	if p == Null {
		return h.Allocate(size)
	}
	if size == 0 {
		return Null, h.Free(p)
	}
	if size < 0 {
		return Null, errors.Wrapf(ErrInvalidSize, "reallocate %s to %d", p, size)
	}
	_, oldSize, err := h.lookup(p)
	if err != nil {
		return Null, err
	}
	np, err := h.Allocate(size)
	if err != nil {
		return Null, err
	}
	n := min(oldSize, size)
	dst := h.st.Committed()[int(np) : int(np)+n]
	src := h.st.Committed()[int(p) : int(p)+n]
	copy(dst, src)
	if err := h.Free(p); err != nil {
		return Null, err
	}
	h.stats.ReallocCalls++
	return np, nil
}

// AllocateZeroed returns count*elemSize zero-filled bytes.
func (h *Heap) AllocateZeroed(count, elemSize int) (Ptr, error) {
	if count < 0 || elemSize < 0 {
		return Null, errors.Wrapf(ErrInvalidSize, "allocate zeroed %d x %d", count, elemSize)
	}
	total, ok := buf.MulOverflowSafe(count, elemSize)
	if !ok {
		return Null, errors.Wrapf(ErrInvalidSize, "allocate zeroed %d x %d overflows", count, elemSize)
	}
	p, err := h.Allocate(total)
	if err != nil || p == Null {
		return p, err
	}
	b, err := h.Bytes(p)
	if err != nil {
		return Null, err
	}
	clear(b)
	return p, nil
}

// QuerySize returns the usable size stored in the header of the live block at p.
func (h *Heap) QuerySize(p Ptr) (int, error) {
	b, _, err := h.lookup(p)
	if err != nil {
		return 0, err
	}
	return h.size(b), nil
}

// Bytes returns the data region of the live block at p. The slice aliases
// heap memory and is only valid until the block is freed.
func (h *Heap) Bytes(p Ptr) ([]byte, error) {
	_, sz, err := h.lookup(p)
	if err != nil {
		return nil, err
	}
	return h.st.Slice(int(p), sz)
}

// Header decodes the header of the block whose data region starts at p.
// It works for free and allocated blocks alike; p must address a block
// header inside committed memory.
func (h *Heap) Header(p Ptr) (BlockHeader, error) {
	b := refOf(p)
	if b < 0 || !layout.IsWordAligned(int(b)) || !h.st.InBounds(int(b), HeaderSize) {
		return BlockHeader{}, errors.Wrapf(ErrDoubleFreeOrInvalidPointer, "no header for %s", p)
	}
	return h.header(b), nil
}

// Config returns the configuration the heap runs with.
func (h *Heap) Config() Config { return h.cfg }

// Store returns the backing store.
func (h *Heap) Store() *store.Store { return h.st }

// Break returns the store's current break.
func (h *Heap) Break() int { return h.st.Break() }

// Close releases the backing store.
func (h *Heap) Close() error {
	h.live.Clear(false)
	h.head, h.tail = nilRef, nilRef
	return h.st.Close()
}

func (h *Heap) checkAfter(op string) {
	if !h.cfg.Paranoid {
		return
	}
	if err := h.Check(); err != nil {
		panic(errors.NewAssertionErrorWithWrappedErrf(err, "alloc: free list corrupt after %s", op))
	}
}
