package alloc

import (
	"github.com/cockroachdb/errors"
)

// C exposes the heap with the C allocator's calling convention: failures
// come back as Null or zero instead of errors. The error is still logged at
// debug level on the heap's logger.
//
// FreePtr is the exception. Freeing something that is not allocated is a
// programming error, so it panics the way a C runtime would abort.
type C struct {
	h *Heap
}

// C returns the C-style view of h.
func (h *Heap) C() C {
	return C{h: h}
}

// Malloc allocates size bytes. Malloc(0) returns Null.
func (c C) Malloc(size int) Ptr {
	p, err := c.h.Allocate(size)
	if err != nil {
		c.h.log.Debug("malloc failed", "size", size, "err", err)
		return Null
	}
	return p
}

// FreePtr releases p. FreePtr(Null) does nothing.
func (c C) FreePtr(p Ptr) {
	err := c.h.Free(p)
	if err == nil {
		return
	}
	if errors.Is(err, ErrDoubleFreeOrInvalidPointer) {
		panic(errors.Wrap(err, "free"))
	}
	c.h.log.Debug("free failed", "ptr", p.String(), "err", err)
}

// Realloc resizes p, returning Null when the new block cannot be had. The
// old block is untouched in that case.
func (c C) Realloc(p Ptr, size int) Ptr {
	np, err := c.h.Reallocate(p, size)
	if err != nil {
		c.h.log.Debug("realloc failed", "ptr", p.String(), "size", size, "err", err)
		return Null
	}
	return np
}

// Calloc allocates count*elemSize zeroed bytes.
func (c C) Calloc(count, elemSize int) Ptr {
	p, err := c.h.AllocateZeroed(count, elemSize)
	if err != nil {
		c.h.log.Debug("calloc failed", "count", count, "size", elemSize, "err", err)
		return Null
	}
	return p
}

// UsableSize returns the usable size of p, or 0 when p is not allocated.
func (c C) UsableSize(p Ptr) int {
	if p == Null {
		return 0
	}
	n, err := c.h.QuerySize(p)
	if err != nil {
		c.h.log.Debug("usable size failed", "ptr", p.String(), "err", err)
		return 0
	}
	return n
}
