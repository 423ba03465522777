package alloc

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/heapkit/heap/store"
)

var (
	// ErrOutOfSpace indicates that no free block fits and the break cannot be
	// extended far enough. It is the store's sentinel, so errors.Is matches
	// failures coming from either layer.
	ErrOutOfSpace = store.ErrOutOfSpace

	// ErrDoubleFreeOrInvalidPointer indicates a pointer that is not currently
	// allocated by this heap: never returned by it, already freed, or not the
	// start of a data region.
	ErrDoubleFreeOrInvalidPointer = errors.New("alloc: double free or invalid pointer")

	// ErrCorruptFreeList indicates a broken free-list invariant. There is no
	// legitimate way to trigger it from outside the package.
	ErrCorruptFreeList = errors.New("alloc: corrupt free list")

	// ErrInvalidSize indicates a negative size or a count*size product that overflows.
	ErrInvalidSize = errors.New("alloc: invalid size")

	// ErrBadConfig indicates a configuration the heap cannot run with.
	ErrBadConfig = errors.New("alloc: bad config")
)
