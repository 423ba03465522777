package alloc

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Ptr is the address of a block's data region: a byte offset into the
// backing store. The header sits HeaderSize bytes below it.
type Ptr int

// Null is the pointer returned when no memory is handed out.
// Offset 0 is always a header, never a data region.
const Null Ptr = 0

func (p Ptr) String() string {
	if p == Null {
		return "NULL"
	}
	return fmt.Sprintf("0x%x", int(p))
}

// Strategy selects how the free list is searched.
type Strategy uint8

const (
	// FirstFit takes the lowest-addressed free block that is large enough.
	FirstFit Strategy = iota
	// BestFit takes the smallest free block that is large enough; ties go to
	// the lowest address.
	BestFit
)

func (s Strategy) String() string {
	switch s {
	case FirstFit:
		return "first-fit"
	case BestFit:
		return "best-fit"
	default:
		return fmt.Sprintf("strategy(%d)", uint8(s))
	}
}

// ParseStrategy accepts "first", "first-fit", "best" or "best-fit".
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first", "first-fit", "firstfit":
		return FirstFit, nil
	case "best", "best-fit", "bestfit":
		return BestFit, nil
	}
	return 0, errors.Wrapf(ErrBadConfig, "unknown strategy %q", s)
}

// BlockKind tells free headers from allocated ones.
type BlockKind uint8

const (
	KindFree BlockKind = iota
	KindAllocated
)

func (k BlockKind) String() string {
	if k == KindAllocated {
		return "allocated"
	}
	return "free"
}

// BlockHeader is a decoded block header. Prev and Next are only meaningful
// for free blocks (-1 when there is no neighbour); an allocated block carries
// only its size.
type BlockHeader struct {
	Kind BlockKind
	Addr int // header address
	Size int // usable bytes after the header
	Prev int
	Next int
}

// End returns the address just past the block's data region.
func (b BlockHeader) End() int {
	return b.Addr + HeaderSize + b.Size
}

// Data returns the block's data pointer.
func (b BlockHeader) Data() Ptr {
	return Ptr(b.Addr + HeaderSize)
}

// Span is a live allocation: header address and usable size.
type Span struct {
	Addr int
	Size int
}

// End returns the address just past the span's data region.
func (s Span) End() int {
	return s.Addr + HeaderSize + s.Size
}

// Data returns the span's data pointer.
func (s Span) Data() Ptr {
	return Ptr(s.Addr + HeaderSize)
}
