// Package layout holds the block layout constants and the word codec shared
// by the backing store, the allocator and its verifiers.
//
// Every block in the heap, free or allocated, begins with a three-word header:
//
//	+0   size   usable bytes that follow the header
//	+8   prev   header address of the previous free block (or NilLink)
//	+16  next   header address of the next free block (or NilLink)
//
// While a block is allocated, prev and next hold AllocTag instead of links.
package layout

import "golang.org/x/exp/constraints"

const (
	// WordSize is the size of one heap cell in bytes.
	WordSize = 8

	// WordMask is used for rounding to word boundaries.
	WordMask = WordSize - 1

	// SizeOffset is the offset of the size word within a block header.
	SizeOffset = 0

	// PrevOffset is the offset of the previous-free-block link.
	PrevOffset = WordSize

	// NextOffset is the offset of the next-free-block link.
	NextOffset = 2 * WordSize

	// HeaderSize is the size of every block header in bytes.
	HeaderSize = 3 * WordSize

	// MinGrowthStep is the smallest break extension that can hold a block.
	MinGrowthStep = HeaderSize + WordSize
)

const (
	// NilLink marks the end of the free list in a prev/next word.
	NilLink int64 = -1

	// AllocTag is written to both link words of an allocated block.
	AllocTag int64 = 0x414c4c4f43415445 // "ALLOCATE"
)

// AlignUp rounds n up to the next multiple of align. align must be a power of two.
//
// Example:
//
//	AlignUp(1, 8)  = 8
//	AlignUp(8, 8)  = 8
//	AlignUp(9, 8)  = 16
func AlignUp[T constraints.Integer](n, align T) T {
	return (n + align - 1) &^ (align - 1)
}

// AlignWord rounds n up to the next word boundary.
func AlignWord(n int) int {
	return AlignUp(n, WordSize)
}

// IsWordAligned reports whether n is a multiple of WordSize.
func IsWordAligned[T constraints.Integer](n T) bool {
	return n&WordMask == 0
}
