// Package store implements the heap's backing store: one fixed-capacity byte
// region and a break cursor that marks the end of committed memory, in the
// manner of the Unix program break.
//
// Memory below the break is committed and addressable; memory above it is
// reserved but off limits. The break only moves through ExtendBreak, which
// refuses to cross the origin or the fixed capacity.
package store

import (
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/heapkit/internal/buf"
	"github.com/joshuapare/heapkit/internal/layout"
	"github.com/joshuapare/heapkit/internal/mmfile"
)

// ErrOutOfSpace is returned when the break would move below the origin or
// past the store's capacity.
var ErrOutOfSpace = errors.New("store: out of space")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store: closed")

// Kind names the memory behind a Store.
type Kind uint8

const (
	KindGo        Kind = iota // plain Go slice
	KindAnonymous             // private anonymous mapping
	KindFile                  // shared file mapping
)

func (k Kind) String() string {
	switch k {
	case KindGo:
		return "go"
	case KindAnonymous:
		return "anonymous"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// Store is a fixed-capacity buffer with a movable break.
//
// NOT thread-safe. The allocator that owns a Store serializes all access.
type Store struct {
	mem     []byte
	brk     int
	kind    Kind
	cleanup func() error
}

// New returns a store backed by a Go byte slice of the given capacity.
func New(capacity int) (*Store, error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}
	return &Store{mem: make([]byte, capacity), kind: KindGo}, nil
}

// NewAnonymous returns a store backed by an anonymous private mapping, so the
// reserved capacity costs nothing until pages are touched. Platforms without
// mmap get a Go slice instead.
func NewAnonymous(capacity int) (*Store, error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}
	if !mmfile.Supported {
		return New(capacity)
	}
	mem, cleanup, err := mmfile.MapAnon(capacity)
	if err != nil {
		return nil, err
	}
	return &Store{mem: mem, kind: KindAnonymous, cleanup: cleanup}, nil
}

// OpenFile returns a store whose memory is a shared mapping of the file at
// path. The file is created or extended to capacity bytes. The break starts
// at zero; callers restoring a saved image set it with SetBreak.
func OpenFile(path string, capacity int) (*Store, error) {
	if err := checkCapacity(capacity); err != nil {
		return nil, err
	}
	mem, cleanup, err := mmfile.MapFile(path, capacity)
	if err != nil {
		return nil, err
	}
	return &Store{mem: mem, kind: KindFile, cleanup: cleanup}, nil
}

func checkCapacity(capacity int) error {
	if capacity <= 0 || !layout.IsWordAligned(capacity) {
		return errors.Newf("store: capacity %d must be a positive multiple of %d", capacity, layout.WordSize)
	}
	return nil
}

// Kind reports what kind of memory backs the store.
func (s *Store) Kind() Kind { return s.kind }

// Capacity returns the fixed size of the store in bytes.
func (s *Store) Capacity() int { return len(s.mem) }

// Break returns the current break: the first byte past committed memory.
func (s *Store) Break() int { return s.brk }

// ExtendBreak moves the break by step bytes and returns the previous break,
// which for a positive step is the start of the newly committed region.
// A negative step releases memory. The break never crosses the origin or
// the capacity; such requests fail with ErrOutOfSpace and leave it unchanged.
func (s *Store) ExtendBreak(step int) (int, error) {
	if s.mem == nil {
		return 0, ErrClosed
	}
	next, ok := buf.AddOverflowSafe(s.brk, step)
	if !ok || next < 0 || next > len(s.mem) {
		return 0, errors.Wrapf(ErrOutOfSpace, "break %d%+d (capacity %d)", s.brk, step, len(s.mem))
	}
	prev := s.brk
	s.brk = next
	return prev, nil
}

// SetBreak places the break at an absolute position. Used when restoring an
// image whose layout is already known.
func (s *Store) SetBreak(brk int) error {
	if s.mem == nil {
		return ErrClosed
	}
	if brk < 0 || brk > len(s.mem) {
		return errors.Wrapf(ErrOutOfSpace, "set break %d (capacity %d)", brk, len(s.mem))
	}
	s.brk = brk
	return nil
}

// Word reads the little-endian word at off. off must be word-aligned and the
// word must lie below the break.
func (s *Store) Word(off int) int64 {
	return layout.ReadWord(s.Committed(), off)
}

// PutWord writes a little-endian word at off below the break.
func (s *Store) PutWord(off int, v int64) {
	layout.PutWord(s.Committed(), off, v)
}

// InBounds reports whether [off, off+n) lies within committed memory.
func (s *Store) InBounds(off, n int) bool {
	return buf.Has(s.Committed(), off, n)
}

// Slice returns a view of n committed bytes at off.
func (s *Store) Slice(off, n int) ([]byte, error) {
	if _, err := buf.CheckRange(s.brk, off, n); err != nil {
		return nil, errors.Wrap(err, "store")
	}
	return s.mem[off : off+n : off+n], nil
}

// Committed returns the whole committed region [0, Break()).
func (s *Store) Committed() []byte {
	return s.mem[:s.brk:s.brk]
}

// Sync flushes a file-backed store to disk. Other kinds return nil.
func (s *Store) Sync() error {
	if s.kind != KindFile || s.mem == nil {
		return nil
	}
	return mmfile.Sync(s.mem)
}

// Close releases any mapping behind the store. The store is unusable afterwards.
func (s *Store) Close() error {
	if s.mem == nil {
		return nil
	}
	var err error
	if s.cleanup != nil {
		err = s.cleanup()
	}
	s.mem = nil
	s.brk = 0
	return err
}
