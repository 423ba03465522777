// Package snapshot saves and restores whole heaps.
//
// A snapshot is a brotli stream holding a fixed header, the live block
// registry and the committed heap image:
//
//	0x00  [8]byte  magic "HEAPSNAP"
//	0x08  uint32   format version
//	0x0C  uint32   strategy
//	0x10  int64    capacity
//	0x18  int64    initial size
//	0x20  int64    growth step
//	0x28  int64    break
//	0x30  int64    head (-1 when the free list is empty)
//	0x38  int64    tail
//	0x40  int64    live block count N
//	0x48  N x (int64 addr, int64 size)
//	...   break bytes of heap image
//
// All integers are little-endian. Restoring re-runs the allocator's list
// check, so a damaged snapshot fails to load rather than yielding a heap
// that corrupts itself later.
package snapshot

import (
	"bufio"
	"io"
	"os"

	"github.com/andybalholm/brotli"
	"github.com/cockroachdb/errors"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/store"
	"github.com/joshuapare/heapkit/internal/layout"
)

const (
	// Magic identifies a heap snapshot.
	Magic = "HEAPSNAP"

	// Version is the snapshot format version written by Write.
	Version = 1

	headerSize = 0x48
	spanSize   = 2 * layout.WordSize
)

// ErrFormat is returned for streams that are not valid snapshots.
var ErrFormat = errors.New("snapshot: bad format")

// Write serializes h to w. Level is a brotli quality from 0 (fastest) to 11.
func Write(w io.Writer, h *alloc.Heap, level int) error {
	cfg := h.Config()
	state := h.State()

	hdr := make([]byte, headerSize, headerSize+len(state.Live)*spanSize)
	copy(hdr, Magic)
	layout.PutU32(hdr, 0x08, Version)
	layout.PutU32(hdr, 0x0C, uint32(cfg.Strategy))
	layout.PutWord(hdr, 0x10, int64(cfg.Capacity))
	layout.PutWord(hdr, 0x18, int64(cfg.InitialSize))
	layout.PutWord(hdr, 0x20, int64(cfg.GrowthStep))
	layout.PutWord(hdr, 0x28, int64(state.Break))
	layout.PutWord(hdr, 0x30, int64(state.Head))
	layout.PutWord(hdr, 0x38, int64(state.Tail))
	layout.PutWord(hdr, 0x40, int64(len(state.Live)))
	for _, s := range state.Live {
		var rec [spanSize]byte
		layout.PutWord(rec[:], 0, int64(s.Addr))
		layout.PutWord(rec[:], layout.WordSize, int64(s.Size))
		hdr = append(hdr, rec[:]...)
	}

	bw := brotli.NewWriterLevel(w, level)
	if _, err := bw.Write(hdr); err != nil {
		return errors.Wrap(err, "snapshot: write header")
	}
	if _, err := bw.Write(h.Store().Committed()); err != nil {
		return errors.Wrap(err, "snapshot: write image")
	}
	if err := bw.Close(); err != nil {
		return errors.Wrap(err, "snapshot: flush")
	}
	return nil
}

// Read rebuilds a heap from a snapshot stream. Geometry and strategy come
// from the snapshot; base (may be nil) supplies the rest of the
// configuration, such as Logger and Paranoid.
func Read(r io.Reader, base *alloc.Config) (*alloc.Heap, error) {
	br := brotli.NewReader(r)

	var hdr [headerSize]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, errors.Wrapf(ErrFormat, "header: %v", err)
	}
	if string(hdr[:8]) != Magic {
		return nil, errors.Wrapf(ErrFormat, "magic %q", hdr[:8])
	}
	if v := layout.ReadU32(hdr[:], 0x08); v != Version {
		return nil, errors.Wrapf(ErrFormat, "unsupported version %d", v)
	}

	var cfg alloc.Config
	if base != nil {
		cfg = *base
	}
	cfg.Strategy = alloc.Strategy(layout.ReadU32(hdr[:], 0x0C))
	cfg.Capacity = int(layout.ReadWord(hdr[:], 0x10))
	cfg.InitialSize = int(layout.ReadWord(hdr[:], 0x18))
	cfg.GrowthStep = int(layout.ReadWord(hdr[:], 0x20))
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(ErrFormat, "config: %v", err)
	}

	state := alloc.State{
		Break: int(layout.ReadWord(hdr[:], 0x28)),
		Head:  int(layout.ReadWord(hdr[:], 0x30)),
		Tail:  int(layout.ReadWord(hdr[:], 0x38)),
	}
	if state.Break < 0 || state.Break > cfg.Capacity {
		return nil, errors.Wrapf(ErrFormat, "break %d outside capacity %d", state.Break, cfg.Capacity)
	}
	n := layout.ReadWord(hdr[:], 0x40)
	if n < 0 || n > int64(state.Break/alloc.HeaderSize) {
		return nil, errors.Wrapf(ErrFormat, "%d live blocks in %d bytes", n, state.Break)
	}

	spans := make([]byte, int(n)*spanSize)
	if _, err := io.ReadFull(br, spans); err != nil {
		return nil, errors.Wrapf(ErrFormat, "live blocks: %v", err)
	}
	state.Live = make([]alloc.Span, n)
	for i := range state.Live {
		off := i * spanSize
		state.Live[i] = alloc.Span{
			Addr: int(layout.ReadWord(spans, off)),
			Size: int(layout.ReadWord(spans, off+layout.WordSize)),
		}
	}

	// Anonymous memory so a large capacity costs nothing past the break.
	st, err := store.NewAnonymous(cfg.Capacity)
	if err != nil {
		return nil, err
	}
	if err := st.SetBreak(state.Break); err != nil {
		_ = st.Close()
		return nil, err
	}
	if _, err := io.ReadFull(br, st.Committed()); err != nil {
		_ = st.Close()
		return nil, errors.Wrapf(ErrFormat, "image: %v", err)
	}

	h, err := alloc.Restore(st, &cfg, state)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return h, nil
}

// WriteFile writes a snapshot of h to path, replacing any existing file.
func WriteFile(path string, h *alloc.Heap, level int) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	bw := bufio.NewWriter(f)
	if err := Write(bw, h, level); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadFile loads a snapshot from path.
func ReadFile(path string, base *alloc.Config) (*alloc.Heap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(bufio.NewReader(f), base)
}
