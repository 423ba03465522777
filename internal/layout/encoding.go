package layout

import "encoding/binary"

// Heap words are stored little-endian regardless of host byte order so that
// snapshots and file-backed heaps are portable.

// PutWord writes v at off in little-endian format.
func PutWord(b []byte, off int, v int64) {
	binary.LittleEndian.PutUint64(b[off:off+WordSize], uint64(v))
}

// ReadWord reads the word at off in little-endian format.
func ReadWord(b []byte, off int) int64 {
	return int64(binary.LittleEndian.Uint64(b[off : off+WordSize]))
}

// PutU32 writes a uint32 value at off in little-endian format.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// ReadU32 reads a uint32 value at off in little-endian format.
func ReadU32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}
