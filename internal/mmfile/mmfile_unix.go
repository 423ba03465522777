//go:build unix

// Package mmfile provides platform-specific read-write memory mappings used
// as heap backing stores.
package mmfile

import (
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// Supported reports whether real mappings are available on this platform.
const Supported = true

// MapAnon maps size bytes of private anonymous memory.
func MapAnon(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, errors.Newf("mmfile: invalid mapping size %d", size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "mmfile: anonymous map of %d bytes", size)
	}
	return data, unmapper(data), nil
}

// MapFile maps the file at path read-write and shared, growing the file to
// size bytes first if it is shorter. Writes to the mapping reach the file.
func MapFile(path string, size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, errors.Newf("mmfile: invalid mapping size %d", size)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close() // safe before return; mapping keeps pages alive

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	if info.Size() < int64(size) {
		if err := unix.Ftruncate(int(f.Fd()), int64(size)); err != nil {
			return nil, nil, errors.Wrapf(err, "mmfile: extend %s to %d bytes", path, size)
		}
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "mmfile: map %s", path)
	}
	cleanup := func() error {
		if err := unix.Msync(data, unix.MS_SYNC); err != nil && !errors.Is(err, unix.EINVAL) {
			return err
		}
		return unmapper(data)()
	}
	return data, cleanup, nil
}

// Sync flushes a shared mapping to its file.
func Sync(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	return unix.Msync(data, unix.MS_SYNC)
}

func unmapper(data []byte) func() error {
	return func() error {
		if data == nil {
			return nil
		}
		err := unix.Munmap(data)
		if errors.Is(err, unix.EINVAL) {
			// Treat double-unmap as no-op for callers.
			return nil
		}
		return err
	}
}
