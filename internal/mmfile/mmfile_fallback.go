//go:build !unix

// Package mmfile provides platform-specific read-write memory mappings used
// as heap backing stores.
package mmfile

import (
	"os"

	"github.com/cockroachdb/errors"
)

// Supported reports whether real mappings are available on this platform.
const Supported = false

// MapAnon allocates size bytes on the Go heap when mmap is not available.
func MapAnon(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, errors.Newf("mmfile: invalid mapping size %d", size)
	}
	return make([]byte, size), func() error { return nil }, nil
}

// MapFile reads the file into memory and writes it back on cleanup.
func MapFile(path string, size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, errors.Newf("mmfile: invalid mapping size %d", size)
	}
	data := make([]byte, size)
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, nil, err
	}
	copy(data, existing)
	cleanup := func() error {
		return os.WriteFile(path, data, 0o600)
	}
	return data, cleanup, nil
}

// Sync is a no-op without a real mapping; cleanup persists the data.
func Sync(data []byte) error {
	return nil
}
