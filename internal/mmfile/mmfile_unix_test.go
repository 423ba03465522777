//go:build unix

package mmfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapAnonReadWrite(t *testing.T) {
	data, cleanup, err := MapAnon(4096)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, cleanup())
	}()

	require.Len(t, data, 4096)
	for i := range data {
		require.Zero(t, data[i], "anonymous mapping must start zeroed")
	}
	data[0] = 0x42
	data[4095] = 0x24
	require.Equal(t, byte(0x42), data[0])
	require.Equal(t, byte(0x24), data[4095])
}

func TestMapAnonRejectsBadSize(t *testing.T) {
	_, _, err := MapAnon(0)
	require.Error(t, err)
}

func TestMapFilePersists(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping mmap test in short mode")
	}
	path := filepath.Join(t.TempDir(), "heap.img")

	data, cleanup, err := MapFile(path, 8192)
	require.NoError(t, err)
	copy(data, []byte{0xde, 0xad, 0xbe, 0xef})
	require.NoError(t, Sync(data))
	require.NoError(t, cleanup())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(8192), info.Size())

	// Mapping again sees the bytes written through the first mapping.
	data, cleanup, err = MapFile(path, 8192)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, cleanup())
	}()
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, data[:4])
}

func TestMapFileCreatesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.img")
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	_, cleanup, err := MapFile(path, 4096)
	require.NoError(t, err)
	require.NoError(t, cleanup())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(4096), info.Size())
}
