//go:build unix

package mmfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapContainerBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xls")
	want := []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	require.NoError(t, os.WriteFile(path, want, 0o644))

	data, release, err := Map(path)
	require.NoError(t, err)
	require.Equal(t, want, data)

	require.NoError(t, release())
	require.NoError(t, release(), "second release is a no-op")
}

func TestMapEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	data, release, err := Map(path)
	require.NoError(t, err)
	require.Empty(t, data)
	require.NotNil(t, release)
	require.NoError(t, release())
}

func TestMapMissingFile(t *testing.T) {
	_, _, err := Map(filepath.Join(t.TempDir(), "absent.xls"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSyncWrittenFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.cfb"))
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Write([]byte("sectors"))
	require.NoError(t, err)
	require.NoError(t, Sync(f))
}
