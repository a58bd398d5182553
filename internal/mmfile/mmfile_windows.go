//go:build windows

package mmfile

import (
	"os"
)

// Map reads the whole file; container files are opened read-only so a copy
// behaves the same as a private mapping.
func Map(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, func() error { return nil }, err
	}
	return data, func() error { return nil }, nil
}

// Sync flushes file contents to stable storage.
func Sync(f *os.File) error {
	return f.Sync()
}
