// Package storage provides the filesystem access used by the scanner.
package storage

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"
)

// ErrDestinationExists is returned by MoveFile when the target path is
// already occupied. Moves never overwrite.
var ErrDestinationExists = errors.New("destination already exists")

// FileInfo represents a file from a storage provider
type FileInfo struct {
	Path    string    // Full path
	Name    string    // File name
	Size    int64     // File size in bytes
	ModTime time.Time // Last modified time
	IsDir   bool      // Is directory
	Regular bool      // Regular file (not a symlink, device, socket...)
}

// Reader provides read access to a file
type Reader interface {
	io.ReadCloser
}

// Provider defines the filesystem operations the scanner relies on.
// There is deliberately no delete operation.
type Provider interface {
	// Walk visits every entry under root depth-first, names sorted within
	// each directory. Symlinked directories are not entered.
	Walk(root string, fn filepath.WalkFunc) error

	// Stat returns information about path without following a final symlink.
	Stat(path string) (FileInfo, error)

	// OpenFile opens a file for reading
	OpenFile(path string) (Reader, error)

	// Exists reports whether anything occupies path.
	Exists(path string) (bool, error)

	// MkdirAll creates path and any missing parents.
	MkdirAll(path string) error

	// MoveFile moves src to dst, creating dst's parent directories.
	// It fails with ErrDestinationExists rather than overwrite dst.
	MoveFile(src, dst string) error

	// Name returns the provider name
	Name() string
}

// CrossDeviceError reports that a rename crossed a filesystem boundary and
// the copy fallback failed as well.
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("cross-device move %q -> %q: %v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

// IsCrossDevice reports whether err is (or wraps) a CrossDeviceError.
func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// ProviderType represents the type of storage provider
type ProviderType string

const (
	ProviderLocal  ProviderType = "local"
	ProviderMemory ProviderType = "memory"
)
