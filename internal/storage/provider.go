// Package storage defines the read-only view of the content root.
package storage

import (
	"errors"
	"io/fs"
)

// ErrOutsideRoot is returned for paths that resolve outside the content root.
var ErrOutsideRoot = errors.New("storage: path escapes content root")

// Provider is the interface for content tree reads. Keys are slash separated
// and relative to the root; the empty key names the root itself.
type Provider interface {
	// Key converts an absolute or root-relative filesystem path to a key.
	Key(path string) (string, error)
	// Stat describes the file or directory at key, following symlinks.
	Stat(key string) (fs.FileInfo, error)
	// ReadDir lists the directory at key in name order.
	ReadDir(key string) ([]fs.DirEntry, error)
	// Read returns the raw bytes of the file at key.
	Read(key string) ([]byte, error)
	// Skip reports whether key is excluded from the content set.
	Skip(key string, isDir bool) bool
}
