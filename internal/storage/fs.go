package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Tree implements Provider backed by the local file system. It never writes.
type Tree struct {
	root  string // absolute path to the content directory
	match *Matcher
}

var _ Provider = (*Tree)(nil)

// NewTree creates a Tree rooted at the given directory, which must exist.
// match may be nil to accept every file.
func NewTree(root string, match *Matcher) (*Tree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &Tree{root: abs, match: match}, nil
}

// Root returns the absolute content root.
func (t *Tree) Root() string { return t.root }

// Key converts a filesystem path to a slash separated key relative to the
// root. Relative paths are taken as already relative to the root.
func (t *Tree) Key(p string) (string, error) {
	rel := p
	if filepath.IsAbs(p) {
		r, err := filepath.Rel(t.root, filepath.Clean(p))
		if err != nil {
			return "", fmt.Errorf("storage: relative path: %w", err)
		}
		rel = r
	}
	cleaned := filepath.Clean(rel)
	if cleaned == "." {
		return "", nil
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, p)
	}
	return filepath.ToSlash(cleaned), nil
}

// Abs resolves a key against the root and rejects any result that escapes
// it (directory traversal).
func (t *Tree) Abs(key string) (string, error) {
	if key == "" {
		return t.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", key)
	}
	abs := filepath.Join(t.root, cleaned)
	if !strings.HasPrefix(abs, t.root+string(os.PathSeparator)) && abs != t.root {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, key)
	}
	return abs, nil
}

// Stat describes the entry at key.
func (t *Tree) Stat(key string) (fs.FileInfo, error) {
	abs, err := t.Abs(key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat %s: %w", key, err)
	}
	return info, nil
}

// ReadDir lists the directory at key, sorted by name.
func (t *Tree) ReadDir(key string) ([]fs.DirEntry, error) {
	abs, err := t.Abs(key)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read dir %s: %w", key, err)
	}
	return entries, nil
}

// Read returns the raw bytes of a content file.
func (t *Tree) Read(key string) ([]byte, error) {
	abs, err := t.Abs(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", key, err)
	}
	return data, nil
}

// Skip reports whether key is excluded by the tree's matcher.
func (t *Tree) Skip(key string, isDir bool) bool {
	return t.match.Skip(key, isDir)
}
