package storage

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIgnore excludes hidden files and editor backups.
var DefaultIgnore = []string{".*", "**/.*", "**/.*/**", "**/*~"}

// Matcher decides which keys belong to the content set. A nil Matcher
// accepts everything.
type Matcher struct {
	ignore []string
	exts   map[string]struct{}
}

// NewMatcher validates the doublestar ignore patterns and normalises the
// extension list (".md" and "md" are equivalent). An empty extension list
// accepts every file.
func NewMatcher(ignore, extensions []string) (*Matcher, error) {
	for _, p := range ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("storage: invalid ignore pattern %q", p)
		}
	}
	m := &Matcher{ignore: ignore}
	if len(extensions) > 0 {
		m.exts = make(map[string]struct{}, len(extensions))
		for _, e := range extensions {
			e = strings.ToLower(strings.TrimSpace(e))
			if e == "" {
				continue
			}
			if !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			m.exts[e] = struct{}{}
		}
	}
	return m, nil
}

// Ignored reports whether key matches an ignore pattern.
func (m *Matcher) Ignored(key string) bool {
	if m == nil || key == "" {
		return false
	}
	for _, p := range m.ignore {
		if ok, _ := doublestar.Match(p, key); ok {
			return true
		}
	}
	return false
}

// Accepts reports whether a file key has an accepted extension.
func (m *Matcher) Accepts(key string) bool {
	if m == nil || len(m.exts) == 0 {
		return true
	}
	_, ok := m.exts[strings.ToLower(path.Ext(key))]
	return ok
}

// Skip reports whether key is outside the content set. Directories are only
// subject to ignore patterns.
func (m *Matcher) Skip(key string, isDir bool) bool {
	if m.Ignored(key) {
		return true
	}
	return !isDir && !m.Accepts(key)
}
