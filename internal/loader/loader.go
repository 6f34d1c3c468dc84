// Package loader turns one content file into an immutable models.Post.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/inkwell/internal/checksum"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/parser"
	"github.com/starford/inkwell/internal/storage"
)

var (
	// ErrIO marks failures reading the file.
	ErrIO = errors.New("io")
	// ErrParse marks failures parsing the header or rendering the body.
	ErrParse = errors.New("parse")
)

// dateLayouts are tried in order when decoding the date field.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// LoadError describes why a single file could not become a Post.
type LoadError struct {
	Kind error // ErrIO or ErrParse
	Key  string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %s: %v", e.Key, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is matches the error kind, so errors.Is(err, ErrParse) works on a LoadError.
func (e *LoadError) Is(target error) bool { return target == e.Kind }

// header is the on-disk shape of the frontmatter.
type header struct {
	Title string    `yaml:"title"`
	Tags  []string  `yaml:"tags"`
	Draft bool      `yaml:"draft"`
	Short string    `yaml:"short"`
	Date  yaml.Node `yaml:"date"`
}

// Load reads key from p and builds a Post. A missing file yields an ErrIO
// LoadError that also matches fs.ErrNotExist.
func Load(p storage.Provider, key string) (*models.Post, error) {
	raw, modTime, err := Read(p, key)
	if err != nil {
		return nil, err
	}
	return Build(key, raw, modTime)
}

// Read returns the raw bytes and modification time of key without parsing
// them. Failures are ErrIO LoadErrors.
func Read(p storage.Provider, key string) ([]byte, time.Time, error) {
	info, err := p.Stat(key)
	if err != nil {
		return nil, time.Time{}, &LoadError{Kind: ErrIO, Key: key, Err: err}
	}
	if info.IsDir() {
		return nil, time.Time{}, &LoadError{Kind: ErrIO, Key: key, Err: fmt.Errorf("is a directory")}
	}
	raw, err := p.Read(key)
	if err != nil {
		return nil, time.Time{}, &LoadError{Kind: ErrIO, Key: key, Err: err}
	}
	return raw, info.ModTime(), nil
}

// Build parses raw into a Post. It has no side effects: the same bytes always
// produce an equal Post for a given modTime.
func Build(key string, raw []byte, modTime time.Time) (*models.Post, error) {
	res, err := parser.Parse(raw)
	if err != nil {
		return nil, &LoadError{Kind: ErrParse, Key: key, Err: err}
	}

	var h header
	if err := res.Decode(&h); err != nil {
		return nil, &LoadError{Kind: ErrParse, Key: key, Err: err}
	}
	date, err := parseDate(h.Date)
	if err != nil {
		return nil, &LoadError{Kind: ErrParse, Key: key, Err: err}
	}

	html, err := parser.Render(res.Body)
	if err != nil {
		return nil, &LoadError{Kind: ErrParse, Key: key, Err: err}
	}

	title := res.Title
	if title == "" {
		base := path.Base(key)
		title = strings.TrimSuffix(base, path.Ext(base))
	}

	return &models.Post{
		Key: key,
		Front: models.Front{
			Title: h.Title,
			Tags:  h.Tags,
			Draft: h.Draft,
			Short: h.Short,
			Date:  date,
		},
		Title:    title,
		Tags:     nonNilSlice(res.Tags),
		Links:    nonNilSlice(res.Links),
		HTML:     html,
		Body:     res.Body,
		Raw:      string(raw),
		Checksum: checksum.Sum(raw),
		Hash:     checksum.Fast(raw),
		Size:     int64(len(raw)),
		ModTime:  modTime,
	}, nil
}

// IsNotExist reports whether err is a load failure caused by a missing file.
func IsNotExist(err error) bool {
	return errors.Is(err, ErrIO) && errors.Is(err, fs.ErrNotExist)
}

func parseDate(n yaml.Node) (time.Time, error) {
	if n.Kind == 0 || n.Value == "" {
		return time.Time{}, fmt.Errorf("date is required")
	}
	if n.Kind != yaml.ScalarNode {
		return time.Time{}, fmt.Errorf("date must be a scalar")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, n.Value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", n.Value)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
