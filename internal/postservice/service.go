// Package postservice is the read-side facade used by the HTTP and MCP
// layers. It combines the content client with the search mirror and bounds
// every call to the content service with a timeout.
package postservice

import (
	"context"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"

	"github.com/starford/inkwell/internal/content"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/search"
)

const (
	// DefaultTimeout bounds a single content request.
	DefaultTimeout = 5 * time.Second
	// DefaultLimit is the page size when none is requested.
	DefaultLimit = 50
	// MaxLimit caps the page size.
	MaxLimit = 500
)

// Source is the subset of content.Client the service needs.
type Source interface {
	Get(ctx context.Context, key string) (*models.Post, error)
	List(ctx context.Context) (*content.Index, error)
}

var _ Source = (*content.Client)(nil)

// PostDetail is the full representation of a post.
type PostDetail struct {
	Key       string       `json:"key"`
	Link      string       `json:"link"`
	Title     string       `json:"title"`
	Front     models.Front `json:"front"`
	HTML      string       `json:"html"`
	Raw       string       `json:"raw"`
	Checksum  string       `json:"checksum"`
	Tags      []string     `json:"tags"`
	Links     []string     `json:"links"`
	Backlinks []string     `json:"backlinks"`
	ModTime   time.Time    `json:"mod_time"`
}

// ListOptions filters and pages the index.
type ListOptions struct {
	Tag    string
	Drafts bool
	Match  string
	Limit  int
	Offset int
}

// ListResult is one page of the index.
type ListResult struct {
	Posts   []models.PostSummary `json:"posts"`
	Total   int                  `json:"total"`
	Version uint64               `json:"version"`
}

// Match is a fuzzy lookup hit.
type Match struct {
	models.PostSummary
	Score int `json:"score"`
}

// Service coordinates the content client and the search mirror.
type Service struct {
	posts   Source
	db      search.Index
	timeout time.Duration
}

// NewService creates a new post service. A non-positive timeout selects
// DefaultTimeout.
func NewService(posts Source, db search.Index, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{posts: posts, db: db, timeout: timeout}
}

// Post returns the stored post for key.
func (s *Service) Post(ctx context.Context, key string) (*models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.posts.Get(ctx, key)
}

// Index returns the current index snapshot.
func (s *Service) Index(ctx context.Context) (*content.Index, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.posts.List(ctx)
}

// GetPost returns the post for key enriched with backlinks.
func (s *Service) GetPost(ctx context.Context, key string) (*PostDetail, error) {
	p, err := s.Post(ctx, key)
	if err != nil {
		return nil, err
	}
	bl, err := s.backlinks(p)
	if err != nil {
		return nil, err
	}
	return &PostDetail{
		Key:       p.Key,
		Link:      "/blog/" + p.Key,
		Title:     p.Title,
		Front:     p.Front,
		HTML:      p.HTML,
		Raw:       p.Raw,
		Checksum:  p.Checksum,
		Tags:      nonNilSlice(p.Tags),
		Links:     nonNilSlice(p.Links),
		Backlinks: bl,
		ModTime:   p.ModTime,
	}, nil
}

// ListPosts returns a filtered page of the index. Drafts are hidden unless
// requested. With a Match pattern the posts are ranked by fuzzy score
// instead of date.
func (s *Service) ListPosts(ctx context.Context, opts ListOptions) (*ListResult, error) {
	ix, err := s.Index(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]models.PostSummary, 0, ix.Len())
	for _, e := range ix.Entries {
		if e.Draft && !opts.Drafts {
			continue
		}
		if opts.Tag != "" && !hasTag(e.Tags, opts.Tag) {
			continue
		}
		entries = append(entries, e)
	}
	if opts.Match != "" {
		matches := rank(entries, opts.Match)
		entries = make([]models.PostSummary, 0, len(matches))
		for _, m := range matches {
			entries = append(entries, m.PostSummary)
		}
	}

	total := len(entries)
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)
	offset := max(opts.Offset, 0)
	if offset > total {
		offset = total
	}
	end := min(offset+limit, total)

	return &ListResult{
		Posts:   entries[offset:end],
		Total:   total,
		Version: ix.Version,
	}, nil
}

// Find fuzzy-matches query against post titles and keys.
func (s *Service) Find(ctx context.Context, query string, limit int) ([]Match, error) {
	ix, err := s.Index(ctx)
	if err != nil {
		return nil, err
	}
	matches := rank(ix.Entries, query)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Search delegates full-text search to the mirror.
func (s *Service) Search(_ context.Context, query string, limit int) ([]search.Result, error) {
	res, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(res), nil
}

// Backlinks returns the keys of posts that link to the post at key.
func (s *Service) Backlinks(ctx context.Context, key string) ([]string, error) {
	p, err := s.Post(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.backlinks(p)
}

// backlinks matches the wikilink spellings that can point at p: the key
// with or without extension, the file name, and the title.
func (s *Service) backlinks(p *models.Post) ([]string, error) {
	stem := strings.TrimSuffix(p.Key, path.Ext(p.Key))
	base := path.Base(p.Key)
	targets := []string{p.Key, stem, base, strings.TrimSuffix(base, path.Ext(base)), p.Title}
	slices.Sort(targets)
	targets = slices.Compact(targets)

	sources, err := s.db.Backlinks(targets...)
	if err != nil {
		return nil, err
	}
	sources = slices.DeleteFunc(sources, func(k string) bool { return k == p.Key })
	return nonNilSlice(sources), nil
}

type summaries []models.PostSummary

func (s summaries) String(i int) string { return s[i].Title + " " + s[i].Key }
func (s summaries) Len() int            { return len(s) }

func rank(entries []models.PostSummary, pattern string) []Match {
	found := fuzzy.FindFrom(pattern, summaries(entries))
	out := make([]Match, len(found))
	for i, m := range found {
		out[i] = Match{PostSummary: entries[m.Index], Score: m.Score}
	}
	return out
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, want) {
			return true
		}
	}
	return false
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
