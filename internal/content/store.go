package content

import (
	"slices"
	"strings"

	"github.com/starford/inkwell/internal/models"
)

type record struct {
	post *models.Post
	seq  uint64
}

// Store maps normalized keys to immutable posts. It is owned by the Service
// loop and is not safe for concurrent use.
type Store struct {
	posts map[string]record
	next  uint64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{posts: make(map[string]record)}
}

// Get returns the post stored under key.
func (s *Store) Get(key string) (*models.Post, bool) {
	r, ok := s.posts[key]
	return r.post, ok
}

// Put stores p under p.Key, replacing any previous post. A replaced key keeps
// its original insertion position.
func (s *Store) Put(p *models.Post) {
	r, ok := s.posts[p.Key]
	if !ok {
		r.seq = s.next
		s.next++
	}
	r.post = p
	s.posts[p.Key] = r
}

// Remove deletes key and reports whether it was present.
func (s *Store) Remove(key string) bool {
	if _, ok := s.posts[key]; !ok {
		return false
	}
	delete(s.posts, key)
	return true
}

// Under returns the keys equal to dir or nested below it, sorted. The empty
// dir matches every key.
func (s *Store) Under(dir string) []string {
	var out []string
	prefix := dir + "/"
	for k := range s.posts {
		if dir == "" || k == dir || strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// Len returns the number of stored posts.
func (s *Store) Len() int { return len(s.posts) }

// Ordered returns every post in insertion order.
func (s *Store) Ordered() []*models.Post {
	recs := make([]record, 0, len(s.posts))
	for _, r := range s.posts {
		recs = append(recs, r)
	}
	slices.SortFunc(recs, func(a, b record) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})
	out := make([]*models.Post, len(recs))
	for i, r := range recs {
		out[i] = r.post
	}
	return out
}
