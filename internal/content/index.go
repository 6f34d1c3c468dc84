package content

import (
	"slices"

	"github.com/starford/inkwell/internal/models"
)

// DateTextLayout is the display layout of PostSummary.DateText.
const DateTextLayout = "02-01-2006"

// Index is a read-only snapshot of every post summary, newest first. A new
// Index replaces the old one on each rebuild; holders of an older snapshot
// keep a consistent view.
type Index struct {
	Version uint64               `json:"version"`
	Entries []models.PostSummary `json:"entries"`
}

// Len returns the number of entries.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.Entries)
}

// Rebuild projects every post in s and sorts by date descending. Posts with
// equal dates keep store insertion order.
func Rebuild(s *Store, version uint64) *Index {
	posts := s.Ordered()
	entries := make([]models.PostSummary, len(posts))
	for i, p := range posts {
		entries[i] = Summarize(p)
	}
	slices.SortStableFunc(entries, func(a, b models.PostSummary) int {
		return b.Date.Compare(a.Date)
	})
	return &Index{Version: version, Entries: entries}
}

// Summarize builds the index projection of p.
func Summarize(p *models.Post) models.PostSummary {
	return models.PostSummary{
		Key:      p.Key,
		Link:     "/blog/" + p.Key,
		Title:    p.Title,
		Short:    p.Front.Short,
		Tags:     p.Tags,
		Draft:    p.Front.Draft,
		Date:     p.Front.Date,
		DateText: p.Front.Date.Format(DateTextLayout),
	}
}
