package search

// Index defines the read and write operations on the search mirror.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with fakes.
type Index interface {
	UpsertPost(r PostRow, body string, links []string) error
	DeletePost(key string) error
	GetChecksum(key string) (string, error)
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]Result, error)
	Backlinks(targets ...string) ([]string, error)
	Close() error
}

// Verify *DB satisfies Index at compile time.
var _ Index = (*DB)(nil)
