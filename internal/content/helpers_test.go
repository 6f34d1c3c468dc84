package content

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/starford/inkwell/internal/storage"
)

var quiet = slog.New(slog.DiscardHandler)

func post(date string) string {
	return "---\ndate: " + date + "\n---\nbody of " + date + "\n"
}

const malformed = "---\ndate: [2024-03-01\n---\nbroken\n"

func writeFile(t *testing.T, root, key, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(key))
	require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
	require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
}

func newTree(t *testing.T, files map[string]string) *storage.Tree {
	t.Helper()
	root := t.TempDir()
	for k, v := range files {
		writeFile(t, root, k, v)
	}
	tree, err := storage.NewTree(root, nil)
	require.NoError(t, err)
	return tree
}

type harness struct {
	svc     *Service
	client  *Client
	changes chan Batch
	tree    *storage.Tree
}

// start runs a service over files and stops it when the test ends.
func start(t *testing.T, files map[string]string, opts ...Option) *harness {
	t.Helper()
	h := &harness{tree: newTree(t, files), changes: make(chan Batch)}
	h.svc, h.client = New(h.tree, h.changes, append([]Option{WithLogger(quiet)}, opts...)...)

	errc := make(chan error, 1)
	go func() { errc <- h.svc.Run() }()
	t.Cleanup(func() {
		h.client.Close()
		close(h.changes)
		require.NoError(t, <-errc)
	})
	<-h.svc.Ready()
	return h
}

func (h *harness) write(t *testing.T, key, content string) {
	t.Helper()
	writeFile(t, h.tree.Root(), key, content)
}

func (h *harness) remove(t *testing.T, key string) {
	t.Helper()
	require.NoError(t, os.RemoveAll(filepath.Join(h.tree.Root(), filepath.FromSlash(key))))
}

func keys(ix *Index) []string {
	out := make([]string, 0, ix.Len())
	for _, e := range ix.Entries {
		out = append(out, e.Key)
	}
	return out
}

// failingProvider fails ReadDir for one key.
type failingProvider struct {
	*storage.Tree
	fail string
}

func (f failingProvider) ReadDir(key string) ([]os.DirEntry, error) {
	if key == f.fail {
		return nil, os.ErrPermission
	}
	return f.Tree.ReadDir(key)
}

// cloneStore copies s so subtests can mutate their own store.
func cloneStore(s *Store) *Store {
	c := NewStore()
	for _, p := range s.Ordered() {
		c.Put(p)
	}
	return c
}
