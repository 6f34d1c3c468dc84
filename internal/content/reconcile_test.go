package content

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/inkwell/internal/loader"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/storage"
)

func TestReconcile_BadFileIsolation(t *testing.T) {
	tree := newTree(t, map[string]string{
		"a.txt": post("2024-01-01"),
		"b.txt": post("2024-02-01"),
		"c.txt": malformed,
	})
	s := NewStore()
	d, err := NewReconciler(tree, quiet).Reconcile(s, "")
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	assert.Len(t, d.Created, 2)
	_, ok := s.Get("c.txt")
	assert.False(t, ok)
}

func TestReconcile_Idempotent(t *testing.T) {
	tree := newTree(t, map[string]string{
		"a.md":             post("2024-01-01"),
		"nested/deep/b.md": post("2024-01-02"),
	})
	r := NewReconciler(tree, quiet)
	s := NewStore()
	_, err := r.Reconcile(s, "")
	require.NoError(t, err)
	first := map[string]any{}
	for _, k := range s.Under("") {
		p, _ := s.Get(k)
		first[k] = p
	}

	d, err := r.Reconcile(s, "")
	require.NoError(t, err)
	assert.True(t, d.Empty())
	for _, k := range s.Under("") {
		p, _ := s.Get(k)
		assert.Same(t, first[k], p, "unchanged file %s was reloaded", k)
	}
	assert.Len(t, first, s.Len())
}

func TestReconcile_DetectsModification(t *testing.T) {
	tree := newTree(t, map[string]string{"a.md": post("2024-01-01")})
	r := NewReconciler(tree, quiet)
	s := NewStore()
	_, err := r.Reconcile(s, "")
	require.NoError(t, err)

	writeFile(t, tree.Root(), "a.md", post("2025-06-01"))
	d, err := r.Reconcile(s, "a.md")
	require.NoError(t, err)
	require.Len(t, d.Updated, 1)
	assert.Equal(t, 2025, d.Updated[0].Front.Date.Year())
}

func TestReconcile_FileBecomesMalformed(t *testing.T) {
	tree := newTree(t, map[string]string{"a.md": post("2024-01-01")})
	r := NewReconciler(tree, quiet)
	s := NewStore()
	_, err := r.Reconcile(s, "")
	require.NoError(t, err)

	writeFile(t, tree.Root(), "a.md", malformed)
	d, err := r.Reconcile(s, "a.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, d.Removed)
	assert.Equal(t, 0, s.Len())
}

func TestReconcile_DirectoryRemoval(t *testing.T) {
	tree := newTree(t, map[string]string{
		"posts/a.md":     post("2024-01-01"),
		"posts/sub/b.md": post("2024-01-02"),
		"keep.md":        post("2024-01-03"),
	})
	r := NewReconciler(tree, quiet)
	s := NewStore()
	_, err := r.Reconcile(s, "")
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())

	require.NoError(t, os.RemoveAll(filepath.Join(tree.Root(), "posts")))
	d, err := r.Reconcile(s, "posts")
	require.NoError(t, err)
	assert.Equal(t, []string{"posts/a.md", "posts/sub/b.md"}, d.Removed)
	assert.Equal(t, []string{"keep.md"}, s.Under(""))
}

func TestReconcile_RootRescanPrunesDeleted(t *testing.T) {
	tree := newTree(t, map[string]string{
		"a.md":       post("2024-01-01"),
		"b.md":       post("2024-02-01"),
		"sub/c.md":   post("2024-03-01"),
		"sub/d/e.md": post("2024-04-01"),
	})
	r := NewReconciler(tree, quiet)
	s := NewStore()
	_, err := r.Reconcile(s, "")
	require.NoError(t, err)
	require.Equal(t, 4, s.Len())

	require.NoError(t, os.Remove(filepath.Join(tree.Root(), "b.md")))
	require.NoError(t, os.RemoveAll(filepath.Join(tree.Root(), "sub", "d")))
	d, err := r.Reconcile(s, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b.md", "sub/d/e.md"}, d.Removed)
	assert.Equal(t, []string{"a.md", "sub/c.md"}, s.Under(""))

	d, err = r.Reconcile(s, "")
	require.NoError(t, err)
	assert.True(t, d.Empty(), "second rescan must converge")
}

func TestReconcile_DirectoryReplacedByFile(t *testing.T) {
	tree := newTree(t, map[string]string{
		"d/x.md": post("2024-01-01"),
		"a.md":   post("2024-01-02"),
	})
	r := NewReconciler(tree, quiet)
	s := NewStore()
	_, err := r.Reconcile(s, "")
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(filepath.Join(tree.Root(), "d")))
	writeFile(t, tree.Root(), "d", post("2024-05-05"))

	t.Run("stale child path", func(t *testing.T) {
		s := cloneStore(s)
		d, err := r.Reconcile(s, "d/x.md")
		require.NoError(t, err, "ENOTDIR must read as a removal")
		assert.Equal(t, []string{"d/x.md"}, d.Removed)
	})

	t.Run("the new file", func(t *testing.T) {
		s := cloneStore(s)
		d, err := r.Reconcile(s, "d")
		require.NoError(t, err)
		assert.Equal(t, []string{"d/x.md"}, d.Removed)
		require.Len(t, d.Created, 1)
		assert.Equal(t, "d", d.Created[0].Key)
		assert.Equal(t, []string{"a.md", "d"}, s.Under(""))
	})

	t.Run("root rescan", func(t *testing.T) {
		s := cloneStore(s)
		_, err := r.Reconcile(s, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"a.md", "d"}, s.Under(""))
	})
}

func TestReconcile_FileReplacedByDirectory(t *testing.T) {
	tree := newTree(t, map[string]string{"a.md": post("2024-01-01")})
	r := NewReconciler(tree, quiet)
	s := NewStore()
	_, err := r.Reconcile(s, "")
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(tree.Root(), "a.md")))
	writeFile(t, tree.Root(), "a.md/x.md", post("2024-02-02"))

	d, err := r.Reconcile(s, "a.md")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, d.Removed)
	require.Len(t, d.Created, 1)
	assert.Equal(t, "a.md/x.md", d.Created[0].Key)
	assert.Equal(t, []string{"a.md/x.md"}, s.Under(""))
}

func TestReconcile_UnreadableDirectoryKeepsEntries(t *testing.T) {
	tree := newTree(t, map[string]string{
		"ok/a.md":     post("2024-01-01"),
		"broken/b.md": post("2024-01-02"),
	})
	s := NewStore()
	_, err := NewReconciler(tree, quiet).Reconcile(s, "")
	require.NoError(t, err)

	d, err := NewReconciler(failingProvider{tree, "broken"}, quiet).Reconcile(s, "")
	require.ErrorIs(t, err, ErrIO)
	assert.Empty(t, d.Removed)
	assert.Equal(t, []string{"broken/b.md", "ok/a.md"}, s.Under(""))
}

func TestReconcile_UnchangedFileIsNotRebuilt(t *testing.T) {
	tree := newTree(t, map[string]string{
		"a.md": post("2024-01-01"),
		"b.md": post("2024-01-02"),
	})
	r := NewReconciler(tree, quiet)
	builds := map[string]int{}
	r.build = func(key string, raw []byte, modTime time.Time) (*models.Post, error) {
		builds[key]++
		return loader.Build(key, raw, modTime)
	}

	s := NewStore()
	_, err := r.Reconcile(s, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a.md": 1, "b.md": 1}, builds)

	_, err = r.Reconcile(s, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a.md": 1, "b.md": 1}, builds, "unchanged files were parsed again")

	writeFile(t, tree.Root(), "b.md", post("2024-09-09"))
	_, err = r.Reconcile(s, "")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a.md": 1, "b.md": 2}, builds)
}

func TestReconcile_RemovedThenRecreatedNetsOut(t *testing.T) {
	tree := newTree(t, map[string]string{"a.md": post("2024-01-01")})
	r := NewReconciler(tree, quiet)
	s := NewStore()
	_, err := r.Reconcile(s, "")
	require.NoError(t, err)

	tr := newTracker()
	require.NoError(t, os.Remove(filepath.Join(tree.Root(), "a.md")))
	require.NoError(t, r.reconcile(s, "a.md", tr))
	writeFile(t, tree.Root(), "a.md", post("2024-01-01"))
	require.NoError(t, r.reconcile(s, "a.md", tr))

	d := tr.delta(s)
	assert.Empty(t, d.Created)
	assert.Empty(t, d.Removed)
	assert.Len(t, d.Updated, 1)
}

func TestReconcile_IgnoredPathsTreatedAsAbsent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", post("2024-01-01"))
	writeFile(t, root, ".draft.md", post("2024-01-01"))
	writeFile(t, root, ".git/x.md", post("2024-01-01"))
	writeFile(t, root, "notes.txt", post("2024-01-01"))

	m, err := storage.NewMatcher(storage.DefaultIgnore, []string{"md"})
	require.NoError(t, err)
	tree, err := storage.NewTree(root, m)
	require.NoError(t, err)

	s := NewStore()
	_, err = NewReconciler(tree, quiet).Reconcile(s, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, s.Under(""))
}

func TestReconcile_SymlinkCycle(t *testing.T) {
	tree := newTree(t, map[string]string{"a.md": post("2024-01-01")})
	if err := os.Symlink(tree.Root(), filepath.Join(tree.Root(), "loop")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	s := NewStore()
	_, err := NewReconciler(tree, quiet).Reconcile(s, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md"}, s.Under(""))
}

func TestReconcile_EnumerationFailure(t *testing.T) {
	tree := newTree(t, map[string]string{
		"ok/a.md":     post("2024-01-01"),
		"broken/b.md": post("2024-01-02"),
	})

	t.Run("nested directory", func(t *testing.T) {
		s := NewStore()
		_, err := NewReconciler(failingProvider{tree, "broken"}, quiet).Reconcile(s, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrIO))
		var rerr *ReconcileError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, "broken", rerr.Key)
		assert.Equal(t, []string{"ok/a.md"}, s.Under(""), "sibling directories still load")
	})

	t.Run("target directory", func(t *testing.T) {
		s := NewStore()
		_, err := NewReconciler(failingProvider{tree, ""}, quiet).Reconcile(s, "")
		require.ErrorIs(t, err, ErrIO)
		assert.Equal(t, 0, s.Len())
	})
}
