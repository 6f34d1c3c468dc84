package content

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/starford/inkwell/internal/checksum"
	"github.com/starford/inkwell/internal/loader"
	"github.com/starford/inkwell/internal/models"
	"github.com/starford/inkwell/internal/storage"
)

// BuildFunc turns the raw bytes of one file into a post.
type BuildFunc func(key string, raw []byte, modTime time.Time) (*models.Post, error)

// Reconciler brings a Store in line with the content tree for a given key.
// The result depends only on the current filesystem state, so running it
// again on an unchanged tree is a no-op.
type Reconciler struct {
	tree   storage.Provider
	build  BuildFunc
	logger *slog.Logger
}

// NewReconciler creates a Reconciler reading from tree.
func NewReconciler(tree storage.Provider, logger *slog.Logger) *Reconciler {
	return &Reconciler{tree: tree, build: loader.Build, logger: logger}
}

// Reconcile walks key and applies inserts and removals to s. Directories are
// walked with an explicit stack in name order, and stored keys below key
// that the walk no longer reaches are removed. A file that fails to load is
// logged and left out of the store; only directory enumeration failures are
// returned, and a failure on key itself aborts the call.
func (r *Reconciler) Reconcile(s *Store, key string) (Delta, error) {
	tr := newTracker()
	err := r.reconcile(s, key, tr)
	return tr.delta(s), err
}

func (r *Reconciler) reconcile(s *Store, key string, tr *tracker) error {
	var (
		errs    []error
		visited []fs.FileInfo
		failed  []string
		reached = make(map[string]bool)
		before  = s.Under(key)
	)

	stack := []string{key}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		info, err := r.tree.Stat(k)
		if missing(err) {
			r.remove(s, k, tr)
			continue
		}
		if err != nil {
			rerr := &ReconcileError{Key: k, Err: err}
			if k == key {
				return rerr
			}
			errs = append(errs, rerr)
			failed = append(failed, k)
			continue
		}

		if !info.IsDir() {
			// A directory that became a file leaves nothing below it.
			r.removeBelow(s, k, tr)
			if r.tree.Skip(k, false) {
				r.remove(s, k, tr)
				continue
			}
			reached[k] = true
			r.upsert(s, k, tr)
			continue
		}

		// A file that became a directory is no longer a post.
		r.drop(s, k, tr)
		if r.tree.Skip(k, true) || seenDir(visited, info) {
			r.remove(s, k, tr)
			continue
		}
		visited = append(visited, info)

		entries, err := r.tree.ReadDir(k)
		if err != nil {
			rerr := &ReconcileError{Key: k, Err: err}
			if k == key {
				return rerr
			}
			errs = append(errs, rerr)
			failed = append(failed, k)
			continue
		}
		// Push in reverse so children pop in name order.
		for i := len(entries) - 1; i >= 0; i-- {
			stack = append(stack, path.Join(k, entries[i].Name()))
		}
	}

	// Keys the walk did not reach are gone from disk. Keys below a path that
	// could not be read are kept until it can.
	for _, k := range before {
		if reached[k] || within(k, failed) {
			continue
		}
		r.drop(s, k, tr)
	}
	return errors.Join(errs...)
}

func (r *Reconciler) upsert(s *Store, key string, tr *tracker) {
	raw, modTime, err := loader.Read(r.tree, key)
	if err != nil {
		r.loadFailed(s, key, tr, err)
		return
	}

	// Same bytes as the stored post: keep it without parsing again.
	if cur, ok := s.Get(key); ok && cur.Size == int64(len(raw)) && cur.Hash == checksum.Fast(raw) {
		return
	}

	p, err := r.build(key, raw, modTime)
	if err != nil {
		r.loadFailed(s, key, tr, err)
		return
	}
	tr.touch(s, key)
	s.Put(p)
	r.logger.Debug("content: loaded", slog.String("key", key))
}

func (r *Reconciler) loadFailed(s *Store, key string, tr *tracker, err error) {
	if !loader.IsNotExist(err) {
		r.logger.Warn("content: load failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
	// A file that no longer parses must disappear like a deleted one.
	r.remove(s, key, tr)
}

// remove drops key and everything stored below it.
func (r *Reconciler) remove(s *Store, key string, tr *tracker) {
	for _, k := range s.Under(key) {
		r.drop(s, k, tr)
	}
}

// removeBelow drops everything stored below key but not key itself.
func (r *Reconciler) removeBelow(s *Store, key string, tr *tracker) {
	for _, k := range s.Under(key) {
		if k != key {
			r.drop(s, k, tr)
		}
	}
}

// drop removes exactly key, if stored.
func (r *Reconciler) drop(s *Store, key string, tr *tracker) {
	if _, ok := s.Get(key); !ok {
		return
	}
	tr.touch(s, key)
	s.Remove(key)
	r.logger.Debug("content: removed", slog.String("key", key))
}

// missing reports whether a Stat error means the path is gone. ENOTDIR shows
// up when a parent directory was replaced by a file.
func missing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// within reports whether key is one of dirs or nested below one of them.
func within(key string, dirs []string) bool {
	for _, d := range dirs {
		if d == "" || key == d || strings.HasPrefix(key, d+"/") {
			return true
		}
	}
	return false
}

// seenDir guards against symlink cycles.
func seenDir(visited []fs.FileInfo, info fs.FileInfo) bool {
	for _, v := range visited {
		if os.SameFile(v, info) {
			return true
		}
	}
	return false
}
