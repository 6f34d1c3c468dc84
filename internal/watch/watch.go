// Package watch turns fsnotify events under the content root into debounced
// content.Batch values.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/inkwell/internal/content"
	"github.com/starford/inkwell/internal/storage"
)

const (
	// DefaultDebounce is the quiet period before a batch is flushed.
	DefaultDebounce = 200 * time.Millisecond
	// DefaultBuffer is the capacity of the outgoing batch channel.
	DefaultBuffer = 4
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. A batch is flushed at the latest
// after ten quiet periods even if events keep arriving.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithBuffer sets the capacity of the Changes channel.
func WithBuffer(n int) Option {
	return func(w *Watcher) {
		if n >= 0 {
			w.buffer = n
		}
	}
}

// Watcher watches a content root recursively.
type Watcher struct {
	root     string
	match    *storage.Matcher
	debounce time.Duration
	buffer   int
	logger   *slog.Logger

	fw  *fsnotify.Watcher
	out chan content.Batch
}

// New creates a Watcher and registers every non-ignored directory under
// root. Events are buffered by fsnotify until Run is called, so changes made
// during the startup scan are not lost. Run must be called to release the
// watcher.
func New(root string, match *storage.Matcher, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve root: %w", err)
	}
	w := &Watcher{
		root:     abs,
		match:    match,
		debounce: DefaultDebounce,
		buffer:   DefaultBuffer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w.fw = fw
	if err := w.addDirs(abs); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch: add %s: %w", abs, err)
	}
	w.out = make(chan content.Batch, w.buffer)
	return w, nil
}

// Changes returns the batch feed. It is closed when Run returns.
func (w *Watcher) Changes() <-chan content.Batch { return w.out }

// Run forwards debounced batches until ctx is cancelled or the underlying
// watcher fails. Pending changes are dropped on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.out)
	defer w.fw.Close()

	w.logger.Info("watch: started", slog.String("root", w.root))

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	var (
		pending []content.Change
		index   = make(map[string]int)
		first   time.Time
	)
	add := func(c content.Change) {
		if i, ok := index[c.Path]; ok {
			pending[i].Kind = c.Kind
		} else {
			index[c.Path] = len(pending)
			pending = append(pending, c)
		}
		now := time.Now()
		if len(pending) == 1 {
			first = now
		}
		wait := w.debounce
		if rem := first.Add(10 * w.debounce).Sub(now); rem < wait {
			wait = max(rem, 0)
		}
		timer.Reset(wait)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch: stopped")
			return nil

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			batch := content.Batch(pending)
			pending, index = nil, make(map[string]int)
			select {
			case w.out <- batch:
				w.logger.Debug("watch: batch", slog.Int("changes", len(batch)))
			case <-ctx.Done():
				w.logger.Info("watch: stopped")
				return nil
			}

		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if c, ok := w.translate(ev); ok {
				add(c)
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch: error", slog.String("error", err.Error()))
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				// Events were lost; rescan the whole tree.
				add(content.Change{Path: w.root, Kind: content.Modified})
			}
		}
	}
}

// translate maps an fsnotify event to a change, registering new directories
// on the way.
func (w *Watcher) translate(ev fsnotify.Event) (content.Change, bool) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return content.Change{}, false
	}
	if w.match.Ignored(filepath.ToSlash(rel)) {
		return content.Change{}, false
	}

	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addDirs(ev.Name); err != nil {
				w.logger.Warn("watch: add new dir failed",
					slog.String("path", ev.Name),
					slog.String("error", err.Error()))
			}
		}
		return content.Change{Path: ev.Name, Kind: content.Created}, true
	case ev.Has(fsnotify.Write):
		return content.Change{Path: ev.Name, Kind: content.Modified}, true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		// Rename fires on the old path; the new path arrives as Create.
		return content.Change{Path: ev.Name, Kind: content.Removed}, true
	}
	return content.Change{}, false
}

// addDirs adds root and all its non-ignored subdirectories to the watcher.
func (w *Watcher) addDirs(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p != root && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, err := filepath.Rel(w.root, p); err == nil && rel != "." && w.match.Ignored(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		return w.fw.Add(p)
	})
}
