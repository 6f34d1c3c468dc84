// Package content owns the in-memory post store. A single Service goroutine
// holds the Store and Index, reconciles them against the content tree, and
// answers Client requests over channels.
package content

import (
	"errors"
	"log/slog"
	"path"
	"strings"
	"sync/atomic"

	"github.com/starford/inkwell/internal/storage"
)

// DefaultQueueSize bounds each request mailbox.
const DefaultQueueSize = 10

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithQueueSize sets the capacity of the get and list mailboxes.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithObserver registers an observer for applied deltas.
func WithObserver(o Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, o) }
}

// Service is the single writer of the post store.
type Service struct {
	tree      storage.Provider
	rec       *Reconciler
	store     *Store
	index     *Index
	version   uint64
	observers []Observer
	logger    *slog.Logger
	queueSize int

	gets    *mailbox[getEnvelope]
	lists   *mailbox[listEnvelope]
	changes <-chan Batch

	ready   chan struct{}
	done    chan struct{}
	running atomic.Bool
}

// New creates a Service over tree and the Client that talks to it. changes
// carries filesystem batches; a nil channel means no change feed. The service
// does nothing until Run is called.
func New(tree storage.Provider, changes <-chan Batch, opts ...Option) (*Service, *Client) {
	s := &Service{
		tree:      tree,
		store:     NewStore(),
		index:     &Index{},
		logger:    slog.Default(),
		queueSize: DefaultQueueSize,
		changes:   changes,
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.rec = NewReconciler(tree, s.logger)
	s.gets = newMailbox[getEnvelope](s.queueSize, s.done)
	s.lists = newMailbox[listEnvelope](s.queueSize, s.done)

	return s, &Client{gets: s.gets, lists: s.lists, done: s.done}
}

// Ready is closed once the startup scan has completed.
func (s *Service) Ready() <-chan struct{} { return s.ready }

// Done is closed when Run returns.
func (s *Service) Done() <-chan struct{} { return s.done }

// Run performs the startup scan and then serves requests and change batches
// until the get mailbox, the list mailbox and the change channel are all
// closed. Run may only be called once.
func (s *Service) Run() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(s.done)

	s.scan()
	close(s.ready)
	s.logger.Info("content: serving", slog.Int("posts", s.store.Len()))

	gets, lists, changes := s.gets.ch, s.lists.ch, s.changes
	for gets != nil || lists != nil || changes != nil {
		// Ready cases are picked uniformly at random, so no source starves.
		select {
		case env, ok := <-gets:
			if !ok {
				gets = nil
				continue
			}
			s.handleGet(env)
		case env, ok := <-lists:
			if !ok {
				lists = nil
				continue
			}
			s.handleList(env)
		case batch, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			s.apply(batch)
		}
	}

	s.logger.Info("content: stopped")
	return nil
}

func (s *Service) scan() {
	tr := newTracker()
	if err := s.rec.reconcile(s.store, "", tr); err != nil {
		s.logger.Error("content: startup scan failed", slog.String("error", err.Error()))
	}
	d := tr.delta(s.store)
	d.Full = true
	s.rebuild()
	s.notify(d)
}

func (s *Service) apply(batch Batch) {
	tr := newTracker()
	seen := make(map[string]struct{}, len(batch))
	for _, c := range batch {
		key, err := s.tree.Key(c.Path)
		if err != nil {
			s.logger.Warn("content: ignoring change",
				slog.String("path", c.Path),
				slog.String("error", err.Error()))
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if err := s.rec.reconcile(s.store, key, tr); err != nil {
			s.logger.Warn("content: reconcile failed",
				slog.String("key", key),
				slog.String("kind", c.Kind.String()),
				slog.String("error", err.Error()))
		}
	}
	s.rebuild()

	d := tr.delta(s.store)
	if d.Empty() {
		return
	}
	s.logger.Debug("content: batch applied",
		slog.Int("changes", len(batch)),
		slog.Int("created", len(d.Created)),
		slog.Int("updated", len(d.Updated)),
		slog.Int("removed", len(d.Removed)))
	s.notify(d)
}

func (s *Service) rebuild() {
	s.version++
	s.index = Rebuild(s.store, s.version)
}

func (s *Service) notify(d Delta) {
	for _, o := range s.observers {
		o.Applied(d, s.index)
	}
}

func (s *Service) handleGet(env getEnvelope) {
	var res getResult
	if p, ok := s.store.Get(normalizeKey(env.req)); ok {
		res.post = p
	} else {
		res.err = ErrNotFound
	}
	s.reply(env.ctx.Err(), func() { env.reply <- res })
}

func (s *Service) handleList(env listEnvelope) {
	s.reply(env.ctx.Err(), func() { env.reply <- s.index })
}

// reply delivers a response unless the caller has already given up.
func (s *Service) reply(cause error, send func()) {
	if cause != nil {
		s.logger.Debug("content: dropping reply",
			slog.String("error", errors.Join(ErrResponseSend, cause).Error()))
		return
	}
	send()
}

// normalizeKey maps a request key onto the slash separated store key form.
func normalizeKey(key string) string {
	return strings.TrimPrefix(path.Clean("/"+key), "/")
}
