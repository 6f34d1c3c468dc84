package search

import (
	"context"
	"log/slog"

	"github.com/starford/inkwell/internal/content"
	"github.com/starford/inkwell/internal/models"
)

// DefaultQueue bounds the deltas waiting to be written.
const DefaultQueue = 64

type job struct {
	delta content.Delta
	live  map[string]struct{} // every indexed key, only for full deltas
}

// Mirror is a content.Observer that replays deltas into an Index on its own
// goroutine, so SQLite writes never run on the content service loop.
type Mirror struct {
	db      Index
	jobs    chan job
	stopped chan struct{}
	logger  *slog.Logger
}

var _ content.Observer = (*Mirror)(nil)

// NewMirror creates a Mirror writing to db. Run must be started before the
// content service, otherwise Applied blocks once the queue is full.
func NewMirror(db Index, queue int, logger *slog.Logger) *Mirror {
	if queue <= 0 {
		queue = DefaultQueue
	}
	return &Mirror{
		db:      db,
		jobs:    make(chan job, queue),
		stopped: make(chan struct{}),
		logger:  logger,
	}
}

// Applied queues d. It waits for queue space and gives up once Run returned.
func (m *Mirror) Applied(d content.Delta, ix *content.Index) {
	j := job{delta: d}
	if d.Full {
		j.live = make(map[string]struct{}, ix.Len())
		for _, e := range ix.Entries {
			j.live[e.Key] = struct{}{}
		}
	}
	select {
	case m.jobs <- j:
	case <-m.stopped:
	}
}

// Run applies queued deltas until ctx is cancelled.
func (m *Mirror) Run(ctx context.Context) error {
	defer close(m.stopped)
	for {
		select {
		case <-ctx.Done():
			return nil
		case j := <-m.jobs:
			if j.delta.Full {
				m.sync(j)
				continue
			}
			m.apply(j.delta)
		}
	}
}

// sync brings the mirror in line with a full delta: stale rows are removed and
// posts whose checksum differs are written.
func (m *Mirror) sync(j job) {
	checksums, err := m.db.AllChecksums()
	if err != nil {
		m.logger.Warn("search: all checksums failed", slog.String("error", err.Error()))
		checksums = map[string]string{}
	}

	for key := range checksums {
		if _, ok := j.live[key]; ok {
			continue
		}
		if err := m.db.DeletePost(key); err != nil {
			m.logger.Warn("search: delete failed", slog.String("key", key), slog.String("error", err.Error()))
		} else {
			m.logger.Debug("search: removed stale", slog.String("key", key))
		}
	}

	for _, p := range j.delta.Created {
		if checksums[p.Key] == p.Checksum {
			continue
		}
		m.upsert(p)
	}
	m.logger.Info("search: synced", slog.Int("posts", len(j.delta.Created)))
}

func (m *Mirror) apply(d content.Delta) {
	for _, p := range d.Created {
		m.upsert(p)
	}
	for _, p := range d.Updated {
		m.upsert(p)
	}
	for _, key := range d.Removed {
		if err := m.db.DeletePost(key); err != nil {
			m.logger.Warn("search: delete failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
}

func (m *Mirror) upsert(p *models.Post) {
	if err := m.db.UpsertPost(Row(p), p.Body, p.Links); err != nil {
		m.logger.Warn("search: upsert failed", slog.String("key", p.Key), slog.String("error", err.Error()))
		return
	}
	m.logger.Debug("search: indexed", slog.String("key", p.Key))
}

// Row projects p onto the posts table.
func Row(p *models.Post) PostRow {
	return PostRow{
		Key:       p.Key,
		Title:     p.Title,
		Checksum:  p.Checksum,
		Tags:      p.Tags,
		Short:     p.Front.Short,
		Draft:     p.Front.Draft,
		Date:      p.Front.Date,
		UpdatedAt: p.ModTime,
	}
}
