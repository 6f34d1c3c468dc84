package content

import "github.com/starford/inkwell/internal/models"

// Delta is the net effect of one reconciliation batch on the store.
type Delta struct {
	Created []*models.Post
	Updated []*models.Post
	Removed []string
	// Full is set for the startup scan, when Created holds every post.
	Full bool
}

// Empty reports whether the batch changed nothing.
func (d Delta) Empty() bool {
	return len(d.Created) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// tracker remembers the pre-batch post of every key a batch touches, so that
// flapping keys (removed then recreated) net out correctly.
type tracker struct {
	before map[string]*models.Post
	order  []string
}

func newTracker() *tracker {
	return &tracker{before: make(map[string]*models.Post)}
}

// touch must be called before the store entry for key is mutated.
func (t *tracker) touch(s *Store, key string) {
	if _, seen := t.before[key]; seen {
		return
	}
	p, _ := s.Get(key)
	t.before[key] = p
	t.order = append(t.order, key)
}

func (t *tracker) delta(s *Store) Delta {
	var d Delta
	for _, key := range t.order {
		was := t.before[key]
		now, ok := s.Get(key)
		switch {
		case ok && was == nil:
			d.Created = append(d.Created, now)
		case ok && was != now:
			d.Updated = append(d.Updated, now)
		case !ok && was != nil:
			d.Removed = append(d.Removed, key)
		}
	}
	return d
}
