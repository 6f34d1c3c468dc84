package content

import (
	"context"
	"sync"

	"github.com/starford/inkwell/internal/models"
)

// envelope pairs a request with its single-use reply slot. The slot is
// buffered so the service never blocks on a caller that went away.
type envelope[Req, Resp any] struct {
	ctx   context.Context
	req   Req
	reply chan Resp
}

func newEnvelope[Req, Resp any](ctx context.Context, req Req) envelope[Req, Resp] {
	return envelope[Req, Resp]{ctx: ctx, req: req, reply: make(chan Resp, 1)}
}

// abandoned reports whether the caller stopped waiting for the reply.
func (e envelope[Req, Resp]) abandoned() bool {
	return e.ctx.Err() != nil
}

type getResult struct {
	post *models.Post
	err  error
}

type (
	getEnvelope  = envelope[string, getResult]
	listEnvelope = envelope[struct{}, *Index]
)

// mailbox is a bounded request channel that can be closed while senders are
// active. Sends after close fail with ErrRequestSend instead of panicking.
type mailbox[T any] struct {
	mu     sync.RWMutex
	ch     chan T
	closed bool
	done   <-chan struct{}
}

func newMailbox[T any](size int, done <-chan struct{}) *mailbox[T] {
	return &mailbox[T]{ch: make(chan T, size), done: done}
}

func (m *mailbox[T]) send(ctx context.Context, v T) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrRequestSend
	}
	select {
	case m.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-m.done:
		return ErrRequestSend
	}
}

func (m *mailbox[T]) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.ch)
}
