package content

import (
	"context"

	"github.com/starford/inkwell/internal/models"
)

// Client is the caller side of a Service. It is safe for concurrent use and
// holds no state of its own beyond the shared mailboxes.
type Client struct {
	gets  *mailbox[getEnvelope]
	lists *mailbox[listEnvelope]
	done  <-chan struct{}
}

// Get returns the post stored under key, or ErrNotFound. Cancelling ctx
// abandons the request without affecting the service.
func (c *Client) Get(ctx context.Context, key string) (*models.Post, error) {
	env := newEnvelope[string, getResult](ctx, key)
	if err := c.gets.send(ctx, env); err != nil {
		return nil, err
	}
	res, err := await(ctx, env.reply, c.done)
	if err != nil {
		return nil, err
	}
	return res.post, res.err
}

// List returns the current index snapshot.
func (c *Client) List(ctx context.Context) (*Index, error) {
	env := newEnvelope[struct{}, *Index](ctx, struct{}{})
	if err := c.lists.send(ctx, env); err != nil {
		return nil, err
	}
	return await(ctx, env.reply, c.done)
}

// Close closes both request mailboxes. The service stops once its change
// feed is closed too. Close is idempotent; later calls fail with
// ErrRequestSend.
func (c *Client) Close() {
	c.gets.close()
	c.lists.close()
}

func await[T any](ctx context.Context, reply <-chan T, done <-chan struct{}) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-done:
		// The service may have answered just before stopping.
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrResponseReceive
		}
	}
}
