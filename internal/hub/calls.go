package hub

import (
	"context"
	"errors"
	"time"

	"github.com/DoyleJ11/inbox-dashboard/internal/ticketview"
)

var ErrHubClosed = errors.New("hub closed")

func call[T any](ctx context.Context, h *Hub, msg HubMsg, reply chan T) (T, error) {
	var zero T
	select {
	case h.inbox <- msg:
	case <-h.done:
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case r := <-reply:
		return r, nil
	case <-h.done:
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Create registers a fresh, not yet loaded view.
func (h *Hub) Create(ctx context.Context) (string, *ticketview.View, error) {
	reply := make(chan Created, 1)
	c, err := call(ctx, h, CreateView{Reply: reply}, reply)
	if err != nil {
		return "", nil, err
	}
	return c.ID, c.View, c.Err
}

// Get returns the live view for id, or nil. Finding a view counts as activity.
func (h *Hub) Get(ctx context.Context, id string) (*ticketview.View, error) {
	if id == "" {
		return nil, nil
	}
	reply := make(chan *ticketview.View, 1)
	return call(ctx, h, GetView{ID: id, Reply: reply}, reply)
}

func (h *Hub) Remove(id string) {
	select {
	case h.inbox <- RemoveView{ID: id}:
	case <-h.done:
	}
}

// SweepIdle removes views not touched within ttl.
func (h *Hub) SweepIdle(ctx context.Context, ttl time.Duration) (int, error) {
	reply := make(chan int, 1)
	return call(ctx, h, Sweep{Before: h.now().Add(-ttl), Reply: reply}, reply)
}

// RunSweeper sweeps every interval until ctx ends.
func (h *Hub) RunSweeper(ctx context.Context, ttl, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.done:
			return nil
		case <-t.C:
			if _, err := h.SweepIdle(ctx, ttl); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ErrHubClosed) {
				return err
			}
		}
	}
}

// Close shuts the hub and all views down.
func (h *Hub) Close() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.done:
		return
	}
	<-h.done
}
