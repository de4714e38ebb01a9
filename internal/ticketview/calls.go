package ticketview

import (
	"context"

	"github.com/DoyleJ11/inbox-dashboard/internal/inbox"
)

// call sends msg and waits for one reply, giving up if the caller's context
// ends or the view shuts down.
func call[T any](ctx context.Context, v *View, msg Msg, reply chan T) (T, error) {
	var zero T
	select {
	case v.inbox <- msg:
	case <-v.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case r := <-reply:
		return r, nil
	case <-v.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (v *View) Load(ctx context.Context) error {
	reply := make(chan error, 1)
	err, callErr := call(ctx, v, Load{Ctx: ctx, Reply: reply}, reply)
	if callErr != nil {
		return callErr
	}
	return err
}

func (v *View) SetSearch(ctx context.Context, query string) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	return call(ctx, v, SetSearch{Query: query, Reply: reply}, reply)
}

func (v *View) Mutate(ctx context.Context, id int64, action inbox.Action, confirm Confirmer) (Outcome, error) {
	reply := make(chan Outcome, 1)
	return call(ctx, v, Mutate{Ctx: ctx, TicketID: id, Action: action, Confirm: confirm, Reply: reply}, reply)
}

func (v *View) State(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	return call(ctx, v, GetState{Reply: reply}, reply)
}

func (v *View) Render(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	return call(ctx, v, Render{Reply: reply}, reply)
}

// Close stops the loop. Safe to call more than once.
func (v *View) Close() {
	select {
	case v.inbox <- Shutdown{}:
	case <-v.done:
		return
	}
	<-v.done
}
