// Package ticketview holds the in-memory state behind one visit to the
// ticket list page. A View is an actor: one goroutine owns the collection,
// the search string and the pending notice, and processes one message at a
// time, so at most one backend call per view is ever in flight.
package ticketview

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/DoyleJ11/inbox-dashboard/internal/inbox"
	"github.com/DoyleJ11/inbox-dashboard/pkg/types"
)

var ErrClosed = errors.New("ticket view closed")

// Source is the slice of the backend API the view needs.
type Source interface {
	Tickets(ctx context.Context) ([]types.Ticket, error)
	PatchTicket(ctx context.Context, id int64, patch types.TicketPatch) error
}

// Confirmer asks the user a yes/no question before a mutation is sent.
type Confirmer interface {
	Confirm(prompt string) bool
}

type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

type Msg interface{ isViewMsg() }

// Load replaces the collection with a fresh fetch. Reply may be nil.
type Load struct {
	Ctx   context.Context
	Reply chan error
}

func (Load) isViewMsg() {}

type SetSearch struct {
	Query string
	Reply chan Snapshot
}

func (SetSearch) isViewMsg() {}

type Mutate struct {
	Ctx      context.Context
	TicketID int64
	Action   inbox.Action
	Confirm  Confirmer
	Reply    chan Outcome
}

func (Mutate) isViewMsg() {}

// GetState reflects the current state without consuming the notice.
type GetState struct {
	Reply chan Snapshot
}

func (GetState) isViewMsg() {}

// Render is GetState for the page: the pending notice is shown once.
type Render struct {
	Reply chan Snapshot
}

func (Render) isViewMsg() {}

type Shutdown struct{}

func (Shutdown) isViewMsg() {}

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

type Notice struct {
	Kind NoticeKind
	Text string
}

const (
	noticeUpdated = "Ticket updated successfully!"
	noticeFailed  = "Failed to update ticket."
)

type Result string

const (
	ResultUpdated   Result = "updated"
	ResultCancelled Result = "cancelled"
	ResultFailed    Result = "failed"   // backend rejected or unreachable
	ResultRejected  Result = "rejected" // never sent: unknown ticket or action not offered
)

type Outcome struct {
	Result Result
	Ticket types.Ticket
	Err    error
}

// Snapshot is a copy of the view state; callers may keep it.
type Snapshot struct {
	Version int // bumps on every successful load
	Loaded  bool
	Search  string
	All     []types.Ticket
	Visible []types.Ticket
	Notice  *Notice
}

type View struct {
	inbox   chan Msg
	src     Source
	logger  *zap.Logger
	tickets []types.Ticket
	search  string
	notice  *Notice
	loaded  bool
	version int
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewView(parent context.Context, src Source, logger *zap.Logger) *View {
	ctx, cancel := context.WithCancel(parent)
	if logger == nil {
		logger = zap.NewNop()
	}

	v := &View{
		inbox:   make(chan Msg, 16),
		src:     src,
		logger:  logger,
		tickets: []types.Ticket{},
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go v.loop()
	return v
}

// Inbox exposes the raw message channel for tests and the hub.
func (v *View) Inbox() chan<- Msg { return v.inbox }

// Done is closed once the loop has exited.
func (v *View) Done() <-chan struct{} { return v.done }

func (v *View) loop() {
	defer close(v.done)
	for {
		select {
		case <-v.ctx.Done():
			return

		case m := <-v.inbox:
			switch msg := m.(type) {
			case Load:
				err := v.load(v.reqCtx(msg.Ctx))
				if msg.Reply != nil {
					msg.Reply <- err
				}

			case SetSearch:
				v.search = msg.Query
				msg.Reply <- v.snapshot()

			case Mutate:
				msg.Reply <- v.mutate(msg)

			case GetState:
				msg.Reply <- v.snapshot()

			case Render:
				snap := v.snapshot()
				v.notice = nil
				msg.Reply <- snap

			case Shutdown:
				v.cancel()
				return
			}
		}
	}
}

func (v *View) reqCtx(ctx context.Context) context.Context {
	if ctx == nil {
		return v.ctx
	}
	return ctx
}

// load swaps the whole collection on success. On failure the last good copy
// stays in place.
func (v *View) load(ctx context.Context) error {
	tickets, err := v.src.Tickets(ctx)
	if err != nil {
		v.logger.Error("load tickets failed", zap.Error(err))
		return err
	}
	v.tickets = tickets
	v.loaded = true
	v.version++
	return nil
}

func (v *View) mutate(msg Mutate) Outcome {
	t, patch, err := inbox.Resolve(v.tickets, msg.TicketID, msg.Action)
	if err != nil {
		return Outcome{Result: ResultRejected, Ticket: t, Err: err}
	}

	// Declining is a normal cancellation: nothing sent, nothing logged.
	if msg.Confirm == nil || !msg.Confirm.Confirm(inbox.Prompt(msg.Action)) {
		return Outcome{Result: ResultCancelled, Ticket: t}
	}

	ctx := v.reqCtx(msg.Ctx)
	if err := v.src.PatchTicket(ctx, t.ID, patch); err != nil {
		v.logger.Error("update ticket failed",
			zap.Int64("ticket_id", t.ID),
			zap.String("action", string(msg.Action)),
			zap.Error(err),
		)
		v.notice = &Notice{Kind: NoticeError, Text: noticeFailed}
		return Outcome{Result: ResultFailed, Ticket: t, Err: err}
	}

	v.logger.Info("ticket updated",
		zap.Int64("ticket_id", t.ID),
		zap.String("patch", patch.String()),
	)
	v.notice = &Notice{Kind: NoticeSuccess, Text: noticeUpdated}
	_ = v.load(ctx) // already logged; the table just stays as it was
	return Outcome{Result: ResultUpdated, Ticket: t}
}

func (v *View) snapshot() Snapshot {
	snap := Snapshot{
		Version: v.version,
		Loaded:  v.loaded,
		Search:  v.search,
		All:     slices.Clone(v.tickets),
		Visible: inbox.Filter(v.tickets, v.search),
	}
	if v.notice != nil {
		n := *v.notice
		snap.Notice = &n
	}
	return snap
}
