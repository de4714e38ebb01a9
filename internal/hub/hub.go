// Package hub keeps the live ticket views, one per ticket page visit,
// keyed by a short random code carried in the page's links and forms.
package hub

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/inbox-dashboard/internal/ticketview"
)

type HubMsg interface{ isHubMsg() }

type CreateView struct {
	Reply chan Created
}

type Created struct {
	ID   string
	View *ticketview.View
	Err  error
}

type GetView struct {
	ID    string
	Reply chan *ticketview.View // nil when unknown or expired
}

type RemoveView struct {
	ID string
}

// Sweep shuts down views idle since before Before.
type Sweep struct {
	Before time.Time
	Reply  chan int // may be nil; receives the number of views removed
}

type ShutdownHub struct{}

func (CreateView) isHubMsg()  {}
func (GetView) isHubMsg()     {}
func (RemoveView) isHubMsg()  {}
func (Sweep) isHubMsg()       {}
func (ShutdownHub) isHubMsg() {}

type entry struct {
	view     *ticketview.View
	lastSeen time.Time
}

type Hub struct {
	inbox  chan HubMsg
	views  map[string]*entry
	src    ticketview.Source
	logger *zap.Logger
	now    func() time.Time
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Hub)

// WithClock overrides time.Now for idle tracking.
func WithClock(now func() time.Time) Option {
	return func(h *Hub) { h.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Hub) { h.logger = l }
}

func NewHub(parent context.Context, src ticketview.Source, opts ...Option) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		views:  make(map[string]*entry),
		src:    src,
		logger: zap.NewNop(),
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateView:
				msg.Reply <- h.create()

			case GetView:
				e := h.views[msg.ID]
				if e == nil {
					msg.Reply <- nil
					break
				}
				e.lastSeen = h.now()
				msg.Reply <- e.view

			case RemoveView:
				if e := h.views[msg.ID]; e != nil {
					go e.view.Close()
					delete(h.views, msg.ID)
				}

			case Sweep:
				n := 0
				for id, e := range h.views {
					if e.lastSeen.Before(msg.Before) {
						go e.view.Close()
						delete(h.views, id)
						n++
					}
				}
				if n > 0 {
					h.logger.Debug("swept idle ticket views", zap.Int("removed", n), zap.Int("live", len(h.views)))
				}
				if msg.Reply != nil {
					msg.Reply <- n
				}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) create() Created {
	for {
		id, err := GenerateCode()
		if err != nil {
			return Created{Err: err}
		}
		if h.views[id] != nil {
			h.logger.Debug("view id collision, regenerating")
			continue
		}
		v := ticketview.NewView(h.ctx, h.src, h.logger.With(zap.String("view", id)))
		h.views[id] = &entry{view: v, lastSeen: h.now()}
		return Created{ID: id, View: v}
	}
}

// Views run under h.ctx, so cancelling it stops every one of them.
func (h *Hub) shutdown() {
	clear(h.views)
	h.cancel()
}

// GenerateCode returns an 8 character code drawn from crypto/rand.
func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 8)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}
