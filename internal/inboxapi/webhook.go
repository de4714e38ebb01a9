package inboxapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/inbox-dashboard/pkg/types"
)

// Event is the payload posted to the webhook after a qualifying update.
type Event struct {
	Event       string `json:"event"`
	TicketID    int64  `json:"ticket_id"`
	NewStatus   string `json:"new_status"`
	NewPriority string `json:"new_priority"`
	Customer    string `json:"customer"`
	UpdatedAt   string `json:"updated_at"`
}

// Notifier posts ticket_updated events. A nil Notifier or an empty URL
// sends nothing.
type Notifier struct {
	url    string
	client *http.Client
	logger *zap.Logger
	now    func() time.Time
}

func NewNotifier(url string, timeout time.Duration, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{url: url, client: &http.Client{Timeout: timeout}, logger: logger, now: time.Now}
}

// Qualifies reports whether an update should trigger the webhook: the
// ticket was closed or escalated.
func Qualifies(patch types.TicketPatch) bool {
	return (patch.Status != nil && *patch.Status == types.StatusClosed) ||
		(patch.Priority != nil && *patch.Priority == types.PriorityHigh)
}

// TicketUpdated delivers the event synchronously. Errors are logged and
// never reach the caller.
func (n *Notifier) TicketUpdated(ctx context.Context, t types.Ticket) {
	if n == nil || n.url == "" {
		return
	}

	body, err := json.Marshal(Event{
		Event:       "ticket_updated",
		TicketID:    t.ID,
		NewStatus:   t.Status,
		NewPriority: t.Priority,
		Customer:    t.CustomerName,
		UpdatedAt:   n.now().UTC().Format("2006-01-02 15:04:05.000000"),
	})
	if err != nil {
		n.logger.Error("encode webhook event", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logger.Error("build webhook request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	n.logger.Info("sending webhook", zap.Int64("ticket_id", t.ID))
	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Warn("webhook failed", zap.Int64("ticket_id", t.ID), zap.Error(err))
		return
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	n.logger.Info("webhook sent", zap.Int64("ticket_id", t.ID), zap.Int("status", resp.StatusCode))
}
