// Package types holds the view models the HTML pages are rendered from.
package types

type Notice struct {
	Kind string // "success" | "error"
	Text string
}

// MetricsPage backs "/". Loaded is false until a snapshot arrived; the page
// then shows the loading placeholder instead of the cards.
type MetricsPage struct {
	Loaded       bool
	TotalTickets string // as sent by the backend
	Delivered    string
	DataSource   string
	LastUpdate   string
}

type TicketRow struct {
	ID            int64
	CustomerName  string
	Subject       string
	Channel       string
	Status        string
	Priority      string
	StatusClass   string // closed | open | pending
	PriorityClass string // high | normal
	CloseURL      string // empty when the control is not offered
	EscalateURL   string // empty when the control is not offered
}

type TicketsPage struct {
	ViewID string
	Search string
	Rows   []TicketRow
	Notice *Notice
}

func (p TicketsPage) Empty() bool { return len(p.Rows) == 0 }

type ConfirmPage struct {
	ViewID       string
	Search       string
	TicketID     int64
	CustomerName string
	Action       string
	Prompt       string
	ActionURL    string
}
