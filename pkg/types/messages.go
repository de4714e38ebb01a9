package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Ticket as returned by GET /tickets and PATCH /tickets/{id}.
//
//	id: number
//	customer_name: string
//	subject: string
//	channel: string  // free-form: "email", "whatsapp", ...
//	status: string   // "open" | "pending" | "closed"
//	priority: string // "low" | "medium" | "high"
//	created_at: string // optional, zone-less timestamps are read as UTC
type Ticket struct {
	ID           int64      `json:"id"`
	CustomerName string     `json:"customer_name"`
	Subject      string     `json:"subject"`
	Channel      string     `json:"channel"`
	Status       string     `json:"status"`
	Priority     string     `json:"priority"`
	CreatedAt    *Timestamp `json:"created_at,omitempty"`
}

const (
	StatusOpen    = "open"
	StatusPending = "pending"
	StatusClosed  = "closed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Fields a partial update may touch.
const (
	FieldStatus   = "status"
	FieldPriority = "priority"
)

var ErrUnknownField = errors.New("unknown ticket field")

// TicketPatch is the body of PATCH /tickets/{id}. Nil fields are left untouched.
type TicketPatch struct {
	Status   *string `json:"status,omitempty"`
	Priority *string `json:"priority,omitempty"`
}

// NewTicketPatch builds a patch that sets exactly one field.
func NewTicketPatch(field, value string) (TicketPatch, error) {
	switch field {
	case FieldStatus:
		return TicketPatch{Status: &value}, nil
	case FieldPriority:
		return TicketPatch{Priority: &value}, nil
	default:
		return TicketPatch{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

// Fields returns the patch as a field -> value map, skipping unset fields.
func (p TicketPatch) Fields() map[string]string {
	out := make(map[string]string, 2)
	if p.Status != nil {
		out[FieldStatus] = *p.Status
	}
	if p.Priority != nil {
		out[FieldPriority] = *p.Priority
	}
	return out
}

func (p TicketPatch) String() string {
	b, _ := json.Marshal(p)
	return string(b)
}
