package inbox

import (
	"errors"
	"fmt"

	"github.com/DoyleJ11/inbox-dashboard/pkg/types"
)

var ErrUnknownAction = errors.New("unknown action")
var ErrTicketNotFound = errors.New("ticket not found")
var ErrActionUnavailable = errors.New("action not available for ticket")

// Action is a one-click, single-field mutation offered on a ticket row.
type Action string

const (
	ActionClose    Action = "close"
	ActionEscalate Action = "escalate"
)

func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionClose, ActionEscalate:
		return Action(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// Target returns the field and value the action writes.
func (a Action) Target() (field, value string, err error) {
	switch a {
	case ActionClose:
		return types.FieldStatus, types.StatusClosed, nil
	case ActionEscalate:
		return types.FieldPriority, types.PriorityHigh, nil
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnknownAction, string(a))
	}
}

func (a Action) Patch() (types.TicketPatch, error) {
	field, value, err := a.Target()
	if err != nil {
		return types.TicketPatch{}, err
	}
	return types.NewTicketPatch(field, value)
}

// Prompt is the confirmation question shown before the mutation is sent.
func Prompt(a Action) string {
	field, value, err := a.Target()
	if err != nil {
		return ""
	}
	return fmt.Sprintf("Change %s to %q?", field, value)
}

// Offered reports whether the row control for a is shown on t.
func Offered(t types.Ticket, a Action) bool {
	switch a {
	case ActionClose:
		return t.Status != types.StatusClosed
	case ActionEscalate:
		return t.Priority != types.PriorityHigh
	default:
		return false
	}
}

// Actions lists the controls shown on t, close first.
func Actions(t types.Ticket) []Action {
	var out []Action
	for _, a := range []Action{ActionClose, ActionEscalate} {
		if Offered(t, a) {
			out = append(out, a)
		}
	}
	return out
}

// Resolve finds the ticket in the held collection and builds the patch for a.
// The collection is the last successful load; a ticket the user cannot see
// cannot be mutated.
func Resolve(tickets []types.Ticket, id int64, a Action) (types.Ticket, types.TicketPatch, error) {
	patch, err := a.Patch()
	if err != nil {
		return types.Ticket{}, types.TicketPatch{}, err
	}
	for _, t := range tickets {
		if t.ID != id {
			continue
		}
		if !Offered(t, a) {
			return t, types.TicketPatch{}, ErrActionUnavailable
		}
		return t, patch, nil
	}
	return types.Ticket{}, types.TicketPatch{}, ErrTicketNotFound
}
