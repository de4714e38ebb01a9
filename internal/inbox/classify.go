package inbox

import "github.com/DoyleJ11/inbox-dashboard/pkg/types"

// Badge classes used by the ticket table. Purely presentational.
type StatusClass string

const (
	StatusClassClosed  StatusClass = "closed"
	StatusClassOpen    StatusClass = "open"
	StatusClassPending StatusClass = "pending" // anything that is not open or closed
)

type PriorityClass string

const (
	PriorityClassHigh   PriorityClass = "high"
	PriorityClassNormal PriorityClass = "normal"
)

func ClassifyStatus(status string) StatusClass {
	switch status {
	case types.StatusClosed:
		return StatusClassClosed
	case types.StatusOpen:
		return StatusClassOpen
	default:
		return StatusClassPending
	}
}

func ClassifyPriority(priority string) PriorityClass {
	if priority == types.PriorityHigh {
		return PriorityClassHigh
	}
	return PriorityClassNormal
}
