package inbox

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/DoyleJ11/inbox-dashboard/pkg/types"
)

// Filter returns the tickets whose customer name or subject contains search,
// ignoring case. Server order is preserved and tickets is never modified;
// the result is always a fresh slice.
func Filter(tickets []types.Ticket, search string) []types.Ticket {
	folder := cases.Fold()
	query := folder.String(search)

	out := make([]types.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if matches(folder, t, query) {
			out = append(out, t)
		}
	}
	return out
}

// Matches reports whether t passes the filter for search.
func Matches(t types.Ticket, search string) bool {
	folder := cases.Fold()
	return matches(folder, t, folder.String(search))
}

// query must already be folded
func matches(folder cases.Caser, t types.Ticket, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(folder.String(t.CustomerName), query) ||
		strings.Contains(folder.String(t.Subject), query)
}
