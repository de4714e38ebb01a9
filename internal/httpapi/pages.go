package httpapi

import (
	"net/url"
	"strconv"

	"github.com/DoyleJ11/inbox-dashboard/internal/inbox"
	"github.com/DoyleJ11/inbox-dashboard/internal/ticketview"
	"github.com/DoyleJ11/inbox-dashboard/internal/types"
	pkgtypes "github.com/DoyleJ11/inbox-dashboard/pkg/types"
)

func ticketsPage(viewID string, snap ticketview.Snapshot) types.TicketsPage {
	page := types.TicketsPage{
		ViewID: viewID,
		Search: snap.Search,
		Rows:   make([]types.TicketRow, 0, len(snap.Visible)),
	}
	if snap.Notice != nil {
		page.Notice = &types.Notice{Kind: string(snap.Notice.Kind), Text: snap.Notice.Text}
	}
	for _, t := range snap.Visible {
		page.Rows = append(page.Rows, ticketRow(viewID, snap.Search, t))
	}
	return page
}

func ticketRow(viewID, search string, t pkgtypes.Ticket) types.TicketRow {
	row := types.TicketRow{
		ID:            t.ID,
		CustomerName:  t.CustomerName,
		Subject:       t.Subject,
		Channel:       t.Channel,
		Status:        t.Status,
		Priority:      t.Priority,
		StatusClass:   string(inbox.ClassifyStatus(t.Status)),
		PriorityClass: string(inbox.ClassifyPriority(t.Priority)),
	}
	if inbox.Offered(t, inbox.ActionClose) {
		row.CloseURL = actionURL(t.ID, inbox.ActionClose, viewID, search)
	}
	if inbox.Offered(t, inbox.ActionEscalate) {
		row.EscalateURL = actionURL(t.ID, inbox.ActionEscalate, viewID, search)
	}
	return row
}

func actionURL(id int64, action inbox.Action, viewID, search string) string {
	q := url.Values{"view": {viewID}}
	if search != "" {
		q.Set("q", search)
	}
	return "/tickets/" + strconv.FormatInt(id, 10) + "/" + string(action) + "?" + q.Encode()
}
