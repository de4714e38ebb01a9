package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/inbox-dashboard/internal/types"
)

func render(t *testing.T, page string, data any) string {
	t.Helper()
	r, err := NewRenderer()
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, r.Render(rec, http.StatusOK, page, data))
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	return rec.Body.String()
}

func TestMetricsPage(t *testing.T) {
	body := render(t, PageMetrics, types.MetricsPage{
		Loaded: true, TotalTickets: "42", Delivered: "10", DataSource: "Kaggle / Olist", LastUpdate: "2024-01-01",
	})
	assert.Contains(t, body, `<p class="value total" id="total">42</p>`)
	assert.Contains(t, body, `<p class="value delivered" id="delivered">10</p>`)
	assert.Contains(t, body, "Updated at: 2024-01-01")
	assert.Contains(t, body, `href="/tickets"`)
	assert.NotContains(t, body, "Loading dashboard")
}

func TestMetricsPage_Loading(t *testing.T) {
	body := render(t, PageMetrics, types.MetricsPage{})
	assert.Contains(t, body, "Loading dashboard... (check that the backend is running!)")
	assert.NotContains(t, body, `id="total"`)
}

func TestTicketsPage_RowsAndControls(t *testing.T) {
	body := render(t, PageTickets, types.TicketsPage{
		ViewID: "ABCD1234",
		Search: "ana",
		Notice: &types.Notice{Kind: "success", Text: "Ticket updated successfully!"},
		Rows: []types.TicketRow{
			{ID: 1, CustomerName: "Ana <script>", Subject: "Late", Channel: "email", Status: "open", Priority: "low",
				StatusClass: "open", PriorityClass: "normal", CloseURL: "/tickets/1/close?view=ABCD1234", EscalateURL: "/tickets/1/escalate?view=ABCD1234"},
			{ID: 2, CustomerName: "Bruno", Subject: "Refund", Channel: "chat", Status: "closed", Priority: "high",
				StatusClass: "closed", PriorityClass: "high"},
		},
	})

	assert.Equal(t, 2, strings.Count(body, `class="ticket-row"`))
	assert.NotContains(t, body, "No tickets found.")
	assert.Contains(t, body, "Ana &lt;script&gt;", "names are escaped")
	assert.Contains(t, body, `class="notice success"`)
	assert.Contains(t, body, `value="ABCD1234"`)
	assert.Equal(t, 1, strings.Count(body, `class="close"`))
	assert.Equal(t, 1, strings.Count(body, `class="escalate"`))
	assert.Contains(t, body, `class="badge status-closed"`)
	assert.Contains(t, body, `class="badge priority-high"`)
}

func TestTicketsPage_SearchSubmitsWhileTyping(t *testing.T) {
	body := render(t, PageTickets, types.TicketsPage{ViewID: "X", Search: "ana"})
	assert.Contains(t, body, `<form class="search" method="get" action="/tickets">`)
	assert.Contains(t, body, `box.addEventListener('input'`)
	assert.Contains(t, body, `box.form.submit()`)
	assert.Contains(t, body, `name="q" value="ana"`)
}

func TestTicketsPage_EmptyState(t *testing.T) {
	body := render(t, PageTickets, types.TicketsPage{ViewID: "X"})
	assert.Equal(t, 1, strings.Count(body, "No tickets found."))
	assert.Zero(t, strings.Count(body, `class="ticket-row"`))
}

func TestConfirmPage(t *testing.T) {
	body := render(t, PageConfirm, types.ConfirmPage{
		ViewID: "V", TicketID: 3, CustomerName: "Carla", Action: "close",
		Prompt: `Change status to "closed"?`, ActionURL: "/tickets/3/close",
	})
	assert.Contains(t, body, "Change status to &#34;closed&#34;?")
	assert.Contains(t, body, `action="/tickets/3/close"`)
	assert.Contains(t, body, `name="confirm" value="yes"`)
	assert.Contains(t, body, `name="confirm" value="no"`)
}

func TestRender_UnknownPage(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)
	assert.Error(t, r.Render(httptest.NewRecorder(), http.StatusOK, "nope", nil))
}
