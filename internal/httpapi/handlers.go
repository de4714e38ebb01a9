package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/inbox-dashboard/internal/hub"
	"github.com/DoyleJ11/inbox-dashboard/internal/inbox"
	"github.com/DoyleJ11/inbox-dashboard/internal/ticketview"
	"github.com/DoyleJ11/inbox-dashboard/internal/types"
	"github.com/DoyleJ11/inbox-dashboard/internal/web"
	pkgtypes "github.com/DoyleJ11/inbox-dashboard/pkg/types"
)

// Dashboard renders the metrics cards. One fetch per visit; when it fails
// the page stays on the loading placeholder.
func Dashboard(d Deps) http.HandlerFunc {
	logger := d.Logger.With(zap.String("component", "metrics_view"))
	return func(w http.ResponseWriter, r *http.Request) {
		page := types.MetricsPage{DataSource: d.DataSource}

		snap, err := d.Metrics.Metrics(r.Context())
		if err != nil {
			logger.Error("fetch metrics failed", zap.Error(err))
		} else {
			if !snap.Error.IsZero() {
				logger.Warn("backend has no metrics", zap.String("detail", snap.Error.Text()))
			}
			page.Loaded = true
			page.TotalTickets = snap.TotalTickets.Text()
			page.Delivered = snap.StatusCount(pkgtypes.StatusDelivered)
			page.LastUpdate = snap.LastUpdate.Text()
		}

		render(w, d, web.PageMetrics, page)
	}
}

// TicketList serves both a fresh visit (no or unknown view: create and load)
// and a search on an existing visit (filter the held copy, no fetch).
func TicketList(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		query := r.URL.Query()
		search := query.Get("q")

		id, v, err := openView(d, r, query.Get("view"))
		if err != nil {
			unavailable(w, d, err)
			return
		}

		if _, err := v.SetSearch(ctx, search); err != nil {
			unavailable(w, d, err)
			return
		}
		snap, err := v.Render(ctx)
		if err != nil {
			unavailable(w, d, err)
			return
		}

		render(w, d, web.PageTickets, ticketsPage(id, snap))
	}
}

// ConfirmAction asks before a row control is applied.
func ConfirmAction(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ticketID, action, ok := parseTarget(w, r)
		if !ok {
			return
		}
		viewID := r.URL.Query().Get("view")
		search := r.URL.Query().Get("q")

		v, err := d.Hub.Get(ctx, viewID)
		if err != nil {
			unavailable(w, d, err)
			return
		}
		if v == nil {
			// expired or never existed: start a new visit
			http.Redirect(w, r, listURL("", search), http.StatusSeeOther)
			return
		}

		snap, err := v.State(ctx)
		if err != nil {
			unavailable(w, d, err)
			return
		}
		ticket, found := findTicket(snap.All, ticketID)
		if !found || !inbox.Offered(ticket, action) {
			http.Redirect(w, r, listURL(viewID, search), http.StatusSeeOther)
			return
		}

		render(w, d, web.PageConfirm, types.ConfirmPage{
			ViewID:       viewID,
			Search:       search,
			TicketID:     ticket.ID,
			CustomerName: ticket.CustomerName,
			Action:       string(action),
			Prompt:       inbox.Prompt(action),
			ActionURL:    "/tickets/" + strconv.FormatInt(ticket.ID, 10) + "/" + string(action),
		})
	}
}

// ApplyAction receives the answer from the confirmation form. Only
// confirm=yes sends anything to the backend.
func ApplyAction(d Deps) http.HandlerFunc {
	logger := d.Logger.With(zap.String("component", "ticket_list_view"))
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ticketID, action, ok := parseTarget(w, r)
		if !ok {
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		viewID := r.PostFormValue("view")
		search := r.PostFormValue("q")
		confirmed := r.PostFormValue("confirm") == "yes"

		v, err := d.Hub.Get(ctx, viewID)
		if err != nil {
			unavailable(w, d, err)
			return
		}
		if v == nil {
			http.Redirect(w, r, listURL("", search), http.StatusSeeOther)
			return
		}

		out, err := v.Mutate(ctx, ticketID, action, ticketview.ConfirmFunc(func(string) bool { return confirmed }))
		if err != nil {
			unavailable(w, d, err)
			return
		}
		if out.Result == ticketview.ResultRejected {
			logger.Debug("mutation rejected", zap.Int64("ticket_id", ticketID), zap.Error(out.Err))
		}

		http.Redirect(w, r, listURL(viewID, search), http.StatusSeeOther)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func openView(d Deps, r *http.Request, id string) (string, *ticketview.View, error) {
	ctx := r.Context()
	v, err := d.Hub.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if v != nil {
		return id, v, nil
	}

	id, v, err = d.Hub.Create(ctx)
	if err != nil {
		return "", nil, err
	}
	// A failed first load is logged by the view; the page renders empty.
	if err := v.Load(ctx); errors.Is(err, ticketview.ErrClosed) {
		return "", nil, err
	}
	return id, v, nil
}

func parseTarget(w http.ResponseWriter, r *http.Request) (int64, inbox.Action, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid ticket id", http.StatusNotFound)
		return 0, "", false
	}
	action, err := inbox.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		http.Error(w, "unknown action", http.StatusNotFound)
		return 0, "", false
	}
	return id, action, true
}

func findTicket(tickets []pkgtypes.Ticket, id int64) (pkgtypes.Ticket, bool) {
	for _, t := range tickets {
		if t.ID == id {
			return t, true
		}
	}
	return pkgtypes.Ticket{}, false
}

func listURL(viewID, search string) string {
	q := url.Values{}
	if viewID != "" {
		q.Set("view", viewID)
	}
	if search != "" {
		q.Set("q", search)
	}
	if len(q) == 0 {
		return "/tickets"
	}
	return "/tickets?" + q.Encode()
}

func render(w http.ResponseWriter, d Deps, page string, data any) {
	if err := d.Renderer.Render(w, http.StatusOK, page, data); err != nil {
		d.Logger.Error("render failed", zap.String("page", page), zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

func unavailable(w http.ResponseWriter, d Deps, err error) {
	if errors.Is(err, hub.ErrHubClosed) || errors.Is(err, ticketview.ErrClosed) {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	// client went away
	d.Logger.Debug("request abandoned", zap.Error(err))
	http.Error(w, "request cancelled", http.StatusServiceUnavailable)
}
