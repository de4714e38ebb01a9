package inboxapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/inbox-dashboard/pkg/types"
)

type hookRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (h *hookRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var ev Event
	_ = json.NewDecoder(r.Body).Decode(&ev)
	h.mu.Lock()
	h.events = append(h.events, ev)
	h.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (h *hookRecorder) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Event(nil), h.events...)
}

type apiEnv struct {
	srv   *httptest.Server
	store *MemoryStore
	hook  *hookRecorder
	dir   string
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)

	store := NewMemoryStore()
	require.NoError(t, store.Insert(context.Background(), []types.Ticket{
		{ID: 1, CustomerName: "Ana", Subject: "Late delivery", Channel: "email", Status: "open", Priority: "low"},
		{ID: 2, CustomerName: "Bruno", Subject: "Refund", Channel: "whatsapp", Status: "pending", Priority: "medium"},
	}))

	hook := &hookRecorder{}
	hookSrv := httptest.NewServer(hook)
	t.Cleanup(hookSrv.Close)

	dir := t.TempDir()
	s := NewServer(store, NewNotifier(hookSrv.URL, 5*time.Second, logger), filepath.Join(dir, "metrics.json"), logger)
	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)

	return &apiEnv{srv: srv, store: store, hook: hook, dir: dir}
}

func (e *apiEnv) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestListTickets(t *testing.T) {
	e := newAPIEnv(t)

	resp, body := e.do(t, http.MethodGet, "/tickets", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got []types.Ticket
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "Bruno", got[1].CustomerName)
}

func TestPatchClosesTicketAndNotifies(t *testing.T) {
	e := newAPIEnv(t)

	resp, body := e.do(t, http.MethodPatch, "/tickets/1", `{"status":"closed"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got types.Ticket
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "closed", got.Status)
	assert.Equal(t, "low", got.Priority)

	events := e.hook.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "ticket_updated", events[0].Event)
	assert.Equal(t, int64(1), events[0].TicketID)
	assert.Equal(t, "closed", events[0].NewStatus)
	assert.Equal(t, "Ana", events[0].Customer)
}

func TestPatchEscalationNotifies(t *testing.T) {
	e := newAPIEnv(t)

	resp, _ := e.do(t, http.MethodPatch, "/tickets/2", `{"priority":"high"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, e.hook.Events(), 1)
	assert.Equal(t, "high", e.hook.Events()[0].NewPriority)
}

func TestPatchWithoutQualifyingChangeIsQuiet(t *testing.T) {
	e := newAPIEnv(t)

	resp, _ := e.do(t, http.MethodPatch, "/tickets/2", `{"status":"open"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, e.hook.Events())
}

func TestPatchIgnoresEmptyFields(t *testing.T) {
	e := newAPIEnv(t)

	resp, body := e.do(t, http.MethodPatch, "/tickets/2", `{"status":"","priority":"low"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got types.Ticket
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "pending", got.Status)
	assert.Equal(t, "low", got.Priority)
}

func TestPatchErrors(t *testing.T) {
	e := newAPIEnv(t)

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"missing ticket", "/tickets/99", `{"status":"closed"}`, http.StatusNotFound},
		{"non numeric id", "/tickets/abc", `{"status":"closed"}`, http.StatusUnprocessableEntity},
		{"wrong value type", "/tickets/1", `{"status":5}`, http.StatusUnprocessableEntity},
		{"malformed body", "/tickets/1", `{`, http.StatusUnprocessableEntity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := e.do(t, http.MethodPatch, tc.path, tc.body)
			assert.Equal(t, tc.code, resp.StatusCode)
			assert.Contains(t, string(body), `"detail"`)
		})
	}

	resp, body := e.do(t, http.MethodPatch, "/tickets/99", `{"status":"closed"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"Ticket not found"}`, string(body))
	assert.Empty(t, e.hook.Events())
}

func TestPatchIgnoresUnknownKeys(t *testing.T) {
	e := newAPIEnv(t)

	resp, body := e.do(t, http.MethodPatch, "/tickets/1", `{"subject":"changed","priority":"medium"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got types.Ticket
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "Late delivery", got.Subject)
	assert.Equal(t, "medium", got.Priority)
}

func TestMetricsMissingFile(t *testing.T) {
	e := newAPIEnv(t)

	resp, body := e.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"error":"metrics not processed yet; run the ETL"}`, string(body))
}

func TestMetricsServedVerbatim(t *testing.T) {
	e := newAPIEnv(t)
	doc := `{"kpi_total_tickets": 3, "breakdown_by_status": {"delivered": 2}}`
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, "metrics.json"), []byte(doc), 0o644))

	resp, body := e.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, doc, string(body))
}

func TestMetricsInvalidFile(t *testing.T) {
	e := newAPIEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, "metrics.json"), []byte("not json"), 0o644))

	resp, _ := e.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestNotifierFailureDoesNotFailUpdate(t *testing.T) {
	logger := zaptest.NewLogger(t)
	store := NewMemoryStore()
	require.NoError(t, store.Insert(context.Background(), []types.Ticket{{ID: 1, Status: "open", Priority: "low"}}))

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	s := NewServer(store, NewNotifier(deadURL, time.Second, logger), "", logger)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/tickets/1", strings.NewReader(`{"status":"closed"}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestQualifies(t *testing.T) {
	closed, _ := types.NewTicketPatch(types.FieldStatus, types.StatusClosed)
	high, _ := types.NewTicketPatch(types.FieldPriority, types.PriorityHigh)
	open, _ := types.NewTicketPatch(types.FieldStatus, types.StatusOpen)

	assert.True(t, Qualifies(closed))
	assert.True(t, Qualifies(high))
	assert.False(t, Qualifies(open))
	assert.False(t, Qualifies(types.TicketPatch{}))
}

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	path := filepath.Join(t.TempDir(), "tickets.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"customer_name":"Ana","subject":"Late","channel":"email","status":"open","priority":"low"},
		{"customer_name":"Bruno","subject":"Refund","channel":"chat","status":"pending","priority":"high"}
	]`), 0o644))

	store := NewMemoryStore()
	require.NoError(t, SeedIfEmpty(ctx, store, path, logger))
	got, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(2), got[1].ID)
	assert.NotNil(t, got[0].CreatedAt)

	// a populated store is not seeded twice
	require.NoError(t, SeedIfEmpty(ctx, store, path, logger))
	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSeedIfEmptyMissingFile(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, SeedIfEmpty(context.Background(), store, filepath.Join(t.TempDir(), "nope.json"), zaptest.NewLogger(t)))
	n, _ := store.Count(context.Background())
	assert.Zero(t, n)
}
