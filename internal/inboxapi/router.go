package inboxapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/inbox-dashboard/internal/httplog"
	"github.com/DoyleJ11/inbox-dashboard/pkg/types"
)

const metricsMissing = "metrics not processed yet; run the ETL"

type Server struct {
	store       Store
	notifier    *Notifier
	metricsFile string
	logger      *zap.Logger
}

func NewServer(store Store, notifier *Notifier, metricsFile string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{store: store, notifier: notifier, metricsFile: metricsFile, logger: logger}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httplog.Middleware(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/tickets", s.listTickets)
	r.Patch("/tickets/{id}", s.updateTicket)
	r.Get("/metrics", s.metrics)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

func (s *Server) listTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := s.store.List(r.Context())
	if err != nil {
		s.logger.Error("list tickets", zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "failed to list tickets")
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) updateTicket(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "ticket id must be an integer")
		return
	}

	// Unknown keys are ignored; a body that does not decode is 422.
	var patch types.TicketPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	t, err := s.store.Update(r.Context(), id, patch)
	if errors.Is(err, ErrNotFound) {
		writeDetail(w, http.StatusNotFound, "Ticket not found")
		return
	}
	if err != nil {
		s.logger.Error("update ticket", zap.Int64("ticket_id", id), zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "failed to update ticket")
		return
	}

	if Qualifies(patch) {
		s.notifier.TicketUpdated(r.Context(), t)
	}
	writeJSON(w, http.StatusOK, t)
}

// metrics serves the ETL output as-is.
func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(s.metricsFile)
	if errors.Is(err, os.ErrNotExist) {
		writeJSON(w, http.StatusOK, map[string]string{"error": metricsMissing})
		return
	}
	if err != nil || !json.Valid(data) {
		s.logger.Error("read metrics file", zap.String("file", s.metricsFile), zap.Error(err))
		writeDetail(w, http.StatusInternalServerError, "metrics file unreadable")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
