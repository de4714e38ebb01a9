package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/inbox-dashboard/internal/hub"
	"github.com/DoyleJ11/inbox-dashboard/internal/httplog"
	"github.com/DoyleJ11/inbox-dashboard/internal/web"
	"github.com/DoyleJ11/inbox-dashboard/pkg/types"
)

// MetricsSource is the read side the dashboard page needs.
type MetricsSource interface {
	Metrics(ctx context.Context) (types.MetricsSnapshot, error)
}

type Deps struct {
	Hub        *hub.Hub
	Metrics    MetricsSource
	Renderer   *web.Renderer
	Logger     *zap.Logger
	DataSource string // label on the data-source card
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.Middleware(d.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/", Dashboard(d))
	r.Route("/tickets", func(r chi.Router) {
		r.Get("/", TicketList(d))
		r.Get("/{id}/{action}", ConfirmAction(d))
		r.Post("/{id}/{action}", ApplyAction(d))
	})
	r.Get("/healthz", Healthz)
	return r
}
