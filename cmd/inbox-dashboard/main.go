package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/inbox-dashboard/internal/backend"
	"github.com/DoyleJ11/inbox-dashboard/internal/config"
	"github.com/DoyleJ11/inbox-dashboard/internal/httpapi"
	"github.com/DoyleJ11/inbox-dashboard/internal/hub"
	"github.com/DoyleJ11/inbox-dashboard/internal/logging"
	"github.com/DoyleJ11/inbox-dashboard/internal/server"
	"github.com/DoyleJ11/inbox-dashboard/internal/web"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "inbox-dashboard:", err)
		os.Exit(1)
	}
}

func run(args []string) (err error) {
	cfg, err := config.Load(config.RoleDashboard, "inbox-dashboard", args)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log, "inbox-dashboard")
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, logging.Sync(logger)) }()

	client, err := backend.New(cfg.Dashboard.BackendURL,
		backend.WithTimeout(cfg.Dashboard.RequestTimeout),
		backend.WithLogger(logger.With(zap.String("component", "backend"))),
	)
	if err != nil {
		return err
	}
	renderer, err := web.NewRenderer()
	if err != nil {
		return err
	}

	ctx := context.Background()
	h := hub.NewHub(ctx, client, hub.WithLogger(logger.With(zap.String("component", "hub"))))
	defer h.Close()

	srv := &http.Server{
		Addr: cfg.Dashboard.ListenAddr,
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:        h,
			Metrics:    client,
			Renderer:   renderer,
			Logger:     logger,
			DataSource: cfg.Dashboard.DataSourceLabel,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("dashboard starting", zap.String("backend", cfg.Dashboard.BackendURL))
	return server.Run(ctx, srv, logger, func(ctx context.Context) error {
		return h.RunSweeper(ctx, cfg.Dashboard.ViewTTL, cfg.Dashboard.SweepInterval)
	})
}
