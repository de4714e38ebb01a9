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

	"github.com/DoyleJ11/inbox-dashboard/internal/config"
	"github.com/DoyleJ11/inbox-dashboard/internal/inboxapi"
	"github.com/DoyleJ11/inbox-dashboard/internal/logging"
	"github.com/DoyleJ11/inbox-dashboard/internal/server"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "inbox-api:", err)
		os.Exit(1)
	}
}

func run(args []string) (err error) {
	cfg, err := config.Load(config.RoleAPI, "inbox-api", args)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log, "inbox-api")
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, logging.Sync(logger)) }()

	store, err := openStore(cfg.API, logger.With(zap.String("component", "store")))
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()

	ctx := context.Background()
	if err := inboxapi.SeedIfEmpty(ctx, store, cfg.API.SeedFile, logger); err != nil {
		return err
	}

	notifier := inboxapi.NewNotifier(cfg.API.WebhookURL, cfg.API.WebhookTimeout, logger.With(zap.String("component", "webhook")))
	api := inboxapi.NewServer(store, notifier, cfg.API.MetricsFile, logger)

	srv := &http.Server{
		Addr:              cfg.API.ListenAddr,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("inbox api starting", zap.String("store", cfg.API.Store), zap.Bool("webhook", cfg.API.WebhookURL != ""))
	return server.Run(ctx, srv, logger)
}

func openStore(cfg config.APIConfig, logger *zap.Logger) (inboxapi.Store, error) {
	if cfg.Store == "postgres" {
		return inboxapi.OpenPostgres(cfg.DatabaseURL, logger)
	}
	return inboxapi.NewMemoryStore(), nil
}
