// Package server runs an HTTP server alongside background workers and
// shuts everything down on SIGINT or SIGTERM.
package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownGrace = 10 * time.Second

// Worker runs until its context ends. A non-nil return stops the process.
type Worker func(ctx context.Context) error

// Run serves srv until a signal arrives, ctx ends or a worker fails.
func Run(ctx context.Context, srv *http.Server, logger *zap.Logger, workers ...Worker) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	for _, w := range workers {
		w := w
		g.Go(func() error { return w(ctx) })
	}
	return g.Wait()
}
