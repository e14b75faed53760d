package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/warp/aid-ledger/api"
)

const shutdownTimeout = 30 * time.Second

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setup(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	sweeper, err := api.NewSweeper(rt.ledger, rt.logger, rt.cfg.SweepSchedule)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	handler := api.NewHandler(rt.ledger, rt.logger)
	handler.FraudThreshold = rt.cfg.FraudThreshold()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", rt.cfg.ServerPort),
		Handler:      api.NewRouter(handler, rt.cfg.AllowedOrigins),
		ReadTimeout:  rt.cfg.ReadTimeout(),
		WriteTimeout: rt.cfg.WriteTimeout(),
	}

	errCh := make(chan error, 1)
	go func() {
		rt.logger.WithField("addr", srv.Addr).Info("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	rt.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	rt.logger.Info("server stopped")
	return nil
}
