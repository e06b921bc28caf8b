package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"solana-token-aggregator/internal/config"
	"solana-token-aggregator/internal/httpapi"
)

const shutdownTimeout = 30 * time.Second

func serveCmd(c *cli.Context) error {
	cfg, err := config.FromContext(c)
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, cleanup, err := buildService(ctx, cfg, true, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	defer svc.Stop()

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewHandler(svc, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	report, err := svc.Initialize(ctx)
	if err != nil {
		return err
	}
	logger.Infof("initialized with %d tokens in %v", report.Size, report.Duration.Round(time.Millisecond))

	if err := svc.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Errorf("HTTP server error: %v", err)
		return err
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	svc.Stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("HTTP shutdown: %v", err)
	}
	logger.Info("shutdown complete")
	return nil
}
