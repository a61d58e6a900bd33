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

	"golang.org/x/sync/errgroup"

	"cards/internal/cli"
	"cards/internal/config"
	apphttp "cards/internal/http"
	applog "cards/internal/log"
	"cards/internal/photo"
	"cards/internal/ports"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx := context.Background()
	bootLog := applog.New(applog.DefaultConfig())
	boot := applog.NewStructuredLogger(bootLog)

	if err := cli.LoadEnvFile(); err != nil {
		bootLog.Warn("Ignoring .env file", applog.FieldError, err)
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		boot.LogError(ctx, "Invalid configuration", err, applog.ComponentApp, applog.OpStartup,
			applog.NewFields().WithErrorType(applog.ErrorTypeConfiguration))
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg)

	store, err := cli.InitStore(ctx, logger, cfg)
	if err != nil {
		applog.NewStructuredLogger(logger).LogError(ctx, "Failed to initialize store", err, applog.ComponentBackend, applog.OpStartup,
			applog.NewFields().WithErrorType(applog.ErrorTypeDatabase))
		os.Exit(1)
	}

	err = run(logger, cfg, store.Store)
	if cerr := store.Cleanup(); cerr != nil {
		logger.Error("Failed to close store", applog.FieldError, cerr)
	}
	if err != nil {
		logger.Error("Server error", applog.FieldError, err, "addr", cfg.Addr())
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// run serves until SIGINT or SIGTERM, then drains in-flight requests.
func run(logger *applog.Logger, cfg *config.Config, store ports.Store) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := apphttp.NewServer(cfg.Addr(), apphttp.Options{
		Store:          store,
		Photos:         photo.NewProcessor(cfg.PhotoMaxDimension, cfg.PhotoJPEGQuality, cfg.MaxUploadBytes),
		Logger:         logger,
		CacheTTL:       cfg.CacheTTL,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting cards server", "addr", cfg.Addr(), "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", applog.FieldOperation, applog.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
