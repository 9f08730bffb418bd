package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"financas/internal/backend"
	"financas/internal/cli"
	apphttp "financas/internal/http"
	"financas/internal/services"
	"financas/internal/worker"
)

func main() {
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg.LogLevel)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if be.Cleanup != nil {
			if err := be.Cleanup(); err != nil {
				logger.ErrorContext(context.Background(), "Backend cleanup error", "error", err)
			}
		}
	}()

	// Validate already checked the floor parses.
	floor, _ := cfg.Floor()
	svc := services.NewDashboardService(be.Store, be.Publisher, services.DashboardConfig{
		Floor:          floor,
		SalaryCategory: cfg.SalaryCategory,
		WindowDays:     cfg.SalaryWindowDays,
		Timeout:        cfg.CollaboratorTimeout,
		RecentLimit:    cfg.RecentEntriesLimit,
	})

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:         logger,
		Ready:          be.Ready,
		CacheTTL:       cfg.DashboardCacheTTL,
		CacheSize:      cfg.DashboardCacheSize,
		WriteRateLimit: cfg.WriteRateLimit,
	})
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	if be.Events != nil {
		payments := worker.NewPaymentWorker(be.Events, srv)
		go func() {
			if err := payments.Run(ctx); err != nil {
				logger.ErrorContext(ctx, "Payment worker stopped", "error", err)
			}
		}()
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		logger.InfoContext(context.Background(), "Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.ErrorContext(shutdownCtx, "Server shutdown error", "error", err)
		}
	}()

	logger.InfoContext(ctx, "Starting financas server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"data_available_from", cfg.DataAvailableFrom,
		"cache_ttl", cfg.DashboardCacheTTL,
		"amqp_enabled", be.Events != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.ErrorContext(ctx, "Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	// ListenAndServe returns as soon as Shutdown starts; wait for it to drain.
	<-shutdownDone
	logger.InfoContext(context.Background(), "Server stopped gracefully")
}
