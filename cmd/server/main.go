package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forgo/festreg/internal/app"
	"github.com/forgo/festreg/internal/config"
	"github.com/forgo/festreg/internal/handler"
	"github.com/forgo/festreg/internal/middleware"
	"github.com/forgo/festreg/internal/tracing"
)

func main() {
	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		slog.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	// Open storage and wire services
	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = a.Close() }()

	if cfg.Catalog.SeedFile != "" {
		report, err := a.SeedFile(ctx, cfg.Catalog.SeedFile)
		if err != nil {
			slog.Error("failed to seed catalog",
				slog.String("file", cfg.Catalog.SeedFile),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
		slog.Info("catalog seeded",
			slog.String("file", cfg.Catalog.SeedFile),
			slog.Int("houses", report.Houses),
			slog.Int("events", report.Events),
			slog.Int("participants", report.Participants),
			slog.Int("skipped", report.Skipped))
	}

	// Submission guards
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Rate: cfg.Server.SubmitRateLimit,
	})
	defer rateLimiter.Stop()

	idempotencyStore := middleware.NewIdempotencyStore(middleware.IdempotencyConfig{})
	defer idempotencyStore.Stop()

	routes := &handler.Routes{
		Health:       handler.NewHealthHandler(a.Driver, a.Storage),
		Registration: handler.NewRegistrationHandler(a.Registration),
		Event:        handler.NewEventHandler(a.Catalog),
		Directory:    handler.NewDirectoryHandler(a.Directory),
		Admin: handler.NewAdminHandler(handler.AdminHandlerConfig{
			Maintenance: a.Maintenance,
			Directory:   a.Directory,
		}),
		AdminGuard: middleware.AdminToken(cfg.Admin.TokenHash),
		Submit: []middleware.Middleware{
			middleware.RateLimit(rateLimiter),
			middleware.Idempotency(idempotencyStore),
		},
	}

	mux := http.NewServeMux()
	routes.Register(mux)

	if cfg.Admin.TokenHash == "" {
		slog.Warn("ADMIN_TOKEN_HASH is not set; admin endpoints are disabled")
	}

	wrapped := middleware.Chain(
		mux,
		middleware.Recovery,
		middleware.RequestID,
		middleware.Tracing,
		middleware.Logger,
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.Compress,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      wrapped,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		slog.Error("server error", slog.String("error", err.Error()))
	}

	slog.Info("shutting down server...")

	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(sctx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	slog.Info("server exited")
}
