package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/synapso/internal/auth"
	"github.com/mmynk/synapso/internal/config"
	"github.com/mmynk/synapso/internal/middleware"
	"github.com/mmynk/synapso/internal/service"
	"github.com/mmynk/synapso/internal/storage/sqlite"
	"github.com/mmynk/synapso/pkg/logging"
)

const (
	throttleCleanupInterval  = 5 * time.Minute
	completionsSweepInterval = 15 * time.Minute
)

func main() {
	// Setup structured logging before the config is known
	logging.Setup()

	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Configure(cfg.Logging.Level, cfg.Logging.Format)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.Database.Path)

	seeded, err := store.SeedBodyparts(ctx, sqlite.DefaultBodyparts)
	if err != nil {
		return err
	}
	if seeded > 0 {
		slog.Info("Bodyparts seeded", "count", seeded)
	}

	authenticator := auth.NewPasswordAuthenticator(store)
	if cfg.BootstrapAdmin() {
		if _, err := service.EnsureAdmin(ctx, store, authenticator, cfg.Security.AdminName, cfg.Security.AdminPassword); err != nil {
			return fmt.Errorf("failed to bootstrap admin: %w", err)
		}
	}

	opts := service.RouterOptions{
		Store:         store,
		Authenticator: authenticator,
		Signer:        auth.NewCookieSigner(cfg.Security.SessionSecret, cfg.Security.SessionTTL, cfg.Security.SecureCookies),
		Location:      loc,
		StaticPath:    cfg.Server.StaticPath,
		CORSOrigins:   cfg.Server.CORSOrigins,
	}

	closeLimits, err := configureLimits(ctx, cfg, &opts)
	if err != nil {
		return err
	}
	defer closeLimits()

	go sweepCompletions(ctx, store, loc)

	if opts.StaticPath != "" {
		staticDir, err := filepath.Abs(opts.StaticPath)
		if err != nil {
			return fmt.Errorf("failed to resolve static path: %w", err)
		}
		opts.StaticPath = staticDir
		slog.Info("Serving static files", "path", staticDir)
	}

	// h2c serves HTTP/2 without TLS behind a terminating proxy
	handler := h2c.NewHandler(service.NewRouter(opts), &http2.Server{})

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "address", server.Addr, "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve: %w", err)
		}
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	slog.Info("Server stopped")
	return nil
}

// configureLimits sets the API rate limit, the login throttle and the trusted
// proxies on opts. The login throttle is built even when the API limit is off.
// The returned func releases the Redis client, if any.
func configureLimits(ctx context.Context, cfg *config.Config, opts *service.RouterOptions) (func(), error) {
	closeFn := func() {}

	proxies, err := middleware.NewTrustedProxies(cfg.Security.TrustedProxies)
	if err != nil {
		return closeFn, err
	}
	opts.TrustedProxies = proxies
	if len(cfg.Security.TrustedProxies) > 0 {
		slog.Info("Trusting forwarding headers", "proxies", cfg.Security.TrustedProxies)
	}

	if cfg.RateLimit.Enabled {
		limit := &middleware.RateLimitOptions{
			Requests: cfg.RateLimit.Requests,
			Window:   cfg.RateLimit.Window,
		}
		if cfg.Redis.URL != "" {
			client, err := middleware.NewRedisClient(ctx, cfg.Redis.URL)
			if err != nil {
				return closeFn, err
			}
			closeFn = func() { client.Close() }
			limit.Counter = middleware.NewRedisCounter(client, "synapso:ratelimit")
			slog.Info("Rate limit counters stored in Redis")
		}
		opts.RateLimit = limit
	} else {
		slog.Warn("API rate limiting disabled")
	}

	throttle := middleware.NewLoginThrottle(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginBurst)
	throttle.StartCleanup(ctx, throttleCleanupInterval)
	opts.Throttle = throttle

	return closeFn, nil
}

// sweepCompletions clears completions left over from past reset periods so
// the stored state matches what the API reports.
func sweepCompletions(ctx context.Context, store service.CompletionStore, loc *time.Location) {
	ticker := time.NewTicker(completionsSweepInterval)
	defer ticker.Stop()

	for {
		n, err := service.ClearStaleCompletions(ctx, store, time.Now(), loc)
		if err != nil && ctx.Err() == nil {
			slog.Error("Failed to clear stale completions", "error", err)
		} else if n > 0 {
			slog.Info("Stale completions cleared", "count", n)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
