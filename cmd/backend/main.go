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

	configloader "github.com/foxseedlab/touron/external/config"
	gatewayimpl "github.com/foxseedlab/touron/external/gateway"
	repositoryimpl "github.com/foxseedlab/touron/external/repository"
	responderimpl "github.com/foxseedlab/touron/external/responder"
	synthesizerimpl "github.com/foxseedlab/touron/external/synthesizer"
	transcriberimpl "github.com/foxseedlab/touron/external/transcriber"
	webhookimpl "github.com/foxseedlab/touron/external/webhook"
	"github.com/foxseedlab/touron/internal/config"
	"github.com/foxseedlab/touron/internal/discussion"
	"github.com/foxseedlab/touron/internal/gateway"
	"github.com/samber/do/v2"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching discussion server")
	runServer(cfg, injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	repositoryimpl.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	responderimpl.RegisterDI(injector)
	synthesizerimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	discussion.RegisterDI(injector)
	gateway.RegisterDI(injector)
	gatewayimpl.RegisterDI(injector)

	return injector
}

func runServer(cfg *config.Config, injector do.Injector) {
	registry, err := do.Invoke[*discussion.Registry](injector)
	if err != nil {
		slog.Error("failed to resolve session registry", "error", err)
		os.Exit(1)
	}
	server, err := do.Invoke[*gatewayimpl.Server](injector)
	if err != nil {
		slog.Error("failed to resolve gateway server", "error", err)
		os.Exit(1)
	}

	janitorCtx, janitorCancel := context.WithCancel(context.Background())
	defer janitorCancel()
	go registry.RunJanitor(janitorCtx)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	done := make(chan struct{})
	go func() {
		slog.Info("startup: listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
	}

	janitorCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	registry.EndAllForShutdown(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
		// Hijacked websocket connections outlive Shutdown, force them closed.
		_ = srv.Close()
	}
}
