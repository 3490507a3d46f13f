package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/use-agent/dealsearch/api"
	"github.com/use-agent/dealsearch/browser"
	"github.com/use-agent/dealsearch/config"
	"github.com/use-agent/dealsearch/gate"
	"github.com/use-agent/dealsearch/metrics"
	"github.com/use-agent/dealsearch/scraper"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()

	// ── 2. Initialise logging + metrics ─────────────────────────────
	initLogger(cfg.Log)
	metrics.Init()
	slog.Info("dealsearch starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxPages", cfg.Browser.MaxConcurrentPages,
		"headless", cfg.Browser.Headless,
	)

	// ── 3. Launch the shared browser ────────────────────────────────
	// A failed launch leaves the manager unset: the server still starts,
	// /health reports 503 and every search fails closed.
	engine := browser.NewRodEngine(cfg.Browser, browser.PageOptions{
		Stealth:              cfg.Browser.Stealth,
		BlockedResourceTypes: cfg.Scraper.BlockedResourceTypes,
		AcceptLanguage:       cfg.Scraper.AcceptLanguage,
	})
	manager := browser.NewManager(engine)
	if err := manager.Start(context.Background()); err != nil {
		slog.Error("browser unavailable, serving in fail-closed mode", "error", err)
	}

	// ── 4. Gate + scraper ───────────────────────────────────────────
	pages := gate.New(cfg.Browser.MaxConcurrentPages, gate.WithObserver(metrics.SetActivePages))
	sc := scraper.New(manager, pages, cfg.Scraper, cfg.Navigation)

	// ── 5. Setup router ─────────────────────────────────────────────
	router := api.NewRouter(sc, cfg, time.Now())

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			manager.Stop()
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// Pages still open after a forced shutdown get one more bounded wait.
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelDrain()
	pages.Drain(drainCtx)

	manager.Stop()
	slog.Info("dealsearch stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
