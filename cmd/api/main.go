// Package main is the entry point of the bolão API.
//
// The API serves the ranking, the trophy room, the scout report, the points
// statement and the head-to-head views, accepts guesses and results through
// the admin routes, and keeps the ranking snapshot current in the background.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Julio-Na-Gaita/v3v3-fraco-web/config"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/app"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/infrastructure/persistence/postgres"
	"github.com/Julio-Na-Gaita/v3v3-fraco-web/internal/infrastructure/scheduler"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration & logging
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := app.SetupLogger(cfg)
	log.Info("starting bolão API",
		"version", cfg.App.Version,
		"env", cfg.App.Environment,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Components
	// ─────────────────────────────────────────────────────────────────────────
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Schema
	// ─────────────────────────────────────────────────────────────────────────
	applied, err := postgres.NewMigrator(a.DB).Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if applied > 0 {
		log.Info("migrations applied", "count", applied)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Warm-up: build the first snapshot so the ranking has arrows
	// ─────────────────────────────────────────────────────────────────────────
	if err := warmUp(ctx, a); err != nil {
		log.Warn("initial ranking rebuild failed", "error", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Serve
	// ─────────────────────────────────────────────────────────────────────────
	a.Scheduler.Start()
	server := a.HTTPServer()
	errCh := server.StartAsync()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 6. Graceful shutdown
	// ─────────────────────────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		log.Error("http shutdown failed", slog.Any("error", err))
	}
	log.Info("bolão API stopped")
	return nil
}

// warmUp runs the rebuild job once through the scheduler so it gets the job
// timeout and metrics. With scheduled rebuilds off the job is run directly.
func warmUp(ctx context.Context, a *app.App) error {
	res, err := a.Scheduler.RunNow(ctx, a.Rebuild.Name())
	if errors.Is(err, scheduler.ErrJobNotFound) {
		return a.Rebuild.Run(ctx)
	}
	if err != nil {
		return err
	}
	if !res.Success {
		return errors.New(res.Error)
	}
	return nil
}
