// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

// Package main is the entry point for the Draftsync server.
//
// Draftsync persists listing-wizard drafts (property, land, blog) across
// three storage tiers: an in-process cache, a quota-limited BadgerDB
// local store, and a DuckDB-backed remote database. Saves prefer the
// remote tier and degrade gracefully; a reconciler pushes locally
// backed-up drafts upstream when connectivity returns.
//
// # Startup order
//
//  1. Configuration: Koanf v2 layered sources (defaults, config.yaml,
//     DRAFTSYNC_* environment variables)
//  2. Logging: zerolog, json or console format
//  3. Local tier: BadgerDB with gzip payload compression and quota
//  4. Remote tier: DuckDB behind a retry policy and circuit breaker
//  5. Engine: tiered store, progress calculator, autosave scheduler
//  6. Supervision: suture tree running the HTTP server, the local-store
//     maintenance loop, and the reconciler
//
// # Signal handling
//
// SIGINT and SIGTERM trigger graceful shutdown: pending autosaves are
// flushed, the HTTP server drains, and both storage tiers close.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/casaflow/draftsync/internal/api"
	"github.com/casaflow/draftsync/internal/autosave"
	"github.com/casaflow/draftsync/internal/codec"
	"github.com/casaflow/draftsync/internal/config"
	"github.com/casaflow/draftsync/internal/database"
	"github.com/casaflow/draftsync/internal/logging"
	"github.com/casaflow/draftsync/internal/models"
	"github.com/casaflow/draftsync/internal/progress"
	"github.com/casaflow/draftsync/internal/retry"
	"github.com/casaflow/draftsync/internal/store"
	"github.com/casaflow/draftsync/internal/supervisor"
	"github.com/casaflow/draftsync/internal/supervisor/services"
	"github.com/casaflow/draftsync/internal/syncer"
	"golang.org/x/time/rate"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().Str("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)).
		Msg("starting draftsync")

	cdc := codec.New(codec.WithThreshold(cfg.Codec.ThresholdBytes))

	local, err := store.OpenLocal(store.LocalConfig{
		Path:       cfg.Local.Path,
		SyncWrites: cfg.Local.SyncWrites,
		MaxBytes:   cfg.Local.QuotaBytes,
		CleanupAge: cfg.Local.CleanupAge,
	}, cdc)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer local.Close()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("open remote database: %w", err)
	}
	defer db.Close()

	remote := store.NewBreakerRemote(db, store.BreakerConfig{
		FailureThreshold:    cfg.Breaker.FailureThreshold,
		OpenTimeout:         cfg.Breaker.OpenTimeout,
		MaxHalfOpenRequests: cfg.Breaker.MaxHalfOpenRequests,
	})

	monitor := syncer.NewMonitor()

	engine := store.NewTieredStore(local, progress.NewCalculator(),
		store.WithRemote(remote),
		store.WithProbe(monitor),
		store.WithCleanupAge(cfg.Local.CleanupAge),
		store.WithRetryPolicy(retry.Policy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			BaseDelay:   cfg.Retry.BaseDelay,
			MaxDelay:    cfg.Retry.MaxDelay,
		}),
	)

	scheduler := autosave.NewScheduler(
		func(ctx context.Context, req store.SaveRequest) models.SaveResult {
			return engine.SaveDraft(ctx, req)
		},
		autosave.WithQuietInterval(cfg.Autosave.QuietInterval),
	)

	reconciler := syncer.NewReconciler(engine, monitor,
		syncer.WithPushRate(rate.Limit(cfg.Sync.PushRatePerSecond)))

	handler := api.NewHandler(engine, scheduler, reconciler, monitor, cfg, db)
	router := api.NewRouter(handler, &cfg.Server)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	tree.AddStorageService(services.NewMaintenanceService(local, cfg.Local.GCInterval, cfg.Local.CleanupAge))
	tree.AddStorageService(services.NewReconcileService(reconciler, monitor, 5*time.Minute))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := tree.ServeBackground(ctx)
	logging.Info().Msg("draftsync ready")

	select {
	case <-ctx.Done():
		logging.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("supervisor: %w", err)
		}
	}

	scheduler.Close()

	// Deferred closes shut down both storage tiers.
	logging.Info().Msg("draftsync stopped")
	return nil
}
