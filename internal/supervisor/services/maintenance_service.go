// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package services

import (
	"context"
	"time"

	"github.com/casaflow/draftsync/internal/logging"
	"github.com/casaflow/draftsync/internal/metrics"
	"github.com/casaflow/draftsync/internal/store"
)

// MaintenanceService periodically expires stale local drafts and runs
// badger value-log garbage collection.
type MaintenanceService struct {
	local      *store.LocalStore
	interval   time.Duration
	cleanupAge time.Duration
}

// NewMaintenanceService creates the local-store maintenance loop.
func NewMaintenanceService(local *store.LocalStore, interval, cleanupAge time.Duration) *MaintenanceService {
	if interval <= 0 {
		interval = time.Hour
	}
	if cleanupAge <= 0 {
		cleanupAge = store.DefaultCleanupAge
	}
	return &MaintenanceService{local: local, interval: interval, cleanupAge: cleanupAge}
}

// Serve implements suture.Service.
func (m *MaintenanceService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.runOnce()
		}
	}
}

func (m *MaintenanceService) runOnce() {
	removed, err := m.local.Cleanup(m.cleanupAge)
	if err != nil {
		logging.Warn().Err(err).Msg("local store cleanup failed")
	} else if removed > 0 {
		logging.Info().Int("removed", removed).Msg("expired stale local drafts")
	}

	if err := m.local.RunGC(); err != nil {
		logging.Debug().Err(err).Msg("badger gc pass skipped")
	}

	metrics.LocalStoreBytes.Set(float64(m.local.SizeBytes()))
}

// String names the service in supervisor logs.
func (m *MaintenanceService) String() string { return "local-maintenance" }
