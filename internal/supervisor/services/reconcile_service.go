// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package services

import (
	"context"
	"time"

	"github.com/casaflow/draftsync/internal/logging"
	"github.com/casaflow/draftsync/internal/syncer"
)

// ReconcileService pushes locally backed-up drafts to the remote tier.
// It wakes on offline-to-online transitions and on a slow periodic tick
// that catches drafts stranded by transient remote failures.
type ReconcileService struct {
	reconciler *syncer.Reconciler
	monitor    *syncer.Monitor
	interval   time.Duration
	wake       chan struct{}
}

// NewReconcileService creates the reconciliation loop and subscribes it
// to connectivity transitions.
func NewReconcileService(reconciler *syncer.Reconciler, monitor *syncer.Monitor, interval time.Duration) *ReconcileService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	svc := &ReconcileService{
		reconciler: reconciler,
		monitor:    monitor,
		interval:   interval,
		wake:       make(chan struct{}, 1),
	}
	monitor.Subscribe(func(online bool) {
		if !online {
			return
		}
		select {
		case svc.wake <- struct{}{}:
		default:
		}
	})
	return svc
}

// Serve implements suture.Service.
func (s *ReconcileService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
			s.runOnce(ctx)
		case <-ticker.C:
			if s.monitor.Online() {
				s.runOnce(ctx)
			}
		}
	}
}

func (s *ReconcileService) runOnce(ctx context.Context) {
	result := s.reconciler.ReconcileAll(ctx)
	if result.Synced > 0 || result.Failed > 0 {
		logging.Info().
			Int("synced", result.Synced).
			Int("failed", result.Failed).
			Msg("reconciliation pass complete")
	}
}

// String names the service in supervisor logs.
func (s *ReconcileService) String() string { return "draft-reconciler" }
