// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package syncer

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/casaflow/draftsync/internal/logging"
	"github.com/casaflow/draftsync/internal/metrics"
	"github.com/casaflow/draftsync/internal/models"
	"github.com/casaflow/draftsync/internal/store"
)

// DefaultPushRate bounds remote pushes during reconciliation so a backlog
// of offline drafts cannot stampede the remote tier on reconnect.
var DefaultPushRate = rate.Limit(20)

// Reconciler pushes locally backed and memory-only drafts to the remote
// tier and drops the local backup once the remote write is confirmed.
type Reconciler struct {
	engine  *store.TieredStore
	monitor *Monitor
	limiter *rate.Limiter
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithPushRate overrides the remote push rate limit.
func WithPushRate(limit rate.Limit) ReconcilerOption {
	return func(r *Reconciler) {
		if limit > 0 {
			r.limiter = rate.NewLimiter(limit, 5)
		}
	}
}

// NewReconciler wires the reconciler to the engine and connectivity
// monitor.
func NewReconciler(engine *store.TieredStore, monitor *Monitor, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		engine:  engine,
		monitor: monitor,
		limiter: rate.NewLimiter(DefaultPushRate, 5),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SyncDrafts reconciles every draft owned by userID that exists only in
// local storage or the in-process cache. It fails fast when offline or
// unauthenticated; a failure on one draft does not abort reconciliation
// of the rest.
func (r *Reconciler) SyncDrafts(ctx context.Context, userID string) models.SyncResult {
	if userID == "" {
		return models.SyncResult{Err: store.ErrNoIdentity}
	}
	if !r.monitor.Online() {
		return models.SyncResult{Err: store.ErrOffline}
	}

	locals, err := r.engine.Local().List(userID)
	if err != nil {
		return models.SyncResult{Err: err}
	}

	// Memory-only drafts join the backlog. The cache is the freshest
	// tier, so on an id collision the cached copy wins.
	drafts := make([]*models.Draft, 0, len(locals))
	seen := make(map[string]int, len(locals))
	for _, d := range locals {
		seen[d.ID] = len(drafts)
		drafts = append(drafts, d)
	}
	for _, d := range r.engine.MemoryBacklog(userID) {
		if i, ok := seen[d.ID]; ok {
			drafts[i] = d
			continue
		}
		drafts = append(drafts, d)
	}

	result := models.SyncResult{Success: true}
	for _, draft := range drafts {
		if err := r.limiter.Wait(ctx); err != nil {
			result.Success = false
			result.Err = err
			result.Failed = len(drafts) - result.Synced
			break
		}

		if err := r.engine.PushRemote(ctx, draft); err != nil {
			logging.Warn().Err(err).Str("draft_id", draft.ID).Msg("sync push failed")
			metrics.SyncedDraftsTotal.WithLabelValues("failed").Inc()
			result.Failed++
			continue
		}
		metrics.SyncedDraftsTotal.WithLabelValues("synced").Inc()
		result.Synced++
	}

	if result.Synced > 0 || result.Failed > 0 {
		logging.Info().
			Str("user_id", userID).
			Int("synced", result.Synced).
			Int("failed", result.Failed).
			Msg("draft reconciliation complete")
	}
	return result
}

// ReconcileAll reconciles every user with a sync backlog. Invoked on
// offline→online transitions, where no single requesting user exists.
func (r *Reconciler) ReconcileAll(ctx context.Context) models.SyncResult {
	if !r.monitor.Online() {
		return models.SyncResult{Err: store.ErrOffline}
	}

	drafts, err := r.engine.Local().List("")
	if err != nil {
		return models.SyncResult{Err: err}
	}

	users := map[string]struct{}{}
	for _, d := range drafts {
		if d.UserID != "" {
			users[d.UserID] = struct{}{}
		}
	}
	for _, d := range r.engine.MemoryBacklog("") {
		if d.UserID != "" {
			users[d.UserID] = struct{}{}
		}
	}

	total := models.SyncResult{Success: true}
	for userID := range users {
		res := r.SyncDrafts(ctx, userID)
		total.Synced += res.Synced
		total.Failed += res.Failed
		if res.Err != nil {
			total.Err = res.Err
			total.Success = false
		}
	}
	return total
}
