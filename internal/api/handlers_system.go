// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/casaflow/draftsync/internal/models"
	"github.com/casaflow/draftsync/internal/store"
)

// ConnectivityRequest toggles the engine's online state.
type ConnectivityRequest struct {
	Online *bool `json:"online" validate:"required"`
}

// HealthLive is the liveness probe.
//
// GET /api/v1/health/live
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondOK(w, http.StatusOK, map[string]string{"status": "alive"}, models.Metadata{})
}

// HealthReady is the readiness probe. Ready means the local tier is open;
// a down remote degrades service but does not fail readiness.
//
// GET /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	remote := "disabled"
	if h.remotePing != nil {
		remote = "ok"
		if err := h.remotePing.Ping(); err != nil {
			remote = "unreachable"
		}
	}
	respondOK(w, http.StatusOK, map[string]interface{}{
		"status":         "ready",
		"remote":         remote,
		"online":         h.monitor.Online(),
		"uptime_seconds": int(time.Since(h.startTime).Seconds()),
	}, models.Metadata{})
}

// SyncDrafts pushes the caller's locally backed-up drafts to the remote
// tier.
//
// POST /api/v1/sync
func (h *Handler) SyncDrafts(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	result := h.reconciler.SyncDrafts(r.Context(), user)
	switch {
	case errors.Is(result.Err, store.ErrOffline):
		respondError(w, http.StatusServiceUnavailable, "NOT_ONLINE",
			"sync requires connectivity", result.Err)
		return
	case errors.Is(result.Err, store.ErrNoIdentity):
		respondError(w, http.StatusUnauthorized, "NOT_AUTHENTICATED",
			"sync requires a user identity", result.Err)
		return
	case result.Err != nil:
		respondError(w, http.StatusInternalServerError, "SYNC_FAILED",
			result.Err.Error(), result.Err)
		return
	}

	// Per-draft failures still return the counts; 202 flags partial work.
	status := http.StatusOK
	if result.Failed > 0 {
		status = http.StatusAccepted
	}
	respondOK(w, status, result, models.Metadata{})
}

// SetConnectivity updates the connectivity monitor. Transitioning to
// online triggers reconciliation through the monitor's subscribers.
//
// PUT /api/v1/connectivity
func (h *Handler) SetConnectivity(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(w, r); !ok {
		return
	}
	var req ConnectivityRequest
	if !decodeBody(w, r, &req) {
		return
	}
	h.monitor.SetOnline(*req.Online)
	respondOK(w, http.StatusOK, map[string]bool{"online": h.monitor.Online()}, models.Metadata{})
}

// Diagnostics exposes engine internals for debugging.
//
// GET /api/v1/diagnostics
func (h *Handler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(w, r); !ok {
		return
	}
	diag := h.engine.Diagnostics()
	diag.PendingTimerCount = h.scheduler.PendingCount()
	respondOK(w, http.StatusOK, diag, models.Metadata{})
}

// ClearCache drops every entry from the in-process cache. Drafts backed by
// the local or remote tier remain loadable; memory-only drafts are lost.
//
// DELETE /api/v1/cache
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(w, r); !ok {
		return
	}
	h.engine.ClearCache()
	respondOK(w, http.StatusOK, map[string]string{"status": "cleared"}, models.Metadata{})
}
