// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

// Package api provides the HTTP surface using the Chi router. Handlers
// translate the engine's result objects into the uniform APIResponse
// envelope; tier degradation surfaces as success-with-warning, never as
// an HTTP error.
package api

import (
	"time"

	"github.com/casaflow/draftsync/internal/autosave"
	"github.com/casaflow/draftsync/internal/config"
	"github.com/casaflow/draftsync/internal/store"
	"github.com/casaflow/draftsync/internal/syncer"
)

// Pinger is the readiness hook for the remote database, optional.
type Pinger interface {
	Ping() error
}

// Handler carries the dependencies shared by all endpoint methods.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct and constructor (this file)
//   - handlers_helpers.go: response envelope and identity helpers
//   - handlers_drafts.go: draft CRUD, autosave, media
//   - handlers_system.go: health, sync, connectivity, diagnostics
type Handler struct {
	engine     *store.TieredStore
	scheduler  *autosave.Scheduler
	reconciler *syncer.Reconciler
	monitor    *syncer.Monitor
	config     *config.Config
	remotePing Pinger
	startTime  time.Time
}

// NewHandler creates the API handler. remotePing may be nil when the
// deployment runs without a remote tier.
func NewHandler(engine *store.TieredStore, scheduler *autosave.Scheduler, reconciler *syncer.Reconciler, monitor *syncer.Monitor, cfg *config.Config, remotePing Pinger) *Handler {
	return &Handler{
		engine:     engine,
		scheduler:  scheduler,
		reconciler: reconciler,
		monitor:    monitor,
		config:     cfg,
		remotePing: remotePing,
		startTime:  time.Now(),
	}
}
