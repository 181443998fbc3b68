// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

// Package store implements the tiered draft store: an in-process cache,
// a quota-limited BadgerDB local tier, and an optional remote database
// tier composed behind one save/load/delete/list API.
//
// Tier order on save is remote → local → memory, falling back on failure;
// the in-process cache is always written last so an immediate load for the
// same id sees the just-saved value. Tier order on load is memory →
// remote → local, with the winning record written back into the cache.
//
// Tier fallback is modeled as explicit control flow in TieredStore, not
// nested error recovery, so the order is testable by injecting a failing
// remote (see engine_test.go).
package store
