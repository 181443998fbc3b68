// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package store

import "errors"

// Sentinel errors shared across the storage tiers.
var (
	// ErrNotFound means no tier holds the requested draft.
	ErrNotFound = errors.New("draft not found")

	// ErrAccessDenied means the draft exists but belongs to a different
	// user. Never demoted to a tier fallback.
	ErrAccessDenied = errors.New("draft access denied")

	// ErrQuotaExceeded means the local store cannot accept the write
	// within its configured quota.
	ErrQuotaExceeded = errors.New("local storage quota exceeded")

	// ErrCorruptRecord means a stored record failed to parse. The bad
	// entry is removed so it cannot poison future reads.
	ErrCorruptRecord = errors.New("corrupt local record")

	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrNoRemote means no remote tier is configured.
	ErrNoRemote = errors.New("remote store not configured")

	// ErrOffline means the operation requires connectivity.
	ErrOffline = errors.New("not online")

	// ErrNoIdentity means the operation requires an authenticated user.
	ErrNoIdentity = errors.New("user identity required")
)
