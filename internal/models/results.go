// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package models

// Result shapes returned across the engine's public boundary. Public
// operations return these instead of bare errors so tier degradation can
// be reported as success-with-source rather than a failure.

// SaveResult is the outcome of a save (or autosave) operation.
type SaveResult struct {
	Success bool          `json:"success"`
	DraftID string        `json:"draft_id,omitempty"`
	Source  StorageSource `json:"source,omitempty"`

	// Warning carries non-fatal degradation notes, e.g. a memory-only
	// save that will not survive a process restart.
	Warning string `json:"warning,omitempty"`

	Err error `json:"-"`
}

// LoadResult is the outcome of a load operation.
type LoadResult struct {
	Success bool          `json:"success"`
	Draft   *Draft        `json:"draft,omitempty"`
	Source  StorageSource `json:"source,omitempty"`
	Err     error         `json:"-"`
}

// TierOutcome reports one tier's delete attempt. Absence of the record
// counts as success for that tier.
type TierOutcome struct {
	Tier StorageSource `json:"tier"`
	Err  error         `json:"-"`
}

// OK reports whether the tier attempt succeeded.
func (o TierOutcome) OK() bool { return o.Err == nil }

// DeleteResult aggregates per-tier delete outcomes. Success requires
// every attempted tier to succeed; failures are returned, not swallowed.
type DeleteResult struct {
	Success bool          `json:"success"`
	Tiers   []TierOutcome `json:"tiers"`
}

// ListResult is the outcome of a list operation.
type ListResult struct {
	Success bool          `json:"success"`
	Drafts  []*Draft      `json:"drafts"`
	Total   int           `json:"total"`
	Source  StorageSource `json:"source,omitempty"`
	Err     error         `json:"-"`
}

// SyncResult reports reconciliation counts. A failure on one draft does
// not abort reconciliation of the rest.
type SyncResult struct {
	Success bool  `json:"success"`
	Synced  int   `json:"synced"`
	Failed  int   `json:"failed"`
	Err     error `json:"-"`
}

// SortField selects the list ordering column.
type SortField string

const (
	SortByUpdatedAt  SortField = "updatedAt"
	SortByCreatedAt  SortField = "createdAt"
	SortByCompletion SortField = "completionPercentage"
)

// ListQuery filters and pages a draft listing. Zero Limit means no limit.
type ListQuery struct {
	WizardType     string    `json:"wizard_type,omitempty"`
	WizardConfigID string    `json:"wizard_config_id,omitempty"`
	SortBy         SortField `json:"sort_by,omitempty"`
	Descending     bool      `json:"descending,omitempty"`
	Offset         int       `json:"offset,omitempty"`
	Limit          int       `json:"limit,omitempty"`
}

// Diagnostics is a point-in-time snapshot of engine internals, exposed
// for observability and tests.
type Diagnostics struct {
	MemoryCacheSize   int   `json:"memory_cache_size"`
	LocalStorageKeys  int   `json:"local_storage_key_count"`
	PendingTimerCount int   `json:"pending_timer_count"`
	LocalStorageBytes int64 `json:"local_storage_bytes"`
}
