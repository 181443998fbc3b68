// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

// Package metrics provides Prometheus instrumentation for the draft
// persistence engine: tier outcomes, fallbacks, compression efficiency,
// debounce behavior and sync reconciliation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SavesTotal counts saves by the tier that actually persisted them.
	SavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draftsync_saves_total",
			Help: "Total draft saves by storage source",
		},
		[]string{"source"},
	)

	// LoadsTotal counts loads by the tier that served them.
	LoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draftsync_loads_total",
			Help: "Total draft loads by storage source",
		},
		[]string{"source"},
	)

	// TierFallbacksTotal counts degradations from one tier to the next.
	TierFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draftsync_tier_fallbacks_total",
			Help: "Total tier fallbacks during save operations",
		},
		[]string{"from", "to"},
	)

	// DeletesTotal counts delete operations by overall outcome.
	DeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draftsync_deletes_total",
			Help: "Total draft deletes by outcome",
		},
		[]string{"outcome"},
	)

	// SaveDuration observes end-to-end save latency.
	SaveDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "draftsync_save_duration_seconds",
			Help:    "Duration of draft save operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CompressionRatio observes compressed/original size per encode that
	// actually compressed.
	CompressionRatio = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "draftsync_compression_ratio",
			Help:    "Compressed to original size ratio for local writes",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	// CorruptRecordsTotal counts corrupted local records dropped on read.
	CorruptRecordsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "draftsync_corrupt_records_total",
			Help: "Total corrupted local records removed",
		},
	)

	// QuotaCleanupsTotal counts cleanup passes triggered by quota pressure.
	QuotaCleanupsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "draftsync_quota_cleanups_total",
			Help: "Total local-store cleanup passes triggered by quota pressure",
		},
	)

	// DebounceCollapsedTotal counts autosave signals absorbed by an
	// already-pending timer.
	DebounceCollapsedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "draftsync_debounce_collapsed_total",
			Help: "Total autosave signals collapsed into a pending save",
		},
	)

	// PendingAutosaveTimers gauges the live debounce timer count.
	PendingAutosaveTimers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "draftsync_pending_autosave_timers",
			Help: "Number of pending autosave debounce timers",
		},
	)

	// SyncedDraftsTotal counts drafts pushed remote by reconciliation.
	SyncedDraftsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draftsync_synced_drafts_total",
			Help: "Total drafts processed by sync reconciliation",
		},
		[]string{"outcome"},
	)

	// MemoryCacheEntries gauges the in-process cache size.
	MemoryCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "draftsync_memory_cache_entries",
			Help: "Number of drafts held in the in-process cache",
		},
	)

	// LocalStoreBytes gauges approximate local-store usage.
	LocalStoreBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "draftsync_local_store_bytes",
			Help: "Approximate bytes used by the local draft store",
		},
	)
)

// RecordSave records a completed save and its serving tier.
func RecordSave(source string, seconds float64) {
	SavesTotal.WithLabelValues(source).Inc()
	SaveDuration.Observe(seconds)
}

// RecordLoad records a completed load and its serving tier.
func RecordLoad(source string) {
	LoadsTotal.WithLabelValues(source).Inc()
}

// RecordFallback records a tier degradation during save.
func RecordFallback(from, to string) {
	TierFallbacksTotal.WithLabelValues(from, to).Inc()
}
