// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package store

import (
	"testing"
	"time"

	"github.com/casaflow/draftsync/internal/models"
)

func testDraft(id, userID string) *models.Draft {
	now := time.Now().UTC()
	return &models.Draft{
		ID:         id,
		UserID:     userID,
		WizardType: models.WizardProperty,
		FormData:   models.FormData{"title": "Sunny apartment"},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestMemoryCacheSetGet(t *testing.T) {
	cache := NewMemoryCache()
	draft := testDraft("d1", "u1")
	cache.Set(draft)

	got := cache.Get("d1", "u1")
	if got == nil {
		t.Fatal("expected cache hit")
	}
	if got.ID != "d1" || got.UserID != "u1" {
		t.Errorf("got %s/%s, want d1/u1", got.ID, got.UserID)
	}
}

func TestMemoryCacheCloneIsolation(t *testing.T) {
	cache := NewMemoryCache()
	draft := testDraft("d1", "u1")
	cache.Set(draft)

	// Mutating the original after Set must not leak into the cache.
	draft.FormData["title"] = "changed"
	if got := cache.Get("d1", "u1"); got.FormData["title"] != "Sunny apartment" {
		t.Errorf("cache entry mutated through caller reference: %v", got.FormData["title"])
	}

	// Mutating a Get result must not leak either.
	first := cache.Get("d1", "u1")
	first.FormData["title"] = "also changed"
	if got := cache.Get("d1", "u1"); got.FormData["title"] != "Sunny apartment" {
		t.Errorf("cache entry mutated through read reference: %v", got.FormData["title"])
	}
}

func TestMemoryCacheOwnership(t *testing.T) {
	cache := NewMemoryCache()
	cache.Set(testDraft("d1", "u1"))

	if got := cache.Get("d1", "u2"); got != nil {
		t.Error("expected miss for another user's draft")
	}
	if got := cache.Get("d1", ""); got == nil {
		t.Error("expected hit with empty user filter")
	}
}

func TestMemoryCacheDelete(t *testing.T) {
	cache := NewMemoryCache()
	cache.Set(testDraft("d1", "u1"))
	cache.Delete("d1")
	cache.Delete("d1") // idempotent

	if cache.Get("d1", "u1") != nil {
		t.Error("expected entry removed")
	}
	if cache.Len() != 0 {
		t.Errorf("Len() = %d, want 0", cache.Len())
	}
}

func TestMemoryCacheList(t *testing.T) {
	cache := NewMemoryCache()
	cache.Set(testDraft("d1", "u1"))
	cache.Set(testDraft("d2", "u1"))
	cache.Set(testDraft("d3", "u2"))

	drafts := cache.List("u1")
	if len(drafts) != 2 {
		t.Fatalf("List(u1) returned %d drafts, want 2", len(drafts))
	}
	for _, d := range drafts {
		if d.UserID != "u1" {
			t.Errorf("listed draft %s owned by %s", d.ID, d.UserID)
		}
	}
}

func TestMemoryCacheStats(t *testing.T) {
	cache := NewMemoryCache()
	cache.Set(testDraft("d1", "u1"))

	cache.Get("d1", "u1")
	cache.Get("missing", "u1")

	hits, misses := cache.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses, want 1/1", hits, misses)
	}
}
