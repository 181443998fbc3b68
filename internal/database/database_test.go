// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/casaflow/draftsync/internal/models"
	"github.com/casaflow/draftsync/internal/store"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewInMemory()
	if err != nil {
		t.Fatalf("NewInMemory: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func remoteDraft(id, userID string) *models.Draft {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Draft{
		ID:                   id,
		UserID:               userID,
		WizardType:           models.WizardProperty,
		FormData:             models.FormData{"title": "Penthouse", "price": float64(420000)},
		CurrentStep:          "pricing",
		StepProgress:         map[string]bool{"general": true},
		CompletionPercentage: 20,
		Title:                "Penthouse",
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	draft := remoteDraft("d1", "u1")
	if err := db.Upsert(ctx, draft); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := db.Get(ctx, "d1", "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Penthouse" || got.FormData["title"] != "Penthouse" {
		t.Errorf("round trip lost data: %+v", got)
	}
	if !got.StepProgress["general"] {
		t.Error("step progress lost")
	}
}

func TestUpsertUpdatesInPlace(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	draft := remoteDraft("d1", "u1")
	if err := db.Upsert(ctx, draft); err != nil {
		t.Fatalf("insert: %v", err)
	}
	draft.Title = "Updated"
	draft.CompletionPercentage = 40
	if err := db.Upsert(ctx, draft); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := db.Get(ctx, "d1", "u1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Updated" || got.CompletionPercentage != 40 {
		t.Errorf("update not applied: %+v", got)
	}

	_, total, err := db.List(ctx, "u1", models.ListQuery{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 {
		t.Errorf("upsert duplicated the row: total = %d", total)
	}
}

func TestOwnershipEnforced(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Upsert(ctx, remoteDraft("d1", "u1")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if _, err := db.Get(ctx, "d1", "u2"); !errors.Is(err, store.ErrAccessDenied) {
		t.Errorf("cross-user Get = %v, want ErrAccessDenied", err)
	}
	if err := db.Delete(ctx, "d1", "u2"); !errors.Is(err, store.ErrAccessDenied) {
		t.Errorf("cross-user Delete = %v, want ErrAccessDenied", err)
	}

	hijack := remoteDraft("d1", "u2")
	if err := db.Upsert(ctx, hijack); !errors.Is(err, store.ErrAccessDenied) {
		t.Errorf("cross-user Upsert = %v, want ErrAccessDenied", err)
	}
}

func TestGetMissing(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Get(context.Background(), "ghost", "u1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
}

func TestDeleteCascadesMedia(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Upsert(ctx, remoteDraft("d1", "u1")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	media := []models.DraftMedia{
		{URL: "https://img.example/1.jpg", MediaType: "image"},
		{URL: "https://img.example/2.jpg", MediaType: "floorplan"},
	}
	if err := db.ReplaceMedia(ctx, "d1", "u1", media); err != nil {
		t.Fatalf("ReplaceMedia: %v", err)
	}

	if err := db.Delete(ctx, "d1", "u1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := db.Get(ctx, "d1", "u1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("draft survives delete: %v", err)
	}

	var orphans int
	if err := db.conn.QueryRow(
		`SELECT COUNT(*) FROM draft_media WHERE draft_id = ?`, "d1").Scan(&orphans); err != nil {
		t.Fatalf("count orphans: %v", err)
	}
	if orphans != 0 {
		t.Errorf("%d media rows orphaned after draft delete", orphans)
	}

	// Deleting a missing draft stays a no-op.
	if err := db.Delete(ctx, "d1", "u1"); err != nil {
		t.Errorf("second Delete = %v, want nil", err)
	}
}

func TestListFilterSortPage(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, spec := range []struct {
		id         string
		wizardType string
		completion int
	}{
		{"p1", models.WizardProperty, 20},
		{"p2", models.WizardProperty, 80},
		{"l1", models.WizardLand, 50},
	} {
		d := remoteDraft(spec.id, "u1")
		d.WizardType = spec.wizardType
		d.CompletionPercentage = spec.completion
		d.UpdatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := db.Upsert(ctx, d); err != nil {
			t.Fatalf("Upsert %s: %v", spec.id, err)
		}
	}
	if err := db.Upsert(ctx, remoteDraft("other", "u2")); err != nil {
		t.Fatalf("Upsert other: %v", err)
	}

	t.Run("filter by wizard type", func(t *testing.T) {
		drafts, total, err := db.List(ctx, "u1", models.ListQuery{WizardType: models.WizardProperty})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if total != 2 || len(drafts) != 2 {
			t.Errorf("got %d/%d, want 2/2", len(drafts), total)
		}
	})

	t.Run("sort by completion descending", func(t *testing.T) {
		drafts, _, err := db.List(ctx, "u1", models.ListQuery{
			SortBy:     models.SortByCompletion,
			Descending: true,
		})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if drafts[0].ID != "p2" {
			t.Errorf("first draft = %s, want p2", drafts[0].ID)
		}
	})

	t.Run("paging keeps total", func(t *testing.T) {
		drafts, total, err := db.List(ctx, "u1", models.ListQuery{
			SortBy:     models.SortByUpdatedAt,
			Descending: true,
			Limit:      2,
			Offset:     1,
		})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if total != 3 {
			t.Errorf("total = %d, want 3", total)
		}
		if len(drafts) != 2 || drafts[0].ID != "p2" {
			t.Errorf("page wrong: %+v", drafts)
		}
	})

	t.Run("user partition", func(t *testing.T) {
		_, total, err := db.List(ctx, "u2", models.ListQuery{})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if total != 1 {
			t.Errorf("u2 total = %d, want 1", total)
		}
	})
}

func TestReplaceMediaOverwrites(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Upsert(ctx, remoteDraft("d1", "u1")); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	first := []models.DraftMedia{
		{URL: "https://img.example/old1.jpg"},
		{URL: "https://img.example/old2.jpg"},
	}
	if err := db.ReplaceMedia(ctx, "d1", "u1", first); err != nil {
		t.Fatalf("first ReplaceMedia: %v", err)
	}

	second := []models.DraftMedia{{URL: "https://img.example/new.jpg", MediaType: "image"}}
	if err := db.ReplaceMedia(ctx, "d1", "u1", second); err != nil {
		t.Fatalf("second ReplaceMedia: %v", err)
	}

	media, err := db.GetMedia(ctx, "d1", "u1")
	if err != nil {
		t.Fatalf("GetMedia: %v", err)
	}
	if len(media) != 1 || media[0].URL != "https://img.example/new.jpg" {
		t.Errorf("media = %+v, want single new entry", media)
	}
	if media[0].ID == "" {
		t.Error("media id not assigned")
	}
}

func TestMediaRequiresExistingDraft(t *testing.T) {
	db := openTestDB(t)
	err := db.ReplaceMedia(context.Background(), "ghost", "u1", nil)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("ReplaceMedia(ghost) = %v, want ErrNotFound", err)
	}
}
