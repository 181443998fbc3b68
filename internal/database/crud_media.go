// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/casaflow/draftsync/internal/models"
	"github.com/casaflow/draftsync/internal/store"
)

// ReplaceMedia implements store.RemoteStore. The draft's media set is
// replaced atomically: delete all rows, then insert the new list in
// position order.
func (db *DB) ReplaceMedia(ctx context.Context, draftID, userID string, media []models.DraftMedia) error {
	owner, err := db.ownerOf(ctx, draftID)
	if err != nil {
		return err
	}
	if owner != userID {
		return store.ErrAccessDenied
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin media replace: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM draft_media WHERE draft_id = ?`, draftID); err != nil {
		return fmt.Errorf("clear media for draft %s: %w", draftID, err)
	}

	now := time.Now().UTC()
	for i, m := range media {
		id := m.ID
		if id == "" {
			id = uuid.New().String()
		}
		createdAt := m.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO draft_media (id, draft_id, url, media_type, position, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, draftID, m.URL, m.MediaType, i, createdAt); err != nil {
			return fmt.Errorf("insert media for draft %s: %w", draftID, err)
		}
	}
	return tx.Commit()
}

// GetMedia implements store.RemoteStore.
func (db *DB) GetMedia(ctx context.Context, draftID, userID string) ([]models.DraftMedia, error) {
	owner, err := db.ownerOf(ctx, draftID)
	if err != nil {
		return nil, err
	}
	if owner != userID {
		return nil, store.ErrAccessDenied
	}
	return db.mediaFor(ctx, draftID)
}

func (db *DB) mediaFor(ctx context.Context, draftID string) ([]models.DraftMedia, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, draft_id, url, media_type, position, created_at
		FROM draft_media WHERE draft_id = ? ORDER BY position`, draftID)
	if err != nil {
		return nil, fmt.Errorf("query media for draft %s: %w", draftID, err)
	}
	defer rows.Close()

	var media []models.DraftMedia
	for rows.Next() {
		var m models.DraftMedia
		if err := rows.Scan(&m.ID, &m.DraftID, &m.URL, &m.MediaType,
			&m.Position, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan media row: %w", err)
		}
		media = append(media, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query media for draft %s: %w", draftID, err)
	}
	return media, nil
}
