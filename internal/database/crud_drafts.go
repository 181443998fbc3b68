// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/casaflow/draftsync/internal/models"
	"github.com/casaflow/draftsync/internal/store"
)

const draftColumns = `id, user_id, wizard_type, wizard_config_id, form_data,
	current_step, step_progress, completion_percentage, title, description,
	created_at, updated_at`

// Upsert implements store.RemoteStore. An existing row owned by another
// user is never overwritten; the write fails with ErrAccessDenied.
func (db *DB) Upsert(ctx context.Context, draft *models.Draft) error {
	owner, err := db.ownerOf(ctx, draft.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if err == nil && owner != draft.UserID {
		return store.ErrAccessDenied
	}

	formData, err := json.Marshal(draft.FormData)
	if err != nil {
		return fmt.Errorf("marshal form data: %w", err)
	}
	stepProgress, err := json.Marshal(draft.StepProgress)
	if err != nil {
		return fmt.Errorf("marshal step progress: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO drafts (`+draftColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			wizard_type = excluded.wizard_type,
			wizard_config_id = excluded.wizard_config_id,
			form_data = excluded.form_data,
			current_step = excluded.current_step,
			step_progress = excluded.step_progress,
			completion_percentage = excluded.completion_percentage,
			title = excluded.title,
			description = excluded.description,
			updated_at = excluded.updated_at`,
		draft.ID, draft.UserID, draft.WizardType, draft.WizardConfigID,
		string(formData), draft.CurrentStep, string(stepProgress),
		draft.CompletionPercentage, draft.Title, draft.Description,
		draft.CreatedAt, draft.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert draft %s: %w", draft.ID, err)
	}
	return nil
}

// Get implements store.RemoteStore. The media list is attached.
func (db *DB) Get(ctx context.Context, draftID, userID string) (*models.Draft, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+draftColumns+` FROM drafts WHERE id = ?`, draftID)
	draft, err := scanDraft(row)
	if err != nil {
		return nil, err
	}
	if draft.UserID != userID {
		return nil, store.ErrAccessDenied
	}

	media, err := db.mediaFor(ctx, draftID)
	if err != nil {
		return nil, err
	}
	draft.Media = media
	return draft, nil
}

// Delete implements store.RemoteStore. The draft's media rows are removed
// in the same transaction. Deleting a missing draft is a no-op.
func (db *DB) Delete(ctx context.Context, draftID, userID string) error {
	owner, err := db.ownerOf(ctx, draftID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if owner != userID {
		return store.ErrAccessDenied
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM draft_media WHERE draft_id = ?`, draftID); err != nil {
		return fmt.Errorf("delete media for draft %s: %w", draftID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM drafts WHERE id = ? AND user_id = ?`, draftID, userID); err != nil {
		return fmt.Errorf("delete draft %s: %w", draftID, err)
	}
	return tx.Commit()
}

// List implements store.RemoteStore.
func (db *DB) List(ctx context.Context, userID string, q models.ListQuery) ([]*models.Draft, int, error) {
	where := []string{"user_id = ?"}
	args := []interface{}{userID}
	if q.WizardType != "" {
		where = append(where, "wizard_type = ?")
		args = append(args, q.WizardType)
	}
	if q.WizardConfigID != "" {
		where = append(where, "wizard_config_id = ?")
		args = append(args, q.WizardConfigID)
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM drafts WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count drafts: %w", err)
	}

	query := `SELECT ` + draftColumns + ` FROM drafts WHERE ` + clause +
		` ORDER BY ` + orderColumn(q.SortBy) + direction(q.Descending)
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var drafts []*models.Draft
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, 0, err
		}
		drafts = append(drafts, draft)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list drafts: %w", err)
	}
	return drafts, total, nil
}

// ownerOf returns the user_id of a draft row, or ErrNotFound.
func (db *DB) ownerOf(ctx context.Context, draftID string) (string, error) {
	var owner string
	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id FROM drafts WHERE id = ?`, draftID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("look up draft owner: %w", err)
	}
	return owner, nil
}

// orderColumn maps the API sort field to its column. Unknown fields fall
// back to updated_at, matching the engine's in-memory sort.
func orderColumn(field models.SortField) string {
	switch field {
	case models.SortByCreatedAt:
		return "created_at"
	case models.SortByCompletion:
		return "completion_percentage"
	default:
		return "updated_at"
	}
}

func direction(descending bool) string {
	if descending {
		return " DESC"
	}
	return " ASC"
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDraft(row rowScanner) (*models.Draft, error) {
	var (
		draft        models.Draft
		formData     string
		stepProgress string
	)
	err := row.Scan(&draft.ID, &draft.UserID, &draft.WizardType,
		&draft.WizardConfigID, &formData, &draft.CurrentStep, &stepProgress,
		&draft.CompletionPercentage, &draft.Title, &draft.Description,
		&draft.CreatedAt, &draft.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan draft: %w", err)
	}

	if err := json.Unmarshal([]byte(formData), &draft.FormData); err != nil {
		return nil, fmt.Errorf("decode form data for %s: %w", draft.ID, err)
	}
	if err := json.Unmarshal([]byte(stepProgress), &draft.StepProgress); err != nil {
		return nil, fmt.Errorf("decode step progress for %s: %w", draft.ID, err)
	}
	return &draft, nil
}
