// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package models

import "time"

// DraftMedia is a media record attached to a draft. Each record is owned
// by exactly one draft and is deleted with it (cascade).
type DraftMedia struct {
	ID        string    `json:"id"`
	DraftID   string    `json:"draft_id"`
	URL       string    `json:"url"`
	MediaType string    `json:"media_type"` // image, video, document, floorplan
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}
