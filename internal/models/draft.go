// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

// Package models defines the shared data types for Draftsync: the Draft
// record, its media attachments, and the result shapes returned across the
// engine's public boundary.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StorageSource identifies which tier actually served an operation.
type StorageSource string

const (
	// SourceMemory means the in-process cache answered.
	SourceMemory StorageSource = "memory"

	// SourceLocal means the persistent local store answered.
	SourceLocal StorageSource = "localStorage"

	// SourceRemote means the remote database answered.
	SourceRemote StorageSource = "database"
)

// Well-known wizard types. The set is extensible; unknown types fall back
// to the generic progress rules.
const (
	WizardProperty = "property"
	WizardLand     = "land"
	WizardBlog     = "blog"
)

// FormData is the opaque wizard payload. The engine serializes and
// compresses it but never interprets its shape beyond the progress
// predicates and the title/description denormalization.
type FormData map[string]interface{}

// Draft is the unit of persistence.
type Draft struct {
	// ID is immutable once assigned. Format:
	// {wizardType}_{userFragment}_{unixMillis}_{random}
	ID string `json:"id"`

	// UserID is the owner. Drafts are strictly partitioned by owner.
	UserID string `json:"user_id"`

	// WizardType selects the progress rules (property, land, blog, ...).
	WizardType string `json:"wizard_type"`

	// WizardConfigID identifies which step sequence produced this draft.
	WizardConfigID string `json:"wizard_config_id"`

	// FormData is the caller-defined payload.
	FormData FormData `json:"form_data"`

	// CurrentStep is the step the user was on when last saved.
	CurrentStep string `json:"current_step"`

	// StepProgress maps step name to "required data present". Derived
	// from FormData at save time, never trusted from the caller.
	StepProgress map[string]bool `json:"step_progress"`

	// CompletionPercentage is 0-100, derived alongside StepProgress.
	CompletionPercentage int `json:"completion_percentage"`

	// Title and Description are denormalized from FormData for list views.
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Media is populated by the remote tier only.
	Media []DraftMedia `json:"media,omitempty"`
}

// NewDraftID generates a fresh draft identifier. The user fragment keeps
// IDs readable when debugging; uniqueness comes from the UUID fragment.
func NewDraftID(wizardType, userID string) string {
	fragment := "anon"
	if userID != "" {
		fragment = userID
		if len(fragment) > 8 {
			fragment = fragment[:8]
		}
	}
	random := strings.ReplaceAll(uuid.New().String(), "-", "")[:9]
	return fmt.Sprintf("%s_%s_%d_%s", wizardType, fragment, time.Now().UnixMilli(), random)
}

// ExtractTitle pulls the denormalized list-view title out of a payload.
// Falls back through the field names the wizard schemas use.
func ExtractTitle(data FormData) string {
	return firstString(data, "title", "name", "subject")
}

// ExtractDescription pulls the denormalized list-view description.
func ExtractDescription(data FormData) string {
	return firstString(data, "description", "summary", "excerpt")
}

func firstString(data FormData, keys ...string) string {
	for _, key := range keys {
		if v, ok := data[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

// Clone returns a deep-enough copy of the draft for safe hand-off across
// goroutines. FormData values are shared; callers must not mutate nested
// structures of a loaded draft.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	out := *d
	if d.FormData != nil {
		out.FormData = make(FormData, len(d.FormData))
		for k, v := range d.FormData {
			out.FormData[k] = v
		}
	}
	if d.StepProgress != nil {
		out.StepProgress = make(map[string]bool, len(d.StepProgress))
		for k, v := range d.StepProgress {
			out.StepProgress[k] = v
		}
	}
	if d.Media != nil {
		out.Media = append([]DraftMedia(nil), d.Media...)
	}
	return &out
}
