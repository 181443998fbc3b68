// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/casaflow/draftsync/internal/logging"
	"github.com/casaflow/draftsync/internal/models"
	"github.com/casaflow/draftsync/internal/store"
)

// SaveDraftRequest is the body for save and autosave.
type SaveDraftRequest struct {
	WizardType     string          `json:"wizard_type" validate:"required,min=1,max=64"`
	WizardConfigID string          `json:"wizard_config_id" validate:"max=128"`
	FormData       models.FormData `json:"form_data" validate:"required"`
	CurrentStep    string          `json:"current_step" validate:"max=128"`
	DraftID        string          `json:"draft_id" validate:"max=256"`
}

// MediaRequest is the body for media replacement.
type MediaRequest struct {
	Media []MediaItem `json:"media" validate:"required,dive"`
}

// MediaItem is one media attachment in a MediaRequest.
type MediaItem struct {
	ID        string `json:"id" validate:"max=128"`
	URL       string `json:"url" validate:"required,max=2048"`
	MediaType string `json:"media_type" validate:"omitempty,oneof=image video document floorplan"`
}

func (req *SaveDraftRequest) toSave(user string) store.SaveRequest {
	return store.SaveRequest{
		WizardType:     req.WizardType,
		WizardConfigID: req.WizardConfigID,
		FormData:       req.FormData,
		CurrentStep:    req.CurrentStep,
		UserID:         user,
		DraftID:        req.DraftID,
	}
}

// SaveDraft persists immediately through the tier chain.
//
// POST /api/v1/drafts
func (h *Handler) SaveDraft(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var req SaveDraftRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result := h.engine.SaveDraft(r.Context(), req.toSave(user))
	if result.Warning != "" {
		logging.Ctx(r.Context()).Warn().
			Str("draft_id", result.DraftID).
			Str("warning", result.Warning).
			Msg("degraded save")
	}
	writeSaveResult(w, result)
}

// AutosaveDraft debounces the save and responds once the collapsed write
// lands. Rapid successive calls for the same draft share one outcome.
//
// POST /api/v1/drafts/autosave
func (h *Handler) AutosaveDraft(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	var req SaveDraftRequest
	if !decodeBody(w, r, &req) {
		return
	}

	done := h.scheduler.Schedule(req.toSave(user))
	select {
	case result := <-done:
		writeSaveResult(w, result)
	case <-r.Context().Done():
		// Client went away; the debounced save still fires.
		respondError(w, http.StatusRequestTimeout, "CLIENT_GONE",
			"request canceled before the autosave fired", r.Context().Err())
	}
}

func writeSaveResult(w http.ResponseWriter, result models.SaveResult) {
	if !result.Success {
		respondError(w, http.StatusInternalServerError, "SAVE_FAILED",
			"draft could not be persisted to any tier", result.Err)
		return
	}
	respondOK(w, http.StatusOK, result, models.Metadata{
		Source:  string(result.Source),
		Warning: result.Warning,
	})
}

// LoadDraft returns one draft, freshest tier first.
//
// GET /api/v1/drafts/{draftID}
func (h *Handler) LoadDraft(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	draftID := chi.URLParam(r, "draftID")

	result := h.engine.LoadDraft(r.Context(), draftID, user)
	if !result.Success {
		switch {
		case errors.Is(result.Err, store.ErrAccessDenied):
			respondError(w, http.StatusForbidden, "ACCESS_DENIED",
				"draft belongs to another user", nil)
		case errors.Is(result.Err, store.ErrNotFound):
			respondError(w, http.StatusNotFound, "NOT_FOUND", "draft not found", nil)
		default:
			respondError(w, http.StatusInternalServerError, "LOAD_FAILED",
				"draft could not be loaded", result.Err)
		}
		return
	}
	respondOK(w, http.StatusOK, result.Draft, models.Metadata{Source: string(result.Source)})
}

// HasDraft reports existence without transferring the payload.
//
// GET /api/v1/drafts/{draftID}/exists
func (h *Handler) HasDraft(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	draftID := chi.URLParam(r, "draftID")

	exists, source := h.engine.HasDraft(r.Context(), draftID, user)
	respondOK(w, http.StatusOK, map[string]bool{"exists": exists},
		models.Metadata{Source: string(source)})
}

// DeleteDraft removes the draft from every tier. Idempotent.
//
// DELETE /api/v1/drafts/{draftID}
func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	draftID := chi.URLParam(r, "draftID")

	result := h.engine.DeleteDraft(r.Context(), draftID, user)
	h.scheduler.Cancel(draftID)

	if !result.Success {
		respondError(w, http.StatusInternalServerError, "DELETE_PARTIAL",
			"draft could not be removed from every tier", firstTierErr(result))
		return
	}
	respondOK(w, http.StatusOK, result, models.Metadata{})
}

func firstTierErr(result models.DeleteResult) error {
	for _, tier := range result.Tiers {
		if tier.Err != nil {
			return tier.Err
		}
	}
	return nil
}

// ListDrafts returns the caller's drafts with filtering, sorting and
// pagination.
//
// GET /api/v1/drafts
func (h *Handler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}

	q := models.ListQuery{
		WizardType:     r.URL.Query().Get("wizard_type"),
		WizardConfigID: r.URL.Query().Get("wizard_config_id"),
		SortBy:         models.SortField(r.URL.Query().Get("sort_by")),
		Descending:     r.URL.Query().Get("order") != "asc",
		Offset:         getIntParam(r, "offset", 0),
		Limit:          getIntParam(r, "limit", 50),
	}
	if q.Limit < 0 || q.Limit > 200 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	result := h.engine.ListDrafts(r.Context(), user, q)
	if !result.Success {
		respondError(w, http.StatusInternalServerError, "LIST_FAILED",
			"drafts could not be listed", result.Err)
		return
	}
	respondOK(w, http.StatusOK, result.Drafts, models.Metadata{
		Count:  len(result.Drafts),
		Total:  result.Total,
		Source: string(result.Source),
	})
}

// FlushAutosaves fires every pending debounced save immediately.
//
// POST /api/v1/drafts/flush
func (h *Handler) FlushAutosaves(w http.ResponseWriter, r *http.Request) {
	if _, ok := userID(w, r); !ok {
		return
	}
	h.scheduler.Flush()
	respondOK(w, http.StatusOK, map[string]string{"flushed": "all"}, models.Metadata{})
}

// ReplaceMedia stores the draft's media list on the remote tier.
//
// PUT /api/v1/drafts/{draftID}/media
func (h *Handler) ReplaceMedia(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	draftID := chi.URLParam(r, "draftID")

	var req MediaRequest
	if !decodeBody(w, r, &req) {
		return
	}

	media := make([]models.DraftMedia, len(req.Media))
	now := time.Now().UTC()
	for i, item := range req.Media {
		media[i] = models.DraftMedia{
			ID:        item.ID,
			DraftID:   draftID,
			URL:       item.URL,
			MediaType: item.MediaType,
			Position:  i,
			CreatedAt: now,
		}
	}

	if err := h.engine.SaveWizardMedia(r.Context(), draftID, user, media); err != nil {
		writeMediaErr(w, err)
		return
	}
	respondOK(w, http.StatusOK, map[string]int{"count": len(media)}, models.Metadata{})
}

// GetMedia returns the draft's media list from the remote tier.
//
// GET /api/v1/drafts/{draftID}/media
func (h *Handler) GetMedia(w http.ResponseWriter, r *http.Request) {
	user, ok := userID(w, r)
	if !ok {
		return
	}
	draftID := chi.URLParam(r, "draftID")

	media, err := h.engine.LoadWizardMedia(r.Context(), draftID, user)
	if err != nil {
		writeMediaErr(w, err)
		return
	}
	respondOK(w, http.StatusOK, media, models.Metadata{Count: len(media)})
}

func writeMediaErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrAccessDenied):
		respondError(w, http.StatusForbidden, "ACCESS_DENIED",
			"draft belongs to another user", nil)
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "draft not found", nil)
	case errors.Is(err, store.ErrNoRemote), errors.Is(err, store.ErrOffline):
		respondError(w, http.StatusServiceUnavailable, "REMOTE_UNAVAILABLE",
			"media operations require the remote tier", err)
	default:
		respondError(w, http.StatusInternalServerError, "MEDIA_FAILED",
			"media operation failed", err)
	}
}
