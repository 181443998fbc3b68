// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/casaflow/draftsync/internal/logging"
	"github.com/casaflow/draftsync/internal/metrics"
	"github.com/casaflow/draftsync/internal/models"
	"github.com/casaflow/draftsync/internal/progress"
	"github.com/casaflow/draftsync/internal/retry"
)

// WarnMemoryOnly is attached to save results that reached no durable tier.
const WarnMemoryOnly = "draft saved to memory only and will not survive a restart"

// ConnectivityProbe reports whether the process considers itself online.
type ConnectivityProbe interface {
	Online() bool
}

// alwaysOnline is the probe used when none is configured.
type alwaysOnline struct{}

func (alwaysOnline) Online() bool { return true }

// SaveRequest carries one save operation's inputs. DraftID is empty on
// first save; the engine assigns one.
type SaveRequest struct {
	WizardType     string
	WizardConfigID string
	FormData       models.FormData
	CurrentStep    string
	UserID         string
	DraftID        string
}

// TieredStore is the single entry point for draft persistence. It hides
// which physical tier served a request behind a uniform result shape:
// remote first when possible, local storage as fallback, in-process cache
// always written last so it stays the freshest tier.
type TieredStore struct {
	memory   *MemoryCache
	local    *LocalStore
	remote   RemoteStore
	policy   retry.Policy
	progress *progress.Calculator
	probe    ConnectivityProbe

	cleanupAge time.Duration

	// memoryOnly tracks drafts that never reached a durable tier, so the
	// reconciler can push them remote alongside the local backlog.
	backlogMu  sync.Mutex
	memoryOnly map[string]struct{}
}

// TieredOption configures a TieredStore.
type TieredOption func(*TieredStore)

// WithRemote attaches the remote tier.
func WithRemote(remote RemoteStore) TieredOption {
	return func(t *TieredStore) { t.remote = remote }
}

// WithRetryPolicy overrides the remote retry policy.
func WithRetryPolicy(p retry.Policy) TieredOption {
	return func(t *TieredStore) { t.policy = p }
}

// WithProbe attaches the connectivity probe.
func WithProbe(p ConnectivityProbe) TieredOption {
	return func(t *TieredStore) { t.probe = p }
}

// WithCleanupAge overrides the quota-cleanup age threshold.
func WithCleanupAge(age time.Duration) TieredOption {
	return func(t *TieredStore) { t.cleanupAge = age }
}

// NewTieredStore composes the tiers. local is required; remote is optional
// and usually wrapped in a BreakerRemote.
func NewTieredStore(local *LocalStore, calc *progress.Calculator, opts ...TieredOption) *TieredStore {
	t := &TieredStore{
		memory:     NewMemoryCache(),
		local:      local,
		policy:     retry.NewPolicy(),
		progress:   calc,
		probe:      alwaysOnline{},
		cleanupAge: DefaultCleanupAge,
		memoryOnly: map[string]struct{}{},
	}
	if t.progress == nil {
		t.progress = progress.NewCalculator()
	}
	for _, opt := range opts {
		opt(t)
	}
	// Remote transient failures are retried; breaker-open and domain
	// failures are not worth the backoff budget.
	t.policy.Retryable = func(err error) bool {
		return !errors.Is(err, gobreaker.ErrOpenState) &&
			!errors.Is(err, gobreaker.ErrTooManyRequests) &&
			!isHardFailure(err)
	}
	return t
}

// Memory exposes the cache tier for diagnostics.
func (t *TieredStore) Memory() *MemoryCache { return t.memory }

// Local exposes the local tier for the reconciler and diagnostics.
func (t *TieredStore) Local() *LocalStore { return t.local }

// remoteAvailable reports whether a remote attempt makes sense.
func (t *TieredStore) remoteAvailable(userID string) bool {
	return t.remote != nil && userID != "" && t.probe.Online()
}

// SaveDraft persists the draft to the best available tier. Progress and
// the denormalized title/description are recomputed here; caller-supplied
// values are never trusted. The result is success whenever any tier,
// including the in-process cache, accepted the data.
func (t *TieredStore) SaveDraft(ctx context.Context, req SaveRequest) models.SaveResult {
	start := time.Now()

	if req.WizardType == "" {
		return models.SaveResult{Err: fmt.Errorf("save draft: wizard type required")}
	}
	if req.FormData == nil {
		req.FormData = models.FormData{}
	}

	draft := t.buildDraft(req)

	// Remote tier first, wrapped in the retry policy. Failure after
	// retries demotes to the local path without surfacing an error.
	if t.remoteAvailable(req.UserID) {
		err := t.policy.Do(ctx, func(ctx context.Context) error {
			return t.remote.Upsert(ctx, draft)
		})
		if err == nil {
			// Remote is authoritative now; the local backup is noise.
			if derr := t.local.Delete(draft.ID); derr != nil && !errors.Is(derr, ErrStoreClosed) {
				logging.Warn().Err(derr).Str("draft_id", draft.ID).Msg("failed to clear local backup after remote save")
			}
			t.memory.Set(draft)
			t.clearMemoryOnly(draft.ID)
			t.observeSave(models.SourceRemote, start)
			return models.SaveResult{Success: true, DraftID: draft.ID, Source: models.SourceRemote}
		}
		logging.Warn().Err(err).Str("draft_id", draft.ID).Msg("remote save failed, falling back to local storage")
		metrics.RecordFallback(string(models.SourceRemote), string(models.SourceLocal))
	}

	// Local tier, with one cleanup-and-retry pass on quota pressure.
	if err := t.putLocal(draft); err == nil {
		t.memory.Set(draft)
		t.clearMemoryOnly(draft.ID)
		t.observeSave(models.SourceLocal, start)
		return models.SaveResult{Success: true, DraftID: draft.ID, Source: models.SourceLocal}
	}

	// Memory only. Still a success; the caller may surface the warning.
	metrics.RecordFallback(string(models.SourceLocal), string(models.SourceMemory))
	t.memory.Set(draft)
	t.markMemoryOnly(draft.ID)
	t.observeSave(models.SourceMemory, start)
	return models.SaveResult{
		Success: true,
		DraftID: draft.ID,
		Source:  models.SourceMemory,
		Warning: WarnMemoryOnly,
	}
}

// buildDraft assembles the record to persist, preserving CreatedAt across
// updates and recomputing everything derived.
func (t *TieredStore) buildDraft(req SaveRequest) *models.Draft {
	now := time.Now().UTC()

	draftID := req.DraftID
	createdAt := now
	if draftID == "" {
		draftID = models.NewDraftID(req.WizardType, req.UserID)
	} else if prior := t.priorDraft(draftID); prior != nil && !prior.CreatedAt.IsZero() {
		createdAt = prior.CreatedAt
	}

	stepProgress, percentage := t.progress.Calculate(req.WizardType, req.FormData)

	return &models.Draft{
		ID:                   draftID,
		UserID:               req.UserID,
		WizardType:           req.WizardType,
		WizardConfigID:       req.WizardConfigID,
		FormData:             req.FormData,
		CurrentStep:          req.CurrentStep,
		StepProgress:         stepProgress,
		CompletionPercentage: percentage,
		Title:                models.ExtractTitle(req.FormData),
		Description:          models.ExtractDescription(req.FormData),
		CreatedAt:            createdAt,
		UpdatedAt:            now,
	}
}

// priorDraft looks up the existing record in the cheap tiers only.
func (t *TieredStore) priorDraft(draftID string) *models.Draft {
	if d := t.memory.Get(draftID, ""); d != nil {
		return d
	}
	if d, err := t.local.Get(draftID, ""); err == nil {
		return d
	}
	return nil
}

// putLocal writes to the local tier, running one cleanup pass when the
// quota rejects the write.
func (t *TieredStore) putLocal(draft *models.Draft) error {
	err := t.local.Put(draft)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		logging.Warn().Err(err).Str("draft_id", draft.ID).Msg("local save failed")
		return err
	}

	metrics.QuotaCleanupsTotal.Inc()
	if removed, cerr := t.local.Cleanup(t.cleanupAge); cerr != nil {
		logging.Warn().Err(cerr).Msg("quota cleanup failed")
	} else {
		logging.Info().Int("removed", removed).Msg("quota cleanup before local save retry")
	}

	if err := t.local.Put(draft); err != nil {
		logging.Warn().Err(err).Str("draft_id", draft.ID).Msg("local save failed after cleanup")
		return err
	}
	return nil
}

func (t *TieredStore) observeSave(source models.StorageSource, start time.Time) {
	metrics.RecordSave(string(source), time.Since(start).Seconds())
	metrics.MemoryCacheEntries.Set(float64(t.memory.Len()))
	metrics.LocalStoreBytes.Set(float64(t.local.SizeBytes()))
}

// LoadDraft reads the draft from the first tier that holds it: cache,
// then remote, then local storage. The winning record is written back
// into the cache before returning. Access denied from the remote tier is
// a hard failure; it never silently falls through to another tier.
func (t *TieredStore) LoadDraft(ctx context.Context, draftID, userID string) models.LoadResult {
	if draftID == "" {
		return models.LoadResult{Err: fmt.Errorf("load draft: id required")}
	}

	if draft := t.memory.Get(draftID, userID); draft != nil {
		metrics.RecordLoad(string(models.SourceMemory))
		return models.LoadResult{Success: true, Draft: draft, Source: models.SourceMemory}
	}

	if t.remoteAvailable(userID) {
		draft, err := t.remote.Get(ctx, draftID, userID)
		switch {
		case err == nil:
			t.memory.Set(draft)
			metrics.RecordLoad(string(models.SourceRemote))
			return models.LoadResult{Success: true, Draft: draft, Source: models.SourceRemote}
		case errors.Is(err, ErrAccessDenied):
			return models.LoadResult{Err: ErrAccessDenied}
		case errors.Is(err, ErrNotFound):
			// Fall through to local.
		default:
			logging.Warn().Err(err).Str("draft_id", draftID).Msg("remote load failed, trying local storage")
		}
	}

	draft, err := t.local.Get(draftID, userID)
	if err == nil {
		t.memory.Set(draft)
		metrics.RecordLoad(string(models.SourceLocal))
		return models.LoadResult{Success: true, Draft: draft, Source: models.SourceLocal}
	}
	if errors.Is(err, ErrCorruptRecord) {
		metrics.CorruptRecordsTotal.Inc()
	}

	return models.LoadResult{Err: ErrNotFound}
}

// DeleteDraft removes the draft from every tier independently and
// aggregates the outcomes. A tier that never held the record reports
// success, which makes deletion idempotent.
func (t *TieredStore) DeleteDraft(ctx context.Context, draftID, userID string) models.DeleteResult {
	var outcomes []models.TierOutcome

	t.memory.Delete(draftID)
	t.clearMemoryOnly(draftID)
	outcomes = append(outcomes, models.TierOutcome{Tier: models.SourceMemory})

	if t.remoteAvailable(userID) {
		err := t.policy.Do(ctx, func(ctx context.Context) error {
			return t.remote.Delete(ctx, draftID, userID)
		})
		if err != nil && !errors.Is(err, ErrNotFound) {
			outcomes = append(outcomes, models.TierOutcome{Tier: models.SourceRemote, Err: err})
		} else {
			outcomes = append(outcomes, models.TierOutcome{Tier: models.SourceRemote})
		}
	}

	if err := t.local.Delete(draftID); err != nil {
		outcomes = append(outcomes, models.TierOutcome{Tier: models.SourceLocal, Err: err})
	} else {
		outcomes = append(outcomes, models.TierOutcome{Tier: models.SourceLocal})
	}

	success := true
	for _, o := range outcomes {
		if !o.OK() {
			success = false
			logging.Warn().Err(o.Err).Str("draft_id", draftID).Str("tier", string(o.Tier)).Msg("tier delete failed")
		}
	}
	outcome := "success"
	if !success {
		outcome = "partial"
	}
	metrics.DeletesTotal.WithLabelValues(outcome).Inc()
	metrics.MemoryCacheEntries.Set(float64(t.memory.Len()))

	return models.DeleteResult{Success: success, Tiers: outcomes}
}

// ListDrafts returns the user's drafts. Remote-backed when online;
// otherwise the union of cache and local storage, deduplicated by id with
// the cache winning.
func (t *TieredStore) ListDrafts(ctx context.Context, userID string, q models.ListQuery) models.ListResult {
	if userID == "" {
		return models.ListResult{Err: ErrNoIdentity}
	}

	if t.remoteAvailable(userID) {
		drafts, total, err := t.remote.List(ctx, userID, q)
		if err == nil {
			return models.ListResult{Success: true, Drafts: drafts, Total: total, Source: models.SourceRemote}
		}
		logging.Warn().Err(err).Str("user_id", userID).Msg("remote list failed, using offline tiers")
	}

	merged := map[string]*models.Draft{}
	if locals, err := t.local.List(userID); err == nil {
		for _, d := range locals {
			merged[d.ID] = d
		}
	}
	for _, d := range t.memory.List(userID) {
		merged[d.ID] = d // cache wins
	}

	drafts := make([]*models.Draft, 0, len(merged))
	for _, d := range merged {
		if q.WizardType != "" && d.WizardType != q.WizardType {
			continue
		}
		if q.WizardConfigID != "" && d.WizardConfigID != q.WizardConfigID {
			continue
		}
		drafts = append(drafts, d)
	}

	sortDrafts(drafts, q.SortBy, q.Descending)
	total := len(drafts)
	drafts = paginate(drafts, q.Offset, q.Limit)

	return models.ListResult{Success: true, Drafts: drafts, Total: total, Source: models.SourceLocal}
}

// HasDraft reports whether any tier holds the draft and which one
// answered first.
func (t *TieredStore) HasDraft(ctx context.Context, draftID, userID string) (bool, models.StorageSource) {
	if t.memory.Has(draftID, userID) {
		return true, models.SourceMemory
	}
	if t.local.Has(draftID, userID) {
		return true, models.SourceLocal
	}
	if t.remoteAvailable(userID) {
		if _, err := t.remote.Get(ctx, draftID, userID); err == nil {
			return true, models.SourceRemote
		}
	}
	return false, ""
}

// SaveWizardMedia bulk-replaces a draft's media on the remote tier.
// Media requires connectivity and identity; there is no offline tier for
// attachments.
func (t *TieredStore) SaveWizardMedia(ctx context.Context, draftID, userID string, media []models.DraftMedia) error {
	if t.remote == nil {
		return ErrNoRemote
	}
	if userID == "" {
		return ErrNoIdentity
	}
	if !t.probe.Online() {
		return ErrOffline
	}
	return t.policy.Do(ctx, func(ctx context.Context) error {
		return t.remote.ReplaceMedia(ctx, draftID, userID, media)
	})
}

// LoadWizardMedia returns a draft's media from the remote tier.
func (t *TieredStore) LoadWizardMedia(ctx context.Context, draftID, userID string) ([]models.DraftMedia, error) {
	if t.remote == nil {
		return nil, ErrNoRemote
	}
	if userID == "" {
		return nil, ErrNoIdentity
	}
	if !t.probe.Online() {
		return nil, ErrOffline
	}
	return t.remote.GetMedia(ctx, draftID, userID)
}

// PushRemote writes one draft straight to the remote tier with the usual
// retry policy. Used by the sync reconciler; on success the local backup
// is cleared and the cache refreshed.
func (t *TieredStore) PushRemote(ctx context.Context, draft *models.Draft) error {
	if t.remote == nil {
		return ErrNoRemote
	}
	err := t.policy.Do(ctx, func(ctx context.Context) error {
		return t.remote.Upsert(ctx, draft)
	})
	if err != nil {
		return err
	}
	if derr := t.local.Delete(draft.ID); derr != nil && !errors.Is(derr, ErrStoreClosed) {
		logging.Warn().Err(derr).Str("draft_id", draft.ID).Msg("failed to clear local backup after sync push")
	}
	t.memory.Set(draft)
	t.clearMemoryOnly(draft.ID)
	return nil
}

func (t *TieredStore) markMemoryOnly(draftID string) {
	t.backlogMu.Lock()
	t.memoryOnly[draftID] = struct{}{}
	t.backlogMu.Unlock()
}

func (t *TieredStore) clearMemoryOnly(draftID string) {
	t.backlogMu.Lock()
	delete(t.memoryOnly, draftID)
	t.backlogMu.Unlock()
}

// MemoryBacklog returns cached drafts that never reached a durable tier,
// filtered by owner. An empty userID returns every user's backlog.
func (t *TieredStore) MemoryBacklog(userID string) []*models.Draft {
	t.backlogMu.Lock()
	ids := make([]string, 0, len(t.memoryOnly))
	for id := range t.memoryOnly {
		ids = append(ids, id)
	}
	t.backlogMu.Unlock()

	drafts := make([]*models.Draft, 0, len(ids))
	for _, id := range ids {
		if d := t.memory.Get(id, userID); d != nil {
			drafts = append(drafts, d)
		}
	}
	return drafts
}

// ClearCache drops the in-process cache. Durable tiers are untouched.
// Memory-only drafts are lost with it, so the backlog resets too.
func (t *TieredStore) ClearCache() {
	t.memory.Clear()
	t.backlogMu.Lock()
	t.memoryOnly = map[string]struct{}{}
	t.backlogMu.Unlock()
	metrics.MemoryCacheEntries.Set(0)
}

// Diagnostics snapshots the engine's storage internals. The pending-timer
// count belongs to the autosave scheduler and is filled in by the caller.
func (t *TieredStore) Diagnostics() models.Diagnostics {
	return models.Diagnostics{
		MemoryCacheSize:   t.memory.Len(),
		LocalStorageKeys:  t.local.KeyCount(),
		LocalStorageBytes: t.local.SizeBytes(),
	}
}

// Close shuts down the local tier. The remote tier's lifecycle belongs to
// whoever constructed it.
func (t *TieredStore) Close() error {
	return t.local.Close()
}

// sortDrafts orders drafts by the requested field, updatedAt descending
// by default.
func sortDrafts(drafts []*models.Draft, field models.SortField, descending bool) {
	if field == "" {
		field = models.SortByUpdatedAt
		descending = true
	}
	sort.SliceStable(drafts, func(i, j int) bool {
		var less bool
		switch field {
		case models.SortByCreatedAt:
			less = drafts[i].CreatedAt.Before(drafts[j].CreatedAt)
		case models.SortByCompletion:
			less = drafts[i].CompletionPercentage < drafts[j].CompletionPercentage
		default:
			less = drafts[i].UpdatedAt.Before(drafts[j].UpdatedAt)
		}
		if descending {
			return !less && !draftsEqual(drafts[i], drafts[j], field)
		}
		return less
	})
}

// draftsEqual keeps the descending comparator strict-weak.
func draftsEqual(a, b *models.Draft, field models.SortField) bool {
	switch field {
	case models.SortByCreatedAt:
		return a.CreatedAt.Equal(b.CreatedAt)
	case models.SortByCompletion:
		return a.CompletionPercentage == b.CompletionPercentage
	default:
		return a.UpdatedAt.Equal(b.UpdatedAt)
	}
}

// paginate applies offset/limit semantics; a zero limit means no limit.
func paginate(drafts []*models.Draft, offset, limit int) []*models.Draft {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(drafts) {
		return []*models.Draft{}
	}
	drafts = drafts[offset:]
	if limit > 0 && limit < len(drafts) {
		drafts = drafts[:limit]
	}
	return drafts
}
