// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package store

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/casaflow/draftsync/internal/models"
)

// RemoteStore is the remote database tier. Implementations must reject
// access to a draft whose owner does not match the caller with
// ErrAccessDenied, and report a missing draft with ErrNotFound.
type RemoteStore interface {
	// Upsert writes the full draft record keyed by (draft.ID, draft.UserID).
	Upsert(ctx context.Context, draft *models.Draft) error

	// Get returns the draft with its media list.
	Get(ctx context.Context, draftID, userID string) (*models.Draft, error)

	// Delete removes the draft and cascades to its media. Deleting a
	// missing draft is a no-op, not an error.
	Delete(ctx context.Context, draftID, userID string) error

	// List returns the user's drafts ordered and paged per the query,
	// plus the total matching count before pagination.
	List(ctx context.Context, userID string, q models.ListQuery) ([]*models.Draft, int, error)

	// ReplaceMedia bulk-replaces the media attached to a draft
	// (delete-all-then-insert).
	ReplaceMedia(ctx context.Context, draftID, userID string, media []models.DraftMedia) error

	// GetMedia returns the media attached to a draft, ordered by position.
	GetMedia(ctx context.Context, draftID, userID string) ([]models.DraftMedia, error)
}

// BreakerConfig tunes the circuit breaker guarding remote calls.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that trips the
	// breaker. Default: 5
	FailureThreshold uint32

	// OpenTimeout is how long the breaker stays open before probing.
	// Default: 30s
	OpenTimeout time.Duration

	// MaxHalfOpenRequests bounds probe requests while half-open.
	// Default: 1
	MaxHalfOpenRequests uint32
}

// DefaultBreakerConfig returns production defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:    5,
		OpenTimeout:         30 * time.Second,
		MaxHalfOpenRequests: 1,
	}
}

// BreakerRemote wraps a RemoteStore with a gobreaker circuit breaker so a
// flapping remote tier fails fast instead of burning the retry budget on
// every save. Hard domain failures (not found, access denied) pass through
// without counting against the breaker.
type BreakerRemote struct {
	inner   RemoteStore
	breaker *gobreaker.CircuitBreaker[interface{}]
}

// NewBreakerRemote wraps inner with circuit-breaker protection.
func NewBreakerRemote(inner RemoteStore, cfg BreakerConfig) *BreakerRemote {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.MaxHalfOpenRequests == 0 {
		cfg.MaxHalfOpenRequests = 1
	}

	settings := gobreaker.Settings{
		Name:        "remote-draft-store",
		MaxRequests: cfg.MaxHalfOpenRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// Domain outcomes are not remote-health signals.
			switch {
			case err == nil, isHardFailure(err):
				return true
			default:
				return false
			}
		},
	}

	return &BreakerRemote{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[interface{}](settings),
	}
}

// State returns the breaker state as a string for diagnostics.
func (b *BreakerRemote) State() string {
	return b.breaker.State().String()
}

func (b *BreakerRemote) execute(op func() (interface{}, error)) (interface{}, error) {
	return b.breaker.Execute(op)
}

// Upsert implements RemoteStore.
func (b *BreakerRemote) Upsert(ctx context.Context, draft *models.Draft) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.inner.Upsert(ctx, draft)
	})
	return err
}

// Get implements RemoteStore.
func (b *BreakerRemote) Get(ctx context.Context, draftID, userID string) (*models.Draft, error) {
	v, err := b.execute(func() (interface{}, error) {
		return b.inner.Get(ctx, draftID, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Draft), nil
}

// Delete implements RemoteStore.
func (b *BreakerRemote) Delete(ctx context.Context, draftID, userID string) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.inner.Delete(ctx, draftID, userID)
	})
	return err
}

// List implements RemoteStore.
func (b *BreakerRemote) List(ctx context.Context, userID string, q models.ListQuery) ([]*models.Draft, int, error) {
	type listPage struct {
		drafts []*models.Draft
		total  int
	}
	v, err := b.execute(func() (interface{}, error) {
		drafts, total, err := b.inner.List(ctx, userID, q)
		if err != nil {
			return nil, err
		}
		return listPage{drafts: drafts, total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	page := v.(listPage)
	return page.drafts, page.total, nil
}

// ReplaceMedia implements RemoteStore.
func (b *BreakerRemote) ReplaceMedia(ctx context.Context, draftID, userID string, media []models.DraftMedia) error {
	_, err := b.execute(func() (interface{}, error) {
		return nil, b.inner.ReplaceMedia(ctx, draftID, userID, media)
	})
	return err
}

// GetMedia implements RemoteStore.
func (b *BreakerRemote) GetMedia(ctx context.Context, draftID, userID string) ([]models.DraftMedia, error) {
	v, err := b.execute(func() (interface{}, error) {
		return b.inner.GetMedia(ctx, draftID, userID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.DraftMedia), nil
}

// isHardFailure reports whether err is a domain outcome that must surface
// to the caller rather than trigger tier fallback.
func isHardFailure(err error) bool {
	return err != nil && (errors.Is(err, ErrNotFound) || errors.Is(err, ErrAccessDenied))
}
