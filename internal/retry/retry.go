// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

// Package retry provides a bounded exponential-backoff wrapper for
// remote-store operations. The policy knows nothing about storage tiers;
// on exhaustion it returns the last observed failure and the caller
// decides how to degrade.
package retry

import (
	"context"
	"errors"
	"math"
	"time"
)

// Default policy values. Preserved from the source system as configurable
// defaults.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 30 * time.Second
)

// ErrNoAttempts is returned when the policy is configured with zero attempts.
var ErrNoAttempts = errors.New("retry: no attempts configured")

// Policy executes operations with bounded retries and exponential backoff.
type Policy struct {
	// MaxAttempts is the total attempt count, including the first.
	MaxAttempts int

	// BaseDelay is the backoff before the second attempt; attempt n waits
	// BaseDelay * 2^(n-1). Backoff is applied only between attempts,
	// never before the first or after the last.
	BaseDelay time.Duration

	// MaxDelay caps the computed backoff.
	MaxDelay time.Duration

	// Retryable, when set, filters which errors are retried. A nil
	// Retryable retries everything.
	Retryable func(error) bool
}

// NewPolicy returns a policy with the default attempt count and delays.
func NewPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Do runs op until it succeeds, the attempts are exhausted, or the context
// is canceled. The returned error is the last failure observed, or the
// context error if cancellation interrupted the backoff sleep.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		return ErrNoAttempts
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := p.sleep(ctx, p.Backoff(attempt-1)); err != nil {
				return err
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// Backoff computes the delay after the given zero-based failed attempt:
// base * 2^attempt, capped at MaxDelay. Overflow clamps to the cap.
func (p Policy) Backoff(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}

	if attempt > 50 {
		return maxDelay
	}
	backoff := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if backoff < 0 || backoff > maxDelay {
		return maxDelay
	}
	return backoff
}

// sleep waits for d or until the context is canceled.
func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
