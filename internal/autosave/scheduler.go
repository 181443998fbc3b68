// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

// Package autosave collapses bursts of "draft changed" signals into one
// persistence call per quiet interval, debounced independently per draft.
//
// Each key owns at most one pending timer; a new signal for the same key
// cancels and restarts that key's timer without touching other keys.
// Every created timer is either fired or explicitly cancelled, so the
// scheduler never leaks timers across draft deletion or teardown.
package autosave

import (
	"context"
	"sync"
	"time"

	"github.com/casaflow/draftsync/internal/logging"
	"github.com/casaflow/draftsync/internal/metrics"
	"github.com/casaflow/draftsync/internal/models"
	"github.com/casaflow/draftsync/internal/store"
)

// DefaultQuietInterval is the debounce window.
const DefaultQuietInterval = time.Second

// SaveFunc is the underlying persistence call invoked when a timer fires.
type SaveFunc func(ctx context.Context, req store.SaveRequest) models.SaveResult

// pending is one key's scheduled save.
type pending struct {
	timer *time.Timer
	req   store.SaveRequest
	waits []chan models.SaveResult
}

// Scheduler debounces autosave signals per draft key.
type Scheduler struct {
	save     SaveFunc
	interval time.Duration

	mu      sync.Mutex
	pending map[string]*pending
	closed  bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithQuietInterval overrides the debounce window.
func WithQuietInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// NewScheduler creates a scheduler that persists through save.
func NewScheduler(save SaveFunc, opts ...Option) *Scheduler {
	s := &Scheduler{
		save:     save,
		interval: DefaultQuietInterval,
		pending:  make(map[string]*pending),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key derives the debounce key for a request: the draft id once one
// exists, otherwise wizard-type+user so unsaved wizards still debounce.
func Key(req store.SaveRequest) string {
	if req.DraftID != "" {
		return req.DraftID
	}
	return req.WizardType + "|" + req.UserID
}

// Schedule registers a changed signal for the request's key and returns a
// channel that resolves with the save outcome once the quiet interval
// elapses. A signal arriving while a timer is pending replaces the payload
// and restarts that timer; the earlier caller's channel resolves with the
// same (last-payload) outcome.
func (s *Scheduler) Schedule(req store.SaveRequest) <-chan models.SaveResult {
	ch := make(chan models.SaveResult, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ch <- models.SaveResult{Err: context.Canceled}
		return ch
	}

	key := Key(req)
	if p, ok := s.pending[key]; ok {
		// Classic debounce: replace payload, restart this key's timer.
		p.timer.Stop()
		p.req = req
		p.waits = append(p.waits, ch)
		p.timer.Reset(s.interval)
		metrics.DebounceCollapsedTotal.Inc()
		s.mu.Unlock()
		return ch
	}

	p := &pending{req: req, waits: []chan models.SaveResult{ch}}
	p.timer = time.AfterFunc(s.interval, func() { s.fire(key) })
	s.pending[key] = p
	metrics.PendingAutosaveTimers.Set(float64(len(s.pending)))
	s.mu.Unlock()

	return ch
}

// fire runs the save for a key and resolves every waiter. The timer
// handle is cleared whether the save succeeds or fails.
func (s *Scheduler) fire(key string) {
	s.mu.Lock()
	p, ok := s.pending[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	metrics.PendingAutosaveTimers.Set(float64(len(s.pending)))
	req := p.req
	waits := p.waits
	s.mu.Unlock()

	result := s.save(context.Background(), req)
	if result.Err != nil {
		logging.Warn().Err(result.Err).Str("key", key).Msg("debounced autosave failed")
	}
	for _, ch := range waits {
		ch <- result
	}
}

// Cancel drops the pending timer for a key, if any. Waiters resolve with
// a canceled result. Used on draft deletion.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	p, ok := s.pending[key]
	if ok {
		p.timer.Stop()
		delete(s.pending, key)
		metrics.PendingAutosaveTimers.Set(float64(len(s.pending)))
	}
	s.mu.Unlock()

	if ok {
		for _, ch := range p.waits {
			ch <- models.SaveResult{Err: context.Canceled}
		}
	}
}

// Flush fires every pending save immediately. Used before shutdown so no
// buffered keystroke is lost.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	keys := make([]string, 0, len(s.pending))
	for key, p := range s.pending {
		p.timer.Stop()
		keys = append(keys, key)
	}
	s.mu.Unlock()

	for _, key := range keys {
		s.fire(key)
	}
}

// PendingCount returns the number of live debounce timers.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close cancels every pending timer and rejects future schedules.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	var waits []chan models.SaveResult
	for key, p := range s.pending {
		p.timer.Stop()
		waits = append(waits, p.waits...)
		delete(s.pending, key)
	}
	metrics.PendingAutosaveTimers.Set(0)
	s.mu.Unlock()

	for _, ch := range waits {
		ch <- models.SaveResult{Err: context.Canceled}
	}
}
