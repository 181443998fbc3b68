// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

// Package syncer reconciles locally backed drafts with the remote tier
// when connectivity is restored, and exposes the connectivity signal the
// rest of the engine consumes.
package syncer

import (
	"sync"

	"github.com/casaflow/draftsync/internal/logging"
)

// Listener receives connectivity transitions.
type Listener func(online bool)

// Monitor is the boolean "is online" observable plus transition events.
// It starts online; the HTTP surface and the remote tier's circuit
// breaker both feed it.
type Monitor struct {
	mu        sync.RWMutex
	online    bool
	listeners []Listener
}

// NewMonitor creates a monitor in the online state.
func NewMonitor() *Monitor {
	return &Monitor{online: true}
}

// Online reports the current connectivity state.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// SetOnline records a connectivity change, notifying listeners only on
// actual transitions. Notification runs on the caller's goroutine.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	logging.Info().Bool("online", online).Msg("connectivity changed")
	for _, l := range listeners {
		l(online)
	}
}

// Subscribe registers a transition listener. Listeners are never removed;
// subscribe once per component at startup.
func (m *Monitor) Subscribe(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}
