// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package store

import (
	"sync"

	"github.com/casaflow/draftsync/internal/models"
)

// MemoryCache is the in-process draft tier. Once populated for an id it is
// always the freshest tier: saves write it last, loads read it first.
// Entries never expire; only an explicit delete or Clear removes them.
type MemoryCache struct {
	mu     sync.RWMutex
	drafts map[string]*models.Draft

	hits   int64
	misses int64
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		drafts: make(map[string]*models.Draft),
	}
}

// Set stores a copy of the draft. Copy-on-write keeps callers from
// mutating cached state through a retained pointer.
func (c *MemoryCache) Set(draft *models.Draft) {
	if draft == nil || draft.ID == "" {
		return
	}
	clone := draft.Clone()
	c.mu.Lock()
	c.drafts[draft.ID] = clone
	c.mu.Unlock()
}

// Get returns a copy of the cached draft, or nil if absent. When userID is
// non-empty a cached draft owned by someone else counts as a miss.
func (c *MemoryCache) Get(draftID, userID string) *models.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()

	draft, ok := c.drafts[draftID]
	if !ok || (userID != "" && draft.UserID != "" && draft.UserID != userID) {
		c.misses++
		return nil
	}
	c.hits++
	return draft.Clone()
}

// Delete removes the entry. Missing entries are a no-op.
func (c *MemoryCache) Delete(draftID string) {
	c.mu.Lock()
	delete(c.drafts, draftID)
	c.mu.Unlock()
}

// List returns copies of all cached drafts owned by userID.
func (c *MemoryCache) List(userID string) []*models.Draft {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*models.Draft
	for _, draft := range c.drafts {
		if draft.UserID == userID {
			out = append(out, draft.Clone())
		}
	}
	return out
}

// Has reports whether an entry exists for draftID, honoring ownership.
func (c *MemoryCache) Has(draftID, userID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	draft, ok := c.drafts[draftID]
	if !ok {
		return false
	}
	return userID == "" || draft.UserID == "" || draft.UserID == userID
}

// Len returns the number of cached drafts.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.drafts)
}

// Clear drops every entry.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	c.drafts = make(map[string]*models.Draft)
	c.mu.Unlock()
}

// Stats returns hit/miss counters.
func (c *MemoryCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
