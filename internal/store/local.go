// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package store

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/casaflow/draftsync/internal/codec"
	"github.com/casaflow/draftsync/internal/logging"
	"github.com/casaflow/draftsync/internal/metrics"
	"github.com/casaflow/draftsync/internal/models"
)

// Key layout: one record per draft plus a sidecar metadata record used for
// decompression decisions and cleanup without touching the payload.
const (
	prefixDraft = "draft:"
	suffixMeta  = ":meta"
)

// DefaultLocalQuota mirrors the browser-class ~5MB local storage ceiling.
const DefaultLocalQuota = 5 << 20

// DefaultCleanupAge is the age threshold for local garbage collection.
// Preserved from the source system as a configurable default.
const DefaultCleanupAge = 7 * 24 * time.Hour

// LocalConfig configures the persistent local tier.
type LocalConfig struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string

	// InMemory runs BadgerDB without disk persistence. For tests.
	InMemory bool

	// SyncWrites enables fsync on every write.
	SyncWrites bool

	// MaxBytes is the storage quota. Default: DefaultLocalQuota.
	MaxBytes int64

	// CleanupAge is the age beyond which drafts are garbage-collected to
	// reclaim quota. Default: DefaultCleanupAge.
	CleanupAge time.Duration
}

// localMeta is the sidecar record stored under "<draft key>:meta".
type localMeta struct {
	codec.Meta
	DraftID   string    `json:"draft_id"`
	UserID    string    `json:"user_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LocalStore is the quota-limited persistent tier backed by BadgerDB.
// Payloads above the codec threshold are compressed before storage.
type LocalStore struct {
	db    *badger.DB
	codec *codec.Codec
	cfg   LocalConfig

	// usedBytes approximates stored payload size for quota enforcement.
	// Recounted on open, maintained incrementally afterwards.
	usedBytes atomic.Int64

	mu     sync.RWMutex
	closed bool
}

// OpenLocal opens (or creates) the local tier at cfg.Path.
func OpenLocal(cfg LocalConfig, cdc *codec.Codec) (*LocalStore, error) {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultLocalQuota
	}
	if cfg.CleanupAge <= 0 {
		cfg.CleanupAge = DefaultCleanupAge
	}
	if cdc == nil {
		cdc = codec.New()
	}

	opts := badger.DefaultOptions(cfg.Path)
	opts.SyncWrites = cfg.SyncWrites
	opts.InMemory = cfg.InMemory
	if cfg.InMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	s := &LocalStore{db: db, codec: cdc, cfg: cfg}
	if err := s.recountUsage(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("recount local usage: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Int64("quota_bytes", cfg.MaxBytes).
		Msg("local draft store opened")
	return s, nil
}

// recountUsage walks the stored records and rebuilds the usage counter
// from value sizes, the same measure Put and Delete maintain.
func (s *LocalStore) recountUsage() error {
	var total int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixDraft)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			total += it.Item().ValueSize()
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.usedBytes.Store(total)
	return nil
}

func draftKey(draftID string) []byte { return []byte(prefixDraft + draftID) }
func metaKey(draftID string) []byte  { return []byte(prefixDraft + draftID + suffixMeta) }

// Put persists the draft, compressing it when the serialized payload
// exceeds the codec threshold. Returns ErrQuotaExceeded when the write
// would push usage past the configured quota; the caller owns cleanup.
func (s *LocalStore) Put(draft *models.Draft) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrStoreClosed
	}
	s.mu.RUnlock()

	if draft == nil || draft.ID == "" {
		return fmt.Errorf("put draft: missing id")
	}

	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}

	stored, cmeta := s.codec.Encode(raw)
	if cmeta.Compressed && cmeta.OriginalSize > 0 {
		metrics.CompressionRatio.Observe(float64(cmeta.CompressedSize) / float64(cmeta.OriginalSize))
	}
	meta := localMeta{
		Meta:      cmeta,
		DraftID:   draft.ID,
		UserID:    draft.UserID,
		UpdatedAt: draft.UpdatedAt,
	}
	metaBytes, err := json.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}

	newSize := int64(len(stored) + len(metaBytes))
	oldSize := s.recordSize(draft.ID)
	if s.usedBytes.Load()-oldSize+newSize > s.cfg.MaxBytes {
		return fmt.Errorf("%w: used=%d new=%d quota=%d",
			ErrQuotaExceeded, s.usedBytes.Load(), newSize, s.cfg.MaxBytes)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(draftKey(draft.ID), stored); err != nil {
			return err
		}
		return txn.Set(metaKey(draft.ID), metaBytes)
	})
	if err != nil {
		return fmt.Errorf("write draft: %w", err)
	}

	s.usedBytes.Add(newSize - oldSize)
	return nil
}

// recordSize returns the current stored size for a draft id, 0 if absent.
func (s *LocalStore) recordSize(draftID string) int64 {
	var size int64
	_ = s.db.View(func(txn *badger.Txn) error {
		for _, key := range [][]byte{draftKey(draftID), metaKey(draftID)} {
			item, err := txn.Get(key)
			if err != nil {
				continue
			}
			size += int64(item.ValueSize())
		}
		return nil
	})
	return size
}

// Get loads a draft. A record that fails to decompress or parse is
// proactively deleted and reported as ErrCorruptRecord so the engine can
// treat the tier as a miss. When userID is non-empty, drafts owned by a
// different user are reported as absent.
func (s *LocalStore) Get(draftID, userID string) (*models.Draft, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	s.mu.RUnlock()

	var stored []byte
	var meta localMeta
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(draftKey(draftID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get draft: %w", err)
		}
		stored, err = item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("copy draft value: %w", err)
		}

		metaItem, err := txn.Get(metaKey(draftID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			// Missing sidecar: assume an uncompressed legacy record.
			return nil
		}
		if err != nil {
			return fmt.Errorf("get meta: %w", err)
		}
		return metaItem.Value(func(val []byte) error {
			return json.Unmarshal(val, &meta)
		})
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	raw, err := s.codec.Decode(stored, meta.Compressed)
	if err != nil {
		s.dropCorrupt(draftID, err)
		return nil, ErrCorruptRecord
	}

	var draft models.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		s.dropCorrupt(draftID, err)
		return nil, ErrCorruptRecord
	}

	if userID != "" && draft.UserID != "" && draft.UserID != userID {
		return nil, ErrNotFound
	}
	return &draft, nil
}

// dropCorrupt removes a record that failed to parse, logging the cause.
func (s *LocalStore) dropCorrupt(draftID string, cause error) {
	logging.Warn().
		Err(cause).
		Str("draft_id", draftID).
		Msg("removing corrupt local draft record")
	if err := s.Delete(draftID); err != nil && !errors.Is(err, ErrStoreClosed) {
		logging.Error().Err(err).Str("draft_id", draftID).Msg("failed to remove corrupt record")
	}
}

// Delete removes a draft and its sidecar. Missing records are a no-op.
func (s *LocalStore) Delete(draftID string) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrStoreClosed
	}
	s.mu.RUnlock()

	freed := s.recordSize(draftID)
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(draftKey(draftID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Delete(metaKey(draftID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	if freed > 0 {
		s.usedBytes.Add(-freed)
	}
	return nil
}

// Has reports whether a parseable record exists for draftID.
func (s *LocalStore) Has(draftID, userID string) bool {
	draft, err := s.Get(draftID, userID)
	return err == nil && draft != nil
}

// List returns every locally stored draft owned by userID. Corrupt
// records are skipped (and removed) rather than failing the listing.
func (s *LocalStore) List(userID string) ([]*models.Draft, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, ErrStoreClosed
	}
	s.mu.RUnlock()

	ids, err := s.idsForUser(userID)
	if err != nil {
		return nil, err
	}

	drafts := make([]*models.Draft, 0, len(ids))
	for _, id := range ids {
		draft, err := s.Get(id, userID)
		if err != nil {
			// Corrupt entries were already dropped by Get.
			continue
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

// idsForUser walks the sidecar records and collects ids owned by userID.
// An empty userID collects everything.
func (s *LocalStore) idsForUser(userID string) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixDraft)
		metaSuffix := []byte(suffixMeta)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.Key()
			if !bytes.HasSuffix(key, metaSuffix) {
				continue
			}

			var meta localMeta
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				logging.Warn().Err(err).Str("key", string(key)).Msg("skipping unreadable local meta")
				continue
			}
			if userID == "" || meta.UserID == userID {
				ids = append(ids, meta.DraftID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate local drafts: %w", err)
	}
	return ids, nil
}

// Cleanup evicts drafts whose last update is older than age, reclaiming
// quota. Returns the number of drafts removed.
func (s *LocalStore) Cleanup(age time.Duration) (int, error) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return 0, ErrStoreClosed
	}
	s.mu.RUnlock()

	if age <= 0 {
		age = s.cfg.CleanupAge
	}
	cutoff := time.Now().Add(-age)

	var stale []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(prefixDraft)
		metaSuffix := []byte(suffixMeta)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			if !bytes.HasSuffix(item.Key(), metaSuffix) {
				continue
			}
			var meta localMeta
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				continue
			}
			when := meta.UpdatedAt
			if when.IsZero() {
				when = meta.Timestamp
			}
			if when.Before(cutoff) {
				stale = append(stale, meta.DraftID)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scan stale drafts: %w", err)
	}

	removed := 0
	for _, id := range stale {
		if err := s.Delete(id); err != nil {
			logging.Warn().Err(err).Str("draft_id", id).Msg("cleanup failed to delete stale draft")
			continue
		}
		removed++
	}
	if removed > 0 {
		logging.Info().Int("removed", removed).Dur("age", age).Msg("local draft cleanup complete")
	}
	return removed, nil
}

// KeyCount returns the number of stored drafts (sidecars excluded).
func (s *LocalStore) KeyCount() int {
	count := 0
	_ = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixDraft)
		metaSuffix := []byte(suffixMeta)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if !bytes.HasSuffix(it.Item().Key(), metaSuffix) {
				count++
			}
		}
		return nil
	})
	return count
}

// SizeBytes returns the approximate stored byte usage.
func (s *LocalStore) SizeBytes() int64 {
	return s.usedBytes.Load()
}

// RunGC triggers BadgerDB value-log garbage collection.
func (s *LocalStore) RunGC() error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrStoreClosed
	}
	s.mu.RUnlock()

	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			if errors.Is(err, badger.ErrGCInMemoryMode) {
				return nil
			}
			return fmt.Errorf("badger gc: %w", err)
		}
	}
}

// Close shuts down the underlying database.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger: %w", err)
	}
	return nil
}
