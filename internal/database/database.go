// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

// Package database implements the remote draft tier on DuckDB via
// database/sql. It is the reference RemoteStore implementation; the
// engine only depends on the store.RemoteStore interface, so deployments
// can substitute any backend that honors the same ownership semantics.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/casaflow/draftsync/internal/config"
	"github.com/casaflow/draftsync/internal/logging"
)

// DB wraps the DuckDB connection and provides draft and media access.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at cfg.Path and initializes the
// schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	conn, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 4
	}
	conn.SetMaxOpenConns(maxConns)

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logging.Info().Str("path", cfg.Path).Msg("draft database opened")
	return db, nil
}

// NewInMemory opens an in-memory database. For tests.
func NewInMemory() (*DB, error) {
	conn, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open in-memory duckdb: %w", err)
	}
	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return db, nil
}

// initSchema creates the drafts and draft_media tables. Media cascade is
// enforced in code (Delete runs both statements in one transaction);
// DuckDB foreign keys do not cascade.
func (db *DB) initSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS drafts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			wizard_type TEXT NOT NULL,
			wizard_config_id TEXT NOT NULL DEFAULT '',
			form_data TEXT NOT NULL,
			current_step TEXT NOT NULL DEFAULT '',
			step_progress TEXT NOT NULL DEFAULT '{}',
			completion_percentage INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_drafts_user ON drafts (user_id, updated_at)`,
		`CREATE TABLE IF NOT EXISTS draft_media (
			id TEXT PRIMARY KEY,
			draft_id TEXT NOT NULL,
			url TEXT NOT NULL,
			media_type TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_draft_media_draft ON draft_media (draft_id, position)`,
	}
	for _, stmt := range schema {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Ping verifies the connection for readiness probes.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// Close shuts down the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}
