// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

// Package config loads Draftsync configuration with Koanf v2 layering:
// struct defaults, then an optional YAML file, then DRAFTSYNC_-prefixed
// environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Local    LocalConfig    `koanf:"local"`
	Database DatabaseConfig `koanf:"database"`
	Codec    CodecConfig    `koanf:"codec"`
	Retry    RetryConfig    `koanf:"retry"`
	Autosave AutosaveConfig `koanf:"autosave"`
	Sync     SyncConfig     `koanf:"sync"`
	Breaker  BreakerConfig  `koanf:"breaker"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// LocalConfig configures the BadgerDB local tier.
type LocalConfig struct {
	Path       string        `koanf:"path"`
	SyncWrites bool          `koanf:"sync_writes"`
	QuotaBytes int64         `koanf:"quota_bytes"`
	CleanupAge time.Duration `koanf:"cleanup_age"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// DatabaseConfig configures the DuckDB remote-tier reference store.
type DatabaseConfig struct {
	Path         string `koanf:"path"`
	MaxOpenConns int    `koanf:"max_open_conns"`
}

// CodecConfig configures payload compression.
type CodecConfig struct {
	ThresholdBytes int `koanf:"threshold_bytes"`
}

// RetryConfig configures the remote retry policy.
type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts"`
	BaseDelay   time.Duration `koanf:"base_delay"`
	MaxDelay    time.Duration `koanf:"max_delay"`
}

// AutosaveConfig configures the debounce scheduler.
type AutosaveConfig struct {
	QuietInterval time.Duration `koanf:"quiet_interval"`
}

// SyncConfig configures the reconciler.
type SyncConfig struct {
	PushRatePerSecond float64 `koanf:"push_rate_per_second"`
}

// BreakerConfig configures the remote circuit breaker.
type BreakerConfig struct {
	FailureThreshold    uint32        `koanf:"failure_threshold"`
	OpenTimeout         time.Duration `koanf:"open_timeout"`
	MaxHalfOpenRequests uint32        `koanf:"max_half_open_requests"`
}

// defaultConfig returns a Config with all defaults applied. These mirror
// the source system's constants where one existed (compression threshold,
// quota, cleanup age, debounce interval, retry attempts).
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8097,
			ShutdownTimeout: 10 * time.Second,
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Local: LocalConfig{
			Path:       "/data/draftsync/local",
			SyncWrites: true,
			QuotaBytes: 5 << 20, // browser-class local storage ceiling
			CleanupAge: 7 * 24 * time.Hour,
			GCInterval: time.Hour,
		},
		Database: DatabaseConfig{
			Path:         "/data/draftsync/drafts.duckdb",
			MaxOpenConns: 4,
		},
		Codec: CodecConfig{
			ThresholdBytes: 10 * 1024,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    30 * time.Second,
		},
		Autosave: AutosaveConfig{
			QuietInterval: time.Second,
		},
		Sync: SyncConfig{
			PushRatePerSecond: 20,
		},
		Breaker: BreakerConfig{
			FailureThreshold:    5,
			OpenTimeout:         30 * time.Second,
			MaxHalfOpenRequests: 1,
		},
	}
}

// Validate rejects configurations that cannot run.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Local.Path == "" {
		return fmt.Errorf("local.path is required")
	}
	if c.Local.QuotaBytes <= 0 {
		return fmt.Errorf("local.quota_bytes must be positive")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Autosave.QuietInterval <= 0 {
		return fmt.Errorf("autosave.quiet_interval must be positive")
	}
	if c.Sync.PushRatePerSecond <= 0 {
		return fmt.Errorf("sync.push_rate_per_second must be positive")
	}
	return nil
}
