// Draftsync - Offline-First Draft Persistence for Listing Wizards
// Copyright 2026 Casaflow
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/casaflow/draftsync

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // keep a stray config.yaml in the repo out of the test

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8097 {
		t.Errorf("Server.Port = %d, want 8097", cfg.Server.Port)
	}
	if cfg.Local.QuotaBytes != 5<<20 {
		t.Errorf("Local.QuotaBytes = %d, want %d", cfg.Local.QuotaBytes, 5<<20)
	}
	if cfg.Codec.ThresholdBytes != 10*1024 {
		t.Errorf("Codec.ThresholdBytes = %d, want 10240", cfg.Codec.ThresholdBytes)
	}
	if cfg.Local.CleanupAge != 7*24*time.Hour {
		t.Errorf("Local.CleanupAge = %v, want 168h", cfg.Local.CleanupAge)
	}
	if cfg.Autosave.QuietInterval != time.Second {
		t.Errorf("Autosave.QuietInterval = %v, want 1s", cfg.Autosave.QuietInterval)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("Retry.MaxAttempts = %d, want 3", cfg.Retry.MaxAttempts)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DRAFTSYNC_SERVER_PORT", "9001")
	t.Setenv("DRAFTSYNC_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("DRAFTSYNC_LOGGING_LEVEL", "debug")
	t.Setenv("DRAFTSYNC_SERVER_CORS_ORIGINS", "https://app.example, https://admin.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9001 {
		t.Errorf("Server.Port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.Retry.MaxAttempts != 5 {
		t.Errorf("Retry.MaxAttempts = %d, want 5", cfg.Retry.MaxAttempts)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	want := []string{"https://app.example", "https://admin.example"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("Server.CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "draftsync.yaml")
	yaml := "server:\n  port: 8200\nlocal:\n  quota_bytes: 1048576\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8200 {
		t.Errorf("Server.Port = %d, want 8200", cfg.Server.Port)
	}
	if cfg.Local.QuotaBytes != 1048576 {
		t.Errorf("Local.QuotaBytes = %d, want 1048576", cfg.Local.QuotaBytes)
	}
	// Untouched sections keep their defaults.
	if cfg.Database.MaxOpenConns != 4 {
		t.Errorf("Database.MaxOpenConns = %d, want 4", cfg.Database.MaxOpenConns)
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DRAFTSYNC_SERVER_PORT", "server.port"},
		{"DRAFTSYNC_RETRY_MAX_ATTEMPTS", "retry.max_attempts"},
		{"DRAFTSYNC_LOCAL_QUOTA_BYTES", "local.quota_bytes"},
		{"DRAFTSYNC_SYNC_PUSH_RATE_PER_SECOND", "sync.push_rate_per_second"},
	}
	for _, tt := range tests {
		if got := envTransform(tt.in); got != tt.want {
			t.Errorf("envTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults pass", func(*Config) {}, false},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"no local path", func(c *Config) { c.Local.Path = "" }, true},
		{"zero quota", func(c *Config) { c.Local.QuotaBytes = 0 }, true},
		{"no database path", func(c *Config) { c.Database.Path = "" }, true},
		{"zero retries", func(c *Config) { c.Retry.MaxAttempts = 0 }, true},
		{"zero debounce", func(c *Config) { c.Autosave.QuietInterval = 0 }, true},
		{"zero push rate", func(c *Config) { c.Sync.PushRatePerSecond = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
