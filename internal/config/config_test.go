// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()

	if cfg.Server.Port != 8470 {
		t.Errorf("expected default port 8470, got %d", cfg.Server.Port)
	}
	if cfg.Security.AuthMode != "session" {
		t.Errorf("expected default auth mode session, got %q", cfg.Security.AuthMode)
	}
	if cfg.Security.SessionStore != "memory" {
		t.Errorf("expected default session store memory, got %q", cfg.Security.SessionStore)
	}
	if cfg.Subject.ID != "rocky" {
		t.Errorf("expected default subject id rocky, got %q", cfg.Subject.ID)
	}
	if cfg.Webhook.MatchTolerance != 5*time.Second {
		t.Errorf("expected default match tolerance 5s, got %v", cfg.Webhook.MatchTolerance)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "port zero",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantErr: true,
		},
		{
			name:    "port too large",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "unknown auth mode",
			mutate:  func(c *Config) { c.Security.AuthMode = "basic" },
			wantErr: true,
		},
		{
			name: "jwt mode with short secret",
			mutate: func(c *Config) {
				c.Security.AuthMode = "jwt"
				c.Security.JWTSecret = "short"
			},
			wantErr: true,
		},
		{
			name: "jwt mode with long secret",
			mutate: func(c *Config) {
				c.Security.AuthMode = "jwt"
				c.Security.JWTSecret = "0123456789abcdef0123456789abcdef"
			},
			wantErr: false,
		},
		{
			name:    "unknown session store",
			mutate:  func(c *Config) { c.Security.SessionStore = "redis" },
			wantErr: true,
		},
		{
			name:    "short admin password",
			mutate:  func(c *Config) { c.Security.AdminPassword = "pw" },
			wantErr: true,
		},
		{
			name:    "negative match tolerance",
			mutate:  func(c *Config) { c.Webhook.MatchTolerance = -time.Second },
			wantErr: true,
		},
		{
			name:    "negative hunger decay",
			mutate:  func(c *Config) { c.Hunger.DecayPerHour = -1 },
			wantErr: true,
		},
		{
			name: "production forbids auth none",
			mutate: func(c *Config) {
				c.Server.Environment = "production"
				c.Security.AuthMode = "none"
				c.Webhook.Secret = "secret"
			},
			wantErr: true,
		},
		{
			name: "production requires webhook secret",
			mutate: func(c *Config) {
				c.Server.Environment = "production"
				c.Webhook.Secret = ""
			},
			wantErr: true,
		},
		{
			name: "production with secret and session auth",
			mutate: func(c *Config) {
				c.Server.Environment = "production"
				c.Webhook.Secret = "shhh"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("AUTH_MODE", "none")
	t.Setenv("SUBJECT_NAME", "Biscuit")
	t.Setenv("WEBHOOK_SECRET", "hook-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected PORT override 9090, got %d", cfg.Server.Port)
	}
	if cfg.Security.AuthMode != "none" {
		t.Errorf("expected AUTH_MODE override none, got %q", cfg.Security.AuthMode)
	}
	if cfg.Subject.Name != "Biscuit" {
		t.Errorf("expected SUBJECT_NAME override Biscuit, got %q", cfg.Subject.Name)
	}
	if cfg.Webhook.Secret != "hook-secret" {
		t.Errorf("expected WEBHOOK_SECRET override, got %q", cfg.Webhook.Secret)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := []byte(`
server:
  port: 9999
subject:
  name: Waffles
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("expected file port 9999, got %d", cfg.Server.Port)
	}
	if cfg.Subject.Name != "Waffles" {
		t.Errorf("expected file subject name Waffles, got %q", cfg.Subject.Name)
	}
	// Untouched values keep defaults.
	if cfg.Subject.ID != "rocky" {
		t.Errorf("expected default subject id, got %q", cfg.Subject.ID)
	}
}
