// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

// Package config loads and validates the Trocker configuration via Koanf v2
// with layered sources: built-in defaults, an optional YAML file, then
// environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the Trocker server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Webhook  WebhookConfig  `koanf:"webhook"`
	Push     PushConfig     `koanf:"push"`
	Subject  SubjectConfig  `koanf:"subject"`
	Hunger   HungerConfig   `koanf:"hunger"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development or production
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"` // 0 = runtime.NumCPU()
}

// SecurityConfig holds authentication, session, and rate-limit settings.
type SecurityConfig struct {
	// AuthMode selects how requests are authenticated:
	//   session - opaque cookie backed by the session store (default)
	//   jwt     - bearer tokens for cookie-less API clients
	//   none    - no authentication (development only)
	AuthMode string `koanf:"auth_mode"`

	JWTSecret      string        `koanf:"jwt_secret"`
	SessionTimeout time.Duration `koanf:"session_timeout"`

	// SessionStore selects the session backend: memory or badger.
	SessionStore     string `koanf:"session_store"`
	SessionStorePath string `koanf:"session_store_path"`

	CookieName   string `koanf:"cookie_name"`
	CookieSecure bool   `koanf:"cookie_secure"`

	// Bootstrap admin account, created on first start if no users exist.
	AdminName     string `koanf:"admin_name"`
	AdminEmail    string `koanf:"admin_email"`
	AdminPassword string `koanf:"admin_password"`

	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	CORSOrigins    []string `koanf:"cors_origins"`
	TrustedProxies []string `koanf:"trusted_proxies"`

	InviteTTL time.Duration `koanf:"invite_ttl"`
}

// WebhookConfig holds settings for the camera-detector webhook.
//
// The detector is pre-provisioned: every arrival opens a report at the place
// identified by DetectorPlaceExternalID (sub-place DetectorSubPlaceName under
// it, if set) using ReporterID as the system reporter identity.
type WebhookConfig struct {
	Secret string `koanf:"secret"`

	DetectorPlaceExternalID string `koanf:"detector_place_external_id"`
	DetectorPlaceName       string `koanf:"detector_place_name"`
	DetectorSubPlaceName    string `koanf:"detector_sub_place_name"`
	ReporterID              string `koanf:"reporter_id"`

	// MatchTolerance bounds the entry-time proximity fallback used to pair a
	// departure event with its arrival report when no visit id matches.
	MatchTolerance time.Duration `koanf:"match_tolerance"`
}

// PushConfig holds Web Push (VAPID) settings. Leaving the keys empty
// disables push delivery; everything else keeps working.
type PushConfig struct {
	VAPIDPublicKey  string `koanf:"vapid_public_key"`
	VAPIDPrivateKey string `koanf:"vapid_private_key"`
	Subscriber      string `koanf:"subscriber"` // mailto: contact for the push service
	TTL             int    `koanf:"ttl"`        // seconds the push service may retain a message
}

// Enabled reports whether push delivery is configured.
func (c *PushConfig) Enabled() bool {
	return c.VAPIDPublicKey != "" && c.VAPIDPrivateKey != ""
}

// SubjectConfig describes the default tracked subject, seeded at startup.
type SubjectConfig struct {
	ID   string `koanf:"id"`
	Name string `koanf:"name"`
}

// HungerConfig tunes the hunger meter.
type HungerConfig struct {
	// DecayPerHour is how many hunger points accumulate per hour since the
	// last update. Hunger is clamped to [0, 100].
	DecayPerHour float64 `koanf:"decay_per_hour"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}

	switch c.Security.AuthMode {
	case "session", "jwt", "none":
	default:
		return fmt.Errorf("security.auth_mode must be session, jwt, or none, got %q", c.Security.AuthMode)
	}

	if c.Security.AuthMode == "jwt" && len(c.Security.JWTSecret) < 32 {
		return fmt.Errorf("security.jwt_secret must be at least 32 characters in jwt mode")
	}

	switch c.Security.SessionStore {
	case "memory", "badger":
	default:
		return fmt.Errorf("security.session_store must be memory or badger, got %q", c.Security.SessionStore)
	}

	if c.Security.AuthMode != "none" && c.Security.AdminPassword != "" && len(c.Security.AdminPassword) < 8 {
		return fmt.Errorf("security.admin_password must be at least 8 characters")
	}

	if c.Webhook.MatchTolerance < 0 {
		return fmt.Errorf("webhook.match_tolerance must not be negative")
	}

	if c.Hunger.DecayPerHour < 0 {
		return fmt.Errorf("hunger.decay_per_hour must not be negative")
	}

	if c.Server.Environment == "production" {
		if c.Security.AuthMode == "none" {
			return fmt.Errorf("security.auth_mode none is not allowed in production")
		}
		if c.Webhook.Secret == "" {
			return fmt.Errorf("webhook.secret is required in production")
		}
	}

	return nil
}
