// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/trocker/config.yaml",
	"/etc/trocker/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all defaults applied. These are loaded
// first and then overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8470,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    0, // streaming endpoints hold responses open
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Database: DatabaseConfig{
			Path:      "/data/trocker.duckdb",
			MaxMemory: "512MB",
			Threads:   0,
		},
		Security: SecurityConfig{
			AuthMode:          "session",
			JWTSecret:         "",
			SessionTimeout:    24 * time.Hour,
			SessionStore:      "memory",
			SessionStorePath:  "/data/sessions",
			CookieName:        "trocker_session",
			CookieSecure:      true,
			AdminName:         "Admin",
			AdminEmail:        "",
			AdminPassword:     "",
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{},
			TrustedProxies:    []string{},
			InviteTTL:         7 * 24 * time.Hour,
		},
		Webhook: WebhookConfig{
			Secret:                  "",
			DetectorPlaceExternalID: "building-10",
			DetectorPlaceName:       "The Castle",
			DetectorSubPlaceName:    "The Balcony",
			ReporterID:              "detector-system",
			MatchTolerance:          5 * time.Second,
		},
		Push: PushConfig{
			VAPIDPublicKey:  "",
			VAPIDPrivateKey: "",
			Subscriber:      "mailto:admin@trocker.app",
			TTL:             3600,
		},
		Subject: SubjectConfig{
			ID:   "rocky",
			Name: "Rocky",
		},
		Hunger: HungerConfig{
			DecayPerHour: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// envKeyMap maps environment variables onto koanf paths. Only listed
// variables are honored; this keeps unrelated environment noise out of the
// configuration.
var envKeyMap = map[string]string{
	"HOST":             "server.host",
	"PORT":             "server.port",
	"ENVIRONMENT":      "server.environment",
	"SHUTDOWN_TIMEOUT": "server.shutdown_timeout",

	"DATABASE_PATH":       "database.path",
	"DATABASE_MAX_MEMORY": "database.max_memory",
	"DATABASE_THREADS":    "database.threads",

	"AUTH_MODE":           "security.auth_mode",
	"JWT_SECRET":          "security.jwt_secret",
	"SESSION_TIMEOUT":     "security.session_timeout",
	"SESSION_STORE":       "security.session_store",
	"SESSION_STORE_PATH":  "security.session_store_path",
	"COOKIE_NAME":         "security.cookie_name",
	"COOKIE_SECURE":       "security.cookie_secure",
	"ADMIN_NAME":          "security.admin_name",
	"ADMIN_EMAIL":         "security.admin_email",
	"ADMIN_PASSWORD":      "security.admin_password",
	"RATE_LIMIT_REQS":     "security.rate_limit_reqs",
	"RATE_LIMIT_WINDOW":   "security.rate_limit_window",
	"RATE_LIMIT_DISABLED": "security.rate_limit_disabled",
	"CORS_ORIGINS":        "security.cors_origins",
	"TRUSTED_PROXIES":     "security.trusted_proxies",
	"INVITE_TTL":          "security.invite_ttl",

	"WEBHOOK_SECRET":          "webhook.secret",
	"DETECTOR_PLACE_ID":       "webhook.detector_place_external_id",
	"DETECTOR_PLACE_NAME":     "webhook.detector_place_name",
	"DETECTOR_SUB_PLACE_NAME": "webhook.detector_sub_place_name",
	"DETECTOR_REPORTER_ID":    "webhook.reporter_id",
	"WEBHOOK_MATCH_TOLERANCE": "webhook.match_tolerance",

	"VAPID_PUBLIC_KEY":  "push.vapid_public_key",
	"VAPID_PRIVATE_KEY": "push.vapid_private_key",
	"VAPID_SUBJECT":     "push.subscriber",
	"PUSH_TTL":          "push.ttl",

	"SUBJECT_ID":   "subject.id",
	"SUBJECT_NAME": "subject.name",

	"HUNGER_DECAY_RATE_PER_HOUR": "hunger.decay_per_hour",

	"LOG_LEVEL":  "logging.level",
	"LOG_FORMAT": "logging.format",
	"LOG_CALLER": "logging.caller",
}

// Load builds the configuration from layered sources:
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment variables: highest priority, via envKeyMap
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", func(key string) string {
		return envKeyMap[key] // unmapped variables collapse to "" and are dropped
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// findConfigFile returns the first config file that exists, honoring the
// CONFIG_PATH override.
func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		return ""
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
