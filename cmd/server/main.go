// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

// Package main is the entry point for the Trocker server.
//
// Trocker lets the residents of a building follow a shared pet around in
// real time: residents report sightings, a camera detector posts arrivals
// and departures over a webhook, and everyone watches the location, chat,
// and hunger meter update live over SSE and WebSocket.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered Koanf v2 sources (defaults, YAML file, env vars)
//  2. Database: DuckDB with the reports, chat, and notification schema
//  3. Seeds: tracked subject, bootstrap admin, detector place and account
//  4. Event broker: in-process fan-out feeding SSE, WebSocket, and push
//  5. Authentication: session cookies (memory or Badger store) or JWT
//  6. Supervisor tree: Suture-managed hub, housekeeping tasks, HTTP server
//
// # Configuration
//
// Settings load from built-in defaults, then an optional config.yaml, then
// environment variables (highest priority). The essentials:
//
//	export ADMIN_EMAIL=admin@example.com
//	export ADMIN_PASSWORD=secure-password
//	export WEBHOOK_SECRET=$(openssl rand -hex 32)
//	./trocker
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests within the shutdown timeout, the hub closes its
// clients, and the database is closed last.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/trocker-app/trocker/internal/api"
	"github.com/trocker-app/trocker/internal/auth"
	"github.com/trocker-app/trocker/internal/config"
	"github.com/trocker-app/trocker/internal/database"
	"github.com/trocker-app/trocker/internal/events"
	"github.com/trocker-app/trocker/internal/logging"
	"github.com/trocker-app/trocker/internal/notify"
	"github.com/trocker-app/trocker/internal/supervisor"
	ws "github.com/trocker-app/trocker/internal/websocket"
)

const (
	sessionCleanupInterval = 15 * time.Minute
	hungerRefreshInterval  = 10 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("auth_mode", cfg.Security.AuthMode).
		Str("db_path", cfg.Database.Path).
		Bool("webhook_configured", cfg.Webhook.Secret != "").
		Str("subject", cfg.Subject.ID).
		Msg("Starting Trocker")

	if cfg.Security.AuthMode == "none" {
		logging.Warn().Msg("Authentication is DISABLED (AUTH_MODE=none) - every endpoint is public")
		logging.Warn().Msg("Use this mode only for local development or isolated networks")
	}
	if cfg.Security.SessionStore == "memory" && cfg.Server.Environment == "production" {
		logging.Warn().Msg("Session store is 'memory'; sessions are lost on restart (consider SESSION_STORE=badger)")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := seed(ctx, db, cfg); err != nil {
		logging.Fatal().Err(err).Msg("Failed to seed database")
	}

	broker := events.NewBroker()

	hub := ws.NewHub()
	detachHub := hub.AttachTo(broker)
	defer detachHub()

	notifier := notify.NewNotifier(db, &cfg.Push)
	detachNotifier := notifier.AttachTo(broker)
	defer detachNotifier()
	if cfg.Push.Enabled() {
		logging.Info().Msg("Web Push delivery enabled")
	} else {
		logging.Info().Msg("Web Push delivery disabled (no VAPID keys configured)")
	}

	sessions, err := newSessionStore(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open session store")
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}()

	var jwtManager *auth.JWTManager
	if cfg.Security.AuthMode == "jwt" {
		jwtManager = auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.SessionTimeout)
		logging.Info().Msg("JWT authentication enabled")
	}

	authn := &auth.Authenticator{
		Mode:       cfg.Security.AuthMode,
		CookieName: cfg.Security.CookieName,
		Store:      sessions,
		JWT:        jwtManager,
	}

	handler := api.NewHandler(db, cfg, broker, hub, authn, sessions, jwtManager)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// sutureslog needs an slog.Logger; the adapter bridges it to zerolog.
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddMessagingService(supervisor.NewHubService(hub))

	tree.AddHousekeepingService(supervisor.NewTickerService("session-janitor", sessionCleanupInterval,
		func(ctx context.Context) error {
			removed, err := sessions.Cleanup(ctx)
			if removed > 0 {
				logging.Info().Int("removed", removed).Msg("Expired sessions cleaned up")
			}
			return err
		}))

	tree.AddHousekeepingService(supervisor.NewTickerService("hunger-meter", hungerRefreshInterval,
		func(ctx context.Context) error {
			_, err := db.RefreshHunger(ctx, cfg.Subject.ID, cfg.Hunger.DecayPerHour)
			return err
		}))

	tree.AddAPIService(supervisor.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Trocker listening")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree exited with error")
	}

	logging.Info().Msg("Shutdown complete")
}

// seed provisions the rows the server assumes exist: the tracked subject,
// the bootstrap admin (first start only), and the camera detector's place
// and system account. Every seed is idempotent.
func seed(ctx context.Context, db *database.DB, cfg *config.Config) error {
	if err := db.SeedSubject(ctx, cfg.Subject.ID, cfg.Subject.Name); err != nil {
		return err
	}

	if cfg.Security.AdminEmail != "" && cfg.Security.AdminPassword != "" {
		hash, err := auth.HashPassword(cfg.Security.AdminPassword)
		if err != nil {
			return err
		}
		if err := db.SeedAdmin(ctx, cfg.Security.AdminName, cfg.Security.AdminEmail, hash); err != nil {
			return err
		}
	}

	if err := db.SeedDetectorPlace(ctx,
		cfg.Webhook.DetectorPlaceExternalID,
		cfg.Webhook.DetectorPlaceName,
		cfg.Webhook.DetectorSubPlaceName); err != nil {
		return err
	}

	return db.SeedDetectorUser(ctx, cfg.Webhook.ReporterID)
}

// newSessionStore builds the configured session backend.
func newSessionStore(cfg *config.Config) (auth.SessionStore, error) {
	switch cfg.Security.SessionStore {
	case "badger":
		store, err := auth.NewBadgerSessionStore(cfg.Security.SessionStorePath)
		if err != nil {
			return nil, err
		}
		logging.Info().Str("path", cfg.Security.SessionStorePath).Msg("Badger session store opened")
		return store, nil
	default:
		return auth.NewMemorySessionStore(), nil
	}
}
