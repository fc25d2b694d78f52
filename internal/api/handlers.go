// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

// Package api implements the HTTP surface: location reporting, the chat,
// live update streams (SSE and websocket), push subscription management,
// the detector webhook, and the admin CRUD endpoints.
package api

import (
	"sync/atomic"
	"time"

	"github.com/trocker-app/trocker/internal/auth"
	"github.com/trocker-app/trocker/internal/config"
	"github.com/trocker-app/trocker/internal/database"
	"github.com/trocker-app/trocker/internal/events"
	"github.com/trocker-app/trocker/internal/metrics"
	ws "github.com/trocker-app/trocker/internal/websocket"
)

// Handler carries the dependencies shared by all endpoint methods. Methods
// are split across files by concern: handlers_auth.go, handlers_locations.go,
// handlers_messages.go, handlers_subject.go, handlers_push.go,
// handlers_admin.go, handlers_webhook.go, handlers_health.go, and the SSE
// plumbing in handlers_sse.go.
type Handler struct {
	db           *database.DB
	cfg          *config.Config
	broker       *events.Broker
	hub          *ws.Hub
	authn        *auth.Authenticator
	sessions     auth.SessionStore
	jwt          *auth.JWTManager
	loginLimiter *auth.LoginLimiter
	startTime    time.Time

	// streamClients counts open SSE connections for the stats endpoint.
	streamClients atomic.Int64
}

// NewHandler wires the API handler. The authenticator's error callbacks are
// bound here so 401/403 responses use the application envelope.
func NewHandler(db *database.DB, cfg *config.Config, broker *events.Broker, hub *ws.Hub, authn *auth.Authenticator, sessions auth.SessionStore, jwtManager *auth.JWTManager) *Handler {
	authn.Unauthorized = writeUnauthorized

	return &Handler{
		db:           db,
		cfg:          cfg,
		broker:       broker,
		hub:          hub,
		authn:        authn,
		sessions:     sessions,
		jwt:          jwtManager,
		loginLimiter: auth.NewLoginLimiter(5, 5*time.Minute),
		startTime:    time.Now(),
	}
}

// publish sends a domain event to the broker and counts it.
func (h *Handler) publish(event events.Event) {
	metrics.EventsBroadcast.WithLabelValues(event.Type).Inc()
	h.broker.Publish(event)
}
