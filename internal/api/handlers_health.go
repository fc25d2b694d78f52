// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package api

import (
	"net/http"
	"time"

	"github.com/trocker-app/trocker/internal/logging"
	ws "github.com/trocker-app/trocker/internal/websocket"
)

// Health reports liveness and database reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	overall, dbStatus := "ok", "ok"
	status := http.StatusOK
	if err := h.db.Ping(r.Context()); err != nil {
		logging.Error().Err(err).Msg("Health check: database unreachable")
		overall, dbStatus = "degraded", "unreachable"
		status = http.StatusServiceUnavailable
	}

	respondData(w, status, map[string]interface{}{
		"status":        overall,
		"database":      dbStatus,
		"uptimeSeconds": int64(time.Since(h.startTime).Seconds()),
	}, time.Time{})
}

// Stats returns the dashboard summary: totals from the store plus the live
// client gauges this process tracks itself.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	stats, err := h.db.GetStats(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	stats.StreamClients = int(h.streamClients.Load())
	stats.SocketClients = h.hub.ClientCount()
	stats.UptimeSeconds = int64(time.Since(h.startTime).Seconds())

	respondData(w, http.StatusOK, stats, start)
}

// WebSocket upgrades the connection and hands it to the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	ws.ServeWS(h.hub, w, r)
}
