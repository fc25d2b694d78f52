// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/trocker-app/trocker/internal/events"
	"github.com/trocker-app/trocker/internal/logging"
	"github.com/trocker-app/trocker/internal/metrics"
)

// sseKeepaliveInterval is how often a comment frame is written to keep
// proxies from closing an idle stream.
const sseKeepaliveInterval = 30 * time.Second

// LocationEvents streams location-update events over SSE.
func (h *Handler) LocationEvents(w http.ResponseWriter, r *http.Request) {
	h.streamEvents(w, r, func(event events.Event) bool {
		return event.Type == events.TypeLocationUpdate || event.Type == events.TypeSubjectFed
	})
}

// MessageEvents streams chat events over SSE.
func (h *Handler) MessageEvents(w http.ResponseWriter, r *http.Request) {
	h.streamEvents(w, r, func(event events.Event) bool {
		return event.Type == events.TypeMessageNew || event.Type == events.TypeMessageDeleted
	})
}

// streamEvents holds the connection open and forwards matching broker
// events as SSE frames until the client disconnects. Subscribers connecting
// after a publish never see it retroactively; the stream is live-only.
func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request, accept func(events.Event) bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Streaming unsupported by this connection")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Buffered so a slow client drops frames instead of blocking the
	// publisher.
	frames := make(chan events.Event, 32)
	unsubscribe := h.broker.Subscribe(func(event events.Event) {
		if !accept(event) {
			return
		}
		select {
		case frames <- event:
		default:
			logging.Warn().Str("event_type", event.Type).Msg("SSE client too slow, dropping frame")
		}
	})
	defer unsubscribe()

	metrics.SSEClients.Inc()
	defer metrics.SSEClients.Dec()
	h.streamClients.Add(1)
	defer h.streamClients.Add(-1)

	if !writeSSEFrame(w, events.Event{Type: "connected", Data: map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
	}}) {
		return
	}
	flusher.Flush()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-frames:
			if !writeSSEFrame(w, event) {
				return
			}
			flusher.Flush()
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSEFrame writes one data frame. A write error means the client is
// gone; the caller stops the stream.
func writeSSEFrame(w http.ResponseWriter, event events.Event) bool {
	payload, err := json.Marshal(event)
	if err != nil {
		logging.Error().Err(err).Str("event_type", event.Type).Msg("Failed to marshal SSE frame")
		return true
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return false
	}
	return true
}
