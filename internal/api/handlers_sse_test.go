// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/trocker-app/trocker/internal/models"
)

// sseFrame reads SSE data lines until one arrives or the deadline passes.
func sseFrame(t *testing.T, reader *bufio.Reader) map[string]interface{} {
	t.Helper()

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("stream ended while waiting for a frame: %v", err)
		}
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "data: ") {
			continue
		}

		var frame map[string]interface{}
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &frame); err != nil {
			t.Fatalf("failed to decode SSE frame %q: %v", line, err)
		}
		return frame
	}
}

func TestLocationEventsStream(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedUser(t, "Alice", "alice@example.com", models.RoleResident)
	cookie := env.login(t, "alice@example.com")
	place := env.seedPlace(t, "The Garden", models.PlaceTypeOutdoor)

	server := httptest.NewServer(env.router)
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/locations/events", nil)
	if err != nil {
		t.Fatalf("failed to build stream request: %v", err)
	}
	req.AddCookie(cookie)

	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected text/event-stream, got %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	if frame := sseFrame(t, reader); frame["type"] != "connected" {
		t.Fatalf("expected connected frame first, got %+v", frame)
	}

	// A report written while connected arrives as a location-update frame.
	rec := env.do(t, http.MethodPost, "/api/v1/locations/report",
		map[string]string{"subjectId": "rocky", "placeId": place.ID}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 reporting, got %d", rec.Code)
	}

	frame := sseFrame(t, reader)
	if frame["type"] != "location-update" {
		t.Fatalf("expected location-update frame, got %+v", frame)
	}
	data, ok := frame["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("frame data is not an object: %+v", frame)
	}
	if data["source"] != "manual" {
		t.Errorf("expected manual source, got %v", data["source"])
	}
}

func TestMessageEventsStreamFiltersTypes(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedUser(t, "Alice", "alice@example.com", models.RoleResident)
	cookie := env.login(t, "alice@example.com")
	place := env.seedPlace(t, "The Garden", models.PlaceTypeOutdoor)

	server := httptest.NewServer(env.router)
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/api/v1/messages/events", nil)
	if err != nil {
		t.Fatalf("failed to build stream request: %v", err)
	}
	req.AddCookie(cookie)

	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("failed to open stream: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	reader := bufio.NewReader(resp.Body)
	if frame := sseFrame(t, reader); frame["type"] != "connected" {
		t.Fatalf("expected connected frame first, got %+v", frame)
	}

	// A location report must not leak into the message stream; the chat
	// message posted afterwards is the first frame.
	rec := env.do(t, http.MethodPost, "/api/v1/locations/report",
		map[string]string{"subjectId": "rocky", "placeId": place.ID}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 reporting, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodPost, "/api/v1/messages",
		map[string]string{"content": "There he is!"}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 posting message, got %d", rec.Code)
	}

	frame := sseFrame(t, reader)
	if frame["type"] != "message-new" {
		t.Fatalf("expected message-new frame, got %+v", frame)
	}
}
