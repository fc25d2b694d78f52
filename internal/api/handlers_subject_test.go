// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package api

import (
	"net/http"
	"testing"

	"github.com/trocker-app/trocker/internal/models"
)

func TestHungerStatusAndFeed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedUser(t, "Alice", "alice@example.com", models.RoleResident)
	cookie := env.login(t, "alice@example.com")

	rec := env.do(t, http.MethodGet, "/api/v1/hunger/status", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from hunger status, got %d", rec.Code)
	}
	var subject models.Subject
	dataInto(t, rec, &subject)
	if subject.ID != "rocky" {
		t.Errorf("unexpected subject: %+v", subject)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/hunger/feed", nil, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from feed, got %d", rec.Code)
	}
	dataInto(t, rec, &subject)
	if subject.HungerLevel != 0 {
		t.Errorf("expected hunger 0 after feeding, got %v", subject.HungerLevel)
	}
	if subject.LastFedAt == nil {
		t.Error("expected lastFedAt to be stamped")
	}
}

func TestNotificationPreferencesRoundTrip(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedUser(t, "Alice", "alice@example.com", models.RoleResident)
	cookie := env.login(t, "alice@example.com")

	// Never-saved preferences come back as the defaults.
	rec := env.do(t, http.MethodGet, "/api/v1/notifications/preferences", nil, cookie)
	var pref models.NotificationPreference
	dataInto(t, rec, &pref)
	if !pref.EnableMessages || !pref.EnableArrival || !pref.EnableDeparture {
		t.Errorf("expected everything enabled by default, got %+v", pref)
	}

	start, end := "22:00", "07:00"
	rec = env.do(t, http.MethodPut, "/api/v1/notifications/preferences", map[string]interface{}{
		"enableMessages":    false,
		"enableArrival":     true,
		"enableDeparture":   true,
		"quietHoursEnabled": true,
		"quietHoursStart":   start,
		"quietHoursEnd":     end,
	}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 saving preferences, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/api/v1/notifications/preferences", nil, cookie)
	dataInto(t, rec, &pref)
	if pref.EnableMessages || !pref.QuietHoursEnabled {
		t.Errorf("saved preferences not returned: %+v", pref)
	}
	if pref.QuietHoursStart == nil || *pref.QuietHoursStart != start {
		t.Errorf("quiet hours start not persisted: %+v", pref.QuietHoursStart)
	}
}

func TestNotificationPreferencesValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedUser(t, "Alice", "alice@example.com", models.RoleResident)
	cookie := env.login(t, "alice@example.com")

	rec := env.do(t, http.MethodPut, "/api/v1/notifications/preferences", map[string]interface{}{
		"quietHoursEnabled": true,
		"quietHoursStart":   "25:99",
		"quietHoursEnd":     "07:00",
	}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid clock string, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/api/v1/notifications/preferences", map[string]interface{}{
		"quietHoursEnabled": true,
		"quietHoursStart":   "22:00",
	}, cookie)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing quiet hours end, got %d", rec.Code)
	}
}

func TestPushSubscriptionLifecycle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.seedUser(t, "Alice", "alice@example.com", models.RoleResident)
	cookie := env.login(t, "alice@example.com")

	rec := env.do(t, http.MethodGet, "/api/v1/notifications/vapid-key", nil, cookie)
	var vapid map[string]interface{}
	dataInto(t, rec, &vapid)
	if vapid["enabled"] != false {
		t.Errorf("push should be disabled without VAPID keys, got %+v", vapid)
	}

	rec = env.do(t, http.MethodPost, "/api/v1/notifications/subscribe", map[string]interface{}{
		"endpoint": "https://push.example.com/sub/abc",
		"keys":     map[string]string{"p256dh": "key-material", "auth": "auth-secret"},
	}, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 subscribing, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/notifications/unsubscribe",
		map[string]string{"endpoint": "https://push.example.com/sub/abc"}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 unsubscribing, got %d", rec.Code)
	}
}
