// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package notify

import (
	"testing"
	"time"

	"github.com/trocker-app/trocker/internal/models"
)

func prefWithQuietHours(start, end string) *models.NotificationPreference {
	pref := models.DefaultNotificationPreference("u1")
	pref.QuietHoursEnabled = true
	pref.QuietHoursStart = &start
	pref.QuietHoursEnd = &end
	return pref
}

func clock(hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

func TestInQuietHoursSameDayWindow(t *testing.T) {
	t.Parallel()

	pref := prefWithQuietHours("13:00", "15:00")

	tests := []struct {
		now  string
		want bool
	}{
		{"12:59", false},
		{"13:00", true},
		{"14:30", true},
		{"15:00", false},
		{"20:00", false},
	}
	for _, tt := range tests {
		if got := inQuietHours(pref, clock(tt.now)); got != tt.want {
			t.Errorf("inQuietHours at %s = %v, want %v", tt.now, got, tt.want)
		}
	}
}

func TestInQuietHoursOvernightWindow(t *testing.T) {
	t.Parallel()

	pref := prefWithQuietHours("22:00", "07:00")

	tests := []struct {
		now  string
		want bool
	}{
		{"21:59", false},
		{"22:00", true},
		{"23:30", true},
		{"00:00", true},
		{"06:59", true},
		{"07:00", false},
		{"12:00", false},
	}
	for _, tt := range tests {
		if got := inQuietHours(pref, clock(tt.now)); got != tt.want {
			t.Errorf("inQuietHours at %s = %v, want %v", tt.now, got, tt.want)
		}
	}
}

func TestInQuietHoursDisabledOrIncomplete(t *testing.T) {
	t.Parallel()

	pref := models.DefaultNotificationPreference("u1")
	if inQuietHours(pref, clock("03:00")) {
		t.Error("disabled quiet hours must never match")
	}

	start := "22:00"
	pref.QuietHoursEnabled = true
	pref.QuietHoursStart = &start
	if inQuietHours(pref, clock("23:00")) {
		t.Error("quiet hours without an end time must never match")
	}

	bad := "25:99"
	pref.QuietHoursEnd = &bad
	if inQuietHours(pref, clock("23:00")) {
		t.Error("unparseable quiet hours must never match")
	}
}

func TestCategoryEnabled(t *testing.T) {
	t.Parallel()

	pref := models.DefaultNotificationPreference("u1")
	pref.EnableArrival = false

	if !categoryEnabled(pref, CategoryMessage) {
		t.Error("messages should be enabled by default")
	}
	if categoryEnabled(pref, CategoryArrival) {
		t.Error("arrival was disabled")
	}
	if !categoryEnabled(pref, CategoryDeparture) {
		t.Error("departure should be enabled")
	}
	if categoryEnabled(pref, "unknown") {
		t.Error("unknown categories must be disabled")
	}
}
