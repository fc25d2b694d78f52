// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package api

import (
	"net/http"
	"time"

	"github.com/trocker-app/trocker/internal/auth"
	"github.com/trocker-app/trocker/internal/models"
	"github.com/trocker-app/trocker/internal/validation"
)

// VAPIDPublicKey returns the server's public key for browser push
// registration, and whether push is configured at all.
func (h *Handler) VAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]interface{}{
		"enabled":   h.cfg.Push.Enabled(),
		"publicKey": h.cfg.Push.VAPIDPublicKey,
	}, time.Time{})
}

// Subscribe registers a browser push endpoint for the authenticated user.
// Re-registering an endpoint moves it to the current user.
func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w, "Authentication required")
		return
	}

	var req subscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		respondValidationError(w, ve)
		return
	}

	sub, err := h.db.SavePushSubscription(r.Context(), &models.PushSubscription{
		UserID:   user.ID,
		Endpoint: req.Endpoint,
		P256DH:   req.Keys.P256DH,
		Auth:     req.Keys.Auth,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusCreated, sub, time.Time{})
}

// Unsubscribe removes a push endpoint.
func (h *Handler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w, "Authentication required")
		return
	}

	var req unsubscribeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		respondValidationError(w, ve)
		return
	}

	if err := h.db.DeletePushSubscription(r.Context(), req.Endpoint); err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"unsubscribed": true}, time.Time{})
}

// GetPreferences returns the user's notification preferences, falling back
// to the defaults for users who never saved any.
func (h *Handler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w, "Authentication required")
		return
	}

	pref, err := h.db.GetNotificationPreference(r.Context(), user.ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusOK, pref, time.Time{})
}

// SavePreferences replaces the user's notification preferences.
func (h *Handler) SavePreferences(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w, "Authentication required")
		return
	}

	var req preferencesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		respondValidationError(w, ve)
		return
	}
	if req.QuietHoursEnabled && (req.QuietHoursStart == nil || req.QuietHoursEnd == nil) {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "Quiet hours require both a start and an end time")
		return
	}

	pref, err := h.db.SaveNotificationPreference(r.Context(), &models.NotificationPreference{
		UserID:            user.ID,
		EnableMessages:    req.EnableMessages,
		EnableArrival:     req.EnableArrival,
		EnableDeparture:   req.EnableDeparture,
		QuietHoursEnabled: req.QuietHoursEnabled,
		QuietHoursStart:   req.QuietHoursStart,
		QuietHoursEnd:     req.QuietHoursEnd,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusOK, pref, time.Time{})
}
