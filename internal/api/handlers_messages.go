// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trocker-app/trocker/internal/auth"
	"github.com/trocker-app/trocker/internal/events"
	"github.com/trocker-app/trocker/internal/models"
	"github.com/trocker-app/trocker/internal/validation"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 200
)

// ListMessages returns chat messages newest first, excluding soft-deleted
// ones. Replies carry their quoted content even when the target was deleted.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	limit := defaultMessageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, ErrCodeValidation, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxMessageLimit)
	}

	var before *time.Time
	if raw := r.URL.Query().Get("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeValidation, "before must be an RFC 3339 timestamp")
			return
		}
		before = &parsed
	}

	messages, err := h.db.ListMessages(r.Context(), limit, before)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusOK, messages, start)
}

// CreateMessage posts a chat message as the authenticated user.
func (h *Handler) CreateMessage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w, "Authentication required")
		return
	}

	var req messageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		respondValidationError(w, ve)
		return
	}

	msg, err := h.db.CreateMessage(r.Context(), &models.Message{
		UserID:    user.ID,
		Content:   req.Content,
		ReplyToID: req.ReplyToID,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	h.publish(events.Event{Type: events.TypeMessageNew, Data: msg})
	respondData(w, http.StatusCreated, msg, start)
}

// DeleteMessage soft-deletes a message. Allowed for the author and admins.
func (h *Handler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w, "Authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	msg, err := h.db.GetMessage(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if msg.UserID != user.ID && user.Role != models.RoleAdmin {
		writeForbidden(w, "Only the author or an administrator can delete a message")
		return
	}

	if err := h.db.DeleteMessage(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}

	h.publish(events.Event{
		Type: events.TypeMessageDeleted,
		Data: map[string]interface{}{"id": id},
	})
	respondData(w, http.StatusOK, map[string]interface{}{"deleted": true}, time.Time{})
}

// UnreadCount returns how many messages the user has not read yet. The
// user's own messages never count as unread.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w, "Authentication required")
		return
	}

	count, err := h.db.UnreadCount(r.Context(), user.ID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"count": count}, time.Time{})
}

// MarkRead advances the user's read cursor to now.
func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w, "Authentication required")
		return
	}

	if err := h.db.MarkMessagesRead(r.Context(), user.ID); err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"read": true}, time.Time{})
}
