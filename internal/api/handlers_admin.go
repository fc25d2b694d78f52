// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trocker-app/trocker/internal/auth"
	"github.com/trocker-app/trocker/internal/logging"
	"github.com/trocker-app/trocker/internal/models"
	"github.com/trocker-app/trocker/internal/validation"
)

// ListPlaces returns all places. Available to every resident so the report
// form can offer them.
func (h *Handler) ListPlaces(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	places, err := h.db.ListPlaces(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusOK, places, start)
}

// ListSubPlaces returns the sub-places of one place.
func (h *Handler) ListSubPlaces(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	placeID := chi.URLParam(r, "id")
	if _, err := h.db.GetPlace(r.Context(), placeID); err != nil {
		respondStoreError(w, err)
		return
	}

	subPlaces, err := h.db.ListSubPlaces(r.Context(), placeID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusOK, subPlaces, start)
}

// CreatePlace adds a place.
func (h *Handler) CreatePlace(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		respondValidationError(w, ve)
		return
	}

	place, err := h.db.CreatePlace(r.Context(), &models.Place{
		Name:       req.Name,
		Type:       req.Type,
		ExternalID: req.ExternalID,
		PosX:       req.PosX,
		PosY:       req.PosY,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusCreated, place, time.Time{})
}

// UpdatePlace replaces a place's editable fields.
func (h *Handler) UpdatePlace(w http.ResponseWriter, r *http.Request) {
	var req placeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		respondValidationError(w, ve)
		return
	}

	place, err := h.db.UpdatePlace(r.Context(), &models.Place{
		ID:         chi.URLParam(r, "id"),
		Name:       req.Name,
		Type:       req.Type,
		ExternalID: req.ExternalID,
		PosX:       req.PosX,
		PosY:       req.PosY,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusOK, place, time.Time{})
}

// DeletePlace removes a place and its sub-places. Refused while location
// reports still reference the place.
func (h *Handler) DeletePlace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.db.DeletePlace(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}

	logging.Info().Str("place_id", id).Msg("Place deleted")
	respondData(w, http.StatusOK, map[string]interface{}{"deleted": true}, time.Time{})
}

// CreateSubPlace adds a sub-place under a place.
func (h *Handler) CreateSubPlace(w http.ResponseWriter, r *http.Request) {
	var req subPlaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		respondValidationError(w, ve)
		return
	}

	placeID := chi.URLParam(r, "id")
	if _, err := h.db.GetPlace(r.Context(), placeID); err != nil {
		respondStoreError(w, err)
		return
	}
	if req.OwnerUserID != nil {
		if _, err := h.db.GetUser(r.Context(), *req.OwnerUserID); err != nil {
			respondStoreError(w, err)
			return
		}
	}

	subPlace, err := h.db.CreateSubPlace(r.Context(), &models.SubPlace{
		PlaceID:     placeID,
		Name:        req.Name,
		OwnerUserID: req.OwnerUserID,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusCreated, subPlace, time.Time{})
}

// UpdateSubPlace renames a sub-place or changes its owner.
func (h *Handler) UpdateSubPlace(w http.ResponseWriter, r *http.Request) {
	var req subPlaceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		respondValidationError(w, ve)
		return
	}

	id := chi.URLParam(r, "id")
	existing, err := h.db.GetSubPlace(r.Context(), id)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	existing.Name = req.Name
	existing.OwnerUserID = req.OwnerUserID
	subPlace, err := h.db.UpdateSubPlace(r.Context(), existing)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusOK, subPlace, time.Time{})
}

// DeleteSubPlace removes a sub-place. Reports that referenced it keep their
// sub-place id for history.
func (h *Handler) DeleteSubPlace(w http.ResponseWriter, r *http.Request) {
	if err := h.db.DeleteSubPlace(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"deleted": true}, time.Time{})
}

// ListUsers returns all accounts.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	users, err := h.db.ListUsers(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusOK, users, start)
}

// UpdateUser changes a user's name or role.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req userUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		respondValidationError(w, ve)
		return
	}

	user, err := h.db.UpdateUser(r.Context(), &models.User{
		ID:   chi.URLParam(r, "id"),
		Name: req.Name,
		Role: req.Role,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusOK, user, time.Time{})
}

// DeleteUser removes an account and everything hanging off it, including
// any live sessions. Admins cannot delete themselves.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if actor := auth.UserFromContext(r.Context()); actor != nil && actor.ID == id {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "You cannot delete your own account")
		return
	}

	if err := h.db.DeleteUser(r.Context(), id); err != nil {
		respondStoreError(w, err)
		return
	}
	if err := h.sessions.DeleteByUser(r.Context(), id); err != nil {
		logging.Warn().Err(err).Str("user_id", id).Msg("Failed to evict deleted user's sessions")
	}

	logging.Info().Str("user_id", id).Msg("User deleted")
	respondData(w, http.StatusOK, map[string]interface{}{"deleted": true}, time.Time{})
}

// CreateInvite issues an invitation token for an email address.
func (h *Handler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())

	var req inviteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		respondValidationError(w, ve)
		return
	}

	createdBy := ""
	if user != nil {
		createdBy = user.ID
	}
	invite, err := h.db.CreateInvite(r.Context(), &models.Invite{
		Email:     req.Email,
		Role:      req.Role,
		CreatedBy: createdBy,
		ExpiresAt: time.Now().Add(h.cfg.Security.InviteTTL),
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	logging.Info().Str("email", sanitizeLogValue(req.Email)).Msg("Invite created")
	respondData(w, http.StatusCreated, invite, time.Time{})
}

// ListInvites returns all invites, accepted and pending.
func (h *Handler) ListInvites(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	invites, err := h.db.ListInvites(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusOK, invites, start)
}

// DeleteInvite revokes an invite.
func (h *Handler) DeleteInvite(w http.ResponseWriter, r *http.Request) {
	if err := h.db.DeleteInvite(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"deleted": true}, time.Time{})
}
