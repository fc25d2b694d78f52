// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/trocker-app/trocker/internal/auth"
	"github.com/trocker-app/trocker/internal/database"
	"github.com/trocker-app/trocker/internal/logging"
	"github.com/trocker-app/trocker/internal/metrics"
	"github.com/trocker-app/trocker/internal/models"
	"github.com/trocker-app/trocker/internal/validation"
)

// Login authenticates email/password credentials. Session mode sets the
// session cookie; jwt mode returns a bearer token instead.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !h.loginLimiter.Allow(r.RemoteAddr) {
		metrics.APIRateLimitHits.WithLabelValues("/api/v1/auth/login").Inc()
		respondError(w, http.StatusTooManyRequests, ErrCodeRateLimited, "Too many login attempts, try again later")
		return
	}

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		respondValidationError(w, ve)
		return
	}

	user, err := h.db.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			metrics.LoginAttempts.WithLabelValues("failure").Inc()
			respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid email or password")
			return
		}
		respondStoreError(w, err)
		return
	}

	if user.PasswordHash == "" || auth.CheckPassword(user.PasswordHash, req.Password) != nil {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		logging.Warn().Str("email", sanitizeLogValue(req.Email)).Msg("Failed login attempt")
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid email or password")
		return
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()

	if h.authn.Mode == "jwt" {
		token, err := h.jwt.Issue(user.ID, user.Name, user.Email, user.Role)
		if err != nil {
			logging.Error().Err(err).Msg("Failed to issue token")
			respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to issue token")
			return
		}
		respondData(w, http.StatusOK, map[string]interface{}{"token": token, "user": user}, time.Time{})
		return
	}

	if err := h.createSession(w, r, user); err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to create session")
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"user": user}, time.Time{})
}

// Logout deletes the current session and clears the cookie. Safe to call
// without a session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cfg.Security.CookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			logging.Warn().Err(err).Msg("Failed to delete session on logout")
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Security.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Security.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	respondData(w, http.StatusOK, map[string]interface{}{"loggedOut": true}, time.Time{})
}

// Me returns the authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w, "Authentication required")
		return
	}
	respondData(w, http.StatusOK, user, time.Time{})
}

// VerifyInvite returns the invite for a token so the registration page can
// show the invited email before asking for a name and password.
func (h *Handler) VerifyInvite(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	invite, err := h.db.GetInviteByToken(r.Context(), token)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	if invite.AcceptedAt != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "Invite has already been accepted")
		return
	}
	if invite.IsExpired() {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "Invite has expired")
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"email":     invite.Email,
		"role":      invite.Role,
		"expiresAt": invite.ExpiresAt,
	}, time.Time{})
}

// Register accepts an invite token and creates the resident account, then
// logs the new user in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		respondValidationError(w, ve)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to hash password")
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to create account")
		return
	}

	user, err := h.db.AcceptInvite(r.Context(), req.Token, req.Name, hash)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	logging.Info().Str("user_id", user.ID).Msg("Invite accepted, account created")

	if h.authn.Mode != "jwt" {
		if err := h.createSession(w, r, user); err != nil {
			logging.Warn().Err(err).Msg("Account created but session creation failed")
		}
	}
	respondData(w, http.StatusCreated, user, time.Time{})
}

// createSession stores a new session and sets the cookie.
func (h *Handler) createSession(w http.ResponseWriter, r *http.Request, user *models.User) error {
	session := auth.NewSession(user.ID, user.Name, user.Email, user.Role, h.cfg.Security.SessionTimeout)
	if err := h.sessions.Create(r.Context(), session); err != nil {
		logging.Error().Err(err).Msg("Failed to store session")
		return err
	}

	if count, err := h.sessions.Count(r.Context()); err == nil {
		metrics.ActiveSessions.Set(float64(count))
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Security.CookieName,
		Value:    session.ID,
		Path:     "/",
		MaxAge:   int(h.cfg.Security.SessionTimeout.Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.Security.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
