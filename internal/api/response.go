// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/trocker-app/trocker/internal/database"
	"github.com/trocker-app/trocker/internal/logging"
	"github.com/trocker-app/trocker/internal/models"
	"github.com/trocker-app/trocker/internal/validation"
)

// Error codes carried in the response envelope.
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// respondData writes a success envelope. start stamps query_time_ms; pass
// the zero time to omit it.
func respondData(w http.ResponseWriter, status int, data interface{}, start time.Time) {
	meta := models.Metadata{Timestamp: time.Now()}
	if !start.IsZero() {
		meta.QueryTimeMS = time.Since(start).Milliseconds()
	}
	writeJSON(w, status, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: meta,
	})
}

// respondError writes an error envelope.
func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error:    &models.APIError{Code: code, Message: message},
	})
}

// respondValidationError translates a validator failure into the envelope.
func respondValidationError(w http.ResponseWriter, ve *validation.RequestValidationError) {
	apiErr := ve.ToAPIError()
	writeJSON(w, http.StatusBadRequest, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now()},
		Error: &models.APIError{
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		},
	})
}

// respondStoreError maps database sentinel errors onto the error taxonomy.
// Unknown errors are logged and surfaced as a generic 500.
func respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound),
		errors.Is(err, database.ErrPlaceNotFound),
		errors.Is(err, database.ErrSubPlaceNotFound),
		errors.Is(err, database.ErrSubjectNotFound),
		errors.Is(err, database.ErrUserNotFound),
		errors.Is(err, database.ErrMessageNotFound),
		errors.Is(err, database.ErrInviteNotFound):
		respondError(w, http.StatusNotFound, ErrCodeNotFound, err.Error())
	case errors.Is(err, database.ErrSubPlaceMismatch),
		errors.Is(err, database.ErrEntryBeforeOpen),
		errors.Is(err, database.ErrEmailTaken),
		errors.Is(err, database.ErrInviteExpired),
		errors.Is(err, database.ErrInviteAccepted),
		errors.Is(err, database.ErrPlaceHasReports):
		respondError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		logging.Error().Err(err).Msg("Unhandled store error")
		respondError(w, http.StatusInternalServerError, ErrCodeInternal, "An internal error occurred")
	}
}

// writeUnauthorized and writeForbidden match the callback signatures the
// auth middleware expects.
func writeUnauthorized(w http.ResponseWriter, message string) {
	respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	respondError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

func writeJSON(w http.ResponseWriter, status int, resp *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// decodeJSON decodes a request body with a 1 MiB cap and rejects unknown
// fields so typos fail loudly instead of being ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "Invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// sanitizeLogValue strips control characters from attacker-supplied strings
// before they reach a log line.
func sanitizeLogValue(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
