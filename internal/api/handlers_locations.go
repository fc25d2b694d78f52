// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/trocker-app/trocker/internal/auth"
	"github.com/trocker-app/trocker/internal/events"
	"github.com/trocker-app/trocker/internal/metrics"
	"github.com/trocker-app/trocker/internal/models"
	"github.com/trocker-app/trocker/internal/validation"
)

const (
	defaultTimelineLimit = 50
	maxTimelineLimit     = 200
)

// CreateReport records a sighting. The store closes the previous open
// report and opens the new one in a single transaction; afterwards a
// location-update event fans out to live clients.
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req reportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if ve := validation.ValidateStruct(&req); ve != nil {
		respondValidationError(w, ve)
		return
	}

	subject, err := h.db.GetSubject(r.Context(), req.SubjectID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	user := auth.UserFromContext(r.Context())
	reporterID := "anonymous"
	if user != nil {
		reporterID = user.ID
	}

	// Owner-restricted sub-places accept reports only from their owner
	// (admins excepted). The detector webhook has its own path.
	if req.SubPlaceID != nil && user != nil {
		subPlace, err := h.db.GetSubPlace(r.Context(), *req.SubPlaceID)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		if subPlace.OwnerUserID != nil && *subPlace.OwnerUserID != user.ID && user.Role != models.RoleAdmin {
			writeForbidden(w, "This area only accepts reports from its owner")
			return
		}
	}

	report := &models.LocationReport{
		SubjectID:  subject.ID,
		ReporterID: reporterID,
		PlaceID:    req.PlaceID,
		SubPlaceID: req.SubPlaceID,
		Notes:      req.Notes,
	}
	if req.EntryTime != nil {
		report.EntryTime = *req.EntryTime
	}

	created, err := h.db.CreateLocationReport(r.Context(), report)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	metrics.ReportsCreated.WithLabelValues("manual").Inc()

	current, err := h.db.GetCurrentLocation(r.Context(), subject)
	if err == nil {
		h.publish(events.Event{
			Type: events.TypeLocationUpdate,
			Data: &events.LocationUpdate{
				Report:  created,
				Current: current,
				Source:  "manual",
			},
		})
	}

	respondData(w, http.StatusCreated, created, start)
}

// CurrentLocation returns the open report for the subject, or the "not yet
// seen" sentinel. The sentinel is a success, never an error.
func (h *Handler) CurrentLocation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	subject, err := h.db.GetSubject(r.Context(), h.subjectID(r))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	current, err := h.db.GetCurrentLocation(r.Context(), subject)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusOK, current, start)
}

// Timeline returns the most recent reports, newest first. Supports
// limit and a "before" timestamp filter for paging into history.
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	limit := defaultTimelineLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(w, http.StatusBadRequest, ErrCodeValidation, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxTimelineLimit)
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

	reports, err := h.db.GetTimeline(r.Context(), h.subjectID(r), limit, before)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusOK, reports, start)
}

// subjectID resolves the subject query parameter, defaulting to the
// configured subject so single-pet installs can omit it.
func (h *Handler) subjectID(r *http.Request) string {
	if id := r.URL.Query().Get("subjectId"); id != "" {
		return id
	}
	return h.cfg.Subject.ID
}
