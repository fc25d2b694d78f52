// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package api

import (
	"net/http"
	"time"

	"github.com/trocker-app/trocker/internal/events"
	"github.com/trocker-app/trocker/internal/logging"
)

// ListSubjects returns all tracked subjects with refreshed hunger levels.
func (h *Handler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	subjects, err := h.db.ListSubjects(r.Context())
	if err != nil {
		respondStoreError(w, err)
		return
	}

	for i, subject := range subjects {
		refreshed, err := h.db.RefreshHunger(r.Context(), subject.ID, h.cfg.Hunger.DecayPerHour)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		subjects[i] = refreshed
	}
	respondData(w, http.StatusOK, subjects, start)
}

// HungerStatus returns the subject with its hunger level brought up to date.
// Hunger accrues lazily: the stored level is advanced by the hours elapsed
// since the last update, clamped to [0, 100].
func (h *Handler) HungerStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	subject, err := h.db.RefreshHunger(r.Context(), h.subjectID(r), h.cfg.Hunger.DecayPerHour)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondData(w, http.StatusOK, subject, start)
}

// Feed resets the subject's hunger to zero and stamps last_fed_at.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	subject, err := h.db.FeedSubject(r.Context(), h.subjectID(r))
	if err != nil {
		respondStoreError(w, err)
		return
	}

	logging.Info().Str("subject_id", subject.ID).Msg("Subject fed")
	h.publish(events.Event{Type: events.TypeSubjectFed, Data: subject})
	respondData(w, http.StatusOK, subject, start)
}
