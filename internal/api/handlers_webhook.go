// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/trocker-app/trocker/internal/database"
	"github.com/trocker-app/trocker/internal/events"
	"github.com/trocker-app/trocker/internal/logging"
	"github.com/trocker-app/trocker/internal/metrics"
	"github.com/trocker-app/trocker/internal/models"
	"github.com/trocker-app/trocker/internal/validation"
)

// Webhook receives arrival and departure events from the external camera
// detector. The payload is a tagged union on the event field; both shapes
// are validated before any state is touched, and unauthenticated requests
// never mutate anything.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeWebhook(r) {
		metrics.WebhookAuthFailures.Inc()
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid webhook secret")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "Failed to read request body")
		return
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "Invalid JSON body")
		return
	}

	switch envelope.Event {
	case "arrival":
		h.webhookArrival(w, r, body)
	case "departure":
		h.webhookDeparture(w, r, body)
	default:
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		respondError(w, http.StatusBadRequest, ErrCodeValidation,
			fmt.Sprintf("Unknown event type: %s", sanitizeLogValue(envelope.Event)))
	}
}

// authorizeWebhook checks the shared secret in the Authorization header,
// accepting both "Bearer <secret>" and the raw secret. Comparison is
// constant time. An unconfigured secret rejects everything.
func (h *Handler) authorizeWebhook(r *http.Request) bool {
	secret := h.cfg.Webhook.Secret
	if secret == "" {
		logging.Error().Msg("Webhook rejected: no webhook secret configured")
		return false
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return false
	}
	token := strings.TrimPrefix(header, "Bearer ")

	return subtle.ConstantTimeCompare([]byte(token), []byte(secret)) == 1
}

// webhookArrival opens a report at the pre-provisioned detector place,
// announces the sighting in chat, and fans the update out to live clients.
// The announcement is best-effort: its failure never fails the webhook.
func (h *Handler) webhookArrival(w http.ResponseWriter, r *http.Request, body []byte) {
	var payload arrivalEvent
	if err := json.Unmarshal(body, &payload); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "Invalid arrival payload")
		return
	}
	if ve := validation.ValidateStruct(&payload); ve != nil {
		metrics.WebhookEvents.WithLabelValues("arrival", "rejected").Inc()
		respondValidationError(w, ve)
		return
	}

	ctx := r.Context()
	subject, err := h.db.GetSubject(ctx, h.cfg.Subject.ID)
	if err != nil {
		h.webhookError(w, "arrival", err)
		return
	}
	place, err := h.db.GetPlaceByExternalID(ctx, h.cfg.Webhook.DetectorPlaceExternalID)
	if err != nil {
		h.webhookError(w, "arrival", err)
		return
	}

	var subPlaceID *string
	if name := h.cfg.Webhook.DetectorSubPlaceName; name != "" {
		subPlace, err := h.db.GetSubPlaceByName(ctx, place.ID, name)
		if err != nil {
			h.webhookError(w, "arrival", err)
			return
		}
		subPlaceID = &subPlace.ID
	}

	notes := fmt.Sprintf("Detected by camera (visit %s)", payload.VisitID)
	report, err := h.db.CreateLocationReport(ctx, &models.LocationReport{
		SubjectID:  subject.ID,
		ReporterID: h.cfg.Webhook.ReporterID,
		PlaceID:    place.ID,
		SubPlaceID: subPlaceID,
		EntryTime:  payload.Timestamp,
		Notes:      &notes,
	})
	if err != nil {
		h.webhookError(w, "arrival", err)
		return
	}
	metrics.ReportsCreated.WithLabelValues("webhook").Inc()
	metrics.WebhookEvents.WithLabelValues("arrival", "processed").Inc()

	current, err := h.db.GetCurrentLocation(ctx, subject)
	if err == nil {
		h.publish(events.Event{
			Type: events.TypeLocationUpdate,
			Data: &events.LocationUpdate{
				Report:  report,
				Current: current,
				Source:  "webhook",
			},
		})
		h.announceArrival(ctx, subject.Name, current)
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"processed": "arrival",
		"reportId":  report.ID,
	}, time.Time{})
}

// announceArrival posts the detection to chat as the detector's system
// account. Failures are logged, not propagated.
func (h *Handler) announceArrival(ctx context.Context, name string, current *models.CurrentLocation) {
	content := fmt.Sprintf("%s detected at %s! Spotted at %s",
		name, current.DisplayName(), current.EntryTime.Format("15:04"))

	msg, err := h.db.CreateMessage(ctx, &models.Message{
		UserID:  h.cfg.Webhook.ReporterID,
		Content: content,
	})
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to post arrival announcement")
		return
	}
	h.publish(events.Event{Type: events.TypeMessageNew, Data: msg})
}

// webhookDeparture closes the open report paired with the arrival. The
// visit id embedded in the report notes is authoritative; entry-time
// proximity within the configured tolerance is the fallback. A departure
// that matches nothing is acknowledged without mutating anything.
func (h *Handler) webhookDeparture(w http.ResponseWriter, r *http.Request, body []byte) {
	var payload departureEvent
	if err := json.Unmarshal(body, &payload); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "Invalid departure payload")
		return
	}
	if ve := validation.ValidateStruct(&payload); ve != nil {
		metrics.WebhookEvents.WithLabelValues("departure", "rejected").Inc()
		respondValidationError(w, ve)
		return
	}

	duration := payload.DurationHuman
	if duration == "" {
		duration = (time.Duration(payload.DurationSeconds) * time.Second).String()
	}
	suffix := fmt.Sprintf("Duration: %s, Detections: %d", duration, payload.DetectionCount)

	report, err := h.db.CloseReportForDeparture(r.Context(), h.cfg.Subject.ID, payload.VisitID,
		payload.ArrivalTime, payload.DepartureTime, h.cfg.Webhook.MatchTolerance, suffix)
	if errors.Is(err, database.ErrNoOpenReport) {
		logging.Warn().Str("visit_id", sanitizeLogValue(payload.VisitID)).Msg("Departure matched no open report")
		metrics.WebhookEvents.WithLabelValues("departure", "unmatched").Inc()
		respondData(w, http.StatusOK, map[string]interface{}{
			"processed": "departure",
			"matched":   false,
		}, time.Time{})
		return
	}
	if err != nil {
		h.webhookError(w, "departure", err)
		return
	}
	metrics.ReportsClosed.WithLabelValues("departure").Inc()
	metrics.WebhookEvents.WithLabelValues("departure", "processed").Inc()

	if subject, err := h.db.GetSubject(r.Context(), h.cfg.Subject.ID); err == nil {
		if current, err := h.db.GetCurrentLocation(r.Context(), subject); err == nil {
			h.publish(events.Event{
				Type: events.TypeLocationUpdate,
				Data: &events.LocationUpdate{
					Report:   report,
					Current:  current,
					Source:   "webhook",
					Departed: true,
				},
			})
		}
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"processed": "departure",
		"matched":   true,
		"reportId":  report.ID,
	}, time.Time{})
}

// webhookError reports a processing failure. The detector's place, sub-place,
// and subject are seeded at startup, so a lookup miss here is server
// misconfiguration, not a client error.
func (h *Handler) webhookError(w http.ResponseWriter, eventType string, err error) {
	logging.Error().Err(err).Str("event_type", eventType).Msg("Webhook processing failed")
	metrics.WebhookEvents.WithLabelValues(eventType, "error").Inc()
	respondError(w, http.StatusInternalServerError, ErrCodeInternal, "Failed to process webhook event")
}
