// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package api

import "time"

// Request bodies, validated with the validation package before any mutation.

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Token    string `json:"token" validate:"required"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type reportRequest struct {
	SubjectID  string     `json:"subjectId" validate:"required"`
	PlaceID    string     `json:"placeId" validate:"required"`
	SubPlaceID *string    `json:"subPlaceId,omitempty"`
	Notes      *string    `json:"notes,omitempty" validate:"omitempty,max=500"`
	EntryTime  *time.Time `json:"entryTime,omitempty"`
}

type messageRequest struct {
	Content   string  `json:"content" validate:"required,min=1,max=1000"`
	ReplyToID *string `json:"replyToId,omitempty"`
}

type subscriptionKeys struct {
	P256DH string `json:"p256dh" validate:"required"`
	Auth   string `json:"auth" validate:"required"`
}

type subscribeRequest struct {
	Endpoint string           `json:"endpoint" validate:"required,url"`
	Keys     subscriptionKeys `json:"keys" validate:"required"`
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
}

type preferencesRequest struct {
	EnableMessages    bool    `json:"enableMessages"`
	EnableArrival     bool    `json:"enableArrival"`
	EnableDeparture   bool    `json:"enableDeparture"`
	QuietHoursEnabled bool    `json:"quietHoursEnabled"`
	QuietHoursStart   *string `json:"quietHoursStart,omitempty" validate:"omitempty,hhmm"`
	QuietHoursEnd     *string `json:"quietHoursEnd,omitempty" validate:"omitempty,hhmm"`
}

type placeRequest struct {
	Name       string  `json:"name" validate:"required,min=1,max=100"`
	Type       string  `json:"type" validate:"required,oneof=unit outdoor shared"`
	ExternalID *string `json:"externalId,omitempty" validate:"omitempty,max=100"`
	PosX       float64 `json:"posX"`
	PosY       float64 `json:"posY"`
}

type subPlaceRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=100"`
	OwnerUserID *string `json:"ownerUserId,omitempty"`
}

type userUpdateRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
	Role string `json:"role" validate:"required,oneof=admin resident"`
}

type inviteRequest struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=admin resident"`
}

// Webhook payloads: a tagged union discriminated by the event field.

type webhookEnvelope struct {
	Event string `json:"event"`
}

type arrivalEvent struct {
	Event          string    `json:"event" validate:"required,eq=arrival"`
	VisitID        string    `json:"visit_id" validate:"required,max=100"`
	Timestamp      time.Time `json:"timestamp" validate:"required"`
	SnapshotBase64 string    `json:"snapshot_base64,omitempty"`
}

type departureEvent struct {
	Event           string    `json:"event" validate:"required,eq=departure"`
	VisitID         string    `json:"visit_id" validate:"required,max=100"`
	ArrivalTime     time.Time `json:"arrival_time" validate:"required"`
	DepartureTime   time.Time `json:"departure_time" validate:"required"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	DurationHuman   string    `json:"duration_human,omitempty"`
	DetectionCount  int       `json:"detection_count,omitempty"`
	SnapshotBase64  string    `json:"snapshot_base64,omitempty"`
}
