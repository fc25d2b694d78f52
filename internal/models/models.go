// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

// Package models defines the data structures used throughout Trocker:
// subjects, places, location reports, chat messages, and the API envelope.
package models

import "time"

// Place types. A place is a named location node inside or around the building.
const (
	PlaceTypeUnit    = "unit"    // residential apartment
	PlaceTypeOutdoor = "outdoor" // garden, courtyard, street side
	PlaceTypeShared  = "shared"  // stairwell, laundry room, roof terrace
)

// User roles.
const (
	RoleAdmin    = "admin"
	RoleResident = "resident"
)

// Subject is a tracked pet. The application ships with a single subject but
// the schema allows several.
type Subject struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	HungerLevel      float64    `json:"hungerLevel"`
	LastFedAt        *time.Time `json:"lastFedAt,omitempty"`
	LastHungerUpdate time.Time  `json:"lastHungerUpdate"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// User is a resident or administrator of the building.
// PasswordHash never leaves the server; it is excluded from JSON.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Place is a named, typed location with a display position for the map view.
type Place struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	ExternalID *string   `json:"externalId,omitempty"`
	PosX       float64   `json:"posX"`
	PosY       float64   `json:"posY"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SubPlace is a finer-grained subdivision of a Place, optionally owned by a
// user. Reports into an owned sub-place are restricted to its owner.
type SubPlace struct {
	ID          string    `json:"id"`
	PlaceID     string    `json:"placeId"`
	Name        string    `json:"name"`
	OwnerUserID *string   `json:"ownerUserId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// LocationReport records one continuous stay of a subject at a place.
// ExitTime is nil while the report is open; the invariant maintained by the
// writer is that at most one report per subject is open at any time.
type LocationReport struct {
	ID         string     `json:"id"`
	SubjectID  string     `json:"subjectId"`
	ReporterID string     `json:"reporterId"`
	PlaceID    string     `json:"placeId"`
	SubPlaceID *string    `json:"subPlaceId,omitempty"`
	EntryTime  time.Time  `json:"entryTime"`
	ExitTime   *time.Time `json:"exitTime"`
	Notes      *string    `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`

	// Resolved display names, populated on reads that join places.
	PlaceName    string  `json:"placeName,omitempty"`
	SubPlaceName *string `json:"subPlaceName,omitempty"`
	ReporterName string  `json:"reporterName,omitempty"`
}

// IsOpen reports whether this is the currently believed location.
func (r *LocationReport) IsOpen() bool {
	return r.ExitTime == nil
}

// Message is a chat message posted by a resident or by the detector system.
// Deleted messages are soft-deleted and excluded from listings.
type Message struct {
	ID              string     `json:"id"`
	UserID          string     `json:"userId"`
	Content         string     `json:"content"`
	ReplyToID       *string    `json:"replyToId,omitempty"`
	ReplyToContent  *string    `json:"replyToContent,omitempty"`
	ReplyToUserName *string    `json:"replyToUserName,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	DeletedAt       *time.Time `json:"deletedAt,omitempty"`

	UserName  string `json:"userName,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`
}

// PushSubscription is one browser push endpoint registered by a user.
type PushSubscription struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Endpoint  string    `json:"endpoint"`
	P256DH    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	CreatedAt time.Time `json:"createdAt"`
}

// NotificationPreference controls which push categories a user receives and
// an optional quiet-hours window ("HH:MM" clock strings, may wrap midnight).
type NotificationPreference struct {
	UserID            string    `json:"userId"`
	EnableMessages    bool      `json:"enableMessages"`
	EnableArrival     bool      `json:"enableArrival"`
	EnableDeparture   bool      `json:"enableDeparture"`
	QuietHoursEnabled bool      `json:"quietHoursEnabled"`
	QuietHoursStart   *string   `json:"quietHoursStart,omitempty"`
	QuietHoursEnd     *string   `json:"quietHoursEnd,omitempty"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// DefaultNotificationPreference returns the preference applied to users who
// have never saved one: everything on, no quiet hours.
func DefaultNotificationPreference(userID string) *NotificationPreference {
	return &NotificationPreference{
		UserID:          userID,
		EnableMessages:  true,
		EnableArrival:   true,
		EnableDeparture: true,
		UpdatedAt:       time.Now(),
	}
}

// Invite is an admin-issued invitation token. Accepting an unexpired invite
// creates the resident account.
type Invite struct {
	ID         string     `json:"id"`
	Token      string     `json:"token"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	CreatedBy  string     `json:"createdBy"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// IsExpired reports whether the invite can no longer be accepted.
func (i *Invite) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

// Stats summarizes the instance for the dashboard header.
type Stats struct {
	TotalReports   int        `json:"totalReports"`
	OpenReports    int        `json:"openReports"`
	TotalMessages  int        `json:"totalMessages"`
	TotalUsers     int        `json:"totalUsers"`
	LastReportTime *time.Time `json:"lastReportTime,omitempty"`
	StreamClients  int        `json:"streamClients"`
	SocketClients  int        `json:"socketClients"`
	UptimeSeconds  int64      `json:"uptimeSeconds"`
}
