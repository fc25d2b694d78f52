// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package models

import "time"

// APIResponse is the uniform envelope for every JSON endpoint.
type APIResponse struct {
	Status   string      `json:"status"` // "success" or "error"
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing information.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError carries a machine-readable code and a human-readable message.
//
// Codes map onto the error taxonomy: UNAUTHORIZED, FORBIDDEN, NOT_FOUND,
// VALIDATION_ERROR, RATE_LIMITED, INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// CurrentLocation is the payload of GET /locations/current. When the subject
// has never been reported, PlaceID is nil and Message explains the sentinel;
// this is a successful response, not an error.
type CurrentLocation struct {
	SubjectID    string     `json:"subjectId"`
	PlaceID      *string    `json:"placeId"`
	SubPlaceID   *string    `json:"subPlaceId,omitempty"`
	PlaceType    string     `json:"placeType,omitempty"`
	PlaceName    string     `json:"placeName,omitempty"`
	SubPlaceName *string    `json:"subPlaceName,omitempty"`
	EntryTime    *time.Time `json:"entryTime,omitempty"`
	ExitTime     *time.Time `json:"exitTime"`
	Message      string     `json:"message,omitempty"`
}

// DisplayName renders "Place" or "Place - SubPlace" for chat announcements
// and notifications.
func (c *CurrentLocation) DisplayName() string {
	if c.SubPlaceName != nil && *c.SubPlaceName != "" {
		return c.PlaceName + " - " + *c.SubPlaceName
	}
	return c.PlaceName
}
