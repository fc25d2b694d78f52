// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package database

import "errors"

// Sentinel errors returned by data access methods. Handlers map these onto
// HTTP status codes; everything else is an internal error.
var (
	ErrNotFound          = errors.New("record not found")
	ErrPlaceNotFound     = errors.New("place not found")
	ErrSubPlaceNotFound  = errors.New("sub-place not found")
	ErrSubPlaceMismatch  = errors.New("sub-place does not belong to place")
	ErrSubjectNotFound   = errors.New("subject not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrEmailTaken        = errors.New("email already registered")
	ErrMessageNotFound   = errors.New("message not found")
	ErrInviteNotFound    = errors.New("invite not found")
	ErrInviteExpired     = errors.New("invite expired")
	ErrInviteAccepted    = errors.New("invite already accepted")
	ErrNoOpenReport      = errors.New("no open report matches")
	ErrPlaceHasReports   = errors.New("place has location reports")
	ErrEntryBeforeOpen   = errors.New("entry time precedes the open report")
)
