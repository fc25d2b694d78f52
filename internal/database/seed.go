// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trocker-app/trocker/internal/logging"
	"github.com/trocker-app/trocker/internal/models"
)

// SeedSubject ensures the configured tracked subject exists. Idempotent:
// an existing subject is left untouched, including its hunger state.
func (db *DB) SeedSubject(ctx context.Context, id, name string) error {
	_, err := db.GetSubject(ctx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrSubjectNotFound) {
		return err
	}

	now := time.Now()
	if _, err := db.conn.ExecContext(ctx,
		`INSERT INTO subjects (id, name, hunger_level, last_fed_at, last_hunger_update, created_at)
		 VALUES (?, ?, 0, NULL, ?, ?)`,
		id, name, now, now); err != nil {
		return fmt.Errorf("failed to seed subject: %w", err)
	}

	logging.Info().Str("subject_id", id).Str("name", name).Msg("Seeded tracked subject")
	return nil
}

// SeedAdmin creates the bootstrap admin account when no users exist yet.
// Skipped silently when the instance already has users or no admin
// credentials are configured.
func (db *DB) SeedAdmin(ctx context.Context, name, email, passwordHash string) error {
	if email == "" || passwordHash == "" {
		return nil
	}

	count, err := db.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	admin := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.RoleAdmin,
	}
	if _, err := db.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	logging.Info().Str("email", email).Msg("Seeded bootstrap admin account")
	return nil
}

// SeedDetectorUser ensures the detector's system account exists. Chat
// announcements posted by the webhook are authored by this account.
// Idempotent; the account has no password and cannot log in.
func (db *DB) SeedDetectorUser(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	_, err := db.GetUser(ctx, id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	if _, err := db.CreateUser(ctx, &models.User{
		ID:    id,
		Name:  "Detection System",
		Email: id + "@system.invalid",
		Role:  models.RoleResident,
	}); err != nil {
		return fmt.Errorf("failed to seed detector user: %w", err)
	}

	logging.Info().Str("user_id", id).Msg("Seeded detector system account")
	return nil
}

// SeedDetectorPlace ensures the camera detector's pre-provisioned place and
// sub-place exist so webhook arrivals always resolve. Idempotent.
func (db *DB) SeedDetectorPlace(ctx context.Context, externalID, placeName, subPlaceName string) error {
	if externalID == "" {
		return nil
	}

	place, err := db.GetPlaceByExternalID(ctx, externalID)
	if errors.Is(err, ErrPlaceNotFound) {
		place, err = db.CreatePlace(ctx, &models.Place{
			Name:       placeName,
			Type:       models.PlaceTypeOutdoor,
			ExternalID: &externalID,
		})
		if err != nil {
			return err
		}
		logging.Info().Str("external_id", externalID).Msg("Seeded detector place")
	} else if err != nil {
		return err
	}

	if subPlaceName == "" {
		return nil
	}
	_, err = db.GetSubPlaceByName(ctx, place.ID, subPlaceName)
	if errors.Is(err, ErrSubPlaceNotFound) {
		if _, err := db.CreateSubPlace(ctx, &models.SubPlace{
			PlaceID: place.ID,
			Name:    subPlaceName,
		}); err != nil {
			return err
		}
		logging.Info().Str("sub_place", subPlaceName).Msg("Seeded detector sub-place")
		return nil
	}
	return err
}
