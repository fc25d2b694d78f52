// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/trocker-app/trocker/internal/models"
)

// CreatePlace inserts a new place.
func (db *DB) CreatePlace(ctx context.Context, place *models.Place) (*models.Place, error) {
	if place.ID == "" {
		place.ID = uuid.New().String()
	}
	if place.CreatedAt.IsZero() {
		place.CreatedAt = time.Now()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO places (id, name, type, external_id, pos_x, pos_y, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		place.ID, place.Name, place.Type, place.ExternalID, place.PosX, place.PosY, place.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert place: %w", err)
	}
	return place, nil
}

// GetPlace returns one place by id.
func (db *DB) GetPlace(ctx context.Context, id string) (*models.Place, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, name, type, external_id, pos_x, pos_y, created_at FROM places WHERE id = ?`, id)
	place, err := scanPlace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlaceNotFound
	}
	return place, err
}

// GetPlaceByExternalID returns the place carrying the given external id.
// The detector webhook uses this to resolve its pre-provisioned place.
func (db *DB) GetPlaceByExternalID(ctx context.Context, externalID string) (*models.Place, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, name, type, external_id, pos_x, pos_y, created_at FROM places WHERE external_id = ?`,
		externalID)
	place, err := scanPlace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPlaceNotFound
	}
	return place, err
}

// ListPlaces returns all places ordered by name.
func (db *DB) ListPlaces(ctx context.Context) ([]*models.Place, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, type, external_id, pos_x, pos_y, created_at FROM places ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query places: %w", err)
	}
	defer closeQuietly(rows)

	var places []*models.Place
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		places = append(places, place)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate places: %w", err)
	}
	return places, nil
}

// UpdatePlace updates a place's mutable fields.
func (db *DB) UpdatePlace(ctx context.Context, place *models.Place) (*models.Place, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE places SET name = ?, type = ?, external_id = ?, pos_x = ?, pos_y = ? WHERE id = ?`,
		place.Name, place.Type, place.ExternalID, place.PosX, place.PosY, place.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update place: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrPlaceNotFound
	}
	return db.GetPlace(ctx, place.ID)
}

// DeletePlace removes a place and its sub-places. A place with location
// reports cannot be deleted; the timeline must stay resolvable.
func (db *DB) DeletePlace(ctx context.Context, id string) error {
	var hasReports bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT TRUE FROM location_reports WHERE place_id = ? LIMIT 1`, id).Scan(&hasReports)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to check place reports: %w", err)
	}
	if hasReports {
		return ErrPlaceHasReports
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	if _, err := tx.ExecContext(ctx, `DELETE FROM sub_places WHERE place_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete sub-places: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM places WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete place: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPlaceNotFound
	}
	return tx.Commit()
}

// CreateSubPlace inserts a new sub-place under an existing place.
func (db *DB) CreateSubPlace(ctx context.Context, subPlace *models.SubPlace) (*models.SubPlace, error) {
	if subPlace.ID == "" {
		subPlace.ID = uuid.New().String()
	}
	if subPlace.CreatedAt.IsZero() {
		subPlace.CreatedAt = time.Now()
	}

	if _, err := db.GetPlace(ctx, subPlace.PlaceID); err != nil {
		return nil, err
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sub_places (id, place_id, name, owner_user_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		subPlace.ID, subPlace.PlaceID, subPlace.Name, subPlace.OwnerUserID, subPlace.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert sub-place: %w", err)
	}
	return subPlace, nil
}

// GetSubPlace returns one sub-place by id.
func (db *DB) GetSubPlace(ctx context.Context, id string) (*models.SubPlace, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, place_id, name, owner_user_id, created_at FROM sub_places WHERE id = ?`, id)
	subPlace, err := scanSubPlace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubPlaceNotFound
	}
	return subPlace, err
}

// GetSubPlaceByName returns the sub-place with the given name under a place.
func (db *DB) GetSubPlaceByName(ctx context.Context, placeID, name string) (*models.SubPlace, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, place_id, name, owner_user_id, created_at FROM sub_places WHERE place_id = ? AND name = ?`,
		placeID, name)
	subPlace, err := scanSubPlace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubPlaceNotFound
	}
	return subPlace, err
}

// ListSubPlaces returns the sub-places of a place ordered by name.
func (db *DB) ListSubPlaces(ctx context.Context, placeID string) ([]*models.SubPlace, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, place_id, name, owner_user_id, created_at FROM sub_places WHERE place_id = ? ORDER BY name`,
		placeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sub-places: %w", err)
	}
	defer closeQuietly(rows)

	var subPlaces []*models.SubPlace
	for rows.Next() {
		subPlace, err := scanSubPlace(rows)
		if err != nil {
			return nil, err
		}
		subPlaces = append(subPlaces, subPlace)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sub-places: %w", err)
	}
	return subPlaces, nil
}

// UpdateSubPlace updates a sub-place's name and owner.
func (db *DB) UpdateSubPlace(ctx context.Context, subPlace *models.SubPlace) (*models.SubPlace, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE sub_places SET name = ?, owner_user_id = ? WHERE id = ?`,
		subPlace.Name, subPlace.OwnerUserID, subPlace.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to update sub-place: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrSubPlaceNotFound
	}
	return db.GetSubPlace(ctx, subPlace.ID)
}

// DeleteSubPlace removes a sub-place. Reports referencing it keep their
// sub_place_id; reads resolve the name as NULL afterwards.
func (db *DB) DeleteSubPlace(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM sub_places WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sub-place: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSubPlaceNotFound
	}
	return nil
}

func scanPlace(row rowScanner) (*models.Place, error) {
	var (
		p          models.Place
		externalID sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Type, &externalID, &p.PosX, &p.PosY, &p.CreatedAt); err != nil {
		return nil, err
	}
	if externalID.Valid {
		p.ExternalID = &externalID.String
	}
	return &p, nil
}

func scanSubPlace(row rowScanner) (*models.SubPlace, error) {
	var (
		sp      models.SubPlace
		ownerID sql.NullString
	)
	if err := row.Scan(&sp.ID, &sp.PlaceID, &sp.Name, &ownerID, &sp.CreatedAt); err != nil {
		return nil, err
	}
	if ownerID.Valid {
		sp.OwnerUserID = &ownerID.String
	}
	return &sp, nil
}
