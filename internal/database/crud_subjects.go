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

	"github.com/trocker-app/trocker/internal/models"
)

// GetSubject returns one subject by id.
func (db *DB) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, name, hunger_level, last_fed_at, last_hunger_update, created_at FROM subjects WHERE id = ?`, id)
	subject, err := scanSubject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubjectNotFound
	}
	return subject, err
}

// ListSubjects returns all subjects ordered by name.
func (db *DB) ListSubjects(ctx context.Context) ([]*models.Subject, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, hunger_level, last_fed_at, last_hunger_update, created_at FROM subjects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subjects: %w", err)
	}
	defer closeQuietly(rows)

	var subjects []*models.Subject
	for rows.Next() {
		subject, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, subject)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subjects: %w", err)
	}
	return subjects, nil
}

// RefreshHunger applies time-based hunger decay and persists the result.
// Hunger accumulates at decayPerHour points per hour since the last update,
// clamped to [0, 100]. Called lazily on reads so no background job is needed.
func (db *DB) RefreshHunger(ctx context.Context, id string, decayPerHour float64) (*models.Subject, error) {
	subject, err := db.GetSubject(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	elapsed := now.Sub(subject.LastHungerUpdate).Hours()
	if elapsed <= 0 || decayPerHour <= 0 {
		return subject, nil
	}

	level := subject.HungerLevel + elapsed*decayPerHour
	if level > 100 {
		level = 100
	}

	if _, err := db.conn.ExecContext(ctx,
		`UPDATE subjects SET hunger_level = ?, last_hunger_update = ? WHERE id = ?`,
		level, now, id); err != nil {
		return nil, fmt.Errorf("failed to update hunger: %w", err)
	}

	subject.HungerLevel = level
	subject.LastHungerUpdate = now
	return subject, nil
}

// FeedSubject resets hunger to zero and records the feeding time.
func (db *DB) FeedSubject(ctx context.Context, id string) (*models.Subject, error) {
	now := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`UPDATE subjects SET hunger_level = 0, last_fed_at = ?, last_hunger_update = ? WHERE id = ?`,
		now, now, id)
	if err != nil {
		return nil, fmt.Errorf("failed to feed subject: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrSubjectNotFound
	}
	return db.GetSubject(ctx, id)
}

func scanSubject(row rowScanner) (*models.Subject, error) {
	var (
		s         models.Subject
		lastFedAt sql.NullTime
	)
	if err := row.Scan(&s.ID, &s.Name, &s.HungerLevel, &lastFedAt, &s.LastHungerUpdate, &s.CreatedAt); err != nil {
		return nil, err
	}
	if lastFedAt.Valid {
		t := lastFedAt.Time
		s.LastFedAt = &t
	}
	return &s, nil
}
