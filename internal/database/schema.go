// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core tables if they do not exist.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS subjects (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL,
			hunger_level DOUBLE NOT NULL DEFAULT 0,
			last_fed_at TIMESTAMP,
			last_hunger_update TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL,
			email VARCHAR NOT NULL UNIQUE,
			password_hash VARCHAR NOT NULL,
			role VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS places (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL,
			type VARCHAR NOT NULL,
			external_id VARCHAR,
			pos_x DOUBLE NOT NULL DEFAULT 0,
			pos_y DOUBLE NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sub_places (
			id VARCHAR PRIMARY KEY,
			place_id VARCHAR NOT NULL,
			name VARCHAR NOT NULL,
			owner_user_id VARCHAR,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS location_reports (
			id VARCHAR PRIMARY KEY,
			subject_id VARCHAR NOT NULL,
			reporter_id VARCHAR NOT NULL,
			place_id VARCHAR NOT NULL,
			sub_place_id VARCHAR,
			entry_time TIMESTAMP NOT NULL,
			exit_time TIMESTAMP,
			notes VARCHAR,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id VARCHAR PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			content VARCHAR NOT NULL,
			reply_to_id VARCHAR,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			deleted_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS message_reads (
			user_id VARCHAR PRIMARY KEY,
			last_read_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS push_subscriptions (
			id VARCHAR PRIMARY KEY,
			user_id VARCHAR NOT NULL,
			endpoint VARCHAR NOT NULL UNIQUE,
			p256dh VARCHAR NOT NULL,
			auth VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notification_preferences (
			user_id VARCHAR PRIMARY KEY,
			enable_messages BOOLEAN NOT NULL DEFAULT TRUE,
			enable_arrival BOOLEAN NOT NULL DEFAULT TRUE,
			enable_departure BOOLEAN NOT NULL DEFAULT TRUE,
			quiet_hours_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			quiet_hours_start VARCHAR,
			quiet_hours_end VARCHAR,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS invites (
			id VARCHAR PRIMARY KEY,
			token VARCHAR NOT NULL UNIQUE,
			email VARCHAR NOT NULL,
			role VARCHAR NOT NULL,
			created_by VARCHAR NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			accepted_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL
		)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// createIndexes creates indexes for the common query patterns: current
// location lookup (open report per subject), timeline pagination, chat
// listing, and invite token lookup.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_reports_subject_entry ON location_reports(subject_id, entry_time DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_open ON location_reports(subject_id) WHERE exit_time IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_reports_place ON location_reports(place_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sub_places_place ON sub_places(place_id)`,
		`CREATE INDEX IF NOT EXISTS idx_push_user ON push_subscriptions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_invites_token ON invites(token)`,
	}

	for _, query := range indexes {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// migration is a single versioned schema change.
type migration struct {
	version int
	query   string
}

// migrations lists schema changes applied after the initial release, in
// order. Versions already recorded in schema_migrations are skipped.
var migrations = []migration{}

// runMigrations applies pending versioned migrations.
func (db *DB) runMigrations() error {
	ctx, cancel := schemaContext()
	defer cancel()

	applied := make(map[int]bool)
	rows, err := db.conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			closeQuietly(rows)
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		closeQuietly(rows)
		return fmt.Errorf("failed to iterate migrations: %w", err)
	}
	closeQuietly(rows)

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if _, err := db.conn.ExecContext(ctx, m.query); err != nil {
			return fmt.Errorf("migration %d failed: %w", m.version, err)
		}
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			m.version, time.Now()); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
	}

	return nil
}
