// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trocker-app/trocker/internal/models"
)

// GetStats returns the dashboard counters. Stream and socket client gauges
// are filled in by the caller; the database only knows about stored rows.
func (db *DB) GetStats(ctx context.Context) (*models.Stats, error) {
	var (
		stats          models.Stats
		lastReportTime sql.NullTime
	)

	err := db.conn.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM location_reports),
			(SELECT COUNT(*) FROM location_reports WHERE exit_time IS NULL),
			(SELECT COUNT(*) FROM messages WHERE deleted_at IS NULL),
			(SELECT COUNT(*) FROM users),
			(SELECT MAX(entry_time) FROM location_reports)
	`).Scan(&stats.TotalReports, &stats.OpenReports, &stats.TotalMessages,
		&stats.TotalUsers, &lastReportTime)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}

	if lastReportTime.Valid {
		t := lastReportTime.Time
		stats.LastReportTime = &t
	}
	return &stats, nil
}
