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

// SavePushSubscription upserts a push subscription keyed by endpoint.
// Browsers re-register the same endpoint after a service worker update; the
// subscription moves to whichever user registered it last.
func (db *DB) SavePushSubscription(ctx context.Context, sub *models.PushSubscription) (*models.PushSubscription, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (endpoint) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			p256dh = EXCLUDED.p256dh,
			auth = EXCLUDED.auth`,
		sub.ID, sub.UserID, sub.Endpoint, sub.P256DH, sub.Auth, sub.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save push subscription: %w", err)
	}
	return sub, nil
}

// DeletePushSubscription removes a subscription by endpoint.
func (db *DB) DeletePushSubscription(ctx context.Context, endpoint string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM push_subscriptions WHERE endpoint = ?`, endpoint)
	if err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPushSubscriptions returns a user's subscriptions.
func (db *DB) ListPushSubscriptions(ctx context.Context, userID string) ([]*models.PushSubscription, error) {
	return db.queryPushSubscriptions(ctx,
		`SELECT id, user_id, endpoint, p256dh, auth, created_at FROM push_subscriptions WHERE user_id = ?`,
		userID)
}

// ListAllPushSubscriptions returns every registered subscription.
func (db *DB) ListAllPushSubscriptions(ctx context.Context) ([]*models.PushSubscription, error) {
	return db.queryPushSubscriptions(ctx,
		`SELECT id, user_id, endpoint, p256dh, auth, created_at FROM push_subscriptions`)
}

func (db *DB) queryPushSubscriptions(ctx context.Context, query string, args ...interface{}) ([]*models.PushSubscription, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query push subscriptions: %w", err)
	}
	defer closeQuietly(rows)

	var subs []*models.PushSubscription
	for rows.Next() {
		var s models.PushSubscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.Endpoint, &s.P256DH, &s.Auth, &s.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate push subscriptions: %w", err)
	}
	return subs, nil
}

// GetNotificationPreference returns a user's preference, falling back to the
// everything-on default when none was saved.
func (db *DB) GetNotificationPreference(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT user_id, enable_messages, enable_arrival, enable_departure,
			quiet_hours_enabled, quiet_hours_start, quiet_hours_end, updated_at
		 FROM notification_preferences WHERE user_id = ?`, userID)

	var (
		p     models.NotificationPreference
		start sql.NullString
		end   sql.NullString
	)
	err := row.Scan(&p.UserID, &p.EnableMessages, &p.EnableArrival, &p.EnableDeparture,
		&p.QuietHoursEnabled, &start, &end, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultNotificationPreference(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query notification preference: %w", err)
	}
	if start.Valid {
		p.QuietHoursStart = &start.String
	}
	if end.Valid {
		p.QuietHoursEnd = &end.String
	}
	return &p, nil
}

// SaveNotificationPreference upserts a user's notification preference.
func (db *DB) SaveNotificationPreference(ctx context.Context, p *models.NotificationPreference) (*models.NotificationPreference, error) {
	p.UpdatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO notification_preferences
			(user_id, enable_messages, enable_arrival, enable_departure,
			 quiet_hours_enabled, quiet_hours_start, quiet_hours_end, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
			enable_messages = EXCLUDED.enable_messages,
			enable_arrival = EXCLUDED.enable_arrival,
			enable_departure = EXCLUDED.enable_departure,
			quiet_hours_enabled = EXCLUDED.quiet_hours_enabled,
			quiet_hours_start = EXCLUDED.quiet_hours_start,
			quiet_hours_end = EXCLUDED.quiet_hours_end,
			updated_at = EXCLUDED.updated_at`,
		p.UserID, p.EnableMessages, p.EnableArrival, p.EnableDeparture,
		p.QuietHoursEnabled, p.QuietHoursStart, p.QuietHoursEnd, p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save notification preference: %w", err)
	}
	return p, nil
}
