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

// messageColumns resolves the author and, when the message is a reply, the
// replied-to content and author. Replies to deleted messages still render
// their quoted content, matching what the author saw when replying.
const messageColumns = `
	m.id, m.user_id, m.content, m.reply_to_id, m.created_at, m.updated_at, m.deleted_at,
	u.name AS user_name, u.email AS user_email,
	rm.content AS reply_to_content, ru.name AS reply_to_user_name`

const messageJoins = `
	FROM messages m
	JOIN users u ON u.id = m.user_id
	LEFT JOIN messages rm ON rm.id = m.reply_to_id
	LEFT JOIN users ru ON ru.id = rm.user_id`

// CreateMessage inserts a chat message.
func (db *DB) CreateMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	now := time.Now()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = msg.CreatedAt

	if msg.ReplyToID != nil {
		var exists bool
		err := db.conn.QueryRowContext(ctx,
			`SELECT TRUE FROM messages WHERE id = ?`, *msg.ReplyToID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to check reply target: %w", err)
		}
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO messages (id, user_id, content, reply_to_id, created_at, updated_at, deleted_at)
		 VALUES (?, ?, ?, ?, ?, ?, NULL)`,
		msg.ID, msg.UserID, msg.Content, msg.ReplyToID, msg.CreatedAt, msg.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	return db.GetMessage(ctx, msg.ID)
}

// GetMessage returns one message by id, including soft-deleted ones.
func (db *DB) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+messageColumns+messageJoins+` WHERE m.id = ?`, id)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	return msg, err
}

// ListMessages returns non-deleted messages newest-first, at most limit
// entries, optionally only those created strictly before the given time.
func (db *DB) ListMessages(ctx context.Context, limit int, before *time.Time) ([]*models.Message, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + messageColumns + messageJoins + ` WHERE m.deleted_at IS NULL`
	args := []interface{}{}
	if before != nil {
		query += ` AND m.created_at < ?`
		args = append(args, *before)
	}
	query += ` ORDER BY m.created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer closeQuietly(rows)

	messages := make([]*models.Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}

// DeleteMessage soft-deletes a message. Only the author or an admin may
// delete; the caller enforces that and passes the already-authorized id.
func (db *DB) DeleteMessage(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE messages SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// UnreadCount returns how many non-deleted messages from other users were
// created after the user's read cursor. A user with no cursor counts all of
// them.
func (db *DB) UnreadCount(ctx context.Context, userID string) (int, error) {
	var lastRead sql.NullTime
	err := db.conn.QueryRowContext(ctx,
		`SELECT last_read_at FROM message_reads WHERE user_id = ?`, userID).Scan(&lastRead)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to query read cursor: %w", err)
	}

	query := `SELECT COUNT(*) FROM messages WHERE deleted_at IS NULL AND user_id <> ?`
	args := []interface{}{userID}
	if lastRead.Valid {
		query += ` AND created_at > ?`
		args = append(args, lastRead.Time)
	}

	var count int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

// MarkMessagesRead moves the user's read cursor to now.
func (db *DB) MarkMessagesRead(ctx context.Context, userID string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO message_reads (user_id, last_read_at) VALUES (?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET last_read_at = EXCLUDED.last_read_at`,
		userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark messages read: %w", err)
	}
	return nil
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var (
		m               models.Message
		replyToID       sql.NullString
		deletedAt       sql.NullTime
		replyToContent  sql.NullString
		replyToUserName sql.NullString
	)
	err := row.Scan(
		&m.ID, &m.UserID, &m.Content, &replyToID, &m.CreatedAt, &m.UpdatedAt, &deletedAt,
		&m.UserName, &m.UserEmail, &replyToContent, &replyToUserName,
	)
	if err != nil {
		return nil, err
	}
	if replyToID.Valid {
		m.ReplyToID = &replyToID.String
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		m.DeletedAt = &t
	}
	if replyToContent.Valid {
		m.ReplyToContent = &replyToContent.String
	}
	if replyToUserName.Valid {
		m.ReplyToUserName = &replyToUserName.String
	}
	return &m, nil
}
