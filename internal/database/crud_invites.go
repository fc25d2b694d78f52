// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package database

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/trocker-app/trocker/internal/models"
)

// CreateInvite issues an invitation token for an email address.
func (db *DB) CreateInvite(ctx context.Context, invite *models.Invite) (*models.Invite, error) {
	if invite.ID == "" {
		invite.ID = uuid.New().String()
	}
	if invite.Token == "" {
		token, err := generateInviteToken()
		if err != nil {
			return nil, err
		}
		invite.Token = token
	}
	if invite.CreatedAt.IsZero() {
		invite.CreatedAt = time.Now()
	}
	invite.Email = strings.ToLower(strings.TrimSpace(invite.Email))

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO invites (id, token, email, role, created_by, expires_at, accepted_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, NULL, ?)`,
		invite.ID, invite.Token, invite.Email, invite.Role, invite.CreatedBy,
		invite.ExpiresAt, invite.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert invite: %w", err)
	}
	return invite, nil
}

// GetInviteByToken returns the invite carrying the given token.
func (db *DB) GetInviteByToken(ctx context.Context, token string) (*models.Invite, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, token, email, role, created_by, expires_at, accepted_at, created_at
		 FROM invites WHERE token = ?`, token)
	invite, err := scanInvite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInviteNotFound
	}
	return invite, err
}

// ListInvites returns all invites newest-first.
func (db *DB) ListInvites(ctx context.Context) ([]*models.Invite, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, token, email, role, created_by, expires_at, accepted_at, created_at
		 FROM invites ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query invites: %w", err)
	}
	defer closeQuietly(rows)

	var invites []*models.Invite
	for rows.Next() {
		invite, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		invites = append(invites, invite)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invites: %w", err)
	}
	return invites, nil
}

// AcceptInvite redeems an invite and creates the invited account inside one
// transaction. Expired or already-accepted invites are rejected.
func (db *DB) AcceptInvite(ctx context.Context, token, name, passwordHash string) (*models.User, error) {
	invite, err := db.GetInviteByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if invite.AcceptedAt != nil {
		return nil, ErrInviteAccepted
	}
	if invite.IsExpired() {
		return nil, ErrInviteExpired
	}
	if _, err := db.GetUserByEmail(ctx, invite.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	user := &models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        invite.Email,
		PasswordHash: passwordHash,
		Role:         invite.Role,
		CreatedAt:    time.Now(),
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, role, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create invited user: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE invites SET accepted_at = ? WHERE id = ?`,
		time.Now(), invite.ID); err != nil {
		return nil, fmt.Errorf("failed to mark invite accepted: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit invite acceptance: %w", err)
	}
	return user, nil
}

// DeleteInvite revokes an invite.
func (db *DB) DeleteInvite(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM invites WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invite: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInviteNotFound
	}
	return nil
}

// generateInviteToken returns a 32-byte random hex token.
func generateInviteToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invite token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func scanInvite(row rowScanner) (*models.Invite, error) {
	var (
		i          models.Invite
		acceptedAt sql.NullTime
	)
	err := row.Scan(&i.ID, &i.Token, &i.Email, &i.Role, &i.CreatedBy,
		&i.ExpiresAt, &acceptedAt, &i.CreatedAt)
	if err != nil {
		return nil, err
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		i.AcceptedAt = &t
	}
	return &i, nil
}
