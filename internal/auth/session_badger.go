// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/trocker-app/trocker/internal/logging"
)

const (
	sessionKeyPrefix     = "session:"
	sessionUserKeyPrefix = "session_user:"
)

// BadgerSessionStore implements SessionStore on BadgerDB. Sessions survive
// restarts and expire via Badger's key TTL in addition to the explicit
// expiry check, so stale entries reclaim disk on their own.
type BadgerSessionStore struct {
	db *badger.DB
}

// NewBadgerSessionStore opens a Badger database at path and wraps it as a
// session store.
func NewBadgerSessionStore(path string) (*BadgerSessionStore, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store at %s: %w", path, err)
	}

	logging.Info().Str("path", path).Msg("Badger session store opened")
	return &BadgerSessionStore{db: db}, nil
}

// Create stores a new session with a TTL matching its expiry.
func (s *BadgerSessionStore) Create(_ context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return ErrSessionExpired
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(sessionKeyPrefix+session.ID), data).WithTTL(ttl)
		if err := txn.SetEntry(entry); err != nil {
			return fmt.Errorf("failed to set session: %w", err)
		}

		// User-to-session mapping for DeleteByUser.
		userEntry := badger.NewEntry(
			[]byte(sessionUserKeyPrefix+session.UserID+":"+session.ID),
			[]byte(session.ID)).WithTTL(ttl)
		if err := txn.SetEntry(userEntry); err != nil {
			return fmt.Errorf("failed to set user mapping: %w", err)
		}
		return nil
	})
}

// Get retrieves a session by ID.
func (s *BadgerSessionStore) Get(_ context.Context, id string) (*Session, error) {
	var session Session

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionKeyPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get session: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		})
	})
	if err != nil {
		return nil, err
	}

	if session.IsExpired() {
		return nil, ErrSessionExpired
	}
	return &session, nil
}

// Delete removes a session by ID.
func (s *BadgerSessionStore) Delete(_ context.Context, id string) error {
	session, err := s.Get(context.Background(), id)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(sessionKeyPrefix + id)); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		if session != nil {
			if err := txn.Delete([]byte(sessionUserKeyPrefix + session.UserID + ":" + id)); err != nil {
				return fmt.Errorf("failed to delete user mapping: %w", err)
			}
		}
		return nil
	})
}

// DeleteByUser removes all of a user's sessions.
func (s *BadgerSessionStore) DeleteByUser(_ context.Context, userID string) error {
	prefix := []byte(sessionUserKeyPrefix + userID + ":")

	var sessionIDs []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				sessionIDs = append(sessionIDs, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan user sessions: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		for _, id := range sessionIDs {
			if err := txn.Delete([]byte(sessionKeyPrefix + id)); err != nil {
				return fmt.Errorf("failed to delete session %s: %w", id, err)
			}
			if err := txn.Delete([]byte(sessionUserKeyPrefix + userID + ":" + id)); err != nil {
				return fmt.Errorf("failed to delete user mapping: %w", err)
			}
		}
		return nil
	})
}

// Cleanup drops sessions whose stored expiry has passed. Badger's TTL
// usually gets there first; this catches entries written without one.
func (s *BadgerSessionStore) Cleanup(ctx context.Context) (int, error) {
	prefix := []byte(sessionKeyPrefix)

	var expired []string
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var session Session
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &session)
			})
			if err != nil {
				continue // skip undecodable entries
			}
			if session.IsExpired() {
				expired = append(expired, session.ID)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan sessions: %w", err)
	}

	for _, id := range expired {
		if err := s.Delete(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(expired), nil
}

// Count returns the number of live sessions.
func (s *BadgerSessionStore) Count(_ context.Context) (int, error) {
	prefix := []byte(sessionKeyPrefix)

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// Close closes the underlying Badger database.
func (s *BadgerSessionStore) Close() error {
	return s.db.Close()
}
