// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trocker-app/trocker/internal/models"
)

func TestMemorySessionStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := NewMemorySessionStore()
	ctx := context.Background()

	session := NewSession("u1", "Alice", "alice@example.com", models.RoleResident, time.Hour)
	if session.ID == "" || len(session.ID) != 64 {
		t.Fatalf("expected 64-char hex session id, got %q", session.ID)
	}

	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	loaded, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if loaded.UserID != "u1" || loaded.Role != models.RoleResident {
		t.Errorf("unexpected session: %+v", loaded)
	}

	if err := store.Delete(ctx, session.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := store.Get(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	t.Parallel()

	store := NewMemorySessionStore()
	ctx := context.Background()

	session := NewSession("u1", "Alice", "alice@example.com", models.RoleResident, -time.Minute)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := store.Get(ctx, session.ID); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}

	removed, err := store.Cleanup(ctx)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed session, got %d", removed)
	}
}

func TestMemorySessionStoreDeleteByUser(t *testing.T) {
	t.Parallel()

	store := NewMemorySessionStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.Create(ctx, NewSession("u1", "Alice", "a@example.com", models.RoleResident, time.Hour)); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}
	other := NewSession("u2", "Bob", "b@example.com", models.RoleResident, time.Hour)
	if err := store.Create(ctx, other); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := store.DeleteByUser(ctx, "u1"); err != nil {
		t.Fatalf("delete by user failed: %v", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected only u2's session to remain, got %d", count)
	}
}

func TestBadgerSessionStore(t *testing.T) {
	store, err := NewBadgerSessionStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open badger store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close failed: %v", err)
		}
	})

	ctx := context.Background()
	session := NewSession("u1", "Alice", "alice@example.com", models.RoleAdmin, time.Hour)
	if err := store.Create(ctx, session); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	loaded, err := store.Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if loaded.Role != models.RoleAdmin {
		t.Errorf("unexpected role: %q", loaded.Role)
	}

	if err := store.DeleteByUser(ctx, "u1"); err != nil {
		t.Fatalf("delete by user failed: %v", err)
	}
	if _, err := store.Get(ctx, session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestJWTIssueAndVerify(t *testing.T) {
	t.Parallel()

	manager := NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour)

	token, err := manager.Issue("u1", "Alice", "alice@example.com", models.RoleResident)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	claims, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.UserID != "u1" || claims.Role != models.RoleResident {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestJWTVerifyRejectsTampering(t *testing.T) {
	t.Parallel()

	manager := NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour)
	other := NewJWTManager("ffffffffffffffffffffffffffffffff", time.Hour)

	token, err := other.Issue("u1", "Alice", "alice@example.com", models.RoleAdmin)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := manager.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for foreign signature, got %v", err)
	}
	if _, err := manager.Verify("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestJWTVerifyExpired(t *testing.T) {
	t.Parallel()

	manager := NewJWTManager("0123456789abcdef0123456789abcdef", -time.Minute)
	token, err := manager.Issue("u1", "Alice", "alice@example.com", models.RoleResident)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := manager.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestPasswordHashAndCheck(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	if err := CheckPassword(hash, "correct horse battery staple"); err != nil {
		t.Errorf("expected matching password, got %v", err)
	}
	if err := CheckPassword(hash, "wrong"); !errors.Is(err, ErrWrongPassword) {
		t.Errorf("expected ErrWrongPassword, got %v", err)
	}
}

func TestAuthenticatorSessionMiddleware(t *testing.T) {
	t.Parallel()

	store := NewMemorySessionStore()
	session := NewSession("u1", "Alice", "alice@example.com", models.RoleResident, time.Hour)
	if err := store.Create(context.Background(), session); err != nil {
		t.Fatalf("create session failed: %v", err)
	}

	authn := &Authenticator{
		Mode:       "session",
		CookieName: "trocker_session",
		Store:      store,
		Unauthorized: func(w http.ResponseWriter, _ string) {
			w.WriteHeader(http.StatusUnauthorized)
		},
	}

	var seen *models.User
	handler := authn.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// No cookie: rejected.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without cookie, got %d", rec.Code)
	}

	// Valid cookie: user in context.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "trocker_session", Value: session.ID})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with cookie, got %d", rec.Code)
	}
	if seen == nil || seen.ID != "u1" {
		t.Errorf("expected user u1 in context, got %+v", seen)
	}
}

func TestAuthenticatorJWTMiddleware(t *testing.T) {
	t.Parallel()

	manager := NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour)
	token, err := manager.Issue("u2", "Bob", "bob@example.com", models.RoleAdmin)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	authn := &Authenticator{
		Mode: "jwt",
		JWT:  manager,
		Unauthorized: func(w http.ResponseWriter, _ string) {
			w.WriteHeader(http.StatusUnauthorized)
		},
	}

	handler := authn.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil || user.ID != "u2" {
			t.Errorf("expected user u2 in context, got %+v", user)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 with bearer token, got %d", rec.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	authn := &Authenticator{Mode: "session"}
	middleware := authn.RequireAdmin(func(w http.ResponseWriter, _ string) {
		w.WriteHeader(http.StatusForbidden)
	})
	handler := middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Resident: forbidden.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), &models.User{ID: "u1", Role: models.RoleResident}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for resident, got %d", rec.Code)
	}

	// Admin: allowed.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), &models.User{ID: "u2", Role: models.RoleAdmin}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", rec.Code)
	}
}

func TestLoginLimiter(t *testing.T) {
	t.Parallel()

	limiter := NewLoginLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("203.0.113.7:51234") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if limiter.Allow("203.0.113.7:51234") {
		t.Error("fourth rapid attempt should be rejected")
	}

	// A different client is unaffected.
	if !limiter.Allow("198.51.100.9:40000") {
		t.Error("other client should be allowed")
	}
}
