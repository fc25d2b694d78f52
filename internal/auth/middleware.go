// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package auth

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/trocker-app/trocker/internal/logging"
	"github.com/trocker-app/trocker/internal/models"
)

// contextKey is unexported to keep the context namespace collision-free.
type contextKey string

const userContextKey contextKey = "trocker.user"

// UserFromContext returns the authenticated user, or nil for anonymous
// requests (auth mode "none").
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// Authenticator resolves the authenticated user for each request according
// to the configured auth mode.
type Authenticator struct {
	Mode       string // session, jwt, or none
	CookieName string
	Store      SessionStore
	JWT        *JWTManager

	// Unauthorized is called to write the 401 response in the application's
	// error envelope. Injected by the API layer to avoid an import cycle.
	Unauthorized func(w http.ResponseWriter, message string)
}

// Middleware authenticates the request and stores the user in the context.
// Requests that cannot be authenticated are rejected with 401; auth mode
// "none" passes everything through with no user attached.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.Mode == "none" {
			next.ServeHTTP(w, r)
			return
		}

		user, ok := a.resolve(r)
		if !ok {
			a.Unauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// resolve extracts and verifies the request's credentials.
func (a *Authenticator) resolve(r *http.Request) (*models.User, bool) {
	switch a.Mode {
	case "session":
		return a.resolveSession(r)
	case "jwt":
		return a.resolveJWT(r)
	default:
		return nil, false
	}
}

func (a *Authenticator) resolveSession(r *http.Request) (*models.User, bool) {
	cookie, err := r.Cookie(a.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	session, err := a.Store.Get(r.Context(), cookie.Value)
	if err != nil {
		return nil, false
	}

	return &models.User{
		ID:    session.UserID,
		Name:  session.Name,
		Email: session.Email,
		Role:  session.Role,
	}, true
}

func (a *Authenticator) resolveJWT(r *http.Request) (*models.User, bool) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, false
	}

	claims, err := a.JWT.Verify(token)
	if err != nil {
		return nil, false
	}

	return &models.User{
		ID:    claims.UserID,
		Name:  claims.Name,
		Email: claims.Email,
		Role:  claims.Role,
	}, true
}

// RequireAdmin rejects non-admin users with 403. In auth mode "none" every
// request counts as admin; that mode exists for local development only.
func (a *Authenticator) RequireAdmin(forbidden func(w http.ResponseWriter, message string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a.Mode == "none" {
				next.ServeHTTP(w, r)
				return
			}
			user := UserFromContext(r.Context())
			if user == nil || user.Role != models.RoleAdmin {
				forbidden(w, "Administrator access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginLimiter rate-limits login attempts per client IP to slow credential
// stuffing. Limiters idle out after an hour so the map cannot grow without
// bound.
type LoginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*loginLimiterEntry
	rate     rate.Limit
	burst    int
}

type loginLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLoginLimiter allows attempts per window per client IP, with a burst of
// the same size.
func NewLoginLimiter(attempts int, window time.Duration) *LoginLimiter {
	l := &LoginLimiter{
		limiters: make(map[string]*loginLimiterEntry),
		rate:     rate.Every(window / time.Duration(attempts)),
		burst:    attempts,
	}
	go l.evictLoop()
	return l
}

// Allow reports whether the client may attempt a login now.
func (l *LoginLimiter) Allow(remoteAddr string) bool {
	ip := clientIP(remoteAddr)

	l.mu.Lock()
	entry, ok := l.limiters[ip]
	if !ok {
		entry = &loginLimiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	l.mu.Unlock()

	allowed := entry.limiter.Allow()
	if !allowed {
		logging.Warn().Str("ip", ip).Msg("Login rate limit hit")
	}
	return allowed
}

func (l *LoginLimiter) evictLoop() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-time.Hour)
		l.mu.Lock()
		for ip, entry := range l.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(l.limiters, ip)
			}
		}
		l.mu.Unlock()
	}
}

// clientIP strips the port from a remote address.
func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
