// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trocker-app/trocker/internal/middleware"
)

// NewRouter assembles the full route tree. Rate limits are tiered:
// permissive on health, strict on auth, standard everywhere else. The
// webhook authenticates with its own shared secret, not the session layer.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)

		r.Group(func(r chi.Router) {
			r.Use(httprate.LimitByIP(1000, time.Minute))
			r.Get("/health", h.Health)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Use(httprate.LimitByIP(30, time.Minute))
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.Post("/register", h.Register)
			r.Get("/invites/{token}", h.VerifyInvite)
		})

		r.Post("/webhook", h.Webhook)

		r.Group(func(r chi.Router) {
			if !h.cfg.Security.RateLimitDisabled {
				r.Use(httprate.LimitByIP(h.cfg.Security.RateLimitReqs, h.cfg.Security.RateLimitWindow))
			}
			r.Use(h.authn.Middleware)

			r.Get("/auth/me", h.Me)

			r.Route("/locations", func(r chi.Router) {
				r.Post("/report", h.CreateReport)
				r.Get("/current", h.CurrentLocation)
				r.Get("/timeline", h.Timeline)
				r.Get("/events", h.LocationEvents)
			})

			r.Get("/places", h.ListPlaces)
			r.Get("/places/{id}/sub-places", h.ListSubPlaces)

			r.Route("/messages", func(r chi.Router) {
				r.Get("/", h.ListMessages)
				r.Post("/", h.CreateMessage)
				r.Get("/events", h.MessageEvents)
				r.Get("/unread", h.UnreadCount)
				r.Post("/read", h.MarkRead)
				r.Delete("/{id}", h.DeleteMessage)
			})

			r.Get("/subjects", h.ListSubjects)
			r.Get("/hunger/status", h.HungerStatus)
			r.Post("/hunger/feed", h.Feed)

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/vapid-key", h.VAPIDPublicKey)
				r.Post("/subscribe", h.Subscribe)
				r.Post("/unsubscribe", h.Unsubscribe)
				r.Get("/preferences", h.GetPreferences)
				r.Put("/preferences", h.SavePreferences)
			})

			r.Get("/stats", h.Stats)
			r.Get("/ws", h.WebSocket)

			r.Route("/admin", func(r chi.Router) {
				r.Use(h.authn.RequireAdmin(writeForbidden))

				r.Post("/places", h.CreatePlace)
				r.Put("/places/{id}", h.UpdatePlace)
				r.Delete("/places/{id}", h.DeletePlace)
				r.Post("/places/{id}/sub-places", h.CreateSubPlace)
				r.Put("/sub-places/{id}", h.UpdateSubPlace)
				r.Delete("/sub-places/{id}", h.DeleteSubPlace)

				r.Get("/users", h.ListUsers)
				r.Put("/users/{id}", h.UpdateUser)
				r.Delete("/users/{id}", h.DeleteUser)

				r.Post("/invites", h.CreateInvite)
				r.Get("/invites", h.ListInvites)
				r.Delete("/invites/{id}", h.DeleteInvite)
			})
		})
	})

	return r
}
