// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

// Package notify delivers Web Push notifications to residents. Delivery
// honors per-user category preferences and quiet hours, prunes dead
// subscriptions on 404/410 responses, and runs behind a circuit breaker so a
// misbehaving push service cannot stall the request path.
package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/trocker-app/trocker/internal/config"
	"github.com/trocker-app/trocker/internal/database"
	"github.com/trocker-app/trocker/internal/events"
	"github.com/trocker-app/trocker/internal/logging"
	"github.com/trocker-app/trocker/internal/metrics"
	"github.com/trocker-app/trocker/internal/models"
)

// Notification categories, matching the per-user preference toggles.
const (
	CategoryMessage   = "message"
	CategoryArrival   = "arrival"
	CategoryDeparture = "departure"
)

// Payload is the JSON body delivered to the service worker.
type Payload struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Tag      string `json:"tag"`
	Category string `json:"category"`
	URL      string `json:"url,omitempty"`
}

// Notifier sends push notifications to subscribed residents.
type Notifier struct {
	db      *database.DB
	cfg     *config.PushConfig
	breaker *gobreaker.CircuitBreaker[*http.Response]

	// now is swappable for quiet-hours tests.
	now func() time.Time
}

// NewNotifier creates a notifier. With empty VAPID keys every send becomes a
// silent no-op; the rest of the application does not care.
func NewNotifier(db *database.DB, cfg *config.PushConfig) *Notifier {
	cbName := "webpush"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Push circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
		},
	})

	return &Notifier{db: db, cfg: cfg, breaker: cb, now: time.Now}
}

func breakerStateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateOpen:
		return 2
	case gobreaker.StateHalfOpen:
		return 1
	default:
		return 0
	}
}

// AttachTo subscribes the notifier to the event broker. Push delivery runs
// on its own goroutine per event; the publisher never waits on a push
// service round trip.
func (n *Notifier) AttachTo(broker *events.Broker) func() {
	return broker.Subscribe(func(event events.Event) {
		switch event.Type {
		case events.TypeMessageNew:
			msg, ok := event.Data.(*models.Message)
			if !ok {
				return
			}
			go n.notifyMessage(msg)
		case events.TypeLocationUpdate:
			update, ok := event.Data.(*events.LocationUpdate)
			if !ok || update.Source != "webhook" {
				return
			}
			go n.notifyDetection(update)
		}
	})
}

// notifyMessage pushes a new chat message to everyone but its author.
func (n *Notifier) notifyMessage(msg *models.Message) {
	body := msg.Content
	if len(body) > 120 {
		body = body[:117] + "..."
	}
	n.broadcast(CategoryMessage, &Payload{
		Title:    msg.UserName,
		Body:     body,
		Tag:      "message-" + msg.ID,
		Category: CategoryMessage,
		URL:      "/chat",
	}, msg.UserID)
}

// notifyDetection pushes a detector arrival or departure to all residents.
func (n *Notifier) notifyDetection(update *events.LocationUpdate) {
	category := CategoryArrival
	title := "Spotted!"
	body := fmt.Sprintf("Seen at %s", update.Current.DisplayName())
	if update.Departed {
		category = CategoryDeparture
		title = "On the move"
		body = fmt.Sprintf("Left %s", update.Report.PlaceName)
	}
	n.broadcast(category, &Payload{
		Title:    title,
		Body:     body,
		Tag:      "detection-" + update.Report.ID,
		Category: category,
	}, "")
}

// broadcast sends a payload to every user who has the category enabled and
// is outside quiet hours, skipping excludeUserID.
func (n *Notifier) broadcast(category string, payload *Payload, excludeUserID string) {
	if !n.cfg.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	subs, err := n.db.ListAllPushSubscriptions(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to list push subscriptions")
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal push payload")
		return
	}

	// Preference lookups are cached per user for the duration of one
	// broadcast; most users hold a single subscription anyway.
	prefs := make(map[string]*models.NotificationPreference)
	for _, sub := range subs {
		if sub.UserID == excludeUserID {
			continue
		}

		pref, ok := prefs[sub.UserID]
		if !ok {
			pref, err = n.db.GetNotificationPreference(ctx, sub.UserID)
			if err != nil {
				logging.Error().Err(err).Str("user_id", sub.UserID).Msg("Failed to load notification preference")
				continue
			}
			prefs[sub.UserID] = pref
		}

		if !categoryEnabled(pref, category) || inQuietHours(pref, n.now()) {
			continue
		}
		n.send(ctx, sub, body, category)
	}
}

// send delivers one notification through the circuit breaker, pruning the
// subscription when the push service reports it gone.
func (n *Notifier) send(ctx context.Context, sub *models.PushSubscription, body []byte, category string) {
	resp, err := n.breaker.Execute(func() (*http.Response, error) {
		return webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256DH,
				Auth:   sub.Auth,
			},
		}, &webpush.Options{
			Subscriber:      n.cfg.Subscriber,
			VAPIDPublicKey:  n.cfg.VAPIDPublicKey,
			VAPIDPrivateKey: n.cfg.VAPIDPrivateKey,
			TTL:             n.cfg.TTL,
		})
	})
	if err != nil {
		reason := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			reason = "breaker_open"
		}
		metrics.PushFailed.WithLabelValues(reason).Inc()
		logging.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("Push delivery failed")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		// The browser dropped this subscription; forget it.
		metrics.PushFailed.WithLabelValues("gone").Inc()
		if err := n.db.DeletePushSubscription(ctx, sub.Endpoint); err != nil && !errors.Is(err, database.ErrNotFound) {
			logging.Error().Err(err).Msg("Failed to prune dead push subscription")
			return
		}
		metrics.PushSubscriptionsPruned.Inc()
		logging.Debug().Str("endpoint", sub.Endpoint).Msg("Pruned dead push subscription")
	default:
		if resp.StatusCode >= 400 {
			metrics.PushFailed.WithLabelValues("error").Inc()
			logging.Warn().Int("status", resp.StatusCode).Str("endpoint", sub.Endpoint).Msg("Push service rejected notification")
			return
		}
		metrics.PushSent.WithLabelValues(category).Inc()
	}
}

// categoryEnabled checks the preference toggle for a category.
func categoryEnabled(pref *models.NotificationPreference, category string) bool {
	switch category {
	case CategoryMessage:
		return pref.EnableMessages
	case CategoryArrival:
		return pref.EnableArrival
	case CategoryDeparture:
		return pref.EnableDeparture
	default:
		return false
	}
}

// inQuietHours reports whether now falls inside the user's quiet-hours
// window. Windows are HH:MM clock strings and may wrap midnight
// (22:00-07:00 silences evenings and early mornings).
func inQuietHours(pref *models.NotificationPreference, now time.Time) bool {
	if !pref.QuietHoursEnabled || pref.QuietHoursStart == nil || pref.QuietHoursEnd == nil {
		return false
	}

	start, err := time.Parse("15:04", *pref.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := time.Parse("15:04", *pref.QuietHoursEnd)
	if err != nil {
		return false
	}

	nowMinutes := now.Hour()*60 + now.Minute()
	startMinutes := start.Hour()*60 + start.Minute()
	endMinutes := end.Hour()*60 + end.Minute()

	if startMinutes <= endMinutes {
		return nowMinutes >= startMinutes && nowMinutes < endMinutes
	}
	// Window wraps midnight.
	return nowMinutes >= startMinutes || nowMinutes < endMinutes
}
