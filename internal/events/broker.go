// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

// Package events provides the in-process broadcast broker that fans domain
// events out to live subscribers (SSE streams, the websocket hub, push
// delivery). Single-process by design; subscribers on other instances would
// need an external broker.
package events

import (
	"sync"

	"github.com/trocker-app/trocker/internal/logging"
	"github.com/trocker-app/trocker/internal/models"
)

// Event types carried on the broker.
const (
	TypeLocationUpdate = "location-update"
	TypeMessageNew     = "message-new"
	TypeMessageDeleted = "message-deleted"
	TypeSubjectFed     = "subject-fed"
)

// Event is one broadcast payload. Data is the JSON-serializable body sent to
// clients verbatim.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// LocationUpdate is the payload of TypeLocationUpdate events.
type LocationUpdate struct {
	Report   *models.LocationReport  `json:"report"`
	Current  *models.CurrentLocation `json:"current"`
	Source   string                  `json:"source"` // "manual" or "webhook"
	Departed bool                    `json:"departed"`
}

// Handler receives published events. Handlers must not block; slow consumers
// buffer on their own side.
type Handler func(Event)

// Broker fans events out to registered handlers synchronously. A panicking
// handler is recovered and logged so one bad subscriber cannot take down the
// publisher.
type Broker struct {
	mu       sync.RWMutex
	handlers map[int]Handler
	nextID   int
}

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{handlers: make(map[int]Handler)}
}

// Subscribe registers a handler and returns its unsubscribe function.
// Unsubscribing twice is harmless.
func (b *Broker) Subscribe(handler Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = handler
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

// Publish delivers an event to every current subscriber.
func (b *Broker) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.deliver(handler, event)
	}
}

func (b *Broker) deliver(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().
				Str("event_type", event.Type).
				Interface("panic", r).
				Msg("Event handler panicked")
		}
	}()
	handler(event)
}

// SubscriberCount returns how many handlers are registered.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
