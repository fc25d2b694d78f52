// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package websocket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/trocker-app/trocker/internal/events"
)

// registerTestClient registers a connectionless client directly with the
// hub's state so broadcast delivery can be observed on its send channel.
func registerTestClient(t *testing.T, hub *Hub) *Client {
	t.Helper()

	client := &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		send: make(chan Message, 256),
	}
	hub.Register <- client
	return client
}

func runHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := hub.RunWithContext(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected hub exit error: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, cancel
}

func TestHubBroadcastReachesClients(t *testing.T) {
	t.Parallel()

	hub, _ := runHub(t)

	clientA := registerTestClient(t, hub)
	clientB := registerTestClient(t, hub)

	waitForClients(t, hub, 2)

	hub.Broadcast(Message{Type: events.TypeLocationUpdate, Data: "payload"})

	for _, client := range []*Client{clientA, clientB} {
		select {
		case msg := <-client.send:
			if msg.Type != events.TypeLocationUpdate {
				t.Errorf("unexpected message type %q", msg.Type)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestHubUnregisterClosesSendChannel(t *testing.T) {
	t.Parallel()

	hub, _ := runHub(t)

	client := registerTestClient(t, hub)
	waitForClients(t, hub, 1)

	hub.Unregister <- client
	waitForClients(t, hub, 0)

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected send channel to be closed, got a message")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel was not closed")
	}
}

func TestHubShutdownClosesClients(t *testing.T) {
	t.Parallel()

	hub, cancel := runHub(t)

	client := registerTestClient(t, hub)
	waitForClients(t, hub, 1)

	cancel()

	select {
	case _, ok := <-client.send:
		if ok {
			t.Error("expected closed channel on shutdown, got a message")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("client was not closed on shutdown")
	}
}

func TestHubAttachToBroker(t *testing.T) {
	t.Parallel()

	hub, _ := runHub(t)
	broker := events.NewBroker()
	detach := hub.AttachTo(broker)
	defer detach()

	client := registerTestClient(t, hub)
	waitForClients(t, hub, 1)

	broker.Publish(events.Event{Type: events.TypeMessageNew, Data: "hello"})

	select {
	case msg := <-client.send:
		if msg.Type != events.TypeMessageNew {
			t.Errorf("unexpected message type %q", msg.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("broker event did not reach websocket client")
	}
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("hub never reached %d clients (have %d)", want, hub.ClientCount())
}
