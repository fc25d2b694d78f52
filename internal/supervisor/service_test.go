// Trocker - Shared Pet Tracking for Residential Buildings
// Copyright 2026 Trocker Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/trocker-app/trocker

package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

func TestServiceInterfaces(t *testing.T) {
	var _ suture.Service = (*MockService)(nil)
	var _ suture.Service = (*HubService)(nil)
	var _ suture.Service = (*HTTPServerService)(nil)
	var _ suture.Service = (*TickerService)(nil)
}

func TestMockService(t *testing.T) {
	t.Run("runs until context canceled", func(t *testing.T) {
		svc := NewMockService("test")
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		err := svc.Serve(ctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context.DeadlineExceeded, got %v", err)
		}
		if svc.StartCount() != 1 {
			t.Errorf("expected 1 start, got %d", svc.StartCount())
		}
	})

	t.Run("fails N times then succeeds", func(t *testing.T) {
		svc := NewMockService("retry-test")
		svc.SetFailCount(2)

		for i := 0; i < 2; i++ {
			if err := svc.Serve(context.Background()); err == nil || err.Error() != "simulated failure" {
				t.Errorf("call %d should fail, got %v", i+1, err)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("third call should succeed until timeout, got %v", err)
		}
		if svc.StartCount() != 3 {
			t.Errorf("expected 3 starts, got %d", svc.StartCount())
		}
	})
}

// fakeHub records the context it was run with.
type fakeHub struct {
	ran atomic.Bool
}

func (f *fakeHub) RunWithContext(ctx context.Context) error {
	f.ran.Store(true)
	<-ctx.Done()
	return ctx.Err()
}

func TestHubService(t *testing.T) {
	hub := &fakeHub{}
	svc := NewHubService(hub)

	if svc.String() != "websocket-hub" {
		t.Errorf("unexpected service name %q", svc.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if !hub.ran.Load() {
		t.Error("hub was never run")
	}
}

// fakeHTTPServer simulates http.Server lifecycle behavior.
type fakeHTTPServer struct {
	listenErr    error
	shutdownErr  error
	shutdownDone chan struct{}
	closed       chan struct{}
}

func newFakeHTTPServer() *fakeHTTPServer {
	return &fakeHTTPServer{
		shutdownDone: make(chan struct{}),
		closed:       make(chan struct{}),
	}
}

func (f *fakeHTTPServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.closed
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(_ context.Context) error {
	close(f.shutdownDone)
	close(f.closed)
	return f.shutdownErr
}

func TestHTTPServerService(t *testing.T) {
	t.Run("shuts down gracefully on context cancel", func(t *testing.T) {
		server := newFakeHTTPServer()
		svc := NewHTTPServerService(server, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("service did not stop")
		}

		select {
		case <-server.shutdownDone:
		default:
			t.Error("Shutdown was never called")
		}
	})

	t.Run("propagates listen errors", func(t *testing.T) {
		server := newFakeHTTPServer()
		server.listenErr = errors.New("bind: address already in use")
		svc := NewHTTPServerService(server, time.Second)

		err := svc.Serve(context.Background())
		if err == nil || !errors.Is(err, server.listenErr) {
			t.Errorf("expected wrapped listen error, got %v", err)
		}
	})

	t.Run("applies default shutdown timeout", func(t *testing.T) {
		svc := NewHTTPServerService(newFakeHTTPServer(), 0)
		if svc.shutdownTimeout != 10*time.Second {
			t.Errorf("expected 10s default, got %v", svc.shutdownTimeout)
		}
	})
}

func TestTickerService(t *testing.T) {
	t.Run("ticks until context canceled", func(t *testing.T) {
		var ticks atomic.Int32
		svc := NewTickerService("counter", 10*time.Millisecond, func(_ context.Context) error {
			ticks.Add(1)
			return nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected DeadlineExceeded, got %v", err)
		}
		if ticks.Load() < 2 {
			t.Errorf("expected at least 2 ticks, got %d", ticks.Load())
		}
	})

	t.Run("keeps ticking after a tick fails", func(t *testing.T) {
		var ticks atomic.Int32
		svc := NewTickerService("flaky", 10*time.Millisecond, func(_ context.Context) error {
			if ticks.Add(1) == 1 {
				return errors.New("transient failure")
			}
			return nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		_ = svc.Serve(ctx)
		if ticks.Load() < 2 {
			t.Errorf("expected the ticker to survive a failure, got %d ticks", ticks.Load())
		}
	})

	t.Run("String returns service name", func(t *testing.T) {
		svc := NewTickerService("session-janitor", time.Minute, func(_ context.Context) error { return nil })
		if svc.String() != "session-janitor" {
			t.Errorf("expected session-janitor, got %q", svc.String())
		}
	})
}

func TestSupervisedRestart(t *testing.T) {
	t.Run("supervisor restarts crashed service", func(t *testing.T) {
		svc := NewMockService("crasher")
		svc.SetFailCount(2)

		sup := suture.New("restart-test", suture.Spec{
			FailureThreshold: 10,
			FailureDecay:     1,
			FailureBackoff:   10 * time.Millisecond,
			Timeout:          100 * time.Millisecond,
		})
		sup.Add(svc)

		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		go sup.Serve(ctx)
		time.Sleep(300 * time.Millisecond)

		if svc.StartCount() < 3 {
			t.Errorf("expected at least 3 starts (2 failures + 1 success), got %d", svc.StartCount())
		}
	})

	t.Run("service returning ErrDoNotRestart is not restarted", func(t *testing.T) {
		svc := NewMockService("one-shot")
		svc.SetError(suture.ErrDoNotRestart)

		sup := suture.New("no-restart-test", suture.Spec{
			FailureThreshold: 10,
			FailureBackoff:   10 * time.Millisecond,
			Timeout:          100 * time.Millisecond,
		})
		sup.Add(svc)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		go sup.Serve(ctx)
		time.Sleep(100 * time.Millisecond)

		if svc.StartCount() != 1 {
			t.Errorf("expected exactly 1 start for ErrDoNotRestart, got %d", svc.StartCount())
		}
	})
}
