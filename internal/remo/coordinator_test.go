package remo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// apiStub serves /devices and /appliances with swappable behavior.
type apiStub struct {
	mu         sync.Mutex
	devices    string
	appliances string
	status     int
}

func newAPIStub() *apiStub {
	return &apiStub{
		devices:    `[{"id":"dev-1","name":"Living room","firmware_version":"Remo/1.0.62","updated_at":"2026-08-31T10:00:00Z","newest_events":{"te":{"val":21.5,"created_at":"2026-08-31T10:00:00Z"}}}]`,
		appliances: `[{"id":"ac-1","type":"AC","nickname":"Bedroom","device":{"id":"dev-1"},"settings":{"temp":"24","mode":"cool","vol":"auto","dir":"","button":""},"aircon":{"range":{"modes":{"cool":{"temp":["16","17","18","24"],"vol":["auto"],"dir":[""]}},"fixedButtons":["power-off"]}}}]`,
		status:     http.StatusOK,
	}
}

func (s *apiStub) set(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *apiStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		status := s.status
		devices, appliances := s.devices, s.appliances
		s.mu.Unlock()

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		switch {
		case r.URL.Path == "/devices":
			_, _ = w.Write([]byte(devices))
		case r.URL.Path == "/appliances":
			_, _ = w.Write([]byte(appliances))
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/aircon_settings"):
			_, _ = w.Write([]byte(`{}`))
		default:
			http.NotFound(w, r)
		}
	})
}

func newTestCoordinator(t *testing.T, stub *apiStub) (*Coordinator, func()) {
	t.Helper()
	ts := httptest.NewServer(stub.handler())
	client := newTestClient(t, ts.URL)
	return NewCoordinator(client, time.Minute), ts.Close
}

func TestRefreshBuildsKeyedSnapshot(t *testing.T) {
	coordinator, done := newTestCoordinator(t, newAPIStub())
	defer done()

	if coordinator.Ready() {
		t.Fatalf("coordinator must not be ready before the first refresh")
	}

	snap, err := coordinator.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if !coordinator.Ready() {
		t.Fatalf("coordinator must be ready after a successful refresh")
	}

	device, ok := snap.Device("dev-1")
	if !ok || device.Name != "Living room" {
		t.Fatalf("unexpected device: %+v", device)
	}
	appliance, ok := snap.Appliance("ac-1")
	if !ok || appliance.Type != TypeAC {
		t.Fatalf("unexpected appliance: %+v", appliance)
	}
	if parent, ok := snap.ParentDevice(appliance); !ok || parent.ID != "dev-1" {
		t.Fatalf("unexpected parent device: %+v", parent)
	}
}

func TestTransientFailureKeepsLastSnapshot(t *testing.T) {
	stub := newAPIStub()
	coordinator, done := newTestCoordinator(t, stub)
	defer done()

	first, err := coordinator.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}

	stub.set(http.StatusInternalServerError)
	if _, err := coordinator.Refresh(context.Background()); err == nil {
		t.Fatalf("expected refresh failure")
	}

	if got := coordinator.Snapshot(); got != first {
		t.Fatalf("failed refresh must keep the last good snapshot")
	}
	if coordinator.ConsecutiveFailures() != 1 {
		t.Fatalf("expected 1 failure, got %d", coordinator.ConsecutiveFailures())
	}

	stub.set(http.StatusOK)
	if _, err := coordinator.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if coordinator.ConsecutiveFailures() != 0 {
		t.Fatalf("success must reset the failure count")
	}
}

func TestAuthFailureSurfacesAndKeepsSnapshot(t *testing.T) {
	stub := newAPIStub()
	coordinator, done := newTestCoordinator(t, stub)
	defer done()

	first, err := coordinator.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh error: %v", err)
	}

	stub.set(http.StatusUnauthorized)
	_, err = coordinator.Refresh(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if coordinator.Snapshot() != first {
		t.Fatalf("auth failure must not discard the last snapshot")
	}
}

func TestListenersRunAfterSuccessfulRefresh(t *testing.T) {
	stub := newAPIStub()
	coordinator, done := newTestCoordinator(t, stub)
	defer done()

	var (
		mu    sync.Mutex
		calls int
	)
	coordinator.AddListener(func(snap *Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if snap == nil {
			t.Errorf("listener received nil snapshot")
		}
	})

	if _, err := coordinator.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh error: %v", err)
	}

	stub.set(http.StatusInternalServerError)
	_, _ = coordinator.Refresh(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected 1 listener call, got %d", calls)
	}
}

func TestRunStopsOnAuthError(t *testing.T) {
	stub := newAPIStub()
	stub.set(http.StatusUnauthorized)
	coordinator, done := newTestCoordinator(t, stub)
	defer done()

	err := coordinator.Run(context.Background())
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError from Run, got %v", err)
	}
}

func TestRunWrapsInitialTransientFailure(t *testing.T) {
	stub := newAPIStub()
	stub.set(http.StatusInternalServerError)
	coordinator, done := newTestCoordinator(t, stub)
	defer done()

	err := coordinator.Run(context.Background())
	if err == nil {
		t.Fatalf("expected error from Run")
	}
	var respErr *ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("expected wrapped ResponseError, got %v", err)
	}
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
	coordinator, done := newTestCoordinator(t, newAPIStub())
	defer done()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- coordinator.Run(ctx) }()

	// Let the eager refresh land before cancelling.
	deadline := time.After(2 * time.Second)
	for !coordinator.Ready() {
		select {
		case <-deadline:
			t.Fatalf("coordinator never became ready")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-deadline:
		t.Fatalf("Run did not stop after cancel")
	}
}
