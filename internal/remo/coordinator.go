package remo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Coordinator owns the poll cycle: it fetches devices and appliances, builds
// an immutable snapshot, and publishes it atomically. A failed refresh never
// discards the last good snapshot.
type Coordinator struct {
	client   *Client
	interval time.Duration

	// refreshMu serializes cycles; at most one refresh is in flight.
	refreshMu sync.Mutex

	mu          sync.RWMutex
	snapshot    *Snapshot
	lastSuccess time.Time
	failures    int
	listeners   []func(*Snapshot)
	onError     func(error)
}

func NewCoordinator(client *Client, interval time.Duration) *Coordinator {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Coordinator{client: client, interval: interval}
}

// AddListener registers a callback invoked after every successful refresh.
// Listeners must be registered before Run starts.
func (c *Coordinator) AddListener(fn func(*Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// SetErrorHandler registers a callback for transient refresh failures that
// happen inside Run. Auth failures are not reported here; they stop Run.
func (c *Coordinator) SetErrorHandler(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

// Snapshot returns the last good snapshot without blocking on an in-flight
// refresh. It is nil until the first refresh succeeds.
func (c *Coordinator) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Ready reports whether at least one refresh has succeeded.
func (c *Coordinator) Ready() bool {
	return c.Snapshot() != nil
}

// LastSuccess returns the time of the last successful refresh.
func (c *Coordinator) LastSuccess() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSuccess
}

// ConsecutiveFailures returns the failure count since the last success.
func (c *Coordinator) ConsecutiveFailures() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.failures
}

// Refresh runs one poll cycle. Both endpoints must succeed; a half-fetched
// cycle is discarded rather than published.
func (c *Coordinator) Refresh(ctx context.Context) (*Snapshot, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	var (
		devices    []Device
		appliances []Appliance
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		devices, err = c.client.Devices(groupCtx)
		return err
	})
	group.Go(func() error {
		var err error
		appliances, err = c.client.Appliances(groupCtx)
		return err
	})

	if err := group.Wait(); err != nil {
		c.mu.Lock()
		c.failures++
		c.mu.Unlock()
		return nil, err
	}

	snap := NewSnapshot(devices, appliances, time.Now())

	c.mu.Lock()
	c.snapshot = snap
	c.lastSuccess = snap.FetchedAt
	c.failures = 0
	listeners := make([]func(*Snapshot), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}

	return snap, nil
}

// Run refreshes once eagerly, then on a fixed interval until ctx is done.
// It returns an error when the first refresh fails (the subsystem is not
// ready) or when any refresh hits an auth failure.
func (c *Coordinator) Run(ctx context.Context) error {
	if _, err := c.Refresh(ctx); err != nil {
		var authErr *AuthError
		if errors.As(err, &authErr) {
			return err
		}
		return fmt.Errorf("initial refresh: %w", err)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := c.Refresh(ctx); err != nil {
				var authErr *AuthError
				if errors.As(err, &authErr) {
					return err
				}
				c.reportError(err)
			}
		}
	}
}

func (c *Coordinator) reportError(err error) {
	c.mu.RLock()
	fn := c.onError
	c.mu.RUnlock()
	if fn != nil {
		fn(err)
	}
}
