package rate

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// The Nature API advertises its 30-requests-per-5-minutes budget through
// these headers. Reset is a unix timestamp.
const (
	headerLimit     = "X-Rate-Limit-Limit"
	headerRemaining = "X-Rate-Limit-Remaining"
	headerReset     = "X-Rate-Limit-Reset"

	fallbackCooldown = 30 * time.Second
)

// Guard blocks outgoing calls once the provider reports an exhausted budget,
// until the advertised reset time passes.
type Guard struct {
	provider string

	mu     sync.Mutex
	limits Limits
	seen   bool
}

func NewGuard(provider string) *Guard {
	return &Guard{provider: provider}
}

// Limits returns the last observed window.
func (g *Guard) Limits() Limits {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limits
}

// Wrap enforces the guard around a transport.
func Wrap(base http.RoundTripper, guard *Guard) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &roundTripper{base: base, guard: guard}
}

type roundTripper struct {
	base  http.RoundTripper
	guard *Guard
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if retryAt, blocked := rt.guard.blockedUntil(time.Now()); blocked {
		return nil, LimitError{Provider: rt.guard.provider, RetryAt: retryAt}
	}

	resp, err := rt.base.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	rt.guard.record(resp.StatusCode, resp.Header)
	return resp, nil
}

func (g *Guard) blockedUntil(now time.Time) (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.seen {
		return time.Time{}, false
	}
	if g.limits.Remaining > 0 || g.limits.Reset.IsZero() {
		return time.Time{}, false
	}
	if now.Before(g.limits.Reset) {
		return g.limits.Reset, true
	}
	// Window rolled over; assume a fresh budget until headers say otherwise.
	g.limits.Remaining = g.limits.Limit
	return time.Time{}, false
}

func (g *Guard) record(status int, headers http.Header) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.limits.LastStatus = status
	lastStatusGauge.WithLabelValues(g.provider).Set(float64(status))

	limit := headerInt(headers, headerLimit)
	remaining := headerInt(headers, headerRemaining)
	reset := headerInt(headers, headerReset)

	if limit >= 0 {
		g.limits.Limit = limit
	}
	if remaining >= 0 {
		g.limits.Remaining = remaining
		g.seen = true
		remainingGauge.WithLabelValues(g.provider).Set(float64(remaining))
	}
	if reset > 0 {
		g.limits.Reset = time.Unix(int64(reset), 0)
		resetGauge.WithLabelValues(g.provider).Set(float64(reset))
	}

	if status == http.StatusTooManyRequests {
		g.seen = true
		g.limits.Remaining = 0
		if reset <= 0 {
			g.limits.Reset = time.Now().Add(fallbackCooldown)
		}
	}
}

func headerInt(h http.Header, key string) int {
	value := h.Get(key)
	if value == "" {
		return -1
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}
	return parsed
}
