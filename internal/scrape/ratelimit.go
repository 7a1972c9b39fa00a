package scrape

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/readyrobots/leadengine/internal/metrics"
)

// HostLimiter enforces per-host politeness. Each host gets its own
// token bucket; waits are attributed in metrics.
type HostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	interval time.Duration
	burst    int
}

// NewHostLimiter allows one request per interval per host, with the
// given burst.
func NewHostLimiter(interval time.Duration, burst int) *HostLimiter {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
		burst:    burst,
	}
}

// Wait blocks until the host's bucket grants a token or the context
// ends.
func (h *HostLimiter) Wait(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("rate limit parse %q: %w", rawURL, err)
	}
	host := u.Hostname()

	h.mu.Lock()
	lim, ok := h.limiters[host]
	if !ok {
		lim = rate.NewLimiter(rate.Every(h.interval), h.burst)
		h.limiters[host] = lim
	}
	h.mu.Unlock()

	start := time.Now()
	if err := lim.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", host, err)
	}
	if waited := time.Since(start); waited > 0 {
		metrics.ObserveRateLimitDelay(host, waited)
	}
	return nil
}
