package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/chartmesh/chartmesh/internal/auth"
	"github.com/chartmesh/chartmesh/internal/observability"
)

const rateLimiterIdleTTL = 5 * time.Minute

// RateLimiter keeps one token bucket per client. Buckets idle for longer than
// the TTL are swept on access.
type RateLimiter struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	limiters  map[string]*rateLimiterEntry
	rate      rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
}

type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(rps float64, burst int, clock clockwork.Clock) *RateLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		clock:     clock,
		limiters:  map[string]*rateLimiterEntry{},
		rate:      rate.Limit(rps),
		burst:     burst,
		idleTTL:   rateLimiterIdleTTL,
		lastSweep: clock.Now(),
	}
}

// AllowWithRetry takes a token for client. When none is available it reports
// how long until one will be.
func (rl *RateLimiter) AllowWithRetry(client string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	rl.sweepLocked(now)

	entry, ok := rl.limiters[client]
	if !ok {
		entry = &rateLimiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[client] = entry
	}
	entry.lastSeen = now

	reservation := entry.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, time.Minute
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (rl *RateLimiter) sweepLocked(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.idleTTL {
		return
	}
	cutoff := now.Add(-rl.idleTTL)
	for client, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, client)
		}
	}
	rl.lastSweep = now
}

func (rl *RateLimiter) clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter := limiter.AllowWithRetry(auth.RateLimitKey(r))
			if !allowed {
				retrySeconds := int(retryAfter.Seconds())
				if retrySeconds < 1 {
					retrySeconds = 1
				}
				observability.IncrementRateLimited()
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retrySeconds))
				writeError(r.Context(), w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, slow down", true, map[string]any{"retry_after": retrySeconds})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
