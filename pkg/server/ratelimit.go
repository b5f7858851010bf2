package server

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"querydict-hq/querydict/pkg/config"
)

const errTypeRateLimited = "rate_limited"

// tokenBucket allows bursts up to capacity and refills at rate tokens per
// second.
type tokenBucket struct {
	tokens     float64
	lastRefill time.Time
}

// RateLimiter throttles requests per client with one token bucket each.
type RateLimiter struct {
	rate     float64
	capacity float64
	idleTTL  time.Duration
	now      func() time.Time

	mu        sync.Mutex
	buckets   map[string]*tokenBucket
	lastSweep time.Time
}

// NewRateLimiter creates a limiter from cfg.
func NewRateLimiter(cfg *config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		rate:     cfg.RequestsPerSecond,
		capacity: float64(cfg.Burst),
		idleTTL:  cfg.IdleTTL,
		now:      time.Now,
		buckets:  make(map[string]*tokenBucket),
	}
}

// Allow takes one token for client. When none is left it returns false and
// the time until the next token.
func (l *RateLimiter) Allow(client string) (allowed bool, remaining int, retryAfter time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)

	b, ok := l.buckets[client]
	if !ok {
		b = &tokenBucket{tokens: l.capacity, lastRefill: now}
		l.buckets[client] = b
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens = math.Min(l.capacity, b.tokens+elapsed*l.rate)
		b.lastRefill = now
	}

	if b.tokens < 1 {
		wait := time.Duration((1 - b.tokens) / l.rate * float64(time.Second))
		return false, 0, wait
	}
	b.tokens--
	return true, int(b.tokens), 0
}

// sweepLocked drops buckets idle for longer than idleTTL, at most once per
// idleTTL. An idle bucket is full again, so dropping it loses nothing.
func (l *RateLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	l.lastSweep = now
	for client, b := range l.buckets {
		if now.Sub(b.lastRefill) > l.idleTTL {
			delete(l.buckets, client)
		}
	}
}

// Clients returns the number of tracked clients.
func (l *RateLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Middleware answers 429 with Retry-After once a client runs out of tokens.
func (l *RateLimiter) Middleware(logger *slog.Logger) func(http.Handler) http.Handler {
	limit := strconv.Itoa(int(l.capacity))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientID(r)
			allowed, remaining, retryAfter := l.Allow(client)

			w.Header().Set("X-RateLimit-Limit", limit)
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !allowed {
				seconds := int(math.Ceil(retryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				logger.WarnContext(r.Context(), "rate limit exceeded", "client", client, "path", r.URL.Path)
				writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: ErrorBody{
					Type:    errTypeRateLimited,
					Message: "rate limit exceeded, retry in " + strconv.Itoa(seconds) + "s",
				}})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientID identifies the caller by API key name, falling back to the
// remote IP.
func clientID(r *http.Request) string {
	if name, ok := APIKeyName(r.Context()); ok {
		return "key:" + name
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
