// Package ratelimit throttles requests per client with a token bucket.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per client. Buckets of clients that stay
// idle for IdleTimeout are dropped.
type Limiter struct {
	mu      sync.Mutex
	clients *gocache.Cache

	limit rate.Limit
	burst int

	hits atomic.Int64
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	// Burst is how many requests may arrive at once (default: RequestsPerMinute/6, at least 1).
	Burst           int
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		IdleTimeout:       10 * time.Minute,
		CleanupInterval:   5 * time.Minute,
	}
}

// NewLimiter creates a new rate limiter
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.Burst <= 0 {
		config.Burst = max(config.RequestsPerMinute/6, 1)
	}
	if config.IdleTimeout <= 0 {
		config.IdleTimeout = def.IdleTimeout
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	return &Limiter{
		clients: gocache.New(config.IdleTimeout, config.CleanupInterval),
		limit:   rate.Every(time.Minute / time.Duration(config.RequestsPerMinute)),
		burst:   config.Burst,
	}
}

func (rl *Limiter) bucket(clientIP string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if v, ok := rl.clients.Get(clientIP); ok {
		l := v.(*rate.Limiter)
		// Refresh the idle expiry.
		rl.clients.SetDefault(clientIP, l)
		return l
	}
	l := rate.NewLimiter(rl.limit, rl.burst)
	rl.clients.SetDefault(clientIP, l)
	return l
}

// Allow checks if a request from the given IP should be allowed
func (rl *Limiter) Allow(clientIP string) bool {
	if rl.bucket(clientIP).Allow() {
		return true
	}
	rl.hits.Add(1)
	return false
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	return rl.clients.ItemCount()
}

// Hits returns how many requests were rejected.
func (rl *Limiter) Hits() int64 {
	return rl.hits.Load()
}

// Stop drops every tracked client.
func (rl *Limiter) Stop() {
	rl.clients.Flush()
}

// retryAfter is the wait until one more token is available.
func (rl *Limiter) retryAfter() string {
	secs := int(time.Duration(float64(time.Second)/float64(rl.limit)).Seconds() + 0.5)
	return strconv.Itoa(max(secs, 1))
}

// Middleware limits requests whose method is in methods, or every request
// when methods is empty.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request), methods ...string) func(http.Handler) http.Handler {
	limited := make(map[string]bool, len(methods))
	for _, m := range methods {
		limited[m] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(limited) > 0 && !limited[r.Method] {
				next.ServeHTTP(w, r)
				return
			}
			if !rl.Allow(extractIP(r)) {
				w.Header().Set("Retry-After", rl.retryAfter())
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
