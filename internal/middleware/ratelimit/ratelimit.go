package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Limiter is a fixed-window per-client request limiter.
type Limiter struct {
	mu           sync.Mutex
	clients      map[string]*window
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
	now          func() time.Time

	requests int
	period   time.Duration
}

type window struct {
	start    time.Time
	requests int
}

// Config holds rate limiter configuration
type Config struct {
	Requests        int
	Period          time.Duration
	CleanupInterval time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Requests:        60,
		Period:          time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// NewLimiter creates a new rate limiter. Call Stop to release its cleanup goroutine.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.Requests <= 0 {
		config.Requests = def.Requests
	}
	if config.Period <= 0 {
		config.Period = def.Period
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	rl := &Limiter{
		clients:     make(map[string]*window),
		stopCleanup: make(chan struct{}),
		now:         time.Now,
		requests:    config.Requests,
		period:      config.Period,
	}
	go rl.startCleanup(config.CleanupInterval)
	return rl
}

// Allow checks if a request from the given client should be allowed
func (rl *Limiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[client]
	if !ok || now.Sub(w.start) >= rl.period {
		rl.clients[client] = &window{start: now, requests: 1}
		return true
	}

	w.requests++
	return w.requests <= rl.requests
}

func (rl *Limiter) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

func (rl *Limiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.period)
	for client, w := range rl.clients {
		if w.start.Before(cutoff) {
			delete(rl.clients, client)
		}
	}
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// Middleware creates HTTP middleware for rate limiting
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(extractIP(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(int(rl.period.Seconds())))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
