package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimitConfig configures per-client token buckets
type RateLimitConfig struct {
	RequestsPerSecond float64       // refill rate
	BurstSize         int           // bucket capacity
	CleanupInterval   time.Duration // how often idle buckets are dropped
	ClientExpiration  time.Duration // idle time after which a bucket is dropped
	MaxClients        int           // 0 means unlimited
}

// DefaultRateLimitConfig returns the limits used by serve
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerSecond: 50,
		BurstSize:         100,
		CleanupInterval:   5 * time.Minute,
		ClientExpiration:  10 * time.Minute,
		MaxClients:        10000,
	}
}

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// take refills the bucket for the time elapsed since the last call and
// consumes one token if available
func (b *tokenBucket) take(now time.Time, rate float64, burst int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens = min(b.tokens+now.Sub(b.lastRefill).Seconds()*rate, float64(burst))
	b.lastRefill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (b *tokenBucket) idleSince(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return now.Sub(b.lastRefill)
}

// RateLimiter tracks one token bucket per client
type RateLimiter struct {
	config  RateLimitConfig
	now     func() time.Time
	mu      sync.Mutex
	clients map[string]*tokenBucket
	stop    chan struct{}
	once    sync.Once
}

// NewRateLimiter starts a limiter. Stop must be called to release its
// cleanup goroutine. A nil config uses DefaultRateLimitConfig.
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	rl := &RateLimiter{
		config:  *config,
		now:     time.Now,
		clients: make(map[string]*tokenBucket),
		stop:    make(chan struct{}),
	}
	if rl.config.CleanupInterval > 0 {
		go rl.cleanupLoop()
	}
	return rl
}

// Allow reports whether clientID may make a request now. New clients are
// refused once MaxClients buckets exist.
func (rl *RateLimiter) Allow(clientID string) bool {
	now := rl.now()

	rl.mu.Lock()
	bucket, ok := rl.clients[clientID]
	if !ok {
		if rl.config.MaxClients > 0 && len(rl.clients) >= rl.config.MaxClients {
			rl.mu.Unlock()
			return false
		}
		bucket = &tokenBucket{tokens: float64(rl.config.BurstSize), lastRefill: now}
		rl.clients[clientID] = bucket
	}
	rl.mu.Unlock()

	return bucket.take(now, rl.config.RequestsPerSecond, rl.config.BurstSize)
}

// Clients returns the number of tracked clients
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stop:
			return
		}
	}
}

// cleanup drops buckets idle for longer than ClientExpiration
func (rl *RateLimiter) cleanup() int {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for id, bucket := range rl.clients {
		if bucket.idleSince(now) > rl.config.ClientExpiration {
			delete(rl.clients, id)
			removed++
		}
	}
	return removed
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// ClientIP identifies a client by the host part of its remote address
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit answers 429 once a client exhausts its bucket. A nil limiter
// disables limiting.
func RateLimit(limiter *RateLimiter, clientID func(*http.Request) string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || limiter.Allow(clientID(r)) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", "1")
			w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(limiter.config.RequestsPerSecond, 'f', -1, 64))
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		})
	}
}
