package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig sizes the per-address token buckets.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration // idle buckets are dropped after two intervals
}

// DefaultRateLimitConfig matches the config defaults.
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 20,
	Burst:             40,
	CleanupInterval:   5 * time.Minute,
}

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// IPRateLimiter provides IP-based rate limiting for HTTP requests.
// Input posts from a session count against the same budget as any
// other request from that address.
type IPRateLimiter struct {
	limiters sync.Map // map[string]*ipLimiterEntry
	config   RateLimitConfig
	now      func() time.Time
	onReject func(reason string)
	stopChan chan struct{}
	stopOnce sync.Once

	rejectedCount atomic.Uint64
	allowedCount  atomic.Uint64
}

// NewIPRateLimiter creates a limiter and starts its cleanup goroutine.
// Call Stop to release it.
func NewIPRateLimiter(cfg RateLimitConfig, metrics *Metrics) *IPRateLimiter {
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultRateLimitConfig.CleanupInterval
	}
	rl := &IPRateLimiter{
		config:   cfg,
		now:      time.Now,
		onReject: func(string) {},
		stopChan: make(chan struct{}),
	}
	if metrics != nil {
		rl.onReject = metrics.RecordConnectionRejected
	}

	go rl.cleanupLoop()

	return rl
}

// Stop ends the cleanup goroutine.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

func (rl *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	now := rl.now().UnixNano()

	if v, ok := rl.limiters.Load(ip); ok {
		e := v.(*ipLimiterEntry)
		e.lastSeen.Store(now)
		return e.limiter
	}

	entry := &ipLimiterEntry{
		limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
	}
	entry.lastSeen.Store(now)

	actual, _ := rl.limiters.LoadOrStore(ip, entry)
	return actual.(*ipLimiterEntry).limiter
}

func (rl *IPRateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup drops limiters idle for two cleanup intervals
func (rl *IPRateLimiter) cleanup() {
	cutoff := rl.now().Add(-rl.config.CleanupInterval * 2).UnixNano()

	rl.limiters.Range(func(key, value interface{}) bool {
		if value.(*ipLimiterEntry).lastSeen.Load() < cutoff {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// Allow takes a token from ip's bucket.
func (rl *IPRateLimiter) Allow(ip string) bool {
	if rl.getLimiter(ip).Allow() {
		rl.allowedCount.Add(1)
		return true
	}
	rl.rejectedCount.Add(1)
	return false
}

// Middleware answers 429 once a caller's bucket is empty.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(GetClientIP(r)) {
			rl.onReject("rate_limit")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetStats returns allowed and rejected totals.
func (rl *IPRateLimiter) GetStats() map[string]uint64 {
	return map[string]uint64{
		"allowed":  rl.allowedCount.Load(),
		"rejected": rl.rejectedCount.Load(),
	}
}

// GetClientIP returns the caller's address. Proxy headers are trusted,
// so the server must sit behind a proxy that sets them.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ConnLimiter caps concurrent connections per address.
type ConnLimiter struct {
	mu       sync.Mutex
	open     map[string]int
	maxPerIP int
	rejected atomic.Uint64
}

// NewConnLimiter allows maxPerIP concurrent connections per address.
func NewConnLimiter(maxPerIP int) *ConnLimiter {
	return &ConnLimiter{open: make(map[string]int), maxPerIP: maxPerIP}
}

// Acquire reserves a slot for ip. Every successful Acquire needs a Release.
func (c *ConnLimiter) Acquire(ip string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open[ip] >= c.maxPerIP {
		c.rejected.Add(1)
		return false
	}
	c.open[ip]++
	return true
}

// Release frees a slot taken by Acquire.
func (c *ConnLimiter) Release(ip string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch n := c.open[ip]; {
	case n <= 1:
		delete(c.open, ip)
	default:
		c.open[ip] = n - 1
	}
}

// Open returns the live connection count for ip.
func (c *ConnLimiter) Open(ip string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open[ip]
}

// Rejected returns how many Acquire calls failed.
func (c *ConnLimiter) Rejected() uint64 {
	return c.rejected.Load()
}

// OriginMatcher checks request origins against a list of patterns.
// A pattern ending in ":*" matches that scheme and host on any port;
// "*" alone matches everything.
type OriginMatcher struct {
	patterns []string
}

// NewOriginMatcher builds a matcher over patterns.
func NewOriginMatcher(patterns []string) *OriginMatcher {
	return &OriginMatcher{patterns: append([]string(nil), patterns...)}
}

// Patterns returns the configured patterns.
func (m *OriginMatcher) Patterns() []string {
	return m.patterns
}

// Allowed reports whether origin matches a pattern. An empty origin is
// never allowed.
func (m *OriginMatcher) Allowed(origin string) bool {
	if origin == "" {
		return false
	}
	for _, p := range m.patterns {
		switch {
		case p == "*":
			return true
		case strings.HasSuffix(p, ":*"):
			base := strings.TrimSuffix(p, ":*")
			if origin == base {
				return true
			}
			if port, ok := strings.CutPrefix(origin, base+":"); ok && isPort(port) {
				return true
			}
		case origin == p:
			return true
		}
	}
	return false
}

func isPort(s string) bool {
	if s == "" || len(s) > 5 {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
