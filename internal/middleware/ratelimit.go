package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter hands out a token bucket per client IP. A bucket holds limit
// tokens and refills completely over window.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*bucket

	limit    int
	window   time.Duration
	interval time.Duration // one token refills per interval
	now      func() time.Time
	proxies  []netip.Prefix
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type RateLimitOption func(*RateLimiter)

// WithRateLimitClock replaces time.Now.
func WithRateLimitClock(now func() time.Time) RateLimitOption {
	return func(rl *RateLimiter) { rl.now = now }
}

// WithTrustedProxies lists the proxies whose X-Forwarded-For entries are
// believed. Without it the peer address is the client.
func WithTrustedProxies(proxies []netip.Prefix) RateLimitOption {
	return func(rl *RateLimiter) { rl.proxies = proxies }
}

func NewRateLimiter(limit int, window time.Duration, opts ...RateLimitOption) *RateLimiter {
	rl := &RateLimiter{
		clients:  make(map[string]*bucket),
		limit:    limit,
		window:   window,
		interval: window / time.Duration(max(limit, 1)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(rl)
	}
	return rl
}

// Allow takes a token for key. When none is left it reports how long until
// the next one.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.clients[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(rl.interval), rl.limit)}
		rl.clients[key] = b
	}
	b.lastSeen = now

	if b.limiter.AllowN(now, 1) {
		return true, 0
	}

	missing := 1 - b.limiter.TokensAt(now)
	return false, time.Duration(missing * float64(rl.interval))
}

// Run sweeps idle buckets every interval until ctx is done.
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

// sweep drops buckets untouched for a full window; they are full again.
func (rl *RateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for key, b := range rl.clients {
		if b.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// RateLimitAuth limits register and login: 5 attempts per 15 minutes per IP.
func RateLimitAuth(opts ...RateLimitOption) *RateLimiter {
	return NewRateLimiter(5, 15*time.Minute, opts...)
}

// RateLimitOAuth limits the provider redirect and callback. One sign-in
// costs two requests.
func RateLimitOAuth(opts ...RateLimitOption) *RateLimiter {
	return NewRateLimiter(20, 15*time.Minute, opts...)
}

// RateLimit rejects clients that exhausted limiter with 429 and Retry-After.
func RateLimit(limiter *RateLimiter) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			ip := limiter.ClientIP(r)

			ok, wait := limiter.Allow(ip)
			if !ok {
				slog.Warn("rate limit exceeded",
					"ip", ip,
					"path", r.URL.Path,
				)
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
				return
			}

			next(w, r)
		}
	}
}

// ClientIP returns the peer address, or when the peer is a trusted proxy the
// right-most X-Forwarded-For entry that is not itself a trusted proxy.
func (rl *RateLimiter) ClientIP(r *http.Request) string {
	peer := remoteIP(r.RemoteAddr)
	if !rl.trusted(peer) {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if _, err := netip.ParseAddr(hop); err != nil {
			break
		}
		if !rl.trusted(hop) {
			return hop
		}
	}
	return peer
}

func (rl *RateLimiter) trusted(ip string) bool {
	if len(rl.proxies) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range rl.proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

func remoteIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
