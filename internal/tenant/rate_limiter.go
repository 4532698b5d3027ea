package tenant

import (
	"maps"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ums222/ClarityClaim-AI-sub001/pkg/httputil"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per key. The public endpoints key it by client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// NewRateLimiter allows limit requests per period for each key, refilling evenly
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	if limit < 1 {
		limit = 1
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(period / time.Duration(limit)),
		burst:    limit,
		now:      time.Now,
	}
}

// Allow takes one token from key's bucket
func (rl *RateLimiter) Allow(key string) bool {
	// the limiters are safe for concurrent use but the map is not
	rl.mu.Lock()
	limiter, ok := rl.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[key] = limiter
	}
	rl.mu.Unlock()

	return limiter.AllowN(rl.now(), 1)
}

// Cleanup drops limiters whose bucket has refilled completely
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	maps.DeleteFunc(rl.limiters, func(_ string, limiter *rate.Limiter) bool {
		return int(limiter.TokensAt(now)) >= limiter.Burst()
	})
}

// Middleware answers 429 once the client IP has spent its budget
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodOptions && !rl.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.ErrorResponse{Error: "Too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
