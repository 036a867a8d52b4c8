package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/contaflow/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// RateLimiter is a fixed-window in-memory limiter keyed per caller
type RateLimiter struct {
	mu      sync.Mutex
	callers map[string]*callerWindow
	limit   int
	window  time.Duration
	done    chan struct{}
}

type callerWindow struct {
	remaining   int
	windowStart time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window.
// A background sweeper drops callers idle for two windows.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		callers: make(map[string]*callerWindow),
		limit:   limit,
		window:  window,
		done:    make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, cw := range rl.callers {
				if now.Sub(cw.windowStart) > rl.window*2 {
					delete(rl.callers, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Allow consumes one request slot for the key, reporting whether the
// request fits the current window and how many slots remain
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cw, ok := rl.callers[key]
	if !ok || now.Sub(cw.windowStart) >= rl.window {
		rl.callers[key] = &callerWindow{remaining: rl.limit - 1, windowStart: now}
		return true, rl.limit - 1
	}
	if cw.remaining > 0 {
		cw.remaining--
		return true, cw.remaining
	}
	return false, 0
}

// Stop terminates the background sweeper
func (rl *RateLimiter) Stop() {
	close(rl.done)
}

// RateLimit limits requests per tenant and client IP. Tenant-scoped
// keys keep one noisy tenant from exhausting another's budget behind
// a shared proxy.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if tenantID := c.GetHeader(TenantHeaderKey); tenantID != "" {
			key = tenantID + ":" + key
		}

		allowed, remaining := limiter.Allow(key)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorResponse("RATE_LIMIT_EXCEEDED", "Too many requests. Please try again later."))
			return
		}

		c.Next()
	}
}
