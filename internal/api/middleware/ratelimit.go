package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/qs3c/namma_kumta_server/config"
	"github.com/qs3c/namma_kumta_server/internal/pkg/response"
)

// 超过该时长没有请求的 IP 会被清理
const limiterIdleTTL = 10 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 按客户端 IP 的令牌桶限流
type RateLimiter struct {
	mu        sync.Mutex
	ips       map[string]*ipLimiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		ips:       make(map[string]*ipLimiter),
		limit:     rate.Limit(cfg.RequestsPerSecond),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

// Middleware RequestsPerSecond <= 0 时不限流
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r.limit <= 0 {
			c.Next()
			return
		}

		if !r.allow(c.ClientIP(), time.Now()) {
			response.RateLimitError(c, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (r *RateLimiter) allow(ip string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.lastSweep) > limiterIdleTTL {
		for k, l := range r.ips {
			if now.Sub(l.lastSeen) > limiterIdleTTL {
				delete(r.ips, k)
			}
		}
		r.lastSweep = now
	}

	l, ok := r.ips[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.ips[ip] = l
	}
	l.lastSeen = now
	return l.limiter.AllowN(now, 1)
}

// RateLimit 便捷构造
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	return NewRateLimiter(cfg).Middleware()
}
