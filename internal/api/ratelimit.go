package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/mr1hm/road-hazard-alerts/internal/observability"
)

// clientLimiters keeps one token bucket per client IP. Idle entries expire.
type clientLimiters struct {
	rps   rate.Limit
	burst int

	mu    sync.Mutex
	cache *cache.Cache
}

func newClientLimiters(rps float64, burst int, ttl time.Duration) *clientLimiters {
	if burst < 1 {
		burst = 1
	}
	return &clientLimiters{
		rps:   rate.Limit(rps),
		burst: burst,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (l *clientLimiters) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.cache.Get(key); ok {
		// Touch so active clients keep their bucket.
		l.cache.SetDefault(key, v)
		return v.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(l.rps, l.burst)
	l.cache.SetDefault(key, limiter)
	return limiter
}

func RateLimitMiddleware(rps float64, burst int, ttl time.Duration, metrics *observability.Metrics) gin.HandlerFunc {
	limiters := newClientLimiters(rps, burst, ttl)

	return func(c *gin.Context) {
		if !limiters.get(c.ClientIP()).Allow() {
			if metrics != nil {
				metrics.RateLimited.Inc()
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
