package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jellydator/ttlcache/v3"

	"github.com/charlesng35/issuerelay/pkg/errors"
	"github.com/charlesng35/issuerelay/pkg/response"
)

type rateWindow struct {
	count int
	ends  time.Time
}

// RateLimiter counts requests per (clientIP, route) within a fixed window. Counters
// expire with their window.
type RateLimiter struct {
	max    int
	window time.Duration
	mu     sync.Mutex
	counts *ttlcache.Cache[string, *rateWindow]
	now    func() time.Time
}

// NewRateLimiter builds a limiter; call Stop to release its sweeper.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	counts := ttlcache.New[string, *rateWindow](
		ttlcache.WithTTL[string, *rateWindow](window),
		ttlcache.WithDisableTouchOnHit[string, *rateWindow](),
	)
	go counts.Start()
	return &RateLimiter{max: maxRequests, window: window, counts: counts, now: time.Now}
}

// Stop halts the expiry sweeper.
func (l *RateLimiter) Stop() {
	l.counts.Stop()
}

func (l *RateLimiter) hit(key string) (count int, resetIn time.Duration) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	var w *rateWindow
	if item := l.counts.Get(key); item != nil && now.Before(item.Value().ends) {
		w = item.Value()
	} else {
		w = &rateWindow{ends: now.Add(l.window)}
		l.counts.Set(key, w, ttlcache.DefaultTTL)
	}
	w.count++
	return w.count, w.ends.Sub(now)
}

// Handler returns the gin middleware.
func (l *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.max <= 0 || l.window <= 0 {
			c.Next()
			return
		}

		count, resetIn := l.hit(c.ClientIP() + "|" + c.FullPath())
		remaining := l.max - count
		if remaining < 0 {
			remaining = 0
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(l.max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(resetIn.Seconds())))

		if count > l.max {
			response.Error(c, errors.ErrTooManyRequests)
			c.Abort()
			return
		}

		c.Next()
	}
}
