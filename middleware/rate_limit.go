package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/cppla/bbsforum/utils"
)

const limiterIdle = 5 * time.Minute

type rateLimiter struct {
	limiter *rate.Limiter
	expires time.Time
}

// limiterSet keeps one token bucket per client key.
type limiterSet struct {
	mu       sync.Mutex
	limiters map[string]*rateLimiter
	limit    rate.Limit
	burst    int
	swept    time.Time
}

func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	// idle buckets are dropped at most once per limiterIdle
	if now.Sub(s.swept) >= limiterIdle {
		for k, l := range s.limiters {
			if now.After(l.expires) {
				delete(s.limiters, k)
			}
		}
		s.swept = now
	}
	if l, ok := s.limiters[key]; ok {
		l.expires = now.Add(limiterIdle)
		return l.limiter
	}
	l := &rateLimiter{limiter: rate.NewLimiter(s.limit, s.burst), expires: now.Add(limiterIdle)}
	s.limiters[key] = l
	return l.limiter
}

// RateLimit applies a simple IP based rate limiter using a token bucket.
func RateLimit(perMinute int) gin.HandlerFunc {
	perMinute = max(perMinute, 1)
	set := &limiterSet{
		limiters: map[string]*rateLimiter{},
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    max(perMinute/2, 1),
		swept:    time.Now(),
	}
	return func(ctx *gin.Context) {
		if !set.get(ctx.ClientIP(), time.Now()).Allow() {
			utils.Abort(ctx, http.StatusTooManyRequests, 42901, "rate limit exceeded")
			return
		}
		ctx.Next()
	}
}
