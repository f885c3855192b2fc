package memory

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/programacion-segura/secure-api/internal/core/ports"
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter allows limit attempts per window and key as a token bucket that
// refills at limit/window. It is local to the process.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*bucket), now: time.Now}
}

func (l *RateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (ports.RateLimitDecision, error) {
	if limit <= 0 {
		return ports.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	if window <= 0 {
		window = time.Second
	}
	every := rate.Every(window / time.Duration(limit))

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictIdle(now, window)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(every, limit)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	allowed := b.limiter.AllowN(now, 1)
	tokens := b.limiter.TokensAt(now)

	resetAt := now
	if tokens < 1 {
		wait := (1 - tokens) / float64(every)
		resetAt = now.Add(time.Duration(math.Ceil(wait * float64(time.Second))))
	}
	return ports.RateLimitDecision{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: int(math.Floor(math.Max(tokens, 0))),
		ResetAt:   resetAt,
	}, nil
}

// evictIdle drops buckets that have fully refilled. Callers hold mu.
func (l *RateLimiter) evictIdle(now time.Time, window time.Duration) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > window {
			delete(l.buckets, key)
		}
	}
}

var _ ports.RateLimiter = (*RateLimiter)(nil)
