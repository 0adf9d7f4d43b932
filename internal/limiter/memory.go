package limiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// MemoryLimiter keeps one token bucket per key in process memory.
type MemoryLimiter struct {
	limiters sync.Map
	rps      float64
	burst    int
}

func NewMemoryLimiter(rps float64, burst int) *MemoryLimiter {
	if burst <= 0 {
		burst = 5
	}
	return &MemoryLimiter{rps: rps, burst: burst}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.getLimiter(key).Allow(), nil
}

func (l *MemoryLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	lim := rate.NewLimiter(rate.Limit(l.rps), l.burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}
