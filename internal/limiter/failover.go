package limiter

import (
	"context"
	"sync/atomic"
	"time"

	"todolist/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverLimiter asks primary first and switches to fallback when primary
// errors. While down, primary is retried at most once per recoveryInterval.
type FailoverLimiter struct {
	primary   domain.RateLimiter
	fallback  domain.RateLimiter
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverLimiter(primary, fallback domain.RateLimiter, logger *zerolog.Logger) *FailoverLimiter {
	return &FailoverLimiter{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (l *FailoverLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if !l.isDown.Load() {
		allowed, err := l.primary.Allow(ctx, key)
		if err == nil {
			return allowed, nil
		}
		l.logger.Error().Err(err).Msg("Primary rate limiter failed, falling back to memory")
		l.markDown()
	} else if time.Since(time.Unix(0, l.lastCheck.Load())) > recoveryInterval {
		allowed, err := l.primary.Allow(ctx, key)
		if err == nil {
			l.isDown.Store(false)
			l.logger.Info().Msg("Primary rate limiter recovered")
			return allowed, nil
		}
		l.lastCheck.Store(time.Now().UnixNano())
	}

	return l.fallback.Allow(ctx, key)
}

func (l *FailoverLimiter) markDown() {
	l.isDown.Store(true)
	l.lastCheck.Store(time.Now().UnixNano())
}
