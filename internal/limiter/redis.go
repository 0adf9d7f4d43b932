package limiter

import (
	"context"
	"fmt"
	"time"

	"todolist/internal/config"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts requests per key in fixed windows shared by every
// server process pointed at the same Redis.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRedisClient builds a client from the redis section of the config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// NewRedisLimiter allows burst requests per window, where the window is the
// time the configured rate needs to refill the burst.
func NewRedisLimiter(client *redis.Client, rps float64, burst int) *RedisLimiter {
	if burst <= 0 {
		burst = 5
	}
	window := time.Second
	if rps > 0 {
		if w := time.Duration(float64(burst) / rps * float64(time.Second)); w > window {
			window = w
		}
	}
	return &RedisLimiter{
		client: client,
		limit:  burst,
		window: window,
		prefix: "todolist:rate_limit:",
	}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	k := r.prefix + key
	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, k, r.window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= int64(r.limit), nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}
