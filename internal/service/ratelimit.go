package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jackhunterking/adpilot/core/config"
)

// RateLimiter enforces a fixed-window request limit per user and endpoint.
type RateLimiter interface {
	// Allow reports whether the request fits inside the current window.
	Allow(ctx context.Context, userID int64, endpoint string) (bool, error)
}

type redisRateLimiter struct {
	client *redis.Client
	cfg    config.RateLimitConfig
}

func NewRateLimiter(client *redis.Client, cfg config.RateLimitConfig) RateLimiter {
	return &redisRateLimiter{client: client, cfg: cfg}
}

func (l *redisRateLimiter) Allow(ctx context.Context, userID int64, endpoint string) (bool, error) {
	window := time.Now().Unix() / int64(l.cfg.Window.Seconds())
	key := fmt.Sprintf("ratelimit:%d:%s:%d", userID, endpoint, window)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.cfg.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		// Redis being down should not take chat down with it.
		slog.WarnContext(ctx, "rate limit check failed, allowing request", "error", err)
		return true, nil
	}

	count := incr.Val()
	if count > int64(l.cfg.RequestsPerWindow) {
		slog.InfoContext(ctx, "rate limit exceeded",
			"user_id", userID,
			"endpoint", endpoint,
			"count", count,
			"limit", l.cfg.RequestsPerWindow)
		return false, nil
	}

	return true, nil
}
