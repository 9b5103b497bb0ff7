// Package ratelimit bounds how often a member can request lab invites.
// Invite creation is an upstream side effect with its own rate limits;
// this keeps one member from burning the budget for everyone.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "invite_rl:"

// Open connects a redis client from a URL and verifies connectivity.
func Open(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

type InviteLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	log    zerolog.Logger
}

func NewInviteLimiter(log zerolog.Logger, client *redis.Client, limit int64, window time.Duration) *InviteLimiter {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = 10 * time.Minute
	}
	return &InviteLimiter{client: client, limit: limit, window: window, log: log}
}

// Allow reports whether userID may request another invite within the
// current window. A nil limiter always allows; redis failures fail open
// so an outage never locks members out of the labs.
func (l *InviteLimiter) Allow(ctx context.Context, userID string) bool {
	if l == nil || l.client == nil {
		return true
	}

	key := keyPrefix + userID
	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		l.log.Warn().Err(err).Msg("invite rate limit check failed, allowing")
		return true
	}
	if n == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			l.log.Warn().Err(err).Msg("setting rate limit window failed")
		}
	}
	return n <= l.limit
}
