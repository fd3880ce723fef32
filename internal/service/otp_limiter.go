package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// OTPLimiter bounds validation submissions per account+purpose. Six
// digit codes rely on channel rate limiting, not length, for their
// brute-force resistance.
type OTPLimiter struct {
	redis       *redis.Client
	maxAttempts int
	window      time.Duration
	log         zerolog.Logger
}

func NewOTPLimiter(redisClient *redis.Client, maxAttempts int, window time.Duration, log zerolog.Logger) *OTPLimiter {
	return &OTPLimiter{
		redis:       redisClient,
		maxAttempts: maxAttempts,
		window:      window,
		log:         log,
	}
}

// Allow counts one submission and reports whether it is within budget.
// A Redis outage fails open with a warning; the limiter is a hardening
// layer and must not take logins down with it.
func (l *OTPLimiter) Allow(ctx context.Context, accountID, purpose string) bool {
	if l == nil || l.redis == nil {
		return true
	}

	key := "otp:attempts:" + accountID + ":" + purpose

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		l.log.Warn().Err(err).Msg("otp limiter unavailable, failing open")
		return true
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			l.log.Warn().Err(err).Msg("otp limiter expire failed")
		}
	}

	return count <= int64(l.maxAttempts)
}
