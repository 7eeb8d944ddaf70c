package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrSendRateLimited        = errors.New("code send rate limited")
	ErrSendLimiterUnavailable = errors.New("code send limiter unavailable")
)

// SendCodeConfig bounds how many one-time codes may be issued per fixed
// window. This caps operator-initiated resends and notification spam against
// the bound address.
type SendCodeConfig struct {
	Enabled  bool
	MaxSends int
	Window   time.Duration
}

// SendCodeLimiter is a fixed-window counter keyed on the destination address.
type SendCodeLimiter struct {
	redis  redis.UniversalClient
	config SendCodeConfig
}

func NewSendCodeLimiter(redisClient redis.UniversalClient, cfg SendCodeConfig) *SendCodeLimiter {
	return &SendCodeLimiter{redis: redisClient, config: cfg}
}

// CheckSend counts one issuance attempt and rejects once the window budget is
// spent.
func (l *SendCodeLimiter) CheckSend(ctx context.Context, destination string) error {
	if l == nil || !l.config.Enabled || destination == "" {
		return nil
	}

	key := "asc:" + destination
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendLimiterUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrSendLimiterUnavailable, err)
		}
	}

	if count > int64(l.config.MaxSends) {
		return ErrSendRateLimited
	}

	return nil
}
