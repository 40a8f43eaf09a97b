// Package throttle limits failed login attempts per email and per client address.
package throttle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vncsmyrnk/accounts/internal/core/domain"
	"github.com/vncsmyrnk/accounts/internal/core/ports"
)

var ErrRedisUnavailable = errors.New("redis unavailable")

const keyPrefix = "accounts:login"

type Config struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// RedisThrottler keeps fixed-window failure counters in Redis. A window starts
// with the first failure and lasts Cooldown.
type RedisThrottler struct {
	redis  redis.UniversalClient
	config Config
}

func NewRedisThrottler(client redis.UniversalClient, cfg Config) ports.LoginThrottler {
	return &RedisThrottler{
		redis:  client,
		config: cfg,
	}
}

func (t *RedisThrottler) Check(ctx context.Context, email, clientIP string) error {
	for _, key := range t.keys(email, clientIP) {
		count, err := t.redis.Get(ctx, key).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if count >= int64(t.config.MaxAttempts) {
			return domain.ErrRateLimited
		}
	}
	return nil
}

// RegisterFailure bumps every counter and starts its window in one MULTI. NX
// keeps the first failure's expiry and still sets one on a counter left
// without a TTL.
func (t *RedisThrottler) RegisterFailure(ctx context.Context, email, clientIP string) error {
	_, err := t.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range t.keys(email, clientIP) {
			pipe.Incr(ctx, key)
			pipe.ExpireNX(ctx, key, t.config.Cooldown)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Reset clears the email counter only. The address counter keeps running so a
// valid account cannot be used to reset attempts against other accounts.
func (t *RedisThrottler) Reset(ctx context.Context, email, _ string) error {
	if err := t.redis.Del(ctx, emailKey(email)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (t *RedisThrottler) keys(email, clientIP string) []string {
	keys := []string{emailKey(email)}
	if clientIP != "" {
		keys = append(keys, ipKey(clientIP))
	}
	return keys
}

func emailKey(email string) string {
	return keyPrefix + ":email:" + strings.ToLower(strings.TrimSpace(email))
}

func ipKey(ip string) string {
	return keyPrefix + ":ip:" + ip
}

// Noop never throttles. It is used when no Redis address is configured.
type Noop struct{}

func (Noop) Check(context.Context, string, string) error           { return nil }
func (Noop) RegisterFailure(context.Context, string, string) error { return nil }
func (Noop) Reset(context.Context, string, string) error           { return nil }
