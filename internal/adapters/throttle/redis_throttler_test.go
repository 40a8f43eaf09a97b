package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vncsmyrnk/accounts/internal/core/domain"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisThrottler_BlocksAfterMaxFailures(t *testing.T) {
	ctx := context.Background()
	_, client := newTestRedis(t)
	th := NewRedisThrottler(client, Config{MaxAttempts: 3, Cooldown: time.Minute})

	for i := 0; i < 3; i++ {
		require.NoError(t, th.Check(ctx, "a@x.com", "10.0.0.1"))
		require.NoError(t, th.RegisterFailure(ctx, "a@x.com", "10.0.0.1"))
	}

	assert.ErrorIs(t, th.Check(ctx, "a@x.com", "10.0.0.1"), domain.ErrRateLimited)
	assert.ErrorIs(t, th.Check(ctx, "A@X.com ", "10.0.0.2"), domain.ErrRateLimited, "email key is normalized")
	assert.ErrorIs(t, th.Check(ctx, "b@x.com", "10.0.0.1"), domain.ErrRateLimited, "address key is shared")
	assert.NoError(t, th.Check(ctx, "b@x.com", "10.0.0.2"))
}

func TestRedisThrottler_WindowExpires(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	th := NewRedisThrottler(client, Config{MaxAttempts: 1, Cooldown: time.Minute})

	require.NoError(t, th.RegisterFailure(ctx, "a@x.com", ""))
	require.ErrorIs(t, th.Check(ctx, "a@x.com", ""), domain.ErrRateLimited)

	mr.FastForward(time.Minute + time.Second)
	assert.NoError(t, th.Check(ctx, "a@x.com", ""))
}

func TestRedisThrottler_TTLSetOnFirstFailureOnly(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	th := NewRedisThrottler(client, Config{MaxAttempts: 5, Cooldown: time.Minute})

	require.NoError(t, th.RegisterFailure(ctx, "a@x.com", ""))
	mr.FastForward(40 * time.Second)
	require.NoError(t, th.RegisterFailure(ctx, "a@x.com", ""))

	ttl := mr.TTL(emailKey("a@x.com"))
	assert.Equal(t, 20*time.Second, ttl)
}

func TestRedisThrottler_CounterWithoutTTLGetsWindow(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	th := NewRedisThrottler(client, Config{MaxAttempts: 5, Cooldown: time.Minute})

	// A counter left behind by an INCR whose EXPIRE never landed.
	require.NoError(t, mr.Set(emailKey("a@x.com"), "4"))
	require.Zero(t, mr.TTL(emailKey("a@x.com")))

	require.NoError(t, th.RegisterFailure(ctx, "a@x.com", "10.0.0.1"))

	got, err := mr.Get(emailKey("a@x.com"))
	require.NoError(t, err)
	assert.Equal(t, "5", got)
	assert.Equal(t, time.Minute, mr.TTL(emailKey("a@x.com")))
	assert.Equal(t, time.Minute, mr.TTL(ipKey("10.0.0.1")))
}

func TestRedisThrottler_ResetClearsEmailCounter(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	th := NewRedisThrottler(client, Config{MaxAttempts: 1, Cooldown: time.Minute})

	require.NoError(t, th.RegisterFailure(ctx, "a@x.com", "10.0.0.1"))
	require.NoError(t, th.Reset(ctx, "a@x.com", "10.0.0.1"))

	assert.False(t, mr.Exists(emailKey("a@x.com")))
	assert.True(t, mr.Exists(ipKey("10.0.0.1")))
}

func TestRedisThrottler_RedisDown(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestRedis(t)
	th := NewRedisThrottler(client, Config{MaxAttempts: 1, Cooldown: time.Minute})
	mr.Close()

	assert.ErrorIs(t, th.Check(ctx, "a@x.com", ""), ErrRedisUnavailable)
	assert.ErrorIs(t, th.RegisterFailure(ctx, "a@x.com", ""), ErrRedisUnavailable)
	assert.ErrorIs(t, th.Reset(ctx, "a@x.com", ""), ErrRedisUnavailable)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	var th Noop
	for i := 0; i < 10; i++ {
		require.NoError(t, th.RegisterFailure(ctx, "a@x.com", "1.1.1.1"))
	}
	assert.NoError(t, th.Check(ctx, "a@x.com", "1.1.1.1"))
	assert.NoError(t, th.Reset(ctx, "a@x.com", "1.1.1.1"))
}
