package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

// Limiter decides whether one more request for key fits in the current
// window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

const keyFormat = "ratelimit:%s:%s:%d" // ratelimit:scope:key:window start

// RedisLimiter is a fixed-window counter shared by every instance talking
// to the same Redis.
type RedisLimiter struct {
	client *redis.Client
	scope  string
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *redis.Client, scope string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		scope:  scope,
		limit:  int64(limit),
		window: window,
		now:    time.Now,
	}
}

func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolTimeout:  time.Second * 30,
		ReadTimeout:  time.Second * 2,
		WriteTimeout: time.Second * 2,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "connect redis %s", addr)
	}
	return client, nil
}

func (l *RedisLimiter) windowKey(key string) string {
	start := l.now().UnixNano() / int64(l.window)
	return fmt.Sprintf(keyFormat, l.scope, key, start)
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.windowKey(key)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, errors.Wrap(err, "rate limit counter")
	}
	return incr.Val() <= l.limit, nil
}
