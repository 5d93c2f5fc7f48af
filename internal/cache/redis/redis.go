package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aniladanir/billing-reminder-service/internal/cache"
	"github.com/aniladanir/retry"
	"github.com/go-redis/redis/v8"
)

var compareAndDel = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new redis cache that complies with cache interface
func NewRedisCache(ctx context.Context, addr, password string, db int, maxAttempts int) (*RedisCache, error) {
	rClient := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	opts := make([]retry.Option, 0)
	if maxAttempts > 0 {
		opts = append(opts, retry.WithMaxAttemps(maxAttempts))
	}
	retrier, err := retry.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize retrier: %w", err)
	}

	// retry ping
	var pingErr error
	ok := <-retrier.Retry(ctx, func(attempt int) (terminate bool) {
		pingErr = rClient.Ping(ctx).Err()
		return pingErr == nil
	}, true)
	if !ok {
		_ = rClient.Close()
		if pingErr == nil {
			pingErr = ctx.Err()
		}
		return nil, fmt.Errorf("failed to ping redis instance: %w", pingErr)
	}

	return &RedisCache{
		client: rClient,
	}, nil
}

func (r *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", cache.ErrMiss
	}
	return val, err
}

func (r *RedisCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

func (r *RedisCache) CompareAndDel(ctx context.Context, key, value string) (bool, error) {
	n, err := compareAndDel.Run(ctx, r.client, []string{key}, value).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
