package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisWrapper wraps a Redis client with a circuit breaker. A redis.Nil
// result is a cache miss, not a breaker failure.
type RedisWrapper struct {
	client  *redis.Client
	breaker *Breaker
	service string
}

// NewRedisWrapper creates a Redis wrapper registered with the default
// collector.
func NewRedisWrapper(client *redis.Client, service string, logger *zap.Logger) *RedisWrapper {
	if service == "" {
		service = "cache"
	}
	b := New("redis", RedisProfile().ToConfig(), logger)
	DefaultCollector.Register("redis", service, b)
	return &RedisWrapper{client: client, breaker: b, service: service}
}

// Ping wraps Redis Ping.
func (rw *RedisWrapper) Ping(ctx context.Context) *redis.StatusCmd {
	var result *redis.StatusCmd
	err := rw.breaker.Execute(ctx, func() error {
		result = rw.client.Ping(ctx)
		return result.Err()
	})
	rw.record(err == nil)
	if err != nil && result == nil {
		result = redis.NewStatusCmd(ctx)
		result.SetErr(err)
	}
	return result
}

// Get wraps Redis Get.
func (rw *RedisWrapper) Get(ctx context.Context, key string) *redis.StringCmd {
	var result *redis.StringCmd
	err := rw.breaker.Execute(ctx, func() error {
		result = rw.client.Get(ctx, key)
		if errors.Is(result.Err(), redis.Nil) {
			return nil
		}
		return result.Err()
	})
	rw.record(err == nil)
	if err != nil && result == nil {
		result = redis.NewStringCmd(ctx)
		result.SetErr(err)
	}
	return result
}

// Set wraps Redis Set.
func (rw *RedisWrapper) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	var result *redis.StatusCmd
	err := rw.breaker.Execute(ctx, func() error {
		result = rw.client.Set(ctx, key, value, expiration)
		return result.Err()
	})
	rw.record(err == nil)
	if err != nil && result == nil {
		result = redis.NewStatusCmd(ctx)
		result.SetErr(err)
	}
	return result
}

// Del wraps Redis Del.
func (rw *RedisWrapper) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var result *redis.IntCmd
	err := rw.breaker.Execute(ctx, func() error {
		result = rw.client.Del(ctx, keys...)
		return result.Err()
	})
	rw.record(err == nil)
	if err != nil && result == nil {
		result = redis.NewIntCmd(ctx)
		result.SetErr(err)
	}
	return result
}

// Close closes the underlying client.
func (rw *RedisWrapper) Close() error {
	return rw.client.Close()
}

// Client returns the underlying Redis client for operations not covered by
// the wrapper.
func (rw *RedisWrapper) Client() *redis.Client {
	return rw.client
}

// IsOpen reports whether the breaker is currently open.
func (rw *RedisWrapper) IsOpen() bool {
	return rw.breaker.State() == StateOpen
}

func (rw *RedisWrapper) record(success bool) {
	DefaultCollector.RecordRequest("redis", rw.service, rw.breaker.State(), success)
}
