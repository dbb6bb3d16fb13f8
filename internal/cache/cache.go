package cache

import (
	"container/list"
	"context"
	"crypto/md5"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tanmvo/skate-ai-2-sub002/internal/circuitbreaker"
)

// Store defines byte-value cache operations with per-entry TTL.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, v []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// LocalLRU is a simple in-process LRU with TTL.
type LocalLRU struct {
	mu   sync.Mutex
	cap  int
	list *list.List               // front = most recent
	m    map[string]*list.Element // key -> element
}

type lruEntry struct {
	key string
	val []byte
	exp time.Time
}

func NewLocalLRU(capacity int) *LocalLRU {
	if capacity <= 0 {
		capacity = 1024
	}
	return &LocalLRU{cap: capacity, list: list.New(), m: make(map[string]*list.Element, capacity)}
}

func (l *LocalLRU) Get(_ context.Context, key string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if el, ok := l.m[key]; ok {
		ent := el.Value.(lruEntry)
		if ent.exp.After(time.Now()) {
			l.list.MoveToFront(el)
			return ent.val, true
		}
		// expired: remove
		l.list.Remove(el)
		delete(l.m, key)
	}
	return nil, false
}

func (l *LocalLRU) Set(_ context.Context, key string, v []byte, ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if el, ok := l.m[key]; ok {
		el.Value = lruEntry{key: key, val: v, exp: time.Now().Add(ttl)}
		l.list.MoveToFront(el)
		return
	}
	el := l.list.PushFront(lruEntry{key: key, val: v, exp: time.Now().Add(ttl)})
	l.m[key] = el
	if l.list.Len() > l.cap {
		lru := l.list.Back()
		if lru != nil {
			ent := lru.Value.(lruEntry)
			delete(l.m, ent.key)
			l.list.Remove(lru)
		}
	}
}

func (l *LocalLRU) Delete(_ context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if el, ok := l.m[key]; ok {
		l.list.Remove(el)
		delete(l.m, key)
	}
}

// RedisStore uses circuit-breaker wrapped Redis.
type RedisStore struct {
	cli *circuitbreaker.RedisWrapper
}

// NewRedisStore connects to Redis at addr and verifies with a ping.
func NewRedisStore(addr string, logger *zap.Logger) (*RedisStore, error) {
	rc := redis.NewClient(&redis.Options{Addr: addr})
	wrapper := circuitbreaker.NewRedisWrapper(rc, "cache", logger)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := wrapper.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{cli: wrapper}, nil
}

// NewRedisStoreFromWrapper wraps an existing client; used by tests with
// miniredis.
func NewRedisStoreFromWrapper(wrapper *circuitbreaker.RedisWrapper) *RedisStore {
	return &RedisStore{cli: wrapper}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.cli.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return b, true
}

func (r *RedisStore) Set(ctx context.Context, key string, v []byte, ttl time.Duration) {
	_ = r.cli.Set(ctx, key, v, ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, key string) {
	_ = r.cli.Del(ctx, key).Err()
}

func (r *RedisStore) Close() error {
	return r.cli.Close()
}

// MakeKey derives a namespaced cache key from its parts.
func MakeKey(namespace string, parts ...string) string {
	joined := namespace
	for _, p := range parts {
		joined += "|" + p
	}
	h := md5.Sum([]byte(joined))
	return namespace + ":" + hex.EncodeToString(h[:])
}
