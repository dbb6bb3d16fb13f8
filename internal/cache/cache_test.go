package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tanmvo/skate-ai-2-sub002/internal/circuitbreaker"
)

func TestLocalLRUBasic(t *testing.T) {
	ctx := context.Background()
	c := NewLocalLRU(2)

	c.Set(ctx, "a", []byte("1"), time.Minute)
	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	_, ok = c.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestLocalLRUEviction(t *testing.T) {
	ctx := context.Background()
	c := NewLocalLRU(2)

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)
	c.Get(ctx, "a") // touch a so b becomes the eviction candidate
	c.Set(ctx, "c", []byte("3"), time.Minute)

	_, ok := c.Get(ctx, "b")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "a")
	assert.True(t, ok)
}

func TestLocalLRUExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewLocalLRU(4)

	c.Set(ctx, "a", []byte("1"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
}

func TestLocalLRUDelete(t *testing.T) {
	ctx := context.Background()
	c := NewLocalLRU(4)

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Delete(ctx, "a")
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromWrapper(circuitbreaker.NewRedisWrapper(client, "cache-test", zap.NewNop()))
	defer store.Close()

	ctx := context.Background()
	store.Set(ctx, "docs:study-1", []byte(`["doc-1","doc-2"]`), time.Minute)

	v, ok := store.Get(ctx, "docs:study-1")
	require.True(t, ok)
	assert.Equal(t, []byte(`["doc-1","doc-2"]`), v)

	store.Delete(ctx, "docs:study-1")
	_, ok = store.Get(ctx, "docs:study-1")
	assert.False(t, ok)
}

func TestRedisStoreTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromWrapper(circuitbreaker.NewRedisWrapper(client, "cache-ttl-test", zap.NewNop()))
	defer store.Close()

	ctx := context.Background()
	store.Set(ctx, "k", []byte("v"), time.Minute)
	mr.FastForward(2 * time.Minute)

	_, ok := store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMakeKeyStable(t *testing.T) {
	k1 := MakeKey("docs", "study-1")
	k2 := MakeKey("docs", "study-1")
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, MakeKey("docs", "study-2"))
	assert.Contains(t, k1, "docs:")
}
