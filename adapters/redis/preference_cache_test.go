package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/voiceast/server/adapters"
	"github.com/voiceast/server/domain/repositories"
)

// countingStore counts preference reads that reach the primary store
type countingStore struct {
	*adapters.MemoryStore
	gets int
}

func (c *countingStore) Get(ctx context.Context, key string) (interface{}, error) {
	c.gets++
	return c.MemoryStore.Get(ctx, key)
}

func setupCachedStore(t *testing.T, opts ...Option) (*CachedStore, *countingStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	primary := &countingStore{MemoryStore: adapters.NewMemoryStore()}
	return NewCachedStore(primary, client, zaptest.NewLogger(t), opts...), primary, mr
}

func TestCachedStore_ReadThrough(t *testing.T) {
	store, primary, mr := setupCachedStore(t)
	ctx := context.Background()

	require.NoError(t, primary.MemoryStore.Set(ctx, "voice", "female"))

	value, err := store.Get(ctx, "voice")
	require.NoError(t, err)
	assert.Equal(t, "female", value)
	assert.Equal(t, 1, primary.gets)

	value, err = store.Get(ctx, "voice")
	require.NoError(t, err)
	assert.Equal(t, "female", value)
	assert.Equal(t, 1, primary.gets, "second read should be served from redis")

	assert.True(t, mr.Exists("voiceast:preference:voice"))
}

func TestCachedStore_SetUpdatesCache(t *testing.T) {
	store, primary, mr := setupCachedStore(t, WithPrefix("test"))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "rate", map[string]interface{}{"wpm": 150}))

	cached, err := mr.Get("test:preference:rate")
	require.NoError(t, err)
	assert.JSONEq(t, `{"wpm":150}`, cached)

	value, err := store.Get(ctx, "rate")
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"wpm": float64(150)}, value)
	assert.Equal(t, 0, primary.gets)
}

func TestCachedStore_NotFound(t *testing.T) {
	store, _, mr := setupCachedStore(t)

	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.False(t, mr.Exists("voiceast:preference:missing"))
}

func TestCachedStore_TTL(t *testing.T) {
	store, primary, mr := setupCachedStore(t, WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "voice", "male"))
	mr.FastForward(2 * time.Minute)

	value, err := store.Get(ctx, "voice")
	require.NoError(t, err)
	assert.Equal(t, "male", value)
	assert.Equal(t, 1, primary.gets)
}

func TestCachedStore_RedisDown(t *testing.T) {
	store, primary, mr := setupCachedStore(t)
	ctx := context.Background()

	require.NoError(t, primary.MemoryStore.Set(ctx, "voice", "female"))
	mr.Close()

	value, err := store.Get(ctx, "voice")
	require.NoError(t, err)
	assert.Equal(t, "female", value)
}
