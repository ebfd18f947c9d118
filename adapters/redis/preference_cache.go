// Package redis caches user preferences in front of the primary store.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/voiceast/server/domain/repositories"
)

const (
	defaultTTL    = time.Hour
	defaultPrefix = "voiceast"
)

// CachedStore is a repositories.Store whose preference reads go through Redis.
// Cache failures are logged and fall back to the wrapped store.
type CachedStore struct {
	repositories.Store

	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// Option configures a CachedStore.
type Option func(*CachedStore)

// WithTTL sets how long a cached preference lives. Zero means no expiration.
func WithTTL(ttl time.Duration) Option {
	return func(s *CachedStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix for Redis keys.
func WithPrefix(prefix string) Option {
	return func(s *CachedStore) {
		s.prefix = prefix
	}
}

// NewCachedStore wraps store with a Redis preference cache
func NewCachedStore(store repositories.Store, client *redis.Client, logger *zap.Logger, opts ...Option) *CachedStore {
	s := &CachedStore{
		Store:  store,
		client: client,
		ttl:    defaultTTL,
		prefix: defaultPrefix,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewClient parses a redis:// URL and verifies the server answers
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// Get implements repositories.PreferenceRepository
func (s *CachedStore) Get(ctx context.Context, key string) (interface{}, error) {
	data, err := s.client.Get(ctx, s.preferenceKey(key)).Bytes()
	if err == nil {
		var value interface{}
		if err := json.Unmarshal(data, &value); err == nil {
			return value, nil
		}
		s.logger.Warn("Discarding undecodable cached preference", zap.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn("Preference cache read failed", zap.String("key", key), zap.Error(err))
	}

	value, err := s.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cache(ctx, key, value)
	return value, nil
}

// Set implements repositories.PreferenceRepository. The store is written
// first so the cache never holds a value the store rejected.
func (s *CachedStore) Set(ctx context.Context, key string, value interface{}) error {
	if err := s.Store.Set(ctx, key, value); err != nil {
		return err
	}
	s.cache(ctx, key, value)
	return nil
}

func (s *CachedStore) cache(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("Preference is not cacheable", zap.String("key", key), zap.Error(err))
		s.client.Del(ctx, s.preferenceKey(key))
		return
	}
	if err := s.client.Set(ctx, s.preferenceKey(key), data, s.ttl).Err(); err != nil {
		s.logger.Warn("Preference cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *CachedStore) preferenceKey(key string) string {
	return fmt.Sprintf("%s:preference:%s", s.prefix, key)
}
