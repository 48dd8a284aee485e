package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ManuelReschke/Tochigi/internal/pkg/config"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
)

// Store is a small JSON cache on top of Redis/Dragonfly.
type Store struct {
	client *redis.Client
	log    *logger.Logger
}

// New connects to the cache server. A failed ping is logged but not fatal;
// callers treat cache errors as misses.
func New(cfg config.CacheConfig, log *logger.Logger) *Store {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Addr()).Msg("could not connect to cache")
	} else {
		log.Info().Str("addr", cfg.Addr()).Msg("connected to cache")
	}

	return &Store{client: client, log: log}
}

// Client returns the underlying Redis client.
func (s *Store) Client() *redis.Client {
	return s.client
}

// Set stores a value in the cache with the given key and expiration time
func (s *Store) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return s.client.Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value from the cache by key
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	return s.client.Get(ctx, key).Result()
}

// Delete removes values from the cache
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	return s.client.Del(ctx, keys...).Err()
}

// SetJSON marshals v and stores it under key.
func (s *Store) SetJSON(ctx context.Context, key string, v any, expiration time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, raw, expiration).Err()
}

// GetJSON loads key into v. It reports false on a miss.
func (s *Store) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, err
	}
	return true, nil
}

// Remember returns the cached value for key or computes, stores and returns it.
// Cache failures fall through to load.
func Remember[T any](ctx context.Context, s *Store, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var out T
	if s != nil {
		if ok, err := s.GetJSON(ctx, key, &out); err == nil && ok {
			return out, nil
		} else if err != nil {
			s.log.Debug().Err(err).Str("key", key).Msg("cache read failed")
		}
	}

	out, err := load()
	if err != nil {
		return out, err
	}
	if s != nil {
		if err := s.SetJSON(ctx, key, out, ttl); err != nil {
			s.log.Debug().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	return out, nil
}
