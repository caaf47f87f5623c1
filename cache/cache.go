// Package cache provides the optional catalog cache. A redis-backed
// store is selected when REDIS_ADDR is set; otherwise the no-op store
// keeps every call site working with always-miss semantics.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Munirmohammed/Ecommerce/config"
)

// Store is the capability consumed by services. Implementations are
// best-effort: callers treat every failure as a miss.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// ErrMiss is returned by Get when the key is absent.
var ErrMiss = fmt.Errorf("cache: miss")

// New picks the store implementation from configuration.
func New(cfg config.Config, logger *zap.Logger) (Store, error) {
	if cfg.RedisAddr == "" {
		logger.Info("Caching disabled, using no-op cache")
		return Noop{}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established", zap.String("addr", cfg.RedisAddr))
	return &redisStore{rdb: rdb}, nil
}

type redisStore struct {
	rdb *redis.Client
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrMiss
	}
	return b, err
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

// DeletePrefix removes every key under prefix with an incremental SCAN
// so large keyspaces do not block redis.
func (s *redisStore) DeletePrefix(ctx context.Context, prefix string) error {
	iter := s.rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

// Noop is the absent-cache implementation: every read misses, every
// write succeeds without effect.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string) ([]byte, error) { return nil, ErrMiss }

func (Noop) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error { return nil }

func (Noop) DeletePrefix(ctx context.Context, prefix string) error { return nil }
