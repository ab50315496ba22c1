package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ruteri/record-store/interfaces"
)

// redisClient is the subset of *redis.Client the backend uses, so tests can
// substitute a fake.
type redisClient interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// RedisConfig describes a Redis server holding records.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix namespaces record keys (e.g. "records:").
	KeyPrefix string
}

// RedisBackend implements a record backend on Redis string values.
type RedisBackend struct {
	client      redisClient
	prefix      string
	log         *slog.Logger
	locationURI string
}

// NewRedisBackend connects a new Redis record backend.
func NewRedisBackend(cfg RedisConfig, log *slog.Logger) (*RedisBackend, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return newRedisBackend(client, cfg.KeyPrefix, fmt.Sprintf("redis://%s/%d?prefix=%s", cfg.Addr, cfg.DB, cfg.KeyPrefix), log), nil
}

func newRedisBackend(client redisClient, prefix, uri string, log *slog.Logger) *RedisBackend {
	if log == nil {
		log = slog.Default()
	}
	if prefix == "" {
		prefix = "records:"
	}
	return &RedisBackend{
		client:      client,
		prefix:      prefix,
		log:         log,
		locationURI: uri,
	}
}

func (b *RedisBackend) Exists(ctx context.Context, key interfaces.StorageKey) (bool, error) {
	n, err := b.client.Exists(ctx, b.redisKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %w", interfaces.ErrBackendUnavailable, err)
	}
	return n > 0, nil
}

func (b *RedisBackend) Read(ctx context.Context, key interfaces.StorageKey) ([]byte, error) {
	data, err := b.client.Get(ctx, b.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, interfaces.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interfaces.ErrBackendUnavailable, err)
	}
	return data, nil
}

// Create uses SETNX so that concurrent creators cannot both succeed.
func (b *RedisBackend) Create(ctx context.Context, key interfaces.StorageKey) error {
	ok, err := b.client.SetNX(ctx, b.redisKey(key), "", 0).Result()
	if err != nil {
		return fmt.Errorf("%w: %w", interfaces.ErrBackendUnavailable, err)
	}
	if !ok {
		return interfaces.ErrRecordExists
	}
	return nil
}

func (b *RedisBackend) Write(ctx context.Context, key interfaces.StorageKey, data []byte) error {
	if err := b.client.Set(ctx, b.redisKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("%w: %w", interfaces.ErrBackendUnavailable, err)
	}

	b.log.Debug("Stored record in Redis",
		slog.String("key", b.redisKey(key)),
		slog.Int("size", len(data)))
	return nil
}

func (b *RedisBackend) Delete(ctx context.Context, key interfaces.StorageKey) error {
	n, err := b.client.Del(ctx, b.redisKey(key)).Result()
	if err != nil {
		return fmt.Errorf("%w: %w", interfaces.ErrBackendUnavailable, err)
	}
	if n == 0 {
		return interfaces.ErrRecordNotFound
	}
	return nil
}

// List scans all keys under the prefix.
func (b *RedisBackend) List(ctx context.Context) ([]interfaces.StorageKey, error) {
	seen := make(map[string]struct{})
	var keys []interfaces.StorageKey
	var cursor uint64

	for {
		batch, next, err := b.client.Scan(ctx, cursor, b.prefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", interfaces.ErrBackendUnavailable, err)
		}
		// SCAN may return a key more than once.
		for _, k := range batch {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, interfaces.StorageKey(strings.TrimPrefix(k, b.prefix)))
		}
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}

func (b *RedisBackend) Name() string {
	return fmt.Sprintf("redis-%s", strings.TrimSuffix(b.prefix, ":"))
}

func (b *RedisBackend) LocationURI() string {
	return b.locationURI
}

func (b *RedisBackend) redisKey(key interfaces.StorageKey) string {
	return b.prefix + string(key)
}
