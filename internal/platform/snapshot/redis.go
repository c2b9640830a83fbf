package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "amma:snapshot:"

// RedisStore persists snapshots as Redis string values, one key per
// snapshot name.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to Redis using the given URL
// (redis://[:password@]host:port/db) and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

// Close releases the underlying client.
func (r *RedisStore) Close() error { return r.rdb.Close() }

func (r *RedisStore) Load(ctx context.Context, name string) ([]byte, error) {
	data, err := r.rdb.Get(ctx, redisKeyPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %q: %w", name, err)
	}
	return data, nil
}

func (r *RedisStore) Save(ctx context.Context, name string, data []byte) error {
	if err := r.rdb.Set(ctx, redisKeyPrefix+name, data, 0).Err(); err != nil {
		return fmt.Errorf("save snapshot %q: %w", name, err)
	}
	return nil
}
