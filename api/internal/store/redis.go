package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKV хранит значения в Redis. По умолчанию без TTL: записи подсказок не истекают.
type RedisKV struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisOption configures a RedisKV.
type RedisOption func(*RedisKV)

// WithTTL sets an expiry for written keys. Zero means no expiration.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *RedisKV) { r.ttl = ttl }
}

// WithPrefix sets the key prefix. Default is "tutorpy".
func WithPrefix(prefix string) RedisOption {
	return func(r *RedisKV) { r.prefix = prefix }
}

func NewRedisKV(client *redis.Client, opts ...RedisOption) *RedisKV {
	r := &RedisKV{client: client, prefix: "tutorpy"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisKV) Name() string { return "redis" }

func (r *RedisKV) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

func (r *RedisKV) Ping(ctx context.Context) error { return r.client.Ping(ctx).Err() }
