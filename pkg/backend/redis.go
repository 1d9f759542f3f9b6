package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisBackend stores each document as a YAML string value under prefix+name.
// A single SET replaces the value, so readers see the old or the new document.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend connects to redisURL and verifies the connection
func NewRedisBackend(ctx context.Context, redisURL, prefix string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisBackendFromClient(client, prefix), nil
}

// NewRedisBackendFromClient wraps an existing client
func NewRedisBackendFromClient(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) key(name string) string { return b.prefix + name }

// Name implements Backend.Name
func (b *RedisBackend) Name() string { return "redis:" + b.prefix }

// Load implements Backend.Load
func (b *RedisBackend) Load(ctx context.Context, name string, out any) (bool, error) {
	data, err := b.client.Get(ctx, b.key(name)).Bytes()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("redis get %s failed: %w", b.key(name), err)
	}

	found, err := decode(data, out)
	if err != nil {
		return false, fmt.Errorf("%s: %w", b.key(name), err)
	}
	return found, nil
}

// Save implements Backend.Save
func (b *RedisBackend) Save(ctx context.Context, name string, v any) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}
	if err := b.client.Set(ctx, b.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s failed: %w", b.key(name), err)
	}
	return nil
}

// Close closes the redis connection pool
func (b *RedisBackend) Close() error {
	return b.client.Close()
}
