package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each snapshot as a plain string value under prefix+key.
// Values have no TTL; retention is enforced by the queue on load.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// RedisOptions configures NewRedisClient.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient creates a client with conservative timeouts.
func NewRedisClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     4,
	})
}

// NewRedisBackend wraps client. The backend owns the client and closes it.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

func (b *RedisBackend) key(key string) string { return b.prefix + "queue:" + key }

func (b *RedisBackend) Load(ctx context.Context, key string) ([]byte, error) {
	val, err := b.client.Get(ensureContext(ctx), b.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

func (b *RedisBackend) Save(ctx context.Context, key string, data []byte) error {
	if err := b.client.Set(ensureContext(ctx), b.key(key), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Ping verifies the server is reachable.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ensureContext(ctx)).Err()
}

func (b *RedisBackend) Close() error { return b.client.Close() }
