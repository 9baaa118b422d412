package store

import (
	"context"
	"fmt"
	"io"

	"drq/internal/config"
	"drq/internal/queue"
)

// SnapshotStore is a queue backend that releases resources on Close.
type SnapshotStore interface {
	queue.Backend
	io.Closer
}

// OpenBackend selects the queue snapshot backend named by queue.backend.
// The sqlite backend shares db; other backends ignore it.
func OpenBackend(ctx context.Context, cfg *config.Config, db *DB) (SnapshotStore, error) {
	switch cfg.Queue.Backend {
	case "", "sqlite":
		if db == nil {
			return nil, fmt.Errorf("queue backend sqlite: database not open")
		}
		return db.Snapshots(), nil
	case "file":
		return NewFileBackend(cfg.SnapshotDir())
	case "redis":
		backend := NewRedisBackend(NewRedisClient(RedisOptions{
			Addr:     cfg.Queue.RedisAddr,
			Password: cfg.Queue.RedisPassword,
			DB:       cfg.Queue.RedisDB,
		}), cfg.Queue.RedisPrefix)
		if err := backend.Ping(ctx); err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("queue backend redis %s: %w", cfg.Queue.RedisAddr, err)
		}
		return backend, nil
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("queue backend: unsupported value %q", cfg.Queue.Backend)
	}
}
