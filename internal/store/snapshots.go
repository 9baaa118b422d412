package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SnapshotBackend stores queue snapshots in the queue_snapshots table.
type SnapshotBackend struct {
	db *DB
}

// Snapshots returns the queue snapshot backend for this database.
func (d *DB) Snapshots() *SnapshotBackend {
	return &SnapshotBackend{db: d}
}

// Load returns the snapshot stored under key, or nil when absent.
func (s *SnapshotBackend) Load(ctx context.Context, key string) ([]byte, error) {
	ctx = ensureContext(ctx)
	var payload string
	err := retryOnBusy(ctx, func() error {
		return s.db.db.QueryRowContext(ctx,
			"SELECT payload FROM queue_snapshots WHERE queue_key = ?", key,
		).Scan(&payload)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", key, err)
	}
	return []byte(payload), nil
}

// Save upserts the snapshot for key.
func (s *SnapshotBackend) Save(ctx context.Context, key string, data []byte) error {
	_, err := s.db.execWithRetry(ctx,
		`INSERT INTO queue_snapshots (queue_key, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(queue_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key, string(data), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	return nil
}

// Delete removes the snapshot for key.
func (s *SnapshotBackend) Delete(ctx context.Context, key string) error {
	if _, err := s.db.execWithRetry(ctx, "DELETE FROM queue_snapshots WHERE queue_key = ?", key); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the owning DB closes the connection.
func (s *SnapshotBackend) Close() error { return nil }
