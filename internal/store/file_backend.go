package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"drq/internal/fileutil"
)

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileBackend stores each key as <dir>/<key>.json, replaced atomically.
type FileBackend struct {
	dir string
	mu  sync.Mutex
}

// NewFileBackend creates dir if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// PathFor returns the file backing key.
func (b *FileBackend) PathFor(key string) string {
	return filepath.Join(b.dir, unsafeKeyChars.ReplaceAllString(key, "_")+".json")
}

func (b *FileBackend) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ensureContext(ctx).Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	data, err := fileutil.ReadFileIfExists(b.PathFor(key))
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", key, err)
	}
	return data, nil
}

func (b *FileBackend) Save(ctx context.Context, key string, data []byte) error {
	if err := ensureContext(ctx).Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := fileutil.WriteFileAtomic(b.PathFor(key), data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }
