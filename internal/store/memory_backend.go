package store

import (
	"context"
	"sync"
)

// MemoryBackend keeps snapshots in process memory. Nothing survives a restart.
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (b *MemoryBackend) Load(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	value, ok := b.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (b *MemoryBackend) Save(_ context.Context, key string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	b.data[key] = stored
	return nil
}

func (b *MemoryBackend) Close() error { return nil }
