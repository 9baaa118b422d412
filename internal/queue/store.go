package queue

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store persists the full entry list of one queue. SaveAll replaces the
// previous snapshot atomically from the caller's perspective.
type Store[P any] interface {
	LoadAll(ctx context.Context) ([]Entry[P], error)
	SaveAll(ctx context.Context, entries []Entry[P]) error
}

// Backend is a durable key/value blob store. Load returns (nil, nil) for a
// key that was never written.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// JSONStore encodes a queue as a JSON array stored under a single backend key.
type JSONStore[P any] struct {
	backend Backend
	key     string
}

// NewJSONStore binds a queue snapshot to key within backend.
func NewJSONStore[P any](backend Backend, key string) *JSONStore[P] {
	return &JSONStore[P]{backend: backend, key: key}
}

// Key returns the backend key holding the snapshot.
func (s *JSONStore[P]) Key() string { return s.key }

func (s *JSONStore[P]) LoadAll(ctx context.Context) ([]Entry[P], error) {
	data, err := s.backend.Load(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.key, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var entries []Entry[P]
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.key, err)
	}
	return entries, nil
}

func (s *JSONStore[P]) SaveAll(ctx context.Context, entries []Entry[P]) error {
	if entries == nil {
		entries = []Entry[P]{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.key, err)
	}
	if err := s.backend.Save(ctx, s.key, data); err != nil {
		return fmt.Errorf("save %s: %w", s.key, err)
	}
	return nil
}
