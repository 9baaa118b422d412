package services_test

import (
	"context"
	"testing"

	"drq/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithQueue(ctx, "music")
	ctx = services.WithEntryID(ctx, "2aZ9")
	ctx = services.WithRequestID(ctx, "req-123")

	if name, ok := services.QueueFromContext(ctx); !ok || name != "music" {
		t.Fatalf("unexpected queue: %v %v", name, ok)
	}
	if id, ok := services.EntryIDFromContext(ctx); !ok || id != "2aZ9" {
		t.Fatalf("unexpected entry id: %v %v", id, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithQueue(ctx, "")
	ctx = services.WithEntryID(ctx, "")
	if _, ok := services.QueueFromContext(ctx); ok {
		t.Fatal("expected no queue value")
	}
	if _, ok := services.EntryIDFromContext(ctx); ok {
		t.Fatal("expected no entry id value")
	}
}
