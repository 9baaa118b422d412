package metrics_test

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"drq/internal/metrics"
	"drq/internal/queue"
	"drq/internal/store"
)

func TestRegistryTracksQueueActivity(t *testing.T) {
	reg := metrics.New()
	engine := queue.New[string]("music", queue.NewJSONStore[string](store.NewMemoryBackend(), "music"),
		queue.ExecutorFunc[string](func(context.Context, string) error { return nil }),
		queue.Options[string]{Observer: reg})
	ctx := context.Background()

	engine.Enqueue(ctx, "s1")
	engine.Enqueue(ctx, "s2")
	engine.Drain(ctx)
	reg.SweepFinished("new_data", 4, 120*time.Millisecond)

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)

	for _, want := range []string{
		`drq_queue_entries_enqueued_total{queue="music"} 2`,
		`drq_queue_attempts_total{kind="none",outcome="succeeded",queue="music"} 2`,
		`drq_queue_entries{queue="music",status="succeeded"} 2`,
		`drq_queue_entries{queue="music",status="pending"} 0`,
		`drq_sync_sweeps_total{outcome="new_data"} 1`,
		`drq_sync_records_synced_total 4`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("metrics output missing %q\n%s", want, text)
		}
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	first := metrics.New()
	second := metrics.New()
	first.EntryEnqueued("music")

	families, err := second.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() == "drq_queue_entries_enqueued_total" && len(family.GetMetric()) > 0 {
			t.Fatal("second registry observed first registry's counter")
		}
	}
}
