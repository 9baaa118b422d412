package api_test

import (
	"errors"
	"testing"
	"time"

	"drq/internal/api"
	"drq/internal/queue"
	"drq/internal/reconcile"
	"drq/internal/venue"
)

func TestFromEntryResolvesTitleAndTimestamps(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 0, 0, 0, time.FixedZone("CET", 3600))
	entry := queue.Entry[string]{
		ID:            "e1",
		Ref:           "s2",
		Status:        queue.StatusPending,
		Attempts:      2,
		LastError:     "boom",
		CreatedAt:     created,
		UpdatedAt:     created.Add(time.Second),
		NextAttemptAt: created.Add(3 * time.Second),
	}
	dto := api.FromEntry(entry, func(id string) string { return "title-" + id })

	if dto.SongID != "s2" || dto.Title != "title-s2" {
		t.Fatalf("unexpected song fields: %+v", dto)
	}
	if dto.Status != "pending" || dto.Attempts != 2 || dto.LastError != "boom" {
		t.Fatalf("unexpected state fields: %+v", dto)
	}
	if dto.CreatedAt != "2026-03-14T08:00:00.000Z" {
		t.Fatalf("expected UTC timestamp, got %q", dto.CreatedAt)
	}
	if dto.NextAttemptAt != "2026-03-14T08:00:03.000Z" {
		t.Fatalf("unexpected next attempt: %q", dto.NextAttemptAt)
	}
}

func TestFromEntryOmitsNextAttemptOnceSettled(t *testing.T) {
	entry := queue.Entry[string]{
		ID:            "e1",
		Ref:           "s1",
		Status:        queue.StatusFailed,
		NextAttemptAt: time.Now(),
	}
	dto := api.FromEntry(entry, nil)
	if dto.NextAttemptAt != "" || dto.Title != "" {
		t.Fatalf("expected no next attempt or title, got %+v", dto)
	}
}

func TestFromSweepCarriesOutcome(t *testing.T) {
	result := reconcile.Result{
		CorrelationID: "abc",
		Outcome:       reconcile.OutcomeFailed,
		Remaining:     7,
		Error:         "no connection",
		Duration:      1500 * time.Millisecond,
		Err:           errors.New("no connection"),
	}
	dto := api.FromSweep(result)
	if dto.Outcome != "failed" || dto.Remaining != 7 || dto.DurationMs != 1500 || dto.Error != "no connection" {
		t.Fatalf("unexpected sweep: %+v", dto)
	}
}

func TestFromVenuesPreservesOrder(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	venues := []venue.Venue{
		{ID: "a", Name: "Cafe", Latitude: 1, Longitude: 2, CreatedAt: now},
		{ID: "b", Name: "Bar", Synced: true, CreatedAt: now.Add(time.Minute)},
	}
	dtos := api.FromVenues(venues)
	if len(dtos) != 2 || dtos[0].ID != "a" || dtos[1].ID != "b" || !dtos[1].Synced {
		t.Fatalf("unexpected venues: %+v", dtos)
	}
}

func TestSortEntriesNewestFirst(t *testing.T) {
	entries := []api.Entry{
		{ID: "a", CreatedAt: "2026-03-14T09:00:00.000Z"},
		{ID: "c", CreatedAt: "2026-03-14T09:00:01.000Z"},
		{ID: "b", CreatedAt: "2026-03-14T09:00:01.000Z"},
	}
	sorted := api.SortEntriesNewestFirst(entries)
	if sorted[0].ID != "c" || sorted[1].ID != "b" || sorted[2].ID != "a" {
		t.Fatalf("unexpected order: %+v", sorted)
	}
	if entries[0].ID != "a" {
		t.Fatal("input slice was modified")
	}
}
