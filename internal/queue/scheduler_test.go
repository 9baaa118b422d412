package queue_test

import (
	"errors"
	"testing"
	"time"

	"drq/internal/queue"
	"drq/internal/services"
)

func TestBackoffDoubles(t *testing.T) {
	policy := queue.DefaultRetryPolicy()
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	for i, delay := range want {
		if got := policy.Backoff(i + 1); got != delay {
			t.Fatalf("Backoff(%d) = %s, want %s", i+1, got, delay)
		}
	}
	if got := policy.Backoff(0); got != time.Second {
		t.Fatalf("Backoff(0) = %s, want base delay", got)
	}
	if policy.Backoff(1000) <= 0 {
		t.Fatal("expected bounded positive backoff for large attempts")
	}
}

func TestExpiredHonoursRetentionWindows(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	policy := queue.DefaultRetryPolicy()

	cases := []struct {
		status  queue.Status
		age     time.Duration
		expired bool
	}{
		{queue.StatusFailed, 61 * time.Minute, true},
		{queue.StatusFailed, 59 * time.Minute, false},
		{queue.StatusPending, 48 * time.Hour, false},
		{queue.StatusSucceeded, 48 * time.Hour, false},
	}
	for _, tc := range cases {
		if got := policy.Expired(tc.status, now.Add(-tc.age), now); got != tc.expired {
			t.Fatalf("Expired(%s, age %s) = %v, want %v", tc.status, tc.age, got, tc.expired)
		}
	}

	policy.SucceededRetention = 24 * time.Hour
	if !policy.Expired(queue.StatusSucceeded, now.Add(-48*time.Hour), now) {
		t.Fatal("expected succeeded entry past retention to expire")
	}
}

func TestIsTerminalClassifiesKinds(t *testing.T) {
	if !queue.IsTerminal(services.Wrap(services.ErrNotFound, "playback", "lookup", "missing", nil)) {
		t.Fatal("expected not_found to be terminal")
	}
	if !queue.IsTerminal(&queue.ExecutionError{Err: services.Wrap(services.ErrValidation, "venue", "add", "bad", nil)}) {
		t.Fatal("expected wrapped validation error to be terminal")
	}
	for _, err := range []error{
		services.Wrap(services.ErrTimeout, "remote", "send", "slow", nil),
		services.Wrap(services.ErrResourceCorrupt, "playback", "load", "corrupt", nil),
		errors.New("plain"),
	} {
		if queue.IsTerminal(err) {
			t.Fatalf("expected %v to be retryable", err)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, status := range queue.AllStatuses() {
		parsed, ok := queue.ParseStatus(string(status))
		if !ok || parsed != status {
			t.Fatalf("ParseStatus(%q) = %q, %v", status, parsed, ok)
		}
	}
	if _, ok := queue.ParseStatus("exploded"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}
