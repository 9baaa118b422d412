package daemon_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"drq/internal/api"
	"drq/internal/daemon"
	"drq/internal/notifications"
	"drq/internal/queue"
	"drq/internal/reconcile"
	"drq/internal/services"
	"drq/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	td := newTestDaemon(t)
	ctx := context.Background()

	td.start(t)
	status := td.Status(ctx)
	if !status.Running || status.StartedAt.IsZero() {
		t.Fatalf("expected daemon to report running, got %+v", status)
	}
	if status.NextSweep.IsZero() {
		t.Fatal("expected a scheduled sweep while running")
	}
	if td.APIAddr() == "" {
		t.Fatal("expected API to be listening")
	}

	if err := td.Start(ctx); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}

	td.Stop()
	status = td.Status(ctx)
	if status.Running || !status.NextSweep.IsZero() || td.APIAddr() != "" {
		t.Fatalf("expected daemon to be stopped, got %+v", status)
	}

	// The lock is released, so a restart succeeds.
	td.start(t)
	td.Stop()
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	first := newTestDaemon(t)
	first.start(t)

	second := newTestDaemonWithConfig(t, first.cfg)
	err := second.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock conflict, got %v", err)
	}
	if second.Running() {
		t.Fatal("second daemon should not be running")
	}
}

func TestDaemonPlaysQueuedSongs(t *testing.T) {
	td := newTestDaemon(t)
	ctx := context.Background()
	td.start(t)

	entry, err := td.Play(ctx, "s1", false)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	testsupport.Eventually(t, 2*time.Second, func() bool {
		entries, _ := td.Entries("succeeded")
		return len(entries) == 1 && entries[0].ID == entry.ID
	}, "entry should succeed")

	if got := td.SongTitle("s1"); got != "Minecraft by C418" {
		t.Fatalf("unexpected title %q", got)
	}
	if got := td.SongTitle("nope"); got != "nope" {
		t.Fatalf("unknown songs should render their id, got %q", got)
	}
}

func TestDaemonPlayRejectsBlankSong(t *testing.T) {
	td := newTestDaemon(t)
	_, err := td.Play(context.Background(), "  ", false)
	if services.KindOf(err) != services.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDaemonNotifiesTerminalFailure(t *testing.T) {
	td := newTestDaemon(t)
	ctx := context.Background()
	td.start(t)

	entry, err := td.Play(ctx, "s99", false)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	testsupport.Eventually(t, 2*time.Second, func() bool {
		return len(td.notifier.Events()) == 1
	}, "terminal failure should notify")

	event := td.notifier.Events()[0]
	if event.event != notifications.EventEntryFailed {
		t.Fatalf("unexpected event %s", event.event)
	}
	if event.payload["ref"] != "s99" || event.payload["attempts"] != 1 {
		t.Fatalf("unexpected payload %+v", event.payload)
	}

	failed, err := td.Entries("failed")
	if err != nil || len(failed) != 1 || failed[0].ID != entry.ID {
		t.Fatalf("expected failed entry, got %+v (%v)", failed, err)
	}

	retried, ok := td.RetryEntry(ctx, entry.ID)
	if !ok || retried.Status != queue.StatusPending || retried.Attempts != 0 {
		t.Fatalf("expected retry to reset entry, got ok=%v %+v", ok, retried)
	}
	if _, ok := td.RetryEntry(ctx, "missing"); ok {
		t.Fatal("retry of unknown id should report false")
	}
}

func TestDaemonClearEntries(t *testing.T) {
	td := newTestDaemon(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := td.Play(ctx, fmt.Sprintf("s%d", i+1), false); err != nil {
			t.Fatalf("Play: %v", err)
		}
	}
	if _, err := td.ClearEntries(ctx, "pending"); services.KindOf(err) != services.KindValidation {
		t.Fatalf("expected validation error for pending, got %v", err)
	}
	if removed, err := td.ClearEntries(ctx, "failed"); err != nil || removed != 0 {
		t.Fatalf("expected nothing failed, got %d (%v)", removed, err)
	}
	if removed, err := td.ClearEntries(ctx, ""); err != nil || removed != 3 {
		t.Fatalf("expected 3 removed, got %d (%v)", removed, err)
	}
	if _, err := td.Entries("bogus"); services.KindOf(err) != services.KindValidation {
		t.Fatalf("expected validation error for bogus status, got %v", err)
	}
}

func TestDaemonSyncVenuesOfflineThenOnline(t *testing.T) {
	td := newTestDaemon(t)
	ctx := context.Background()

	added, err := td.AddVenue(ctx, "Corner Cafe", 52.52, 13.40)
	if err != nil {
		t.Fatalf("AddVenue: %v", err)
	}
	if added.Synced {
		t.Fatal("venue should not sync while offline")
	}

	result := td.SyncVenues(ctx)
	if result.Outcome != reconcile.OutcomeFailed || result.Remaining != 1 {
		t.Fatalf("expected failed sweep with 1 remaining, got %+v", result)
	}

	td.remote.online.Store(true)
	result = td.SyncVenues(ctx)
	if result.Outcome != reconcile.OutcomeNewData || result.Synced != 1 || result.Remaining != 0 {
		t.Fatalf("expected one venue synced, got %+v", result)
	}
	if got := td.SyncVenues(ctx); got.Outcome != reconcile.OutcomeNoData {
		t.Fatalf("expected no data, got %+v", got)
	}

	status := td.Status(ctx)
	if status.PendingVenues != 0 || status.Sweeps != 3 || status.LastSweep.Outcome != reconcile.OutcomeNoData {
		t.Fatalf("unexpected status %+v", status)
	}
	// Offline sweeps are routine and do not notify.
	if events := td.notifier.Events(); len(events) != 0 {
		t.Fatalf("expected no notifications, got %+v", events)
	}
}

func TestDaemonSyncVenuesOutlivesCallerContext(t *testing.T) {
	td := newTestDaemon(t)
	td.start(t)

	if _, err := td.AddVenue(context.Background(), "Night Market", 1.29, 103.85); err != nil {
		t.Fatalf("AddVenue: %v", err)
	}
	td.remote.online.Store(true)

	gone, cancel := context.WithCancel(context.Background())
	cancel()
	result := td.SyncVenues(gone)
	if result.Outcome != reconcile.OutcomeNewData || result.Synced != 1 || result.Remaining != 0 {
		t.Fatalf("expected sweep to finish despite a canceled caller, got %+v", result)
	}
	if pending := td.Status(context.Background()).PendingVenues; pending != 0 {
		t.Fatalf("expected venue marked synced, %d pending", pending)
	}
}

func TestDaemonSweepFailureNotifies(t *testing.T) {
	td := newTestDaemon(t)
	ctx := context.Background()
	td.remote.sendErr = services.ServerError("remote", "send batch", 502)

	if _, err := td.AddVenue(ctx, "Harbour", 10, 10); err != nil {
		t.Fatalf("AddVenue: %v", err)
	}
	td.remote.online.Store(true)

	result := td.SyncVenues(ctx)
	if result.Outcome != reconcile.OutcomeFailed {
		t.Fatalf("expected failed sweep, got %+v", result)
	}
	testsupport.Eventually(t, time.Second, func() bool {
		return len(td.notifier.Events()) == 1
	}, "sweep failure should notify")
	event := td.notifier.Events()[0]
	if event.event != notifications.EventSweepFailed || event.payload["remaining"] != 1 || event.payload["trigger"] != "manual" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestDaemonRetryVenues(t *testing.T) {
	td := newTestDaemon(t)
	ctx := context.Background()

	for _, name := range []string{"A", "B"} {
		if _, err := td.AddVenue(ctx, name, 1, 1); err != nil {
			t.Fatalf("AddVenue: %v", err)
		}
	}
	summary, err := td.RetryVenues(ctx)
	if err == nil || summary.Online || summary.Failed != 2 {
		t.Fatalf("expected offline retry, got %+v (%v)", summary, err)
	}

	td.remote.online.Store(true)
	summary, err = td.RetryVenues(ctx)
	if err != nil || summary.Synced != 2 || summary.Total != 2 {
		t.Fatalf("expected both synced, got %+v (%v)", summary, err)
	}
	pending, err := td.Venues(ctx, true)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected no pending venues, got %+v (%v)", pending, err)
	}
}

func TestDaemonSyncOnStart(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Sync.SyncOnStart = true
	td := newTestDaemonWithConfig(t, cfg)
	ctx := context.Background()

	if _, err := td.AddVenue(ctx, "Saved offline", 0, 0); err != nil {
		t.Fatalf("AddVenue: %v", err)
	}
	td.remote.online.Store(true)

	td.start(t)
	testsupport.Eventually(t, 2*time.Second, func() bool {
		status := td.Status(ctx)
		return status.Sweeps > 0 && status.PendingVenues == 0
	}, "startup sweep should sync pending venues")
}

func TestOpenWiresConfiguredStack(t *testing.T) {
	server := newAcceptingServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithEndpoint(server.URL))
	ctx := context.Background()

	d, err := daemon.Open(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer d.Close()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	client := api.NewClient(d.APIAddr(), "", nil)
	v, err := client.AddVenue(ctx, api.AddVenueRequest{Name: "Pier", Latitude: 1, Longitude: 2})
	if err != nil {
		t.Fatalf("AddVenue: %v", err)
	}
	if !v.Synced {
		t.Fatalf("expected immediate sync against accepting server, got %+v", v)
	}

	entry, err := client.Play(ctx, api.PlayRequest{SongID: "s4"})
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if entry.Title != "Moog City by C418" {
		t.Fatalf("unexpected title %q", entry.Title)
	}
	testsupport.Eventually(t, 2*time.Second, func() bool {
		status, err := client.Status(ctx)
		return err == nil && status.Music.Succeeded == 1
	}, "song should play through the sqlite-backed queue")

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || status.Backend != "sqlite" || status.Sync.Endpoint == "" {
		t.Fatalf("unexpected status %+v", status)
	}
}
