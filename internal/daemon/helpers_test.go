package daemon_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"drq/internal/config"
	"drq/internal/daemon"
	"drq/internal/metrics"
	"drq/internal/notifications"
	"drq/internal/playback"
	"drq/internal/services"
	"drq/internal/store"
	"drq/internal/testsupport"
	"drq/internal/venue"
)

type fakeRemote struct {
	online  atomic.Bool
	sendErr error

	mu      sync.Mutex
	batches [][]venue.Venue
}

func (f *fakeRemote) Check(context.Context) error {
	if !f.online.Load() {
		return services.Wrap(services.ErrNoConnection, "remote", "check", "offline", nil)
	}
	return nil
}

func (f *fakeRemote) SendVenue(ctx context.Context, v venue.Venue) error {
	return f.SendBatch(ctx, []venue.Venue{v})
}

func (f *fakeRemote) SendBatch(ctx context.Context, batch []venue.Venue) error {
	if err := f.Check(ctx); err != nil {
		return err
	}
	if f.sendErr != nil {
		return f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
	return nil
}

type published struct {
	event   notifications.Event
	payload notifications.Payload
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []published
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, published{event: event, payload: payload})
	return nil
}

func (n *recordingNotifier) Events() []published {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]published, len(n.events))
	copy(out, n.events)
	return out
}

type testDaemon struct {
	*daemon.Daemon
	cfg      *config.Config
	remote   *fakeRemote
	notifier *recordingNotifier
	backend  *store.MemoryBackend
}

func newTestDaemon(t *testing.T, opts ...testsupport.ConfigOption) *testDaemon {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	return newTestDaemonWithConfig(t, cfg)
}

func newTestDaemonWithConfig(t *testing.T, cfg *config.Config) *testDaemon {
	t.Helper()
	db := testsupport.MustOpenStore(t, cfg)
	td := &testDaemon{
		cfg:      cfg,
		remote:   &fakeRemote{},
		notifier: &recordingNotifier{},
		backend:  store.NewMemoryBackend(),
	}
	d, err := daemon.New(cfg, nil, daemon.Deps{
		Backend:  td.backend,
		Player:   playback.NewExecutor(playback.DefaultCatalog(), playback.NullPlayer{}, playback.WithHold(0)),
		Venues:   db.Venues(),
		Remote:   td.remote,
		Metrics:  metrics.New(),
		Notifier: td.notifier,
	})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	td.Daemon = d
	t.Cleanup(func() { _ = d.Close() })
	return td
}

func (td *testDaemon) start(t *testing.T) {
	t.Helper()
	if err := td.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func newAcceptingServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(server.Close)
	return server
}
