package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"drq/internal/config"
	"drq/internal/logging"
	"drq/internal/metrics"
	"drq/internal/notifications"
	"drq/internal/playback"
	"drq/internal/queue"
	"drq/internal/reconcile"
	"drq/internal/services"
	"drq/internal/venue"
)

// MusicQueue names the playback queue in logs, metrics, and storage.
const MusicQueue = "music"

// ErrAlreadyRunning is returned by Start when the daemon is active.
var ErrAlreadyRunning = errors.New("daemon already running")

// Remote is the venue sync collaborator used for single pushes and batches.
type Remote interface {
	venue.Remote
	SendBatch(ctx context.Context, batch []venue.Venue) error
}

// Deps are the components a Daemon hosts. Backend, Player, Venues, and Remote
// are required.
type Deps struct {
	Backend  queue.Backend
	Player   *playback.Executor
	Venues   venue.Repository
	Remote   Remote
	Metrics  *metrics.Registry
	Notifier notifications.Service
	Clock    queue.Clock
	// Closers run in reverse order on Close.
	Closers []io.Closer
}

// Daemon coordinates the background processing services and enforces single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	player   *playback.Executor
	music    *queue.Engine[string]
	venues   *venue.Service
	sync     *reconcile.Driver[venue.Venue]
	metrics  *metrics.Registry
	notifier notifications.Service
	closers  []io.Closer

	lockPath string
	lock     *flock.Flock

	scheduler *sweepScheduler
	netmon    *netlinkMonitor
	api       *apiServer

	lifecycle sync.Mutex
	running   atomic.Bool
	startedAt time.Time
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	// runCtx mirrors ctx for readers outside the lifecycle lock.
	runCtx atomic.Pointer[context.Context]
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	StartedAt     time.Time
	Backend       string
	DatabasePath  string
	LockFilePath  string
	Music         queue.Stats
	MusicDraining bool
	PendingVenues int
	LastSweep     reconcile.Result
	Sweeps        int
	NextSweep     time.Time
	NetworkWatch  bool
}

// New constructs a daemon over deps. The music engine and sweep driver are
// built here so failures can be routed to notifications.
func New(cfg *config.Config, logger *slog.Logger, deps Deps) (*Daemon, error) {
	if cfg == nil || deps.Backend == nil || deps.Player == nil || deps.Venues == nil || deps.Remote == nil {
		return nil, errors.New("daemon requires config, queue backend, player, venue repository, and remote")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		player:   deps.Player,
		metrics:  deps.Metrics,
		notifier: notifier,
		closers:  deps.Closers,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	opts := queue.Options[string]{
		Policy:   PolicyFromConfig(cfg),
		Clock:    deps.Clock,
		Logger:   logger,
		OnFailed: d.onEntryFailed,
	}
	syncOpts := reconcile.Options{
		BatchSize: cfg.Sync.BatchSize,
		Logger:    logger,
	}
	if deps.Metrics != nil {
		opts.Observer = deps.Metrics
		syncOpts.Observer = deps.Metrics
	}
	d.music = queue.New[string](MusicQueue, queue.NewJSONStore[string](deps.Backend, MusicQueue), deps.Player, opts)
	d.venues = venue.NewService(deps.Venues, deps.Remote, logger)
	d.sync = reconcile.New[venue.Venue]("venues", deps.Venues, deps.Remote, syncOpts)

	d.scheduler = newSweepScheduler(cfg.Sync.Schedule, logger, func(ctx context.Context) {
		d.runSweep(ctx, "schedule")
	})
	d.netmon = newNetlinkMonitor(cfg, logger, func(ctx context.Context, iface string) {
		d.triggerSweep(ctx, "network:"+iface)
	})
	d.api = newAPIServer(cfg, d, logger)
	return d, nil
}

// PolicyFromConfig maps the [queue] section onto a retry policy.
func PolicyFromConfig(cfg *config.Config) queue.RetryPolicy {
	return queue.RetryPolicy{
		MaxAttempts:        cfg.Queue.MaxAttempts,
		BaseDelay:          cfg.BaseDelay(),
		FailedRetention:    cfg.FailedRetention(),
		SucceededRetention: cfg.SucceededRetention(),
	}
}

// Start acquires the daemon lock, loads the music queue, and launches the
// worker, sweep triggers, and API server.
func (d *Daemon) Start(ctx context.Context) error {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()

	if d.running.Load() {
		return ErrAlreadyRunning
	}
	if err := checkDataDir(d.cfg.Paths.DataDir); err != nil {
		return err
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another drq daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	runCtx := d.ctx
	d.runCtx.Store(&runCtx)
	purged := d.music.Load(d.ctx)
	if err := d.music.Start(d.ctx); err != nil {
		d.abortStart()
		return fmt.Errorf("start music queue: %w", err)
	}
	if err := d.scheduler.Start(d.ctx); err != nil {
		d.music.Stop()
		d.abortStart()
		return fmt.Errorf("start sweep schedule: %w", err)
	}
	if err := d.netmon.Start(d.ctx); err != nil {
		d.logger.Warn("network monitor unavailable", logging.Error(err))
	}
	if err := d.api.start(d.ctx); err != nil {
		d.netmon.Stop()
		d.scheduler.Stop()
		d.music.Stop()
		d.abortStart()
		return err
	}

	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("drq daemon started",
		logging.String(logging.FieldEventType, "daemon_started"),
		logging.String("lock", d.lockPath),
		logging.String("backend", d.cfg.Queue.Backend),
		logging.Int("purged_entries", purged),
	)

	if d.cfg.Sync.SyncOnStart {
		d.triggerSweep(d.ctx, "startup")
	}
	return nil
}

func (d *Daemon) abortStart() {
	if d.cancel != nil {
		d.cancel()
	}
	_ = d.lock.Unlock()
	d.runCtx.Store(nil)
	d.ctx = nil
	d.cancel = nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	d.lifecycle.Lock()
	defer d.lifecycle.Unlock()

	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.runCtx.Store(nil)
	d.api.stop()
	d.netmon.Stop()
	d.scheduler.Stop()
	d.music.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("drq daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	d.player.Close()
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// Running reports whether Start has succeeded and Stop has not run.
func (d *Daemon) Running() bool { return d.running.Load() }

// APIAddr returns the bound API address, or "" when the API is not listening.
func (d *Daemon) APIAddr() string { return d.api.addr() }

// Play enqueues songID on the music queue. Unknown songs are accepted and
// fail terminally when executed. A non-nil error with a populated entry means
// the entry is queued but its durable write failed.
func (d *Daemon) Play(ctx context.Context, songID string, forceFail bool) (queue.Entry[string], error) {
	songID = strings.TrimSpace(songID)
	if songID == "" {
		return queue.Entry[string]{}, services.Wrap(services.ErrValidation, "daemon", "play", "song id is required", nil)
	}
	return d.music.Enqueue(ctx, songID, queue.WithForceFail(forceFail))
}

// Entries lists music entries, optionally filtered by status.
func (d *Daemon) Entries(status string) ([]queue.Entry[string], error) {
	if strings.TrimSpace(status) == "" {
		return d.music.List(), nil
	}
	parsed, ok := queue.ParseStatus(status)
	if !ok {
		return nil, services.Wrap(services.ErrValidation, "daemon", "list entries", fmt.Sprintf("unknown status %q", status), nil)
	}
	return d.music.ListByStatus(parsed), nil
}

// RetryEntry resets a failed entry. The bool is false when id is unknown or
// not failed.
func (d *Daemon) RetryEntry(ctx context.Context, id string) (queue.Entry[string], bool) {
	if !d.music.Retry(ctx, id) {
		return queue.Entry[string]{}, false
	}
	entry, err := d.music.Get(id)
	if err != nil {
		return queue.Entry[string]{}, true
	}
	return entry, true
}

// ClearEntries removes failed entries, or every entry when status is empty or "all".
func (d *Daemon) ClearEntries(ctx context.Context, status string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "", "all":
		return d.music.ClearAll(ctx), nil
	case string(queue.StatusFailed):
		return d.music.ClearFailed(ctx), nil
	default:
		return 0, services.Wrap(services.ErrValidation, "daemon", "clear entries", fmt.Sprintf("cannot clear status %q", status), nil)
	}
}

// Songs returns the playback catalog.
func (d *Daemon) Songs() []playback.Song {
	return d.player.Catalog().Songs()
}

// SongTitle renders a song label, falling back to the id for unknown songs.
func (d *Daemon) SongTitle(songID string) string {
	if song, ok := d.player.Catalog().Lookup(songID); ok {
		return song.Label()
	}
	return songID
}

// AddVenue saves a venue and attempts an immediate push.
func (d *Daemon) AddVenue(ctx context.Context, name string, latitude, longitude float64) (venue.Venue, error) {
	return d.venues.Add(ctx, name, latitude, longitude)
}

// Venues lists saved venues, or only unsynced ones when pendingOnly is set.
func (d *Daemon) Venues(ctx context.Context, pendingOnly bool) ([]venue.Venue, error) {
	if pendingOnly {
		return d.venues.Pending(ctx)
	}
	return d.venues.List(ctx)
}

// SyncVenues runs a foreground sweep. The sweep runs on the daemon context so
// a caller that goes away cannot interrupt it between send and mark.
func (d *Daemon) SyncVenues(ctx context.Context) reconcile.Result {
	return d.runSweep(d.sweepContext(ctx), "manual")
}

func (d *Daemon) sweepContext(ctx context.Context) context.Context {
	if run := d.runCtx.Load(); run != nil {
		return *run
	}
	return context.WithoutCancel(ctx)
}

// RetryVenues pushes every unsynced venue one at a time.
func (d *Daemon) RetryVenues(ctx context.Context) (venue.RetrySummary, error) {
	return d.venues.RetryPending(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	last, sweeps := d.sync.Last()
	status := Status{
		Running:       d.running.Load(),
		Backend:       d.cfg.Queue.Backend,
		DatabasePath:  d.cfg.DatabasePath(),
		LockFilePath:  d.lockPath,
		Music:         d.music.Stats(),
		MusicDraining: d.music.Draining(),
		LastSweep:     last,
		Sweeps:        sweeps,
		NextSweep:     d.scheduler.Next(),
		NetworkWatch:  d.netmon.Running(),
	}
	if status.Running {
		status.StartedAt = d.startedAt
	}
	pending, err := d.venues.PendingCount(ctx)
	if err != nil {
		d.logger.Debug("count pending venues failed", logging.Error(err))
	}
	status.PendingVenues = pending
	return status
}

// triggerSweep runs a sweep in the background. Overlapping triggers collapse
// into the sweep already running.
func (d *Daemon) triggerSweep(ctx context.Context, trigger string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.runSweep(ctx, trigger)
	}()
}

func (d *Daemon) runSweep(ctx context.Context, trigger string) reconcile.Result {
	d.logger.Debug("sweep triggered",
		logging.String(logging.FieldEventType, "sweep_triggered"),
		logging.String("trigger", trigger),
	)
	result := d.sync.Sweep(ctx)
	if result.Skipped || result.Outcome != reconcile.OutcomeFailed {
		return result
	}
	// Offline sweeps are routine; only alert on failures with the network up.
	if errors.Is(result.Err, services.ErrNoConnection) || errors.Is(result.Err, context.Canceled) {
		return result
	}
	d.publish(ctx, notifications.EventSweepFailed, notifications.Payload{
		"remaining": result.Remaining,
		"error":     result.Error,
		"trigger":   trigger,
	})
	return result
}

func (d *Daemon) onEntryFailed(ctx context.Context, entry queue.Entry[string]) {
	d.publish(ctx, notifications.EventEntryFailed, notifications.Payload{
		"queue":    MusicQueue,
		"ref":      d.SongTitle(entry.Ref),
		"attempts": entry.Attempts,
		"error":    entry.LastError,
	})
}

// publish sends a notification without blocking the caller. Shutdown waits
// for in-flight sends.
func (d *Daemon) publish(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.notifier.Publish(ctx, event, payload); err != nil {
			logging.WarnWithContext(d.logger, "notification failed", "notification_failed",
				logging.String("event", string(event)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "failure was not pushed to ntfy"),
				logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			)
		}
	}()
}

// checkDataDir verifies the data directory exists and is readable and writable.
func checkDataDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("data dir %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir %s: not a directory", path)
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fmt.Errorf("data dir %s: insufficient permissions: %w", path, err)
	}
	return nil
}
