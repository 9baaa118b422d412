package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/ksuid"

	"drq/internal/logging"
	"drq/internal/services"
)

// Executor performs one unit of work for an entry. It must tolerate repeated
// invocation for the same ref.
type Executor[P any] interface {
	Execute(ctx context.Context, ref P) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc[P any] func(ctx context.Context, ref P) error

func (f ExecutorFunc[P]) Execute(ctx context.Context, ref P) error { return f(ctx, ref) }

// Options configures an Engine. Zero values fall back to defaults.
type Options[P any] struct {
	Policy   RetryPolicy
	Clock    Clock
	Logger   *slog.Logger
	Observer Observer
	// OnFailed runs after an entry transitions to Failed and is persisted.
	OnFailed func(ctx context.Context, entry Entry[P])
}

// EnqueueOption customizes a single Enqueue call.
type EnqueueOption func(*enqueueConfig)

type enqueueConfig struct {
	forceFail bool
}

// WithForceFail marks the entry to fail every attempt without invoking the
// executor. Used to exercise the retry path deterministically.
func WithForceFail(force bool) EnqueueOption {
	return func(c *enqueueConfig) { c.forceFail = force }
}

// Engine is a durable single-flight retry queue for payload references of type P.
type Engine[P any] struct {
	name     string
	store    Store[P]
	executor Executor[P]
	policy   RetryPolicy
	clock    Clock
	logger   *slog.Logger
	observer Observer
	onFailed func(ctx context.Context, entry Entry[P])

	loadMu sync.Mutex
	// persistMu serializes snapshot+save so the last write always carries the
	// newest state. Acquire before mu, never while holding it.
	persistMu sync.Mutex

	mu      sync.Mutex
	entries []*Entry[P]
	loaded  bool
	wake    Timer
	wakeAt  time.Time

	draining atomic.Bool
	rerun    atomic.Bool
	kick     chan struct{}

	lifecycle sync.Mutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// New constructs an engine. Call Load or Start before use; Enqueue loads
// lazily when neither has run.
func New[P any](name string, store Store[P], executor Executor[P], opts Options[P]) *Engine[P] {
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	observer := opts.Observer
	if observer == nil {
		observer = nopObserver{}
	}
	logger := logging.NewComponentLogger(opts.Logger, "queue").With(logging.String(logging.FieldQueue, name))
	return &Engine[P]{
		name:     name,
		store:    store,
		executor: executor,
		policy:   opts.Policy.normalized(),
		clock:    clock,
		logger:   logger,
		observer: observer,
		onFailed: opts.OnFailed,
		kick:     make(chan struct{}, 1),
	}
}

// Name returns the queue name.
func (e *Engine[P]) Name() string { return e.name }

// Policy returns the effective retry policy.
func (e *Engine[P]) Policy() RetryPolicy { return e.policy }

// Load replaces in-memory state with the persisted snapshot, dropping entries
// outside their retention window. A read failure yields an empty queue.
// Returns the number of purged entries.
func (e *Engine[P]) Load(ctx context.Context) int {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	return e.loadLocked(ctx)
}

func (e *Engine[P]) ensureLoaded(ctx context.Context) {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	e.mu.Lock()
	loaded := e.loaded
	e.mu.Unlock()
	if !loaded {
		e.loadLocked(ctx)
	}
}

func (e *Engine[P]) loadLocked(ctx context.Context) int {
	stored, err := e.store.LoadAll(ctx)
	if err != nil {
		logging.WarnWithContext(e.logger, "queue snapshot unreadable; starting empty", "queue_load_failed",
			logging.Error(&StorageError{Queue: e.name, Op: "load", Err: err}),
			logging.String(logging.FieldImpact, "previously queued entries are not visible"),
			logging.String(logging.FieldErrorHint, "inspect the storage backend; the next write replaces the snapshot"),
		)
		stored = nil
	}

	now := e.clock.Now()
	kept := make([]*Entry[P], 0, len(stored))
	purged := 0
	for i := range stored {
		entry := stored[i]
		if _, ok := ParseStatus(string(entry.Status)); !ok {
			entry.Status = StatusPending
		}
		if e.policy.Expired(entry.Status, entry.CreatedAt, now) {
			purged++
			continue
		}
		entry.NextAttemptAt = time.Time{}
		kept = append(kept, &entry)
	}

	e.mu.Lock()
	e.entries = kept
	e.loaded = true
	stats := e.statsLocked()
	e.mu.Unlock()

	if purged > 0 {
		_ = e.persist(ctx, "purge")
	}
	e.observer.QueueDepth(e.name, stats)
	e.logger.Info("queue loaded",
		logging.String(logging.FieldEventType, "queue_loaded"),
		logging.Int("pending", stats.Pending),
		logging.Int("failed", stats.Failed),
		logging.Int("succeeded", stats.Succeeded),
		logging.Int("purged", purged),
	)
	return purged
}

// Start loads the queue if needed and launches the background worker. Pending
// entries left from a previous run are drained immediately.
func (e *Engine[P]) Start(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	if e.running {
		return ErrAlreadyRunning
	}
	e.ensureLoaded(ctx)

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.running = true
	e.wg.Add(1)
	go e.run(runCtx)
	e.Kick()
	e.logger.Info("queue worker started", logging.String(logging.FieldEventType, "queue_worker_started"))
	return nil
}

// Stop cancels the worker and waits for the in-flight attempt to return.
func (e *Engine[P]) Stop() {
	e.lifecycle.Lock()
	if !e.running {
		e.lifecycle.Unlock()
		return
	}
	e.cancel()
	e.running = false
	e.lifecycle.Unlock()

	e.wg.Wait()

	e.mu.Lock()
	if e.wake != nil {
		e.wake.Stop()
		e.wake = nil
		e.wakeAt = time.Time{}
	}
	e.mu.Unlock()
	e.logger.Info("queue worker stopped", logging.String(logging.FieldEventType, "queue_worker_stopped"))
}

func (e *Engine[P]) run(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.kick:
			e.Drain(ctx)
		}
	}
}

// Kick asks the worker to drain. It never blocks.
func (e *Engine[P]) Kick() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// Enqueue appends a Pending entry, persists it, and signals the worker. It
// never waits for execution. A non-nil error only reports that the durable
// write failed; the entry is still queued in memory and will run.
func (e *Engine[P]) Enqueue(ctx context.Context, ref P, opts ...EnqueueOption) (Entry[P], error) {
	var cfg enqueueConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	e.ensureLoaded(ctx)

	now := e.clock.Now()
	entry := &Entry[P]{
		ID:        newEntryID(now),
		Ref:       ref,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		ForceFail: cfg.forceFail,
	}

	e.mu.Lock()
	e.entries = append(e.entries, entry)
	snapshot := *entry
	e.mu.Unlock()

	e.observer.EntryEnqueued(e.name)
	e.logger.Info("entry enqueued",
		logging.String(logging.FieldEventType, "entry_enqueued"),
		logging.String(logging.FieldEntryID, snapshot.ID),
		logging.String("payload_ref", fmt.Sprint(ref)),
		logging.Bool("force_fail", snapshot.ForceFail),
	)

	err := e.persist(ctx, "enqueue")
	e.Kick()
	return snapshot, err
}

// Retry resets a Failed entry to Pending with zero attempts and no error.
// Unknown ids and non-failed entries are left untouched and report false.
func (e *Engine[P]) Retry(ctx context.Context, id string) bool {
	e.ensureLoaded(ctx)

	e.mu.Lock()
	var target *Entry[P]
	for _, entry := range e.entries {
		if entry.ID == id {
			target = entry
			break
		}
	}
	if target == nil || target.Status != StatusFailed {
		e.mu.Unlock()
		e.logger.Debug("retry ignored", logging.String(logging.FieldEntryID, id))
		return false
	}
	target.Status = StatusPending
	target.Attempts = 0
	target.LastError = ""
	target.NextAttemptAt = time.Time{}
	target.UpdatedAt = e.clock.Now()
	e.mu.Unlock()

	e.logger.Info("entry retry requested",
		logging.String(logging.FieldEventType, "entry_retry_requested"),
		logging.String(logging.FieldEntryID, id),
	)
	_ = e.persist(ctx, "retry")
	e.Kick()
	return true
}

// ClearFailed removes every Failed entry and returns how many were removed.
func (e *Engine[P]) ClearFailed(ctx context.Context) int {
	return e.remove(ctx, "clear_failed", func(entry *Entry[P]) bool { return entry.Status == StatusFailed })
}

// ClearAll removes every entry regardless of status.
func (e *Engine[P]) ClearAll(ctx context.Context) int {
	removed := e.remove(ctx, "clear_all", func(*Entry[P]) bool { return true })
	e.mu.Lock()
	if e.wake != nil {
		e.wake.Stop()
		e.wake = nil
		e.wakeAt = time.Time{}
	}
	e.mu.Unlock()
	return removed
}

func (e *Engine[P]) remove(ctx context.Context, op string, match func(*Entry[P]) bool) int {
	e.ensureLoaded(ctx)

	e.mu.Lock()
	kept := e.entries[:0]
	removed := 0
	for _, entry := range e.entries {
		if match(entry) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	for i := len(kept); i < len(e.entries); i++ {
		e.entries[i] = nil
	}
	e.entries = kept
	stats := e.statsLocked()
	e.mu.Unlock()

	_ = e.persist(ctx, op)
	e.observer.QueueDepth(e.name, stats)
	e.logger.Info("entries cleared",
		logging.String(logging.FieldEventType, "entries_"+op),
		logging.Int("removed", removed),
	)
	return removed
}

// List returns a snapshot of every entry in enqueue order.
func (e *Engine[P]) List() []Entry[P] {
	return e.filter(func(*Entry[P]) bool { return true })
}

// ListFailed returns Failed entries in enqueue order.
func (e *Engine[P]) ListFailed() []Entry[P] {
	return e.filter(func(entry *Entry[P]) bool { return entry.Status == StatusFailed })
}

// ListByStatus returns entries matching any of the provided statuses.
func (e *Engine[P]) ListByStatus(statuses ...Status) []Entry[P] {
	if len(statuses) == 0 {
		return e.List()
	}
	return e.filter(func(entry *Entry[P]) bool {
		for _, status := range statuses {
			if entry.Status == status {
				return true
			}
		}
		return false
	})
}

func (e *Engine[P]) filter(match func(*Entry[P]) bool) []Entry[P] {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Entry[P], 0, len(e.entries))
	for _, entry := range e.entries {
		if match(entry) {
			out = append(out, *entry)
		}
	}
	return out
}

// Get returns the entry with id or ErrNotFound.
func (e *Engine[P]) Get(id string) (Entry[P], error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, entry := range e.entries {
		if entry.ID == id {
			return *entry, nil
		}
	}
	var zero Entry[P]
	return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Stats returns entry counts by status.
func (e *Engine[P]) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.statsLocked()
}

func (e *Engine[P]) statsLocked() Stats {
	var stats Stats
	for _, entry := range e.entries {
		stats.add(entry.Status)
	}
	return stats
}

// Draining reports whether a drain is in progress.
func (e *Engine[P]) Draining() bool { return e.draining.Load() }

// Drain processes ready Pending entries oldest first until none remain ready.
// Only one drain runs at a time; a concurrent call returns false immediately
// and the active drain makes one more pass before it exits.
func (e *Engine[P]) Drain(ctx context.Context) bool {
	e.rerun.Store(true)
	if !e.draining.CompareAndSwap(false, true) {
		return false
	}
	e.ensureLoaded(ctx)
	for {
		e.rerun.Store(false)
		e.drainPass(ctx)
		e.draining.Store(false)
		if ctx.Err() != nil || !e.rerun.Load() {
			break
		}
		if !e.draining.CompareAndSwap(false, true) {
			break
		}
	}
	e.observer.QueueDepth(e.name, e.Stats())
	return true
}

func (e *Engine[P]) drainPass(ctx context.Context) {
	for ctx.Err() == nil {
		entry, wait := e.nextReady()
		if entry == nil {
			if wait > 0 {
				e.armWake(wait)
			}
			return
		}
		e.process(ctx, entry)
	}
}

// nextReady returns the oldest Pending entry whose backoff has elapsed, or the
// wait until the earliest backed-off entry becomes ready.
func (e *Engine[P]) nextReady() (*Entry[P], time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.clock.Now()
	var earliest time.Time
	for _, entry := range e.entries {
		if entry.Status != StatusPending {
			continue
		}
		if !entry.NextAttemptAt.After(now) {
			return entry, 0
		}
		if earliest.IsZero() || entry.NextAttemptAt.Before(earliest) {
			earliest = entry.NextAttemptAt
		}
	}
	if earliest.IsZero() {
		return nil, 0
	}
	return nil, earliest.Sub(now)
}

func (e *Engine[P]) armWake(wait time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	at := e.clock.Now().Add(wait)
	if e.wake != nil {
		if !e.wakeAt.After(at) {
			return
		}
		e.wake.Stop()
	}
	e.wakeAt = at
	e.wake = e.clock.AfterFunc(wait, e.onWake)
}

func (e *Engine[P]) onWake() {
	e.mu.Lock()
	e.wake = nil
	e.wakeAt = time.Time{}
	e.mu.Unlock()
	e.Kick()
}

// process runs one scheduler cycle for entry: count and persist the attempt,
// execute, then record and persist the outcome.
func (e *Engine[P]) process(ctx context.Context, entry *Entry[P]) {
	e.mu.Lock()
	entry.Attempts++
	entry.UpdatedAt = e.clock.Now()
	attempt := entry.Attempts
	id := entry.ID
	ref := entry.Ref
	forceFail := entry.ForceFail
	e.mu.Unlock()

	ctx = services.WithEntryID(services.WithQueue(ctx, e.name), id)
	// Bookkeeping writes outlive shutdown so a finished attempt is never rerun.
	persistCtx := context.WithoutCancel(ctx)
	logger := e.logger.With(logging.String(logging.FieldEntryID, id))
	logger.Debug("attempt started",
		logging.String(logging.FieldEventType, "entry_attempt"),
		logging.Int("attempt", attempt),
		logging.Int("max_attempts", e.policy.MaxAttempts),
	)
	_ = e.persist(persistCtx, "attempt")

	started := e.clock.Now()
	err := e.execute(ctx, id, attempt, ref, forceFail)
	elapsed := e.clock.Now().Sub(started)

	if err != nil && ctx.Err() != nil {
		// Shutdown interrupted the attempt; leave it pending for the next run.
		e.mu.Lock()
		entry.LastError = err.Error()
		entry.UpdatedAt = e.clock.Now()
		e.mu.Unlock()
		_ = e.persist(persistCtx, "interrupted")
		logger.Info("attempt interrupted by shutdown",
			logging.String(logging.FieldEventType, "entry_interrupted"),
			logging.Int("attempt", attempt),
		)
		return
	}

	next, delay := e.policy.decide(attempt, err)
	kind := services.KindOf(err)

	e.mu.Lock()
	now := e.clock.Now()
	entry.UpdatedAt = now
	switch next {
	case decisionSucceed:
		entry.Status = StatusSucceeded
		entry.LastError = ""
		entry.NextAttemptAt = time.Time{}
	case decisionRetry:
		entry.LastError = err.Error()
		entry.NextAttemptAt = now.Add(delay)
	case decisionFail:
		entry.Status = StatusFailed
		entry.LastError = err.Error()
		entry.NextAttemptAt = time.Time{}
	}
	final := *entry
	e.mu.Unlock()

	_ = e.persist(persistCtx, "outcome")
	e.observer.AttemptFinished(e.name, next.outcome(), kind, elapsed)

	switch next {
	case decisionSucceed:
		logger.Info("entry succeeded",
			logging.String(logging.FieldEventType, "entry_succeeded"),
			logging.Int("attempt", attempt),
			logging.Duration("elapsed", elapsed),
		)
	case decisionRetry:
		logger.Info("attempt failed; retry scheduled",
			logging.String(logging.FieldEventType, "entry_retry_scheduled"),
			logging.Int("attempt", attempt),
			logging.Duration("backoff", delay),
			logging.String(logging.FieldErrorKind, kind),
			logging.Error(err),
		)
	case decisionFail:
		logging.WarnWithContext(logger, "entry failed", "entry_failed",
			logging.Int("attempt", attempt),
			logging.String(logging.FieldErrorKind, kind),
			logging.Bool("terminal", IsTerminal(err)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "entry moved to the failed list"),
			logging.String(logging.FieldErrorHint, "inspect the failed list and retry once the cause is fixed"),
		)
		if e.onFailed != nil {
			e.onFailed(ctx, final)
		}
	}
}

func (e *Engine[P]) execute(ctx context.Context, id string, attempt int, ref P, forceFail bool) (err error) {
	if forceFail {
		return &ExecutionError{
			EntryID: id,
			Attempt: attempt,
			Err:     services.Wrap(services.ErrForcedFailure, e.name, "execute", "forced failure for testing", nil),
		}
	}
	defer func() {
		if r := recover(); r != nil {
			err = &ExecutionError{
				EntryID: id,
				Attempt: attempt,
				Panic:   true,
				Err:     services.Wrap(services.ErrUnknown, e.name, "execute", fmt.Sprintf("executor panic: %v", r), nil),
			}
		}
	}()
	if execErr := e.executor.Execute(ctx, ref); execErr != nil {
		var already *ExecutionError
		if errors.As(execErr, &already) {
			return execErr
		}
		return &ExecutionError{EntryID: id, Attempt: attempt, Err: execErr}
	}
	return nil
}

// persist writes the current snapshot. Failures are logged and returned as
// *StorageError; in-memory state is kept.
func (e *Engine[P]) persist(ctx context.Context, op string) error {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	e.mu.Lock()
	snapshot := make([]Entry[P], len(e.entries))
	for i, entry := range e.entries {
		snapshot[i] = *entry
	}
	e.mu.Unlock()

	if err := e.store.SaveAll(ctx, snapshot); err != nil {
		storageErr := &StorageError{Queue: e.name, Op: "save", Err: err}
		logging.ErrorWithContext(e.logger, "queue snapshot write failed", "queue_persist_failed",
			logging.String("trigger", op),
			logging.Error(storageErr),
			logging.String(logging.FieldErrorHint, "check the storage backend; state is retained in memory"),
		)
		return storageErr
	}
	return nil
}

func newEntryID(now time.Time) string {
	id, err := ksuid.NewRandomWithTime(now)
	if err != nil {
		return ksuid.New().String()
	}
	return id.String()
}
