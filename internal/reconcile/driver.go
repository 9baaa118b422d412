package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"drq/internal/logging"
	"drq/internal/services"
)

// DefaultBatchSize bounds how many records one sweep sends.
const DefaultBatchSize = 10

// Outcome summarizes a sweep for schedulers and status reporting.
type Outcome string

const (
	OutcomeNoData  Outcome = "no_data"
	OutcomeNewData Outcome = "new_data"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Record is a domain object with a durable synced flag.
type Record interface {
	RecordID() string
}

// Source reads and updates the synced flag of records.
type Source[R Record] interface {
	// Unsynced returns unsynced records oldest first, at most limit.
	Unsynced(ctx context.Context, limit int) ([]R, error)
	CountUnsynced(ctx context.Context) (int, error)
	MarkSynced(ctx context.Context, ids ...string) error
}

// Sender delivers a batch to the remote side.
type Sender[R Record] interface {
	Check(ctx context.Context) error
	SendBatch(ctx context.Context, batch []R) error
}

// Observer receives sweep results, typically for metrics.
type Observer interface {
	SweepFinished(outcome string, synced int, elapsed time.Duration)
}

// Result reports a single sweep.
type Result struct {
	CorrelationID string        `json:"correlationId"`
	Outcome       Outcome       `json:"outcome"`
	Skipped       bool          `json:"skipped,omitempty"`
	Attempted     int           `json:"attempted"`
	Synced        int           `json:"synced"`
	Remaining     int           `json:"remaining"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration"`
	Err           error         `json:"-"`
}

// Options configures a Driver.
type Options struct {
	BatchSize int
	Logger    *slog.Logger
	Observer  Observer
	// Now is used for sweep timing; defaults to time.Now.
	Now func() time.Time
}

// Driver runs reconciliation sweeps for one record type.
type Driver[R Record] struct {
	name      string
	source    Source[R]
	sender    Sender[R]
	batchSize int
	logger    *slog.Logger
	observer  Observer
	now       func() time.Time

	mu   sync.Mutex
	last Result
	runs int
}

// New builds a driver. name labels logs and metrics.
func New[R Record](name string, source Source[R], sender Sender[R], opts Options) *Driver[R] {
	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Driver[R]{
		name:      name,
		source:    source,
		sender:    sender,
		batchSize: batch,
		logger:    logging.NewComponentLogger(opts.Logger, "reconcile").With(logging.String(logging.FieldQueue, name)),
		observer:  opts.Observer,
		now:       now,
	}
}

// BatchSize returns the effective batch bound.
func (d *Driver[R]) BatchSize() int { return d.batchSize }

// Last returns the most recent completed sweep and how many sweeps ran.
func (d *Driver[R]) Last() (Result, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, d.runs
}

// Sweep runs one reconciliation pass. A sweep already in progress makes this
// call return immediately with Skipped set.
func (d *Driver[R]) Sweep(ctx context.Context) Result {
	if !d.mu.TryLock() {
		d.logger.Debug("sweep already running", logging.String(logging.FieldEventType, "sweep_skipped"))
		return Result{Outcome: OutcomeSkipped, Skipped: true}
	}
	defer d.mu.Unlock()

	started := d.now()
	result := Result{CorrelationID: uuid.NewString()}
	logger := d.logger.With(logging.String(logging.FieldCorrelationID, result.CorrelationID))
	ctx = services.WithRequestID(ctx, result.CorrelationID)

	d.sweep(ctx, logger, &result)

	result.Duration = d.now().Sub(started)
	if result.Err != nil {
		result.Error = result.Err.Error()
	}
	d.last = result
	d.runs++
	if d.observer != nil {
		d.observer.SweepFinished(string(result.Outcome), result.Synced, result.Duration)
	}
	d.logResult(logger, result)
	return result
}

func (d *Driver[R]) sweep(ctx context.Context, logger *slog.Logger, result *Result) {
	pending, err := d.source.CountUnsynced(ctx)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("count unsynced: %w", err)
		return
	}
	if pending == 0 {
		result.Outcome = OutcomeNoData
		return
	}
	result.Remaining = pending

	if err := d.sender.Check(ctx); err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		return
	}

	batch, err := d.source.Unsynced(ctx, d.batchSize)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("load unsynced: %w", err)
		return
	}
	if len(batch) == 0 {
		result.Outcome = OutcomeNoData
		result.Remaining = 0
		return
	}
	result.Attempted = len(batch)
	logger.Debug("sending batch",
		logging.String(logging.FieldEventType, "sweep_batch"),
		logging.Int("batch", len(batch)),
		logging.Int("pending", pending),
	)

	if err := d.sender.SendBatch(ctx, batch); err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		return
	}

	ids := make([]string, len(batch))
	for i, record := range batch {
		ids[i] = record.RecordID()
	}
	if err := d.source.MarkSynced(ctx, ids...); err != nil {
		result.Outcome = OutcomeFailed
		result.Err = fmt.Errorf("mark synced: %w", err)
		return
	}
	result.Outcome = OutcomeNewData
	result.Synced = len(batch)
	result.Remaining = max(pending-len(batch), 0)
}

func (d *Driver[R]) logResult(logger *slog.Logger, result Result) {
	attrs := []logging.Attr{
		logging.String("outcome", string(result.Outcome)),
		logging.Int("attempted", result.Attempted),
		logging.Int("synced", result.Synced),
		logging.Int("remaining", result.Remaining),
		logging.Duration("elapsed", result.Duration),
	}
	if result.Err == nil {
		attrs = append(attrs, logging.String(logging.FieldEventType, "sweep_complete"))
		logger.Info("sweep complete", logging.Args(attrs...)...)
		return
	}
	attrs = append(attrs,
		logging.ErrorKind(result.Err),
		logging.Error(result.Err),
		logging.String(logging.FieldImpact, "records stay unsynced until the next sweep"),
		logging.String(logging.FieldErrorHint, "check connectivity to the sync endpoint"),
	)
	logging.WarnWithContext(logger, "sweep failed", "sweep_failed", attrs...)
}
