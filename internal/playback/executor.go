package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"drq/internal/config"
	"drq/internal/logging"
	"drq/internal/queue"
	"drq/internal/services"
)

// DefaultHold is how long a loaded song stays acquired.
const DefaultHold = 2 * time.Second

// Executor plays songs referenced by music queue entries.
type Executor struct {
	catalog *Catalog
	player  Player
	hold    time.Duration
	clock   queue.Clock
	logger  *slog.Logger

	mu       sync.Mutex
	nextID   uint64
	held     map[uint64]heldResource
	released int
}

type heldResource struct {
	resource Resource
	timer    queue.Timer
}

// ExecutorOption customizes NewExecutor.
type ExecutorOption func(*Executor)

// WithHold overrides the release delay. Zero releases immediately.
func WithHold(d time.Duration) ExecutorOption {
	return func(e *Executor) {
		if d >= 0 {
			e.hold = d
		}
	}
}

// WithClock sets the clock used to schedule releases.
func WithClock(clock queue.Clock) ExecutorOption {
	return func(e *Executor) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logging.NewComponentLogger(logger, "playback") }
}

// NewExecutor builds an executor over catalog and player.
func NewExecutor(catalog *Catalog, player Player, opts ...ExecutorOption) *Executor {
	if player == nil {
		player = NullPlayer{}
	}
	e := &Executor{
		catalog: catalog,
		player:  player,
		hold:    DefaultHold,
		clock:   queue.SystemClock(),
		logger:  logging.NewComponentLogger(nil, "playback"),
		held:    make(map[uint64]heldResource),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// NewFromConfig loads the configured catalog and picks a FilePlayer when a
// media directory is set.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (*Executor, error) {
	catalog, err := LoadCatalog(cfg.Playback.CatalogPath)
	if err != nil {
		return nil, err
	}
	var player Player = NullPlayer{}
	if cfg.Playback.MediaDir != "" {
		player = NewFilePlayer(cfg.Playback.MediaDir)
	}
	return NewExecutor(catalog, player, WithHold(cfg.HoldDuration()), WithLogger(logger)), nil
}

// Catalog exposes the song catalog.
func (e *Executor) Catalog() *Catalog { return e.catalog }

// Execute loads songID and schedules its release. Unknown ids fail with a
// not_found error, which the queue treats as terminal.
func (e *Executor) Execute(ctx context.Context, songID string) error {
	song, ok := e.catalog.Lookup(songID)
	if !ok {
		return services.Wrap(services.ErrNotFound, "playback", "lookup", fmt.Sprintf("song %q not found", songID), nil)
	}
	if song.Corrupt {
		return services.Wrap(services.ErrResourceCorrupt, "playback", "load", "corrupt audio file, cannot load", nil)
	}

	resource, err := e.player.Load(ctx, song)
	if err != nil {
		return err
	}
	e.scheduleRelease(resource)

	logging.WithContext(ctx, e.logger).Info("playing",
		logging.String(logging.FieldEventType, "playback_started"),
		logging.String("song_id", song.ID),
		logging.String("song", song.Label()),
		logging.Duration("hold", e.hold),
	)
	return nil
}

func (e *Executor) scheduleRelease(resource Resource) {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	held := heldResource{resource: resource}
	if e.hold > 0 {
		held.timer = e.clock.AfterFunc(e.hold, func() { e.release(id) })
	}
	e.held[id] = held
	e.mu.Unlock()
	if e.hold <= 0 {
		e.release(id)
	}
}

func (e *Executor) release(id uint64) {
	e.mu.Lock()
	held, ok := e.held[id]
	if ok {
		delete(e.held, id)
		e.released++
	}
	e.mu.Unlock()
	if !ok {
		return
	}
	if err := held.resource.Release(); err != nil {
		e.logger.Debug("release failed", logging.Error(err))
	}
}

// Held reports resources still waiting for release.
func (e *Executor) Held() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.held)
}

// Released reports how many resources have been released.
func (e *Executor) Released() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.released
}

// Close releases every held resource immediately.
func (e *Executor) Close() {
	e.mu.Lock()
	pending := make([]uint64, 0, len(e.held))
	for id, held := range e.held {
		if held.timer != nil {
			held.timer.Stop()
		}
		pending = append(pending, id)
	}
	e.mu.Unlock()
	for _, id := range pending {
		e.release(id)
	}
}
