package daemon

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"drq/internal/config"
	"drq/internal/metrics"
	"drq/internal/playback"
	"drq/internal/remote"
	"drq/internal/store"
)

// Open builds a daemon from configuration: the SQLite database, the configured
// queue backend, the playback executor, and the remote sync client. Resources
// opened here are released by Close.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	var closers []io.Closer
	fail := func(err error) (*Daemon, error) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
		return nil, err
	}

	db, err := store.Open(cfg)
	if err != nil {
		return fail(fmt.Errorf("open store: %w", err))
	}
	closers = append(closers, db)

	backend, err := store.OpenBackend(ctx, cfg, db)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, backend)

	player, err := playback.NewFromConfig(cfg, logger)
	if err != nil {
		return fail(fmt.Errorf("load song catalog: %w", err))
	}

	return New(cfg, logger, Deps{
		Backend: backend,
		Player:  player,
		Venues:  db.Venues(),
		Remote:  remote.NewFromConfig(cfg, logger),
		Metrics: metrics.New(),
		Closers: closers,
	})
}
