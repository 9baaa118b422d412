package venue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"drq/internal/logging"
)

// Service adds venues and pushes them to the remote service.
type Service struct {
	repo   Repository
	remote Remote
	now    func() time.Time
	logger *slog.Logger
}

// NewService wires the venue repository to the remote collaborator.
func NewService(repo Repository, remote Remote, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		remote: remote,
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "venue"),
	}
}

// WithClock overrides the time source used to stamp new venues.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Add persists a new venue, then tries one immediate push. A failed push is
// not an error: the venue stays unsynced for the next sweep.
func (s *Service) Add(ctx context.Context, name string, latitude, longitude float64) (Venue, error) {
	v, err := New(name, latitude, longitude, s.now().UTC())
	if err != nil {
		return Venue{}, err
	}
	if err := s.repo.Insert(ctx, v); err != nil {
		return Venue{}, fmt.Errorf("save venue: %w", err)
	}
	s.logger.Info("venue saved",
		logging.String(logging.FieldEventType, "venue_saved"),
		logging.String("venue_id", v.ID),
		logging.String("venue_name", v.Name),
	)

	if err := s.remote.SendVenue(ctx, v); err != nil {
		s.logger.Info("immediate venue sync failed; left for background sweep",
			logging.String(logging.FieldEventType, "venue_sync_deferred"),
			logging.String("venue_id", v.ID),
			logging.ErrorKind(err),
			logging.Error(err),
		)
		return v, nil
	}
	if err := s.repo.MarkSynced(ctx, v.ID); err != nil {
		logging.WarnWithContext(s.logger, "venue pushed but not marked synced", "venue_mark_failed",
			logging.String("venue_id", v.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "venue will be sent again by the next sweep"),
		)
		return v, nil
	}
	v.Synced = true
	s.logger.Info("venue synced",
		logging.String(logging.FieldEventType, "venue_synced"),
		logging.String("venue_id", v.ID),
	)
	return v, nil
}

// List returns every venue, newest first.
func (s *Service) List(ctx context.Context) ([]Venue, error) {
	return s.repo.All(ctx)
}

// Pending returns unsynced venues, oldest first.
func (s *Service) Pending(ctx context.Context) ([]Venue, error) {
	return s.repo.Unsynced(ctx, 0)
}

// PendingCount returns how many venues are not yet synced.
func (s *Service) PendingCount(ctx context.Context) (int, error) {
	return s.repo.CountUnsynced(ctx)
}

// RetrySummary reports a manual per-venue retry.
type RetrySummary struct {
	Synced int  `json:"synced"`
	Failed int  `json:"failed"`
	Total  int  `json:"total"`
	Online bool `json:"online"`
}

// RetryPending pushes every unsynced venue one at a time. When the remote is
// unreachable nothing is sent and the connectivity error is returned.
func (s *Service) RetryPending(ctx context.Context) (RetrySummary, error) {
	pending, err := s.repo.Unsynced(ctx, 0)
	if err != nil {
		return RetrySummary{}, fmt.Errorf("load pending venues: %w", err)
	}
	summary := RetrySummary{Total: len(pending)}
	if len(pending) == 0 {
		summary.Online = true
		return summary, nil
	}
	if err := s.remote.Check(ctx); err != nil {
		summary.Failed = len(pending)
		logging.WarnWithContext(s.logger, "venue retry skipped; remote unreachable", "venue_retry_offline",
			logging.Int("pending", len(pending)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "venues remain unsynced"),
			logging.String(logging.FieldErrorHint, "retry once the network is back"),
		)
		return summary, err
	}
	summary.Online = true

	for _, v := range pending {
		if err := ctx.Err(); err != nil {
			summary.Failed += summary.Total - summary.Synced - summary.Failed
			return summary, err
		}
		if err := s.remote.SendVenue(ctx, v); err != nil {
			summary.Failed++
			s.logger.Info("venue retry failed",
				logging.String(logging.FieldEventType, "venue_retry_failed"),
				logging.String("venue_id", v.ID),
				logging.ErrorKind(err),
				logging.Error(err),
			)
			continue
		}
		if err := s.repo.MarkSynced(ctx, v.ID); err != nil {
			summary.Failed++
			logging.WarnWithContext(s.logger, "venue pushed but not marked synced", "venue_mark_failed",
				logging.String("venue_id", v.ID),
				logging.Error(err),
			)
			continue
		}
		summary.Synced++
	}

	s.logger.Info("venue retry complete",
		logging.String(logging.FieldEventType, "venue_retry_complete"),
		logging.Int("synced", summary.Synced),
		logging.Int("failed", summary.Failed),
	)
	return summary, nil
}
