package leaderboard

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hectoclash/hectoclash/internal/db"
)

// SnapshotWorker periodically mirrors the Redis leaderboard into Postgres so
// a cold cache can still serve standings.
type SnapshotWorker struct {
	svc      *Service
	queries  *db.Queries
	logger   zerolog.Logger
	interval time.Duration
	topN     int
}

func NewSnapshotWorker(svc *Service, queries *db.Queries, interval time.Duration, topN int, logger zerolog.Logger) *SnapshotWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if topN <= 0 {
		topN = 50
	}
	return &SnapshotWorker{
		svc:      svc,
		queries:  queries,
		logger:   logger.With().Str("component", "leaderboard_snapshot_worker").Logger(),
		interval: interval,
		topN:     topN,
	}
}

// Run blocks until context cancellation.
func (w *SnapshotWorker) Run(ctx context.Context) error {
	if w.svc == nil || w.queries == nil {
		return nil
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// run immediately
	w.snapshot(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.snapshot(ctx)
		}
	}
}

func (w *SnapshotWorker) snapshot(ctx context.Context) {
	entries, err := w.svc.Top(ctx, w.topN)
	if err != nil {
		w.logger.Warn().Err(err).Msg("snapshot fetch failed")
		return
	}
	if len(entries) == 0 {
		return
	}

	for _, e := range entries {
		err := w.queries.UpsertLeaderboardSnapshot(ctx, db.UpsertLeaderboardSnapshotParams{
			Rank:     int32(e.Rank),
			UserID:   db.UUID(e.UserID),
			Username: e.Username,
			Rating:   int32(e.Rating),
		})
		if err != nil {
			w.logger.Warn().Err(err).Int("rank", e.Rank).Msg("snapshot write failed")
			return
		}
	}

	w.logger.Info().Int("entries", len(entries)).Msg("leaderboard snapshot persisted")
}
