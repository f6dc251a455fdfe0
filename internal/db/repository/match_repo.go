package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hectoclash/hectoclash/internal/db"
)

type matchStore interface {
	CreateMatch(ctx context.Context, arg db.CreateMatchParams) (db.Match, error)
	StartMatchIfPending(ctx context.Context, id pgtype.UUID, startedAt pgtype.Timestamptz) (bool, error)
	FinishMatchIfStarted(ctx context.Context, arg db.FinishMatchParams) (bool, error)
	VoidMatchIfUnfinished(ctx context.Context, id pgtype.UUID, endedAt pgtype.Timestamptz) (bool, error)
	GetMatch(ctx context.Context, id pgtype.UUID) (db.Match, error)
	ListMatchesByUser(ctx context.Context, userID pgtype.UUID, limit int32) ([]db.Match, error)
	ListLiveMatches(ctx context.Context, limit int32) ([]db.Match, error)
}

// MatchRepository contains DB helpers for match records.
type MatchRepository struct {
	store matchStore
}

// NewMatchRepository constructs a new match repository.
func NewMatchRepository(store matchStore) *MatchRepository {
	return &MatchRepository{store: store}
}

// Create persists a new match row in status pending.
func (r *MatchRepository) Create(ctx context.Context, params db.CreateMatchParams) (db.Match, error) {
	return r.store.CreateMatch(ctx, params)
}

// MarkStarted transitions pending -> started once the countdown completes.
func (r *MatchRepository) MarkStarted(ctx context.Context, matchID uuid.UUID, startedAt pgtype.Timestamptz) (bool, error) {
	return r.store.StartMatchIfPending(ctx, db.UUID(matchID), startedAt)
}

// FinishIfStarted performs the atomic compare-and-set on the status field.
// Exactly one concurrent caller observes true.
func (r *MatchRepository) FinishIfStarted(ctx context.Context, params db.FinishMatchParams) (bool, error) {
	return r.store.FinishMatchIfStarted(ctx, params)
}

// Void finishes a match with no winner regardless of whether the countdown
// had completed. False means some other transition already closed it.
func (r *MatchRepository) Void(ctx context.Context, matchID uuid.UUID, endedAt pgtype.Timestamptz) (bool, error) {
	return r.store.VoidMatchIfUnfinished(ctx, db.UUID(matchID), endedAt)
}

// Get fetches a match by ID.
func (r *MatchRepository) Get(ctx context.Context, matchID uuid.UUID) (db.Match, error) {
	return r.store.GetMatch(ctx, db.UUID(matchID))
}

// ListByUser returns a player's recent matches, newest first.
func (r *MatchRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int32) ([]db.Match, error) {
	return r.store.ListMatchesByUser(ctx, db.UUID(userID), limit)
}

// ListLive returns matches currently in play, most recently started first.
func (r *MatchRepository) ListLive(ctx context.Context, limit int32) ([]db.Match, error) {
	return r.store.ListLiveMatches(ctx, limit)
}
