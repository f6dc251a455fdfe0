package rating

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/hectoclash/hectoclash/internal/db"
	"github.com/hectoclash/hectoclash/internal/db/repository"
)

// Config holds rating constants.
type Config struct {
	KFactor       int // Elo volatility per game
	InitialRating int
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		KFactor:       32,
		InitialRating: 1000,
	}
}

// ErrPartialUpdate marks a finished match where one side's stats were
// persisted and the other side's write failed. Callers must log it with the
// attached IDs for manual reconciliation; it is never silently dropped.
var ErrPartialUpdate = errors.New("partial rating update")

// PartialUpdateError carries reconciliation context for ErrPartialUpdate.
type PartialUpdateError struct {
	MatchID    uuid.UUID
	WinnerID   uuid.UUID
	LoserID    uuid.UUID
	FailedSide string // "winner" or "loser"
	Err        error
}

func (e *PartialUpdateError) Error() string {
	return fmt.Sprintf("partial rating update for match %s (%s side failed): %v", e.MatchID, e.FailedSide, e.Err)
}

func (e *PartialUpdateError) Unwrap() error { return e.Err }

func (e *PartialUpdateError) Is(target error) bool { return target == ErrPartialUpdate }

// Result reports both updated players and the applied deltas.
type Result struct {
	Winner      db.User
	Loser       db.User
	WinnerDelta int
	LoserDelta  int
}

// Engine computes Elo deltas and applies post-match bookkeeping exactly once
// per player per match.
type Engine struct {
	users   *repository.UserRepository
	matches *repository.MatchRepository
	cfg     Config
	logger  zerolog.Logger
	now     func() time.Time
}

// NewEngine creates a rating engine with the provided config.
func NewEngine(users *repository.UserRepository, matches *repository.MatchRepository, cfg Config, logger zerolog.Logger) *Engine {
	if cfg.KFactor == 0 {
		cfg = DefaultConfig()
	}
	return &Engine{
		users:   users,
		matches: matches,
		cfg:     cfg,
		logger:  logger.With().Str("component", "rating_engine").Logger(),
		now:     time.Now,
	}
}

// Deltas computes the Elo rating changes for a decisive result. The loss
// delta is negative.
func (e *Engine) Deltas(winnerRating, loserRating int) (winDelta, lossDelta int) {
	expectedWin := 1 / (1 + math.Pow(10, float64(loserRating-winnerRating)/400))
	expectedLoss := 1 - expectedWin
	winDelta = int(math.Round(float64(e.cfg.KFactor) * (1 - expectedWin)))
	lossDelta = -int(math.Round(float64(e.cfg.KFactor) * expectedLoss))
	return winDelta, lossDelta
}

// nextDayStreak advances a player's consecutive-day play streak: +1 when the
// last game was exactly yesterday, unchanged if already played today, reset
// to 1 after a gap or on the first game. This tracks daily cadence, not wins.
func nextDayStreak(current int, lastPlayed pgtype.Timestamptz, now time.Time) int {
	if !lastPlayed.Valid {
		return 1
	}
	last := lastPlayed.Time
	if sameDay(last, now) {
		if current <= 0 {
			return 1
		}
		return current
	}
	if sameDay(last, now.AddDate(0, 0, -1)) {
		return current + 1
	}
	return 1
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// ApplyResult applies the Elo outcome of a finished match to both players.
// The two writes are logically independent; if the second fails after the
// first committed, the error reports the partial state instead of masking it.
func (e *Engine) ApplyResult(ctx context.Context, winnerID uuid.UUID, matchID uuid.UUID) (Result, error) {
	match, err := e.matches.Get(ctx, matchID)
	if err != nil {
		return Result{}, fmt.Errorf("load match: %w", err)
	}

	loserID := db.FromUUID(match.Player1ID)
	if loserID == winnerID {
		loserID = db.FromUUID(match.Player2ID)
	}
	if loserID == uuid.Nil {
		return Result{}, fmt.Errorf("match %s has no opponent to rate", matchID)
	}

	winner, err := e.users.GetByID(ctx, winnerID)
	if err != nil {
		return Result{}, fmt.Errorf("load winner: %w", err)
	}
	loser, err := e.users.GetByID(ctx, loserID)
	if err != nil {
		return Result{}, fmt.Errorf("load loser: %w", err)
	}

	winDelta, lossDelta := e.Deltas(int(winner.Rating), int(loser.Rating))
	now := e.now()
	pgNow := pgtype.Timestamptz{Time: now, Valid: true}

	updatedWinner, err := e.users.ApplyMatchResult(ctx, db.ApplyUserMatchResultParams{
		UserID:        winner.ID,
		Rating:        winner.Rating + int32(winDelta),
		CurrentStreak: int32(nextDayStreak(int(winner.CurrentStreak), winner.LastPlayedAt, now)),
		WinsDelta:     1,
		LastPlayedAt:  pgNow,
	})
	if err != nil {
		// Nothing committed yet; the transition as a whole failed.
		return Result{}, fmt.Errorf("apply winner stats: %w", err)
	}

	updatedLoser, err := e.users.ApplyMatchResult(ctx, db.ApplyUserMatchResultParams{
		UserID:        loser.ID,
		Rating:        loser.Rating + int32(lossDelta),
		CurrentStreak: int32(nextDayStreak(int(loser.CurrentStreak), loser.LastPlayedAt, now)),
		LossesDelta:   1,
		LastPlayedAt:  pgNow,
	})
	if err != nil {
		partial := &PartialUpdateError{
			MatchID:    matchID,
			WinnerID:   winnerID,
			LoserID:    loserID,
			FailedSide: "loser",
			Err:        err,
		}
		e.logger.Error().
			Str("match_id", matchID.String()).
			Str("winner_id", winnerID.String()).
			Str("loser_id", loserID.String()).
			Err(err).
			Msg("loser stats write failed after winner committed")
		return Result{Winner: updatedWinner, WinnerDelta: winDelta, LoserDelta: lossDelta}, partial
	}

	return Result{
		Winner:      updatedWinner,
		Loser:       updatedLoser,
		WinnerDelta: winDelta,
		LoserDelta:  lossDelta,
	}, nil
}
