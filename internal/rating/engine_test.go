package rating

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hectoclash/hectoclash/internal/db"
	"github.com/hectoclash/hectoclash/internal/db/repository"
)

func newTestEngine() *Engine {
	return &Engine{cfg: DefaultConfig(), now: time.Now}
}

func TestDeltasEqualRatings(t *testing.T) {
	e := newTestEngine()

	winDelta, lossDelta := e.Deltas(1000, 1000)
	assert.Equal(t, 16, winDelta)
	assert.Equal(t, -16, lossDelta)
}

func TestDeltasUnderdogWins(t *testing.T) {
	e := newTestEngine()

	// A 400-point underdog winning is worth nearly the full K.
	winDelta, lossDelta := e.Deltas(1000, 1400)
	assert.Equal(t, 29, winDelta)
	assert.Equal(t, -29, lossDelta)

	// The favorite gains little for an expected win.
	winDelta, lossDelta = e.Deltas(1400, 1000)
	assert.Equal(t, 3, winDelta)
	assert.Equal(t, -3, lossDelta)
}

func TestDeltasSymmetricMagnitude(t *testing.T) {
	e := newTestEngine()

	for _, pair := range [][2]int{{1000, 1000}, {1200, 950}, {800, 1600}} {
		winDelta, lossDelta := e.Deltas(pair[0], pair[1])
		assert.Equal(t, winDelta, -lossDelta, "ratings %v", pair)
		assert.Greater(t, winDelta, 0)
	}
}

func ts(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func TestDayStreakFirstGame(t *testing.T) {
	now := time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, nextDayStreak(0, pgtype.Timestamptz{}, now))
}

func TestDayStreakPlayedYesterday(t *testing.T) {
	now := time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)
	yesterday := time.Date(2025, 6, 9, 23, 50, 0, 0, time.UTC)
	assert.Equal(t, 4, nextDayStreak(3, ts(yesterday), now))
}

func TestDayStreakAlreadyPlayedToday(t *testing.T) {
	now := time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)
	earlier := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, 3, nextDayStreak(3, ts(earlier), now))
}

func TestDayStreakGapResets(t *testing.T) {
	now := time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)
	lastWeek := time.Date(2025, 6, 3, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, nextDayStreak(7, ts(lastWeek), now))
}

func TestDayStreakMidnightBoundary(t *testing.T) {
	// 23:59 yesterday vs 00:01 today is still "yesterday".
	now := time.Date(2025, 6, 10, 0, 1, 0, 0, time.UTC)
	lateYesterday := time.Date(2025, 6, 9, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 2, nextDayStreak(1, ts(lateYesterday), now))
}

func TestPartialUpdateErrorIs(t *testing.T) {
	err := &PartialUpdateError{FailedSide: "loser"}
	assert.ErrorIs(t, err, ErrPartialUpdate)
}

// ratingUserStore is an in-memory user store with the same stats-update
// semantics as the SQL layer. IDs in failApply make that side's write fail.
type ratingUserStore struct {
	users     map[uuid.UUID]db.User
	samples   []db.InsertRatingSampleParams
	failApply map[uuid.UUID]bool
}

func (s *ratingUserStore) CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error) {
	return db.User{}, nil
}

func (s *ratingUserStore) GetUserByID(ctx context.Context, id pgtype.UUID) (db.User, error) {
	u, ok := s.users[db.FromUUID(id)]
	if !ok {
		return db.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (s *ratingUserStore) GetUserByEmail(ctx context.Context, email string) (db.User, error) {
	return db.User{}, pgx.ErrNoRows
}

func (s *ratingUserStore) GetUserByUsername(ctx context.Context, username string) (db.User, error) {
	return db.User{}, pgx.ErrNoRows
}

func (s *ratingUserStore) ApplyUserMatchResult(ctx context.Context, arg db.ApplyUserMatchResultParams) (db.User, error) {
	id := db.FromUUID(arg.UserID)
	if s.failApply[id] {
		return db.User{}, errors.New("connection reset")
	}
	u := s.users[id]
	u.Rating = arg.Rating
	if arg.Rating > u.HighestRating {
		u.HighestRating = arg.Rating
	}
	u.GamesPlayed++
	u.Wins += arg.WinsDelta
	u.Losses += arg.LossesDelta
	u.CurrentStreak = arg.CurrentStreak
	u.LastPlayedAt = arg.LastPlayedAt
	s.users[id] = u
	return u, nil
}

func (s *ratingUserStore) InsertRatingSample(ctx context.Context, arg db.InsertRatingSampleParams) error {
	s.samples = append(s.samples, arg)
	return nil
}

func (s *ratingUserStore) ListRatingHistory(ctx context.Context, userID pgtype.UUID, limit int32) ([]db.RatingSample, error) {
	return nil, nil
}

func (s *ratingUserStore) ListTopUsersByRating(ctx context.Context, limit int32) ([]db.User, error) {
	return nil, nil
}

type ratingMatchStore struct {
	matches map[uuid.UUID]db.Match
}

func (s *ratingMatchStore) CreateMatch(ctx context.Context, arg db.CreateMatchParams) (db.Match, error) {
	return db.Match{}, nil
}

func (s *ratingMatchStore) StartMatchIfPending(ctx context.Context, id pgtype.UUID, startedAt pgtype.Timestamptz) (bool, error) {
	return false, nil
}

func (s *ratingMatchStore) FinishMatchIfStarted(ctx context.Context, arg db.FinishMatchParams) (bool, error) {
	return false, nil
}

func (s *ratingMatchStore) VoidMatchIfUnfinished(ctx context.Context, id pgtype.UUID, endedAt pgtype.Timestamptz) (bool, error) {
	return false, nil
}

func (s *ratingMatchStore) GetMatch(ctx context.Context, id pgtype.UUID) (db.Match, error) {
	m, ok := s.matches[db.FromUUID(id)]
	if !ok {
		return db.Match{}, pgx.ErrNoRows
	}
	return m, nil
}

func (s *ratingMatchStore) ListMatchesByUser(ctx context.Context, userID pgtype.UUID, limit int32) ([]db.Match, error) {
	return nil, nil
}

func (s *ratingMatchStore) ListLiveMatches(ctx context.Context, limit int32) ([]db.Match, error) {
	return nil, nil
}

func applyResultFixture(winnerID, loserID, matchID uuid.UUID) (*ratingUserStore, *Engine) {
	users := &ratingUserStore{
		users: map[uuid.UUID]db.User{
			winnerID: {ID: db.UUID(winnerID), Rating: 1000, HighestRating: 1000},
			loserID:  {ID: db.UUID(loserID), Rating: 1000, HighestRating: 1000},
		},
		failApply: map[uuid.UUID]bool{},
	}
	matches := &ratingMatchStore{
		matches: map[uuid.UUID]db.Match{
			matchID: {
				ID:        db.UUID(matchID),
				Player1ID: db.UUID(winnerID),
				Player2ID: db.UUID(loserID),
			},
		},
	}
	engine := NewEngine(
		repository.NewUserRepository(users),
		repository.NewMatchRepository(matches),
		DefaultConfig(),
		zerolog.Nop(),
	)
	return users, engine
}

func TestApplyResultUpdatesBothPlayers(t *testing.T) {
	winnerID := uuid.UUID{1}
	loserID := uuid.UUID{2}
	matchID := uuid.UUID{3}
	users, engine := applyResultFixture(winnerID, loserID, matchID)

	res, err := engine.ApplyResult(context.Background(), winnerID, matchID)
	require.NoError(t, err)

	assert.Equal(t, 16, res.WinnerDelta)
	assert.Equal(t, -16, res.LoserDelta)
	assert.Equal(t, int32(1016), res.Winner.Rating)
	assert.Equal(t, int32(984), res.Loser.Rating)
	assert.Equal(t, int32(1016), res.Winner.HighestRating)
	assert.Equal(t, int32(1000), res.Loser.HighestRating, "a loss never raises the peak")
	assert.Equal(t, int32(1), res.Winner.Wins)
	assert.Equal(t, int32(1), res.Loser.Losses)
	assert.Equal(t, int32(1), res.Winner.GamesPlayed)
	assert.Equal(t, int32(1), res.Loser.GamesPlayed)

	// Each side appends one rating history sample at its new rating.
	require.Len(t, users.samples, 2)
	assert.Equal(t, int32(1016), users.samples[0].Rating)
	assert.Equal(t, int32(984), users.samples[1].Rating)
}

func TestApplyResultLoserWriteFailureSurfacesPartialState(t *testing.T) {
	winnerID := uuid.UUID{1}
	loserID := uuid.UUID{2}
	matchID := uuid.UUID{3}
	users, engine := applyResultFixture(winnerID, loserID, matchID)
	users.failApply[loserID] = true

	res, err := engine.ApplyResult(context.Background(), winnerID, matchID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartialUpdate)

	var partial *PartialUpdateError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "loser", partial.FailedSide)
	assert.Equal(t, matchID, partial.MatchID)
	assert.Equal(t, loserID, partial.LoserID)

	// The winner side committed and is reported; the loser side stays unset.
	assert.True(t, res.Winner.ID.Valid)
	assert.Equal(t, int32(1016), res.Winner.Rating)
	assert.False(t, res.Loser.ID.Valid)
	assert.Equal(t, 16, res.WinnerDelta)

	// Only the committed side wrote history.
	require.Len(t, users.samples, 1)
	assert.Equal(t, int32(1016), users.samples[0].Rating)
}

func TestApplyResultUnknownMatch(t *testing.T) {
	winnerID := uuid.UUID{1}
	_, engine := applyResultFixture(winnerID, uuid.UUID{2}, uuid.UUID{3})

	_, err := engine.ApplyResult(context.Background(), winnerID, uuid.New())
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}
