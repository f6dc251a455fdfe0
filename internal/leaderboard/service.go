package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hectoclash/hectoclash/internal/db"
)

// DefaultChannel is the Pub/Sub channel carrying leaderboard updates.
const DefaultChannel = "leaderboard:updates"

// Entry represents one leaderboard rank sent to clients.
type Entry struct {
	Rank     int       `json:"rank"`
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Rating   int       `json:"rating"`
	Wins     int       `json:"wins"`
	Games    int       `json:"games"`
}

// ServiceOptions configures leaderboard service behavior.
type ServiceOptions struct {
	TopN           int
	PubSubChannel  string
	RedisKeyPrefix string
}

// Service keeps the rating-ordered leaderboard in a Redis sorted set and
// emits updates over Pub/Sub whenever a match changes ratings.
type Service struct {
	redis   *redis.Client
	logger  zerolog.Logger
	topN    int
	channel string
	prefix  string
}

// NewService constructs a leaderboard service instance.
func NewService(redis *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 50
	}
	channel := opts.PubSubChannel
	if channel == "" {
		channel = DefaultChannel
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "leaderboard"
	}

	return &Service{
		redis:   redis,
		logger:  logger.With().Str("component", "leaderboard").Logger(),
		topN:    topN,
		channel: channel,
		prefix:  prefix,
	}
}

// Record writes the post-match standing of one or more players. The sorted
// set score is the absolute rating, so a single ZAdd replaces the old value.
func (s *Service) Record(ctx context.Context, users ...db.User) error {
	if len(users) == 0 {
		return nil
	}

	pipe := s.redis.TxPipeline()
	for _, u := range users {
		userID := db.FromUUID(u.ID)
		pipe.ZAdd(ctx, s.ratingKey(), redis.Z{
			Score:  float64(u.Rating),
			Member: userID.String(),
		})
		pipe.HSet(ctx, s.metaKey(userID), map[string]interface{}{
			"username": u.Username,
			"wins":     int(u.Wins),
			"games":    int(u.GamesPlayed),
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record leaderboard standings: %w", err)
	}

	go s.publishUpdate(context.Background())
	return nil
}

// Top retrieves the highest rated players, best first.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}

	results, err := s.redis.ZRevRangeWithScores(ctx, s.ratingKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch leaderboard: %w", err)
	}

	entries := make([]Entry, 0, len(results))
	for i, z := range results {
		member, _ := z.Member.(string)
		userID, err := uuid.Parse(member)
		if err != nil {
			s.logger.Warn().Str("member", member).Msg("corrupt leaderboard member")
			continue
		}

		entry := Entry{
			Rank:   i + 1,
			UserID: userID,
			Rating: int(z.Score),
		}
		meta, err := s.redis.HGetAll(ctx, s.metaKey(userID)).Result()
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", member).Msg("failed to read leaderboard metadata")
		} else {
			entry.Username = meta["username"]
			entry.Wins = parseInt(meta["wins"])
			entry.Games = parseInt(meta["games"])
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Seed repopulates the sorted set from persisted users, typically at boot
// after a Redis flush.
func (s *Service) Seed(ctx context.Context, users []db.User) error {
	return s.Record(ctx, users...)
}

func (s *Service) publishUpdate(ctx context.Context) {
	entries, err := s.Top(ctx, 10)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to collect leaderboard update")
		return
	}
	if len(entries) == 0 {
		return
	}

	data, err := json.Marshal(toWSPayload(entries))
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal leaderboard update")
		return
	}
	if err := s.redis.Publish(ctx, s.channel, data).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish leaderboard update")
	}
}

func (s *Service) ratingKey() string {
	return fmt.Sprintf("%s:rating", s.prefix)
}

func (s *Service) metaKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s:meta:%s", s.prefix, userID.String())
}

func parseInt(val string) int {
	if val == "" {
		return 0
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return i
}
