package match

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// StateManager handles ephemeral match state in Redis: a per-match lock for
// finish transitions and the user -> active match table used to stop players
// from queueing into two games at once.
type StateManager struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewStateManager creates a state manager backed by Redis.
func NewStateManager(redis *redis.Client, logger zerolog.Logger) *StateManager {
	return &StateManager{
		redis:  redis,
		logger: logger,
	}
}

// LockMatch acquires a distributed lock for match state transitions.
// Returns unlock function and error. Lock expires after 30s.
func (s *StateManager) LockMatch(ctx context.Context, matchID uuid.UUID) (func() error, error) {
	key := fmt.Sprintf("match:lock:%s", matchID.String())
	lockValue := uuid.New().String()

	// Submissions racing a timeout contend briefly; retry before giving up
	// so the loser still reaches the compare-and-set and gets a clean
	// already-completed answer.
	var acquired bool
	for attempt := 0; attempt < 20; attempt++ {
		var err error
		acquired, err = s.redis.SetNX(ctx, key, lockValue, 30*time.Second).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if acquired {
			break
		}
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !acquired {
		return nil, fmt.Errorf("lock already held")
	}

	unlock := func() error {
		// Lua script ensures we only delete our own lock
		script := `
			if redis.call("get", KEYS[1]) == ARGV[1] then
				return redis.call("del", KEYS[1])
			else
				return 0
			end
		`
		return s.redis.Eval(ctx, script, []string{key}, lockValue).Err()
	}

	return unlock, nil
}

// SetActiveMatch records a user's live match. The TTL is a safety net for
// crashed instances; normal cleanup goes through ClearActiveMatch.
func (s *StateManager) SetActiveMatch(ctx context.Context, userID, matchID uuid.UUID, ttl time.Duration) error {
	key := fmt.Sprintf("match:active:%s", userID.String())
	return s.redis.Set(ctx, key, matchID.String(), ttl).Err()
}

// ActiveMatch returns the match a user is currently playing, or uuid.Nil.
func (s *StateManager) ActiveMatch(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	key := fmt.Sprintf("match:active:%s", userID.String())
	raw, err := s.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("get active match: %w", err)
	}

	matchID, err := uuid.Parse(raw)
	if err != nil {
		s.logger.Warn().Str("key", key).Str("value", raw).Msg("corrupt active match entry")
		return uuid.Nil, nil
	}
	return matchID, nil
}

// ClearActiveMatch removes the user's active match entries once a match ends.
func (s *StateManager) ClearActiveMatch(ctx context.Context, userIDs ...uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = fmt.Sprintf("match:active:%s", id.String())
	}
	return s.redis.Del(ctx, keys...).Err()
}
