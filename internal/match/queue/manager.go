package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrAlreadyQueued is returned when a player enqueues twice.
	ErrAlreadyQueued = errors.New("player already in queue")
	// ErrNotQueued is returned when leaving or inspecting a queue slot
	// the player does not hold.
	ErrNotQueued = errors.New("player not in queue")
)

// WaitingPlayer is a queued player waiting for an opponent.
type WaitingPlayer struct {
	UserID   uuid.UUID
	Name     string
	Username string
	Rating   int
	QueuedAt time.Time
}

// Pair is two players popped from the front of the queue.
type Pair struct {
	Player1 WaitingPlayer
	Player2 WaitingPlayer
}

// Manager is a strict FIFO 1v1 matchmaking queue. The earliest two
// distinct players are paired under a single critical section, so a
// pair can never be formed twice and arrival order is preserved.
type Manager struct {
	mu      sync.Mutex
	order   []uuid.UUID
	waiting map[uuid.UUID]*WaitingPlayer
	logger  zerolog.Logger
	now     func() time.Time
}

// NewManager creates an empty matchmaking queue.
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		waiting: make(map[uuid.UUID]*WaitingPlayer),
		logger:  logger,
		now:     time.Now,
	}
}

// Enqueue adds a player to the back of the queue. If a distinct
// opponent is already waiting, both players are removed and returned
// as a Pair; otherwise the player stays queued and the returned pair
// is nil.
func (m *Manager) Enqueue(p WaitingPlayer) (*Pair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.waiting[p.UserID]; exists {
		return nil, ErrAlreadyQueued
	}

	p.QueuedAt = m.now()
	m.waiting[p.UserID] = &p
	m.order = append(m.order, p.UserID)

	first, second, ok := m.popPairLocked()
	if !ok {
		m.logger.Info().
			Str("user_id", p.UserID.String()).
			Int("queue_len", len(m.waiting)).
			Msg("player enqueued")
		return nil, nil
	}

	m.logger.Info().
		Str("player1", first.UserID.String()).
		Str("player2", second.UserID.String()).
		Msg("players paired")
	return &Pair{Player1: first, Player2: second}, nil
}

// Leave removes a player from the queue. Revocation is O(1): the map
// entry is deleted and the stale order slot is skipped during pairing.
func (m *Manager) Leave(userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.waiting[userID]; !exists {
		return ErrNotQueued
	}
	delete(m.waiting, userID)
	m.logger.Info().Str("user_id", userID.String()).Msg("player left queue")
	return nil
}

// Position returns the 1-based FIFO position of a player, or
// ErrNotQueued when the player is not waiting.
func (m *Manager) Position(userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.waiting[userID]; !exists {
		return 0, ErrNotQueued
	}

	pos := 0
	for _, id := range m.order {
		if _, live := m.waiting[id]; !live {
			continue
		}
		pos++
		if id == userID {
			return pos, nil
		}
	}
	return 0, ErrNotQueued
}

// Len reports how many players are currently waiting.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiting)
}

// popPairLocked removes and returns the two earliest live players.
// Stale order entries left behind by Leave are compacted away here.
func (m *Manager) popPairLocked() (WaitingPlayer, WaitingPlayer, bool) {
	if len(m.waiting) < 2 {
		return WaitingPlayer{}, WaitingPlayer{}, false
	}

	picked := make([]WaitingPlayer, 0, 2)
	i := 0
	for ; i < len(m.order) && len(picked) < 2; i++ {
		p, live := m.waiting[m.order[i]]
		if !live {
			continue
		}
		picked = append(picked, *p)
	}
	if len(picked) < 2 {
		return WaitingPlayer{}, WaitingPlayer{}, false
	}

	delete(m.waiting, picked[0].UserID)
	delete(m.waiting, picked[1].UserID)
	m.order = append(m.order[:0], m.order[i:]...)
	return picked[0], picked[1], true
}
