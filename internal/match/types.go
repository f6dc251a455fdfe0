package match

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/hectoclash/hectoclash/internal/puzzle"
)

// Persisted match lifecycle states.
const (
	StatusPending  = "pending"
	StatusStarted  = "started"
	StatusFinished = "finished"
)

// In-process phases of a live session. The persisted status only moves on
// the countdown and finish transitions; the phase tracks everything between.
const (
	PhaseForming   = "forming"
	PhaseCountdown = "countdown"
	PhaseLive      = "live"
	PhaseFinished  = "finished"
)

// Finish outcomes, used for metrics and completion messages.
const (
	OutcomeWon     = "won"
	OutcomeTimeout = "timeout"
	OutcomeVoid    = "void"
)

var (
	// ErrAlreadyCompleted is returned to a submission that lost the finishing
	// race or arrived after the match ended.
	ErrAlreadyCompleted = errors.New("match already completed")
	// ErrNotInMatch is returned when a player submits to a match they are
	// not part of.
	ErrNotInMatch = errors.New("player is not in this match")
	// ErrMatchNotLive is returned for submissions during countdown or before
	// the match starts.
	ErrMatchNotLive = errors.New("match is not live")
	// ErrAlreadyInMatch blocks queueing while a live match is in progress.
	ErrAlreadyInMatch = errors.New("player already has an active match")
)

// Player is one side of a head-to-head session.
type Player struct {
	UserID   uuid.UUID
	Name     string
	Username string
	Rating   int
}

// session is the in-memory state of one match on this instance. All phase
// reads and writes go through mu; the persisted status transitions are
// additionally serialized by the SQL compare-and-set.
type session struct {
	mu      sync.Mutex
	id      uuid.UUID
	problem puzzle.Sequence
	players [2]Player
	phase   string
	cancel  func() // stops the countdown and the match timer
}

// player returns the session entry for a user and whether they belong.
func (s *session) player(userID uuid.UUID) (Player, bool) {
	for _, p := range s.players {
		if p.UserID == userID {
			return p, true
		}
	}
	return Player{}, false
}

// opponentOf returns the other player.
func (s *session) opponentOf(userID uuid.UUID) (Player, bool) {
	for _, p := range s.players {
		if p.UserID != userID {
			return p, true
		}
	}
	return Player{}, false
}
