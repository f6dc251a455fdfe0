package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeJoinQueue    = "join_queue"
	TypeLeaveQueue   = "leave_queue"
	TypeSubmitAnswer = "submit_answer"

	// Server -> Client
	TypeQueueUpdate          = "queue_update"
	TypeLeftQueue            = "left_queue"
	TypeCountdown            = "countdown"
	TypeMatchStart           = "match_start"
	TypeOpponentAttempt      = "opponent_attempt"
	TypeAnswerRejected       = "answer_rejected"
	TypeAnswerOutcome        = "answer_outcome"
	TypeMatchCompleted       = "match_completed"
	TypeOpponentDisconnected = "opponent_disconnected"
	TypeLeaderboardUpdate    = "leaderboard_update"
	TypeError                = "error"
	TypePing                 = "ping"
	TypePong                 = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// Client Messages (incoming)

type SubmitAnswerPayload struct {
	MatchID    string `json:"match_id"`
	Expression string `json:"expression"`
}

// Server Messages (outgoing)

type QueueUpdatePayload struct {
	Status   string `json:"status"`
	Position int    `json:"position"`
}

type CountdownPayload struct {
	MatchID string `json:"match_id"`
	Seconds int    `json:"seconds"`
}

// Opponent identifies the other player at match start.
type Opponent struct {
	UserID   string `json:"user_id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
}

type MatchStartPayload struct {
	MatchID         string   `json:"match_id"`
	Problem         string   `json:"problem"`
	DurationSeconds int      `json:"duration_seconds"`
	Opponent        Opponent `json:"opponent"`
}

type OpponentAttemptPayload struct {
	MatchID    string   `json:"match_id"`
	UserID     string   `json:"user_id"`
	Expression string   `json:"expression"`
	Result     *float64 `json:"result"` // nil when the expression did not evaluate
	Reason     string   `json:"reason,omitempty"`
}

type AnswerRejectedPayload struct {
	MatchID string `json:"match_id"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// PlayerStats is the per-player snapshot attached to a completed match.
type PlayerStats struct {
	UserID      string `json:"user_id"`
	Rating      int    `json:"rating"`
	GamesPlayed int    `json:"games_played"`
	Wins        int    `json:"wins"`
	Losses      int    `json:"losses"`
}

type RatingChanges struct {
	Winner int `json:"winner"`
	Loser  int `json:"loser"`
}

type MatchCompletedPayload struct {
	MatchID       string        `json:"match_id"`
	WinnerID      *string       `json:"winner_id"` // nil on draw or void
	IsDraw        bool          `json:"is_draw"`
	Expression    string        `json:"expression,omitempty"`
	Message       string        `json:"message,omitempty"`
	RatingChanges RatingChanges `json:"rating_changes"`
	Stats         []PlayerStats `json:"stats"`
}

type AnswerOutcomePayload struct {
	MatchID      string `json:"match_id"`
	IsWinner     bool   `json:"is_winner"`
	RatingChange int    `json:"rating_change"`
	NewRating    int    `json:"new_rating"`
}

type LeaderboardUpdatePayload struct {
	Top []LeaderboardEntry `json:"top"`
}

type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Wins     int    `json:"wins"`
	Games    int    `json:"games"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
