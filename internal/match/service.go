package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/hectoclash/hectoclash/internal/config"
	"github.com/hectoclash/hectoclash/internal/db"
	"github.com/hectoclash/hectoclash/internal/match/queue"
	"github.com/hectoclash/hectoclash/internal/puzzle"
	"github.com/hectoclash/hectoclash/internal/rating"
	"github.com/hectoclash/hectoclash/pkg/http/ws"
)

type puzzleSource interface {
	Take(ctx context.Context) (puzzle.Sequence, error)
}

type matchRecords interface {
	Create(ctx context.Context, params db.CreateMatchParams) (db.Match, error)
	MarkStarted(ctx context.Context, matchID uuid.UUID, startedAt pgtype.Timestamptz) (bool, error)
	FinishIfStarted(ctx context.Context, params db.FinishMatchParams) (bool, error)
	Void(ctx context.Context, matchID uuid.UUID, endedAt pgtype.Timestamptz) (bool, error)
	Get(ctx context.Context, matchID uuid.UUID) (db.Match, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int32) ([]db.Match, error)
	ListLive(ctx context.Context, limit int32) ([]db.Match, error)
}

type userRecords interface {
	GetByID(ctx context.Context, userID uuid.UUID) (db.User, error)
}

type ratingApplier interface {
	ApplyResult(ctx context.Context, winnerID, matchID uuid.UUID) (rating.Result, error)
}

type standingsRecorder interface {
	Record(ctx context.Context, users ...db.User) error
}

type matchLocks interface {
	LockMatch(ctx context.Context, matchID uuid.UUID) (func() error, error)
	SetActiveMatch(ctx context.Context, userID, matchID uuid.UUID, ttl time.Duration) error
	ActiveMatch(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
	ClearActiveMatch(ctx context.Context, userIDs ...uuid.UUID) error
}

// Service coordinates the full match lifecycle: pairing, countdown, live
// submissions, the winning race, timeouts and disconnects.
type Service struct {
	matches matchRecords
	users   userRecords
	puzzles puzzleSource
	state   matchLocks
	queue   *queue.Manager
	rating  ratingApplier
	board   standingsRecorder
	hub     *ws.Hub
	cfg     config.Game
	logger  zerolog.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	byUser   map[uuid.UUID]uuid.UUID

	now  func() time.Time
	tick func(d time.Duration) <-chan time.Time
}

// NewService creates the match coordinator.
func NewService(
	matches matchRecords,
	users userRecords,
	puzzles puzzleSource,
	state matchLocks,
	queueMgr *queue.Manager,
	ratingEngine ratingApplier,
	board standingsRecorder,
	hub *ws.Hub,
	cfg config.Game,
	logger zerolog.Logger,
) *Service {
	return &Service{
		matches:  matches,
		users:    users,
		puzzles:  puzzles,
		state:    state,
		queue:    queueMgr,
		rating:   ratingEngine,
		board:    board,
		hub:      hub,
		cfg:      cfg,
		logger:   logger.With().Str("component", "match_service").Logger(),
		sessions: make(map[uuid.UUID]*session),
		byUser:   make(map[uuid.UUID]uuid.UUID),
		now:      time.Now,
		tick: func(d time.Duration) <-chan time.Time {
			return time.After(d)
		},
	}
}

// JoinQueue puts a player into the matchmaking queue. When an opponent is
// already waiting, the match starts immediately.
func (s *Service) JoinQueue(ctx context.Context, userID uuid.UUID) error {
	active, err := s.state.ActiveMatch(ctx, userID)
	if err != nil {
		return fmt.Errorf("check active match: %w", err)
	}
	if active != uuid.Nil {
		return ErrAlreadyInMatch
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load player: %w", err)
	}

	pair, err := s.queue.Enqueue(queue.WaitingPlayer{
		UserID:   userID,
		Name:     user.Name,
		Username: user.Username,
		Rating:   int(user.Rating),
	})
	if err != nil {
		return err
	}

	if pair == nil {
		pos, _ := s.queue.Position(userID)
		s.sendToUser(userID, ws.TypeQueueUpdate, ws.QueueUpdatePayload{
			Status:   "waiting",
			Position: pos,
		})
		return nil
	}

	if err := s.startMatch(ctx, pair); err != nil {
		// Pairing already removed both players from the queue. The caller
		// learns of the failure from the returned error; the player who was
		// waiting gets told over the socket so they can rejoin.
		partner := pair.Player1
		if partner.UserID == userID {
			partner = pair.Player2
		}
		s.sendToUser(partner.UserID, ws.TypeError, ws.ErrorPayload{
			Code:    "match_creation_failed",
			Message: "Could not start a match, please rejoin the queue.",
		})
		return err
	}
	return nil
}

// LeaveQueue removes a waiting player.
func (s *Service) LeaveQueue(userID uuid.UUID) error {
	if err := s.queue.Leave(userID); err != nil {
		return err
	}
	s.sendToUser(userID, ws.TypeLeftQueue, struct{}{})
	return nil
}

// startMatch persists a pending match for a fresh pair, registers both
// players and kicks off the countdown goroutine.
func (s *Service) startMatch(ctx context.Context, pair *queue.Pair) error {
	seq, err := s.puzzles.Take(ctx)
	if err != nil {
		return fmt.Errorf("take puzzle: %w", err)
	}

	matchID := uuid.New()
	players := [2]Player{
		{UserID: pair.Player1.UserID, Name: pair.Player1.Name, Username: pair.Player1.Username, Rating: pair.Player1.Rating},
		{UserID: pair.Player2.UserID, Name: pair.Player2.Name, Username: pair.Player2.Username, Rating: pair.Player2.Rating},
	}

	if _, err := s.matches.Create(ctx, db.CreateMatchParams{
		ID:        db.UUID(matchID),
		Player1ID: db.UUID(players[0].UserID),
		Player2ID: db.UUID(players[1].UserID),
		Problem:   seq.String(),
		Status:    StatusPending,
	}); err != nil {
		return fmt.Errorf("create match: %w", err)
	}

	sess := &session{
		id:      matchID,
		problem: seq,
		players: players,
		phase:   PhaseForming,
	}

	s.mu.Lock()
	s.sessions[matchID] = sess
	s.byUser[players[0].UserID] = matchID
	s.byUser[players[1].UserID] = matchID
	s.mu.Unlock()

	// TTL outlives countdown plus play time so a crashed instance cannot
	// strand players forever.
	ttl := time.Duration(s.cfg.CountdownSeconds)*time.Second + s.cfg.MatchDuration + 30*time.Second
	for _, p := range players {
		if err := s.state.SetActiveMatch(ctx, p.UserID, matchID, ttl); err != nil {
			s.logger.Warn().Err(err).Str("user_id", p.UserID.String()).Msg("failed to record active match")
		}
		s.hub.JoinRoom(matchID, p.UserID)
	}

	matchesCreated.Inc()
	s.logger.Info().
		Str("match_id", matchID.String()).
		Str("player1", players[0].UserID.String()).
		Str("player2", players[1].UserID.String()).
		Str("problem", seq.String()).
		Msg("match created")

	go s.run(sess)
	return nil
}

// run drives the countdown and match timer for one session.
func (s *Service) run(sess *session) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess.mu.Lock()
	if sess.phase != PhaseForming {
		sess.mu.Unlock()
		return
	}
	sess.phase = PhaseCountdown
	sess.cancel = cancel
	sess.mu.Unlock()

	for n := s.cfg.CountdownSeconds; n >= 1; n-- {
		s.broadcast(sess.id, ws.TypeCountdown, ws.CountdownPayload{
			MatchID: sess.id.String(),
			Seconds: n,
		})
		select {
		case <-s.tick(time.Second):
		case <-ctx.Done():
			return
		}
	}

	started, err := s.matches.MarkStarted(ctx, sess.id, pgtype.Timestamptz{Time: s.now(), Valid: true})
	if err != nil {
		s.logger.Error().Err(err).Str("match_id", sess.id.String()).Msg("failed to start match")
		return
	}
	if !started {
		// The match was voided during the countdown.
		return
	}

	sess.mu.Lock()
	if sess.phase != PhaseCountdown {
		sess.mu.Unlock()
		return
	}
	sess.phase = PhaseLive
	sess.mu.Unlock()

	duration := int(s.cfg.MatchDuration / time.Second)
	for _, p := range sess.players {
		opp, _ := sess.opponentOf(p.UserID)
		s.sendToUser(p.UserID, ws.TypeMatchStart, ws.MatchStartPayload{
			MatchID:         sess.id.String(),
			Problem:         sess.problem.String(),
			DurationSeconds: duration,
			Opponent: ws.Opponent{
				UserID:   opp.UserID.String(),
				Name:     opp.Name,
				Username: opp.Username,
				Rating:   opp.Rating,
			},
		})
	}

	select {
	case <-s.tick(s.cfg.MatchDuration):
		s.finishTimeout(sess)
	case <-ctx.Done():
	}
}

// SubmitAnswer validates one expression attempt. Every attempt, valid or
// not, is broadcast to the match room; only an expression that evaluates to
// exactly the target can finish the match, and the SQL compare-and-set
// decides the winner when both players race.
func (s *Service) SubmitAnswer(ctx context.Context, userID, matchID uuid.UUID, expression string) error {
	sess := s.lookup(matchID)
	if sess == nil {
		return ErrAlreadyCompleted
	}
	if _, ok := sess.player(userID); !ok {
		return ErrNotInMatch
	}

	sess.mu.Lock()
	phase := sess.phase
	sess.mu.Unlock()
	switch phase {
	case PhaseFinished:
		return ErrAlreadyCompleted
	case PhaseLive:
	default:
		return ErrMatchNotLive
	}

	value, evalErr := puzzle.Evaluate(expression, sess.problem)

	attempt := ws.OpponentAttemptPayload{
		MatchID:    matchID.String(),
		UserID:     userID.String(),
		Expression: expression,
	}
	if evalErr == nil {
		v := value
		attempt.Result = &v
	} else {
		attempt.Reason = rejectionReason(evalErr)
	}
	// The whole room sees every attempt, so spectators and the opponent get
	// the same feed. The user_id field tells clients whose attempt it was.
	s.broadcast(sess.id, ws.TypeOpponentAttempt, attempt)

	if evalErr != nil {
		s.sendToUser(userID, ws.TypeAnswerRejected, ws.AnswerRejectedPayload{
			MatchID: matchID.String(),
			Reason:  rejectionReason(evalErr),
			Message: evalErr.Error(),
		})
		return nil
	}
	if value != puzzle.Target {
		s.sendToUser(userID, ws.TypeAnswerRejected, ws.AnswerRejectedPayload{
			MatchID: matchID.String(),
			Reason:  "incorrect_solution",
			Message: fmt.Sprintf("expression evaluates to %g, not %g", value, puzzle.Target),
		})
		return nil
	}

	unlock, err := s.state.LockMatch(ctx, matchID)
	if err != nil {
		return fmt.Errorf("lock match: %w", err)
	}
	defer unlock()

	won, err := s.matches.FinishIfStarted(ctx, db.FinishMatchParams{
		ID:                db.UUID(matchID),
		WinnerID:          db.UUID(userID),
		WinningExpression: pgtype.Text{String: expression, Valid: true},
		EndedAt:           pgtype.Timestamptz{Time: s.now(), Valid: true},
	})
	if err != nil {
		return fmt.Errorf("finish match: %w", err)
	}
	if !won {
		return ErrAlreadyCompleted
	}

	s.finishWon(ctx, sess, userID, expression)
	return nil
}

// finishWon applies ratings and runs the two-tier completion broadcast for
// a decisive result. The caller has already won the status compare-and-set.
func (s *Service) finishWon(ctx context.Context, sess *session, winnerID uuid.UUID, expression string) {
	sess.mu.Lock()
	sess.phase = PhaseFinished
	if sess.cancel != nil {
		sess.cancel()
	}
	sess.mu.Unlock()

	matchesFinished.WithLabelValues(OutcomeWon).Inc()

	res, err := s.rating.ApplyResult(ctx, winnerID, sess.id)
	if err != nil && !errors.Is(err, rating.ErrPartialUpdate) {
		s.logger.Error().Err(err).Str("match_id", sess.id.String()).Msg("failed to apply rating result")
	}

	// A partial rating failure leaves one side of the result unset; that
	// side must not reach the leaderboard or the stats payload.
	rated := make([]db.User, 0, 2)
	if res.Winner.ID.Valid {
		rated = append(rated, res.Winner)
	}
	if res.Loser.ID.Valid {
		rated = append(rated, res.Loser)
	}

	if s.board != nil && len(rated) > 0 {
		if err := s.board.Record(ctx, rated...); err != nil {
			s.logger.Warn().Err(err).Str("match_id", sess.id.String()).Msg("failed to record leaderboard standings")
		}
	}

	stats := make([]ws.PlayerStats, 0, len(rated))
	for _, u := range rated {
		stats = append(stats, userStats(u))
	}

	winnerStr := winnerID.String()
	completed := ws.MatchCompletedPayload{
		MatchID:    sess.id.String(),
		WinnerID:   &winnerStr,
		Expression: expression,
		RatingChanges: ws.RatingChanges{
			Winner: res.WinnerDelta,
			Loser:  res.LoserDelta,
		},
		Stats: stats,
	}
	s.broadcast(sess.id, ws.TypeMatchCompleted, completed)

	for _, p := range sess.players {
		outcome := ws.AnswerOutcomePayload{
			MatchID:  sess.id.String(),
			IsWinner: p.UserID == winnerID,
		}
		if outcome.IsWinner {
			outcome.RatingChange = res.WinnerDelta
			if res.Winner.ID.Valid {
				outcome.NewRating = int(res.Winner.Rating)
			}
		} else {
			outcome.RatingChange = res.LoserDelta
			if res.Loser.ID.Valid {
				outcome.NewRating = int(res.Loser.Rating)
			}
		}
		s.sendToUser(p.UserID, ws.TypeAnswerOutcome, outcome)
	}

	s.logger.Info().
		Str("match_id", sess.id.String()).
		Str("winner_id", winnerStr).
		Str("expression", expression).
		Msg("match won")

	s.teardown(sess)
}

// finishTimeout closes a match whose timer expired with no winner. A
// submission racing the timer goes through the same lock and CAS, so only
// one of the two transitions lands.
func (s *Service) finishTimeout(sess *session) {
	ctx := context.Background()

	unlock, err := s.state.LockMatch(ctx, sess.id)
	if err != nil {
		s.logger.Error().Err(err).Str("match_id", sess.id.String()).Msg("failed to lock match for timeout")
		return
	}
	defer unlock()

	closed, err := s.matches.FinishIfStarted(ctx, db.FinishMatchParams{
		ID:      db.UUID(sess.id),
		EndedAt: pgtype.Timestamptz{Time: s.now(), Valid: true},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("match_id", sess.id.String()).Msg("failed to time out match")
		return
	}
	if !closed {
		return
	}

	sess.mu.Lock()
	sess.phase = PhaseFinished
	sess.mu.Unlock()

	matchesFinished.WithLabelValues(OutcomeTimeout).Inc()

	s.broadcast(sess.id, ws.TypeMatchCompleted, ws.MatchCompletedPayload{
		MatchID: sess.id.String(),
		IsDraw:  true,
		Message: "time expired with no solution",
		Stats:   s.loadStats(ctx, sess),
	})

	s.logger.Info().Str("match_id", sess.id.String()).Msg("match timed out")
	s.teardown(sess)
}

// HandleDisconnect cleans up after a dropped connection: the player leaves
// the queue if waiting, and any live match is voided with no rating change.
func (s *Service) HandleDisconnect(ctx context.Context, userID uuid.UUID) {
	if err := s.queue.Leave(userID); err != nil && !errors.Is(err, queue.ErrNotQueued) {
		s.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("failed to remove disconnected player from queue")
	}

	s.mu.Lock()
	matchID, ok := s.byUser[userID]
	var sess *session
	if ok {
		sess = s.sessions[matchID]
	}
	s.mu.Unlock()
	if sess == nil {
		return
	}

	sess.mu.Lock()
	if sess.phase == PhaseFinished {
		sess.mu.Unlock()
		return
	}
	if sess.cancel != nil {
		sess.cancel()
	}
	sess.mu.Unlock()

	unlock, err := s.state.LockMatch(ctx, sess.id)
	if err != nil {
		s.logger.Error().Err(err).Str("match_id", sess.id.String()).Msg("failed to lock match for disconnect")
		return
	}
	defer unlock()

	voided, err := s.matches.Void(ctx, sess.id, pgtype.Timestamptz{Time: s.now(), Valid: true})
	if err != nil {
		s.logger.Error().Err(err).Str("match_id", sess.id.String()).Msg("failed to void match")
		return
	}
	if !voided {
		return
	}

	sess.mu.Lock()
	sess.phase = PhaseFinished
	sess.mu.Unlock()

	matchesFinished.WithLabelValues(OutcomeVoid).Inc()

	if opp, ok := sess.opponentOf(userID); ok {
		s.sendToUser(opp.UserID, ws.TypeOpponentDisconnected, struct {
			MatchID string `json:"match_id"`
		}{MatchID: sess.id.String()})
		s.sendToUser(opp.UserID, ws.TypeMatchCompleted, ws.MatchCompletedPayload{
			MatchID: sess.id.String(),
			IsDraw:  true,
			Message: "opponent disconnected, match voided",
			Stats:   s.loadStats(ctx, sess),
		})
	}

	s.logger.Info().
		Str("match_id", sess.id.String()).
		Str("user_id", userID.String()).
		Msg("match voided on disconnect")
	s.teardown(sess)
}

// GetMatch fetches a persisted match record.
func (s *Service) GetMatch(ctx context.Context, matchID uuid.UUID) (db.Match, error) {
	return s.matches.Get(ctx, matchID)
}

// MatchHistory returns a player's recent matches, newest first.
func (s *Service) MatchHistory(ctx context.Context, userID uuid.UUID, limit int32) ([]db.Match, error) {
	return s.matches.ListByUser(ctx, userID, limit)
}

// LiveMatches lists matches currently in play, for the spectator view.
func (s *Service) LiveMatches(ctx context.Context, limit int32) ([]db.Match, error) {
	return s.matches.ListLive(ctx, limit)
}

// TrainingPuzzle hands out a verified sequence for solo practice.
func (s *Service) TrainingPuzzle(ctx context.Context) (puzzle.Sequence, error) {
	return s.puzzles.Take(ctx)
}

// teardown releases the session exactly once. Safe to call from the winning
// submission, the timeout and the disconnect path.
func (s *Service) teardown(sess *session) {
	s.mu.Lock()
	if _, live := s.sessions[sess.id]; !live {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, sess.id)
	for _, p := range sess.players {
		if s.byUser[p.UserID] == sess.id {
			delete(s.byUser, p.UserID)
		}
	}
	s.mu.Unlock()

	s.hub.CloseRoom(sess.id)

	ids := []uuid.UUID{sess.players[0].UserID, sess.players[1].UserID}
	if err := s.state.ClearActiveMatch(context.Background(), ids...); err != nil {
		s.logger.Warn().Err(err).Str("match_id", sess.id.String()).Msg("failed to clear active match entries")
	}
}

func (s *Service) lookup(matchID uuid.UUID) *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[matchID]
}

// loadStats builds the per-player snapshot for completion payloads when no
// rating result is available (draws and voids).
func (s *Service) loadStats(ctx context.Context, sess *session) []ws.PlayerStats {
	stats := make([]ws.PlayerStats, 0, 2)
	for _, p := range sess.players {
		user, err := s.users.GetByID(ctx, p.UserID)
		if err != nil {
			s.logger.Warn().Err(err).Str("user_id", p.UserID.String()).Msg("failed to load player stats")
			continue
		}
		stats = append(stats, userStats(user))
	}
	return stats
}

func userStats(u db.User) ws.PlayerStats {
	return ws.PlayerStats{
		UserID:      db.FromUUID(u.ID).String(),
		Rating:      int(u.Rating),
		GamesPlayed: int(u.GamesPlayed),
		Wins:        int(u.Wins),
		Losses:      int(u.Losses),
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, puzzle.ErrAdjacentDigits):
		return "adjacent_digits"
	default:
		return "malformed_expression"
	}
}

func (s *Service) sendToUser(userID uuid.UUID, msgType string, payload any) {
	msg := ws.Message{Type: msgType}
	msg.Payload, _ = json.Marshal(payload)
	if err := s.hub.SendToUser(userID, msg); err != nil {
		s.logger.Debug().Err(err).Str("user_id", userID.String()).Str("type", msgType).Msg("send failed")
	}
}

func (s *Service) broadcast(matchID uuid.UUID, msgType string, payload any) {
	msg := ws.Message{Type: msgType}
	msg.Payload, _ = json.Marshal(payload)
	if err := s.hub.BroadcastToRoom(matchID, msg); err != nil {
		s.logger.Debug().Err(err).Str("match_id", matchID.String()).Str("type", msgType).Msg("broadcast failed")
	}
}
