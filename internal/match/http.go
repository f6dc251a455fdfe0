package match

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/hectoclash/hectoclash/internal/db"
	"github.com/hectoclash/hectoclash/internal/puzzle"
	httperrors "github.com/hectoclash/hectoclash/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for match records and solo training.
type HTTPHandlers struct {
	service *Service
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for match endpoints.
func NewHTTPHandlers(service *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service: service,
		logger:  logger.With().Str("component", "match_http").Logger(),
	}
}

// GetMatch handles GET /v1/matches/{id}.
func (h *HTTPHandlers) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidMatchID, "Invalid match ID")
		return
	}

	m, err := h.service.GetMatch(r.Context(), matchID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httperrors.RespondNotFound(w, httperrors.ErrCodeMatchNotFound, "Match not found")
			return
		}
		h.logger.Error().Err(err).Str("match_id", matchID.String()).Msg("failed to load match")
		httperrors.RespondInternalError(w, "Failed to load match")
		return
	}

	h.respondJSON(w, http.StatusOK, matchResponse(m))
}

// LiveMatches handles GET /v1/matches/live: the in-play matches a spectator
// can pick from.
func (h *HTTPHandlers) LiveMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.service.LiveMatches(r.Context(), 50)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list live matches")
		httperrors.RespondInternalError(w, "Failed to list live matches")
		return
	}

	out := make([]map[string]any, len(matches))
	for i, m := range matches {
		out[i] = matchResponse(m)
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"matches": out})
}

// UserMatches handles GET /v1/users/{id}/matches.
func (h *HTTPHandlers) UserMatches(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid user ID")
		return
	}

	matches, err := h.service.MatchHistory(r.Context(), userID, 50)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to load match history")
		httperrors.RespondInternalError(w, "Failed to load match history")
		return
	}

	out := make([]map[string]any, len(matches))
	for i, m := range matches {
		out[i] = matchResponse(m)
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"matches": out})
}

// TrainingPuzzle handles GET /v1/training/puzzle: a verified sequence for
// solo practice, no opponent and no rating impact.
func (h *HTTPHandlers) TrainingPuzzle(w http.ResponseWriter, r *http.Request) {
	seq, err := h.service.TrainingPuzzle(r.Context())
	if err != nil {
		if errors.Is(err, puzzle.ErrGenerationExhausted) {
			httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeGenerationExhausted, "No puzzle available, try again")
			return
		}
		h.logger.Error().Err(err).Msg("failed to produce training puzzle")
		httperrors.RespondInternalError(w, "Failed to produce a puzzle")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{"problem": seq.String()})
}

type trainingVerifyRequest struct {
	Problem    string `json:"problem"`
	Expression string `json:"expression"`
}

// TrainingVerify handles POST /v1/training/verify: checks one expression
// against a sequence and reports the evaluated value.
func (h *HTTPHandlers) TrainingVerify(w http.ResponseWriter, r *http.Request) {
	var req trainingVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	seq, err := puzzle.ParseSequence(req.Problem)
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "problem must be six digits 1-9", "problem")
		return
	}

	value, err := puzzle.Evaluate(req.Expression, seq)
	if err != nil {
		h.respondJSON(w, http.StatusOK, map[string]any{
			"correct": false,
			"reason":  rejectionReason(err),
		})
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]any{
		"correct": value == puzzle.Target,
		"value":   value,
	})
}

func matchResponse(m db.Match) map[string]any {
	resp := map[string]any{
		"id":         db.FromUUID(m.ID).String(),
		"player1_id": db.FromUUID(m.Player1ID).String(),
		"problem":    m.Problem,
		"status":     m.Status,
	}
	if m.Player2ID.Valid {
		resp["player2_id"] = db.FromUUID(m.Player2ID).String()
	}
	if m.WinnerID.Valid {
		resp["winner_id"] = db.FromUUID(m.WinnerID).String()
	}
	if m.WinningExpression.Valid {
		resp["winning_expression"] = m.WinningExpression.String
	}
	if m.StartedAt.Valid {
		resp["started_at"] = m.StartedAt.Time
	}
	if m.EndedAt.Valid {
		resp["ended_at"] = m.EndedAt.Time
	}
	if m.CreatedAt.Valid {
		resp["created_at"] = m.CreatedAt.Time
	}
	return resp
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
