package match

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hectoclash/hectoclash/internal/auth"
	"github.com/hectoclash/hectoclash/internal/match/queue"
	httperrors "github.com/hectoclash/hectoclash/pkg/http/errors"
	ws "github.com/hectoclash/hectoclash/pkg/http/ws"
)

// Handler manages WebSocket connections and routes game messages to the
// match service.
type Handler struct {
	service *Service
	hub     *ws.Hub
	authSvc *auth.Service
	logger  zerolog.Logger
}

// NewHandler creates the game WebSocket handler.
func NewHandler(service *Service, hub *ws.Hub, authSvc *auth.Service, logger zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		authSvc: authSvc,
		logger:  logger,
	}
}

// HandleConnection runs the read loop for an authenticated connection.
// Token validation happens in HandleWebSocket before this is called.
func (h *Handler) HandleConnection(conn *websocket.Conn, userID uuid.UUID) {
	wsConn := ws.NewConnection(conn, h.logger)
	h.hub.RegisterConnection(userID, wsConn)
	wsConnections.Set(float64(h.hub.ConnectionCount()))

	go wsConn.WritePump()

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(context.Background(), userID, msg)
	})

	// The read loop returning is the disconnect signal.
	h.hub.UnregisterConnection(userID)
	wsConnections.Set(float64(h.hub.ConnectionCount()))
	h.service.HandleDisconnect(context.Background(), userID)
}

// handleMessage routes incoming WebSocket messages.
func (h *Handler) handleMessage(ctx context.Context, userID uuid.UUID, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeJoinQueue:
		return h.handleJoinQueue(ctx, userID)
	case ws.TypeLeaveQueue:
		return h.handleLeaveQueue(userID)
	case ws.TypeSubmitAnswer:
		return h.handleSubmitAnswer(ctx, userID, msg.Payload)
	case ws.TypePing:
		return h.hub.SendToUser(userID, ws.Message{Type: ws.TypePong})
	default:
		return h.sendError(userID, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (h *Handler) handleJoinQueue(ctx context.Context, userID uuid.UUID) error {
	err := h.service.JoinQueue(ctx, userID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, queue.ErrAlreadyQueued):
		return h.sendError(userID, httperrors.ErrCodeAlreadyQueued, "You are already in the queue")
	case errors.Is(err, ErrAlreadyInMatch):
		return h.sendError(userID, httperrors.ErrCodeAlreadyInMatch, "Finish your current match first")
	default:
		h.logger.Error().Err(err).Str("user_id", userID.String()).Msg("join queue failed")
		return h.sendError(userID, httperrors.ErrCodeEnqueueFailed, "Could not join the queue")
	}
}

func (h *Handler) handleLeaveQueue(userID uuid.UUID) error {
	if err := h.service.LeaveQueue(userID); err != nil {
		if errors.Is(err, queue.ErrNotQueued) {
			return h.sendError(userID, httperrors.ErrCodeNotQueued, "You are not in the queue")
		}
		return h.sendError(userID, httperrors.ErrCodeInternalError, "Could not leave the queue")
	}
	return nil
}

func (h *Handler) handleSubmitAnswer(ctx context.Context, userID uuid.UUID, payload json.RawMessage) error {
	var req ws.SubmitAnswerPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(userID, httperrors.ErrCodeInvalidPayload, "Invalid submit_answer payload")
	}

	matchID, err := uuid.Parse(req.MatchID)
	if err != nil {
		return h.sendError(userID, httperrors.ErrCodeInvalidMatchID, "Invalid match ID")
	}

	err = h.service.SubmitAnswer(ctx, userID, matchID, req.Expression)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAlreadyCompleted):
		return h.sendError(userID, httperrors.ErrCodeMatchCompleted, "The match has already ended")
	case errors.Is(err, ErrMatchNotLive):
		return h.sendError(userID, httperrors.ErrCodeSubmitFailed, "The match has not started yet")
	case errors.Is(err, ErrNotInMatch):
		return h.sendError(userID, httperrors.ErrCodeNotInMatch, "You are not part of this match")
	default:
		h.logger.Error().Err(err).
			Str("user_id", userID.String()).
			Str("match_id", req.MatchID).
			Msg("submit answer failed")
		return h.sendError(userID, httperrors.ErrCodeSubmitFailed, "Could not process your answer")
	}
}

func (h *Handler) sendError(userID uuid.UUID, code, message string) error {
	errPayload := ws.ErrorPayload{
		Code:    code,
		Message: message,
	}
	msg := ws.Message{Type: ws.TypeError}
	msg.Payload, _ = json.Marshal(errPayload)
	return h.hub.SendToUser(userID, msg)
}
