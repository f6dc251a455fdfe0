package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	httperrors "github.com/hectoclash/hectoclash/pkg/http/errors"
)

// HTTPHandlers provides REST endpoints for authentication.
type HTTPHandlers struct {
	authSvc *Service
	logger  zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for auth endpoints.
func NewHTTPHandlers(authSvc *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		authSvc: authSvc,
		logger:  logger,
	}
}

// Register handles POST /v1/auth/register
func (h *HTTPHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	user, tokens, err := h.authSvc.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken), errors.Is(err, ErrUsernameTaken):
			httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeAlreadyExists, err.Error())
		case errors.Is(err, ErrPasswordMismatch):
			httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, err.Error(), "confirm_password")
		default:
			httperrors.RespondBadRequest(w, httperrors.ErrCodeRegistrationFailed, err.Error())
		}
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"user":          userResponse(user),
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
	})
}

// Login handles POST /v1/auth/login
func (h *HTTPHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	user, tokens, err := h.authSvc.Login(r.Context(), req)
	if err != nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeLoginFailed, "Invalid credentials")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":          userResponse(user),
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
	})
}

// RefreshToken handles POST /v1/auth/refresh
func (h *HTTPHandlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	tokens, err := h.authSvc.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeRefreshFailed, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"access_token":  tokens.AccessToken,
		"refresh_token": tokens.RefreshToken,
		"expires_in":    tokens.ExpiresIn,
	})
}

// GetMe handles GET /v1/users/me (requires auth middleware)
func (h *HTTPHandlers) GetMe(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	if claims == nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "Invalid or missing token")
		return
	}

	dbUser, err := h.authSvc.GetUser(r.Context(), claims.UserID)
	if err != nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeUserNotFound, "User not found")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":        claims.UserID.String(),
		"name":           dbUser.Name,
		"username":       dbUser.Username,
		"email":          dbUser.Email,
		"rating":         dbUser.Rating,
		"highest_rating": dbUser.HighestRating,
		"games_played":   dbUser.GamesPlayed,
		"wins":           dbUser.Wins,
		"losses":         dbUser.Losses,
		"current_streak": dbUser.CurrentStreak,
	})
}

// GetRatingHistory handles GET /v1/users/{id}/rating-history. Every rated
// match appends a sample, so this backs the profile rating chart.
func (h *HTTPHandlers) GetRatingHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid user ID")
		return
	}

	samples, err := h.authSvc.RatingHistory(r.Context(), userID, 100)
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID.String()).Msg("failed to load rating history")
		httperrors.RespondInternalError(w, "Failed to load rating history")
		return
	}

	out := make([]map[string]interface{}, len(samples))
	for i, s := range samples {
		out[i] = map[string]interface{}{
			"rating":      s.Rating,
			"recorded_at": s.RecordedAt.Time,
		}
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{"history": out})
}

func userResponse(user *User) map[string]interface{} {
	return map[string]interface{}{
		"user_id":  user.ID.String(),
		"name":     user.Name,
		"username": user.Username,
		"email":    user.Email,
		"rating":   user.Rating,
	}
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
