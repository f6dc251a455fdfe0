package leaderboard

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/hectoclash/hectoclash/internal/db"
	"github.com/hectoclash/hectoclash/internal/db/repository"
	ws "github.com/hectoclash/hectoclash/pkg/http/ws"
)

// HTTPHandler exposes the REST endpoint for leaderboard queries.
type HTTPHandler struct {
	svc    *Service
	users  *repository.UserRepository
	logger zerolog.Logger
}

// NewHTTPHandler constructs a leaderboard HTTP handler.
func NewHTTPHandler(svc *Service, users *repository.UserRepository, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		users:  users,
		logger: logger.With().Str("component", "leaderboard_http").Logger(),
	}
}

// HandleGet responds with the current standings.
// Route: GET /v1/leaderboard?limit=10
func (h *HTTPHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	ctx := r.Context()
	var (
		top    []ws.LeaderboardEntry
		source = "redis"
	)

	if h.svc != nil {
		if entries, err := h.svc.Top(ctx, limit); err == nil {
			top = toWSEntries(entries)
		} else {
			h.logger.Warn().Err(err).Msg("redis leaderboard fetch failed")
		}
	}

	if len(top) == 0 {
		source = "postgres"
		top = h.postgresFallback(ctx, limit)
	}

	resp := map[string]interface{}{
		"top":         top,
		"source":      source,
		"retrievedAt": time.Now().UTC().Format(time.RFC3339),
	}

	writeJSON(w, resp)
}

// postgresFallback serves standings straight from the users table when the
// sorted set is empty, e.g. right after a Redis flush.
func (h *HTTPHandler) postgresFallback(ctx context.Context, limit int) []ws.LeaderboardEntry {
	if h.users == nil {
		return nil
	}
	users, err := h.users.TopByRating(ctx, int32(limit))
	if err != nil {
		h.logger.Warn().Err(err).Msg("postgres leaderboard fetch failed")
		return nil
	}

	entries := make([]ws.LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = ws.LeaderboardEntry{
			Rank:     i + 1,
			UserID:   db.FromUUID(u.ID).String(),
			Username: u.Username,
			Rating:   int(u.Rating),
			Wins:     int(u.Wins),
			Games:    int(u.GamesPlayed),
		}
	}
	return entries
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
