package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hectoclash/hectoclash/internal/auth"
	"github.com/hectoclash/hectoclash/internal/config"
	"github.com/hectoclash/hectoclash/internal/leaderboard"
	"github.com/hectoclash/hectoclash/internal/match"
)

// Handlers groups the per-domain HTTP handlers mounted on the API server.
type Handlers struct {
	Auth        *auth.HTTPHandlers
	Match       *match.HTTPHandlers
	MatchWS     http.HandlerFunc
	Leaderboard *leaderboard.HTTPHandler
}

// NewHTTPServer wires all API routes plus health and metrics endpoints.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, redis *redis.Client, authSvc *auth.Service, h Handlers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), pool, redis); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	if h.Auth != nil {
		mux.HandleFunc("POST /v1/auth/register", h.Auth.Register)
		mux.HandleFunc("POST /v1/auth/login", h.Auth.Login)
		mux.HandleFunc("POST /v1/auth/refresh", h.Auth.RefreshToken)
		mux.Handle("GET /v1/users/me", auth.RequireAuth(http.HandlerFunc(h.Auth.GetMe)))
		mux.HandleFunc("GET /v1/users/{id}/rating-history", h.Auth.GetRatingHistory)
	}

	if h.MatchWS != nil {
		mux.HandleFunc("GET /ws/matches", h.MatchWS)
	}

	if h.Match != nil {
		// The literal segment wins over {id}, so "live" is never parsed as
		// a match ID.
		mux.HandleFunc("GET /v1/matches/live", h.Match.LiveMatches)
		mux.HandleFunc("GET /v1/matches/{id}", h.Match.GetMatch)
		mux.HandleFunc("GET /v1/users/{id}/matches", h.Match.UserMatches)
		mux.HandleFunc("GET /v1/training/puzzle", h.Match.TrainingPuzzle)
		mux.HandleFunc("POST /v1/training/verify", h.Match.TrainingVerify)
	}

	if h.Leaderboard != nil {
		mux.HandleFunc("GET /v1/leaderboard", h.Leaderboard.HandleGet)
	}

	var handler http.Handler = mux
	handler = auth.Middleware(authSvc, logger)(handler)
	handler = corsMiddleware(cfg.CORS)(handler)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}
}

func corsMiddleware(cfg config.CORS) func(http.Handler) http.Handler {
	allowedOrigins := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		allowedOrigins[o] = struct{}{}
	}
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
				if cfg.AllowCredentials {
					w.Header().Set("Access-Control-Allow-Credentials", "true")
				}
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				w.Header().Set("Access-Control-Max-Age", maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redis *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	return redis.Ping(ctx).Err()
}
