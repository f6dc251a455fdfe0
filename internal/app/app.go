package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hectoclash/hectoclash/internal/auth"
	"github.com/hectoclash/hectoclash/internal/auth/jwt"
	"github.com/hectoclash/hectoclash/internal/config"
	"github.com/hectoclash/hectoclash/internal/db"
	"github.com/hectoclash/hectoclash/internal/db/repository"
	"github.com/hectoclash/hectoclash/internal/leaderboard"
	"github.com/hectoclash/hectoclash/internal/logging"
	"github.com/hectoclash/hectoclash/internal/match"
	matchqueue "github.com/hectoclash/hectoclash/internal/match/queue"
	"github.com/hectoclash/hectoclash/internal/puzzle"
	"github.com/hectoclash/hectoclash/internal/rating"
	"github.com/hectoclash/hectoclash/internal/server"
	ws "github.com/hectoclash/hectoclash/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server)
// and the background workers keeping the game healthy.
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	queries        *db.Queries
	userRepo       *repository.UserRepository
	leaderboardSvc *leaderboard.Service

	prefillWorker  *puzzle.PrefillWorker
	lbBroadcaster  *leaderboard.Broadcaster
	snapshotWorker *leaderboard.SnapshotWorker
	bgCancels      []context.CancelFunc
}

// New bootstraps config, logger, Postgres, Redis and all game services.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	queries := db.New(pool)
	userRepo := repository.NewUserRepository(queries)
	matchRepo := repository.NewMatchRepository(queries)

	refreshSecret := cfg.Security.JWTRefreshSecret
	if refreshSecret == "" {
		refreshSecret = cfg.Security.JWTSecret + "_refresh"
	}
	authSvc := auth.NewService(userRepo, auth.ServiceOptions{
		TokenConfig: jwt.TokenConfig{
			AccessSecret:  []byte(cfg.Security.JWTSecret),
			RefreshSecret: []byte(refreshSecret),
			AccessTTL:     cfg.Security.AccessTokenTTL,
			RefreshTTL:    cfg.Security.RefreshTokenTTL,
			Issuer:        cfg.Name,
		},
	}, logger)
	authHandlers := auth.NewHTTPHandlers(authSvc, logger)

	generator := puzzle.NewGenerator(cfg.Puzzle.MaxGenerateAttempts)
	puzzlePool := puzzle.NewPool(redisClient, generator, cfg.Puzzle.PoolSize, logger)
	prefillWorker := puzzle.NewPrefillWorker(puzzlePool, cfg.Puzzle.PoolRefillInterval, logger)

	ratingEngine := rating.NewEngine(userRepo, matchRepo, rating.Config{
		KFactor:       cfg.Game.EloKFactor,
		InitialRating: rating.DefaultConfig().InitialRating,
	}, logger)

	leaderboardSvc := leaderboard.NewService(redisClient, logger, leaderboard.ServiceOptions{
		TopN: cfg.Leaderboard.SnapshotTopN,
	})

	stateMgr := match.NewStateManager(redisClient, logger)
	queueMgr := matchqueue.NewManager(logger)
	wsHub := ws.NewHub(logger)

	matchSvc := match.NewService(
		matchRepo,
		userRepo,
		puzzlePool,
		stateMgr,
		queueMgr,
		ratingEngine,
		leaderboardSvc,
		wsHub,
		cfg.Game,
		logger,
	)

	matchWSHandler := match.NewHandler(matchSvc, wsHub, authSvc, logger)
	matchHTTPHandlers := match.NewHTTPHandlers(matchSvc, logger)
	lbBroadcaster := leaderboard.NewBroadcaster(redisClient, wsHub, "", logger)
	lbHTTPHandler := leaderboard.NewHTTPHandler(leaderboardSvc, userRepo, logger)

	var snapshotWorker *leaderboard.SnapshotWorker
	if interval := cfg.Leaderboard.SnapshotInterval; interval > 0 {
		snapshotWorker = leaderboard.NewSnapshotWorker(
			leaderboardSvc,
			queries,
			interval,
			cfg.Leaderboard.SnapshotTopN,
			logger,
		)
	}

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, authSvc, server.Handlers{
		Auth:        authHandlers,
		Match:       matchHTTPHandlers,
		MatchWS:     matchWSHandler.HandleWebSocket,
		Leaderboard: lbHTTPHandler,
	})

	return &Application{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		redis:          redisClient,
		http:           apiServer,
		queries:        queries,
		userRepo:       userRepo,
		leaderboardSvc: leaderboardSvc,
		prefillWorker:  prefillWorker,
		lbBroadcaster:  lbBroadcaster,
		snapshotWorker: snapshotWorker,
		bgCancels:      make([]context.CancelFunc, 0, 3),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.seedLeaderboard(ctx)
	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	for _, cancel := range a.bgCancels {
		cancel()
	}

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}

// seedLeaderboard warms the Redis leaderboard from Postgres so rankings
// survive a cache flush.
func (a *Application) seedLeaderboard(ctx context.Context) {
	topN := a.cfg.Leaderboard.SnapshotTopN
	users, err := a.userRepo.TopByRating(ctx, int32(topN))
	if err != nil {
		a.logger.Warn().Err(err).Msg("leaderboard seed query failed")
		return
	}
	if err := a.leaderboardSvc.Seed(ctx, users); err != nil {
		a.logger.Warn().Err(err).Msg("leaderboard seed failed")
	}
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	run := func(name string, fn func(context.Context) error) {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		go func() {
			if err := fn(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Str("worker", name).Msg("background worker stopped")
			}
		}()
	}

	if a.prefillWorker != nil {
		run("puzzle_prefill", a.prefillWorker.Run)
	}
	if a.lbBroadcaster != nil {
		run("leaderboard_broadcaster", a.lbBroadcaster.Run)
	}
	if a.snapshotWorker != nil {
		run("leaderboard_snapshot", a.snapshotWorker.Run)
	}
}
