package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/hectoclash/hectoclash/internal/auth/jwt"
	"github.com/hectoclash/hectoclash/internal/db"
	"github.com/hectoclash/hectoclash/internal/db/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrPasswordMismatch   = errors.New("passwords do not match")
)

// Service handles registration, login and token validation.
type Service struct {
	userRepo *repository.UserRepository
	tokenMgr *jwt.Manager
	logger   zerolog.Logger
}

// ServiceOptions configures the auth service.
type ServiceOptions struct {
	TokenConfig jwt.TokenConfig
}

// NewService creates an authentication service.
func NewService(userRepo *repository.UserRepository, opts ServiceOptions, logger zerolog.Logger) *Service {
	return &Service{
		userRepo: userRepo,
		tokenMgr: jwt.NewManager(opts.TokenConfig),
		logger:   logger,
	}
}

// Register creates a new account with the default rating.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, *TokenPair, error) {
	if req.Email == "" || req.Username == "" {
		return nil, nil, fmt.Errorf("email and username required")
	}
	if req.Password != req.ConfirmPassword {
		return nil, nil, ErrPasswordMismatch
	}

	if _, err := s.userRepo.GetByEmail(ctx, req.Email); err == nil {
		return nil, nil, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, fmt.Errorf("check email: %w", err)
	}
	if _, err := s.userRepo.GetByUsername(ctx, req.Username); err == nil {
		return nil, nil, ErrUsernameTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, fmt.Errorf("check username: %w", err)
	}

	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	dbUser, err := s.userRepo.Create(ctx, db.CreateUserParams{
		ID:           db.UUID(uuid.New()),
		Name:         req.Name,
		Username:     req.Username,
		Email:        strings.ToLower(req.Email),
		PasswordHash: passwordHash,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	user := toAuthUser(dbUser)
	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Str("username", user.Username).Msg("user registered")
	return &user, tokens, nil
}

// Login authenticates with an email or username plus password.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*User, *TokenPair, error) {
	dbUser, err := s.findByIdentifier(ctx, req.Identifier)
	if err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	if dbUser.PasswordHash == "" || VerifyPassword(dbUser.PasswordHash, req.Password) != nil {
		return nil, nil, ErrInvalidCredentials
	}

	user := toAuthUser(dbUser)
	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("user logged in")
	return &user, tokens, nil
}

// RefreshToken generates a new token pair from a refresh token.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenMgr.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	dbUser, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("user not found")
	}

	return s.generateTokenPair(toAuthUser(dbUser))
}

// ValidateToken validates an access token and returns user claims.
func (s *Service) ValidateToken(tokenString string) (*jwt.Claims, error) {
	return s.tokenMgr.ValidateAccessToken(tokenString)
}

// GetUser loads the account behind a set of claims.
func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (db.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// RatingHistory returns a user's recent rating samples, newest first.
func (s *Service) RatingHistory(ctx context.Context, userID uuid.UUID, limit int32) ([]db.RatingSample, error) {
	return s.userRepo.RatingHistory(ctx, userID, limit)
}

func (s *Service) findByIdentifier(ctx context.Context, identifier string) (db.User, error) {
	if strings.Contains(identifier, "@") {
		return s.userRepo.GetByEmail(ctx, strings.ToLower(identifier))
	}
	return s.userRepo.GetByUsername(ctx, identifier)
}

func toAuthUser(u db.User) User {
	return User{
		ID:       db.FromUUID(u.ID),
		Name:     u.Name,
		Username: u.Username,
		Email:    u.Email,
		Rating:   int(u.Rating),
	}
}

func (s *Service) generateTokenPair(user User) (*TokenPair, error) {
	jwtUser := jwt.User{
		ID:       user.ID,
		Username: user.Username,
		Name:     user.Name,
		Email:    user.Email,
	}

	accessToken, err := s.tokenMgr.GenerateAccessToken(jwtUser)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokenMgr.GenerateRefreshToken(jwtUser)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokenMgr.AccessTTL().Seconds()),
	}, nil
}
