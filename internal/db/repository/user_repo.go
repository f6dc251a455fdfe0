package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hectoclash/hectoclash/internal/db"
)

type userStore interface {
	CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error)
	GetUserByID(ctx context.Context, id pgtype.UUID) (db.User, error)
	GetUserByEmail(ctx context.Context, email string) (db.User, error)
	GetUserByUsername(ctx context.Context, username string) (db.User, error)
	ApplyUserMatchResult(ctx context.Context, arg db.ApplyUserMatchResultParams) (db.User, error)
	InsertRatingSample(ctx context.Context, arg db.InsertRatingSampleParams) error
	ListRatingHistory(ctx context.Context, userID pgtype.UUID, limit int32) ([]db.RatingSample, error)
	ListTopUsersByRating(ctx context.Context, limit int32) ([]db.User, error)
}

// UserRepository exposes typed DB operations for accounts and ratings.
type UserRepository struct {
	store userStore
}

// NewUserRepository wraps the query layer for user-specific operations.
func NewUserRepository(store userStore) *UserRepository {
	return &UserRepository{store: store}
}

// Create inserts a registered account with default rating.
func (r *UserRepository) Create(ctx context.Context, params db.CreateUserParams) (db.User, error) {
	return r.store.CreateUser(ctx, params)
}

// GetByID fetches a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID) (db.User, error) {
	return r.store.GetUserByID(ctx, db.UUID(userID))
}

// GetByEmail fetches a user by email if present.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (db.User, error) {
	return r.store.GetUserByEmail(ctx, email)
}

// GetByUsername fetches a user by username if present.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (db.User, error) {
	return r.store.GetUserByUsername(ctx, username)
}

// ApplyMatchResult atomically applies one side's post-match stats and appends
// the rating history sample.
func (r *UserRepository) ApplyMatchResult(ctx context.Context, params db.ApplyUserMatchResultParams) (db.User, error) {
	user, err := r.store.ApplyUserMatchResult(ctx, params)
	if err != nil {
		return db.User{}, err
	}
	if err := r.store.InsertRatingSample(ctx, db.InsertRatingSampleParams{
		UserID: params.UserID,
		Rating: params.Rating,
	}); err != nil {
		return db.User{}, err
	}
	return user, nil
}

// RatingHistory returns the most recent rating samples, newest first.
func (r *UserRepository) RatingHistory(ctx context.Context, userID uuid.UUID, limit int32) ([]db.RatingSample, error) {
	return r.store.ListRatingHistory(ctx, db.UUID(userID), limit)
}

// TopByRating returns the highest rated users for leaderboard seeding.
func (r *UserRepository) TopByRating(ctx context.Context, limit int32) ([]db.User, error) {
	return r.store.ListTopUsersByRating(ctx, limit)
}
