package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `id, name, username, email, password_hash, rating, highest_rating,
	games_played, wins, losses, current_streak, last_played_at, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Name, &u.Username, &u.Email, &u.PasswordHash,
		&u.Rating, &u.HighestRating, &u.GamesPlayed, &u.Wins, &u.Losses,
		&u.CurrentStreak, &u.LastPlayedAt, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// CreateUserParams holds the fields required to register an account.
type CreateUserParams struct {
	ID           pgtype.UUID
	Name         string
	Username     string
	Email        string
	PasswordHash string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO users (id, name, username, email, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+userColumns,
		arg.ID, arg.Name, arg.Username, arg.Email, arg.PasswordHash,
	)
	return scanUser(row)
}

func (q *Queries) GetUserByID(ctx context.Context, id pgtype.UUID) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
	return scanUser(row)
}

// ApplyUserMatchResultParams carries one side of a finished match: the
// already-computed new rating and streak plus the win/loss increments.
type ApplyUserMatchResultParams struct {
	UserID        pgtype.UUID
	Rating        int32
	CurrentStreak int32
	WinsDelta     int32
	LossesDelta   int32
	LastPlayedAt  pgtype.Timestamptz
}

// ApplyUserMatchResult updates one player's stats in a single atomic
// statement and returns the updated row.
func (q *Queries) ApplyUserMatchResult(ctx context.Context, arg ApplyUserMatchResultParams) (User, error) {
	row := q.db.QueryRow(ctx, `
		UPDATE users SET
			rating = $2,
			highest_rating = GREATEST(highest_rating, $2),
			games_played = games_played + 1,
			wins = wins + $3,
			losses = losses + $4,
			current_streak = $5,
			last_played_at = $6,
			updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		arg.UserID, arg.Rating, arg.WinsDelta, arg.LossesDelta, arg.CurrentStreak, arg.LastPlayedAt,
	)
	return scanUser(row)
}

// InsertRatingSampleParams appends one point to a user's rating history.
type InsertRatingSampleParams struct {
	UserID pgtype.UUID
	Rating int32
}

func (q *Queries) InsertRatingSample(ctx context.Context, arg InsertRatingSampleParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO rating_history (user_id, rating) VALUES ($1, $2)`,
		arg.UserID, arg.Rating,
	)
	return err
}

func (q *Queries) ListRatingHistory(ctx context.Context, userID pgtype.UUID, limit int32) ([]RatingSample, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, user_id, rating, recorded_at
		FROM rating_history
		WHERE user_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []RatingSample
	for rows.Next() {
		var s RatingSample
		if err := rows.Scan(&s.ID, &s.UserID, &s.Rating, &s.RecordedAt); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

func (q *Queries) ListTopUsersByRating(ctx context.Context, limit int32) ([]User, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY rating DESC, username ASC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
