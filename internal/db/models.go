package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// User mirrors the users table.
type User struct {
	ID            pgtype.UUID
	Name          string
	Username      string
	Email         string
	PasswordHash  string
	Rating        int32
	HighestRating int32
	GamesPlayed   int32
	Wins          int32
	Losses        int32
	CurrentStreak int32
	LastPlayedAt  pgtype.Timestamptz
	CreatedAt     pgtype.Timestamptz
	UpdatedAt     pgtype.Timestamptz
}

// Match mirrors the matches table. WinnerID NULL encodes both an undecided
// match and a draw; status disambiguates.
type Match struct {
	ID                pgtype.UUID
	Player1ID         pgtype.UUID
	Player2ID         pgtype.UUID
	Problem           string
	Status            string
	WinnerID          pgtype.UUID
	WinningExpression pgtype.Text
	StartedAt         pgtype.Timestamptz
	EndedAt           pgtype.Timestamptz
	CreatedAt         pgtype.Timestamptz
	UpdatedAt         pgtype.Timestamptz
}

// RatingSample is one point of a user's append-only rating history.
type RatingSample struct {
	ID         int64
	UserID     pgtype.UUID
	Rating     int32
	RecordedAt pgtype.Timestamptz
}

// LeaderboardRow is a persisted snapshot entry.
type LeaderboardRow struct {
	Rank       int32
	UserID     pgtype.UUID
	Username   string
	Rating     int32
	CapturedAt pgtype.Timestamptz
}
