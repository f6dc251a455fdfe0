package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const matchColumns = `id, player1_id, player2_id, problem, status, winner_id,
	winning_expression, started_at, ended_at, created_at, updated_at`

func scanMatch(row pgx.Row) (Match, error) {
	var m Match
	err := row.Scan(
		&m.ID, &m.Player1ID, &m.Player2ID, &m.Problem, &m.Status,
		&m.WinnerID, &m.WinningExpression, &m.StartedAt, &m.EndedAt,
		&m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

// CreateMatchParams persists a freshly paired match in status pending.
type CreateMatchParams struct {
	ID        pgtype.UUID
	Player1ID pgtype.UUID
	Player2ID pgtype.UUID
	Problem   string
	Status    string
}

func (q *Queries) CreateMatch(ctx context.Context, arg CreateMatchParams) (Match, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO matches (id, player1_id, player2_id, problem, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+matchColumns,
		arg.ID, arg.Player1ID, arg.Player2ID, arg.Problem, arg.Status,
	)
	return scanMatch(row)
}

// StartMatchIfPending flips pending -> started; reports whether this call won
// the transition.
func (q *Queries) StartMatchIfPending(ctx context.Context, id pgtype.UUID, startedAt pgtype.Timestamptz) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE matches SET status = 'started', started_at = $2, updated_at = now()
		WHERE id = $1 AND status = 'pending'`,
		id, startedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// FinishMatchParams is the write-once finishing patch.
type FinishMatchParams struct {
	ID                pgtype.UUID
	WinnerID          pgtype.UUID
	WinningExpression pgtype.Text
	EndedAt           pgtype.Timestamptz
}

// FinishMatchIfStarted is the compare-and-set that serializes the winning
// submission race: only the caller that observes status 'started' and flips
// it gets true. Winner and end time are immutable afterwards.
func (q *Queries) FinishMatchIfStarted(ctx context.Context, arg FinishMatchParams) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE matches SET
			status = 'finished',
			winner_id = $2,
			winning_expression = $3,
			ended_at = $4,
			updated_at = now()
		WHERE id = $1 AND status = 'started'`,
		arg.ID, arg.WinnerID, arg.WinningExpression, arg.EndedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// VoidMatchIfUnfinished finishes a match with no winner from either the
// pending or started state. Used when a player disconnects mid-game.
func (q *Queries) VoidMatchIfUnfinished(ctx context.Context, id pgtype.UUID, endedAt pgtype.Timestamptz) (bool, error) {
	tag, err := q.db.Exec(ctx, `
		UPDATE matches SET status = 'finished', ended_at = $2, updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'started')`,
		id, endedAt,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (q *Queries) GetMatch(ctx context.Context, id pgtype.UUID) (Match, error) {
	row := q.db.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	return scanMatch(row)
}

func (q *Queries) ListMatchesByUser(ctx context.Context, userID pgtype.UUID, limit int32) ([]Match, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE player1_id = $1 OR player2_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// ListLiveMatches returns matches currently in play, newest first. Backs the
// spectator listing.
func (q *Queries) ListLiveMatches(ctx context.Context, limit int32) ([]Match, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+matchColumns+`
		FROM matches
		WHERE status = 'started'
		ORDER BY started_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// UpsertLeaderboardSnapshotParams mirrors one rank of the redis leaderboard
// into Postgres.
type UpsertLeaderboardSnapshotParams struct {
	Rank     int32
	UserID   pgtype.UUID
	Username string
	Rating   int32
}

func (q *Queries) UpsertLeaderboardSnapshot(ctx context.Context, arg UpsertLeaderboardSnapshotParams) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO leaderboard_snapshots (rank, user_id, username, rating, captured_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (rank) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			username = EXCLUDED.username,
			rating = EXCLUDED.rating,
			captured_at = EXCLUDED.captured_at`,
		arg.Rank, arg.UserID, arg.Username, arg.Rating,
	)
	return err
}
