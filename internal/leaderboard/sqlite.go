// internal/leaderboard/sqlite.go
//
// SQLite-backed Store. Tables come from store.Migrate:
//   - leaderboard:    one row per finished session
//   - daily_attempts: UNIQUE(player, date), the one-attempt-per-day guard
package leaderboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robalobadob/fallphabet/internal/game"
)

const entryColumns = `session_id, player, mode, score, words_used, top_word, top_word_score,
	max_chain, duration_s, date, created_at`

// fixed-width so created_at sorts lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store on database/sql.
type SQLiteStore struct{ db *sql.DB }

// NewSQLite wraps a migrated database.
func NewSQLite(db *sql.DB) *SQLiteStore { return &SQLiteStore{db: db} }

// Submit records s. Daily submissions claim the player's attempt for the date
// in the same transaction.
func (s *SQLiteStore) Submit(ctx context.Context, sub Submission) (Result, error) {
	if err := sub.Validate(); err != nil {
		return Result{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if sub.Mode == game.ModeDaily {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO daily_attempts (player, date, score) VALUES (?, ?, ?)`,
			playerKey(sub.Player), sub.Date, sub.Score)
		if err != nil {
			return Result{}, fmt.Errorf("claim daily attempt: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return Result{}, ErrAlreadyAttempted
		}
	}

	created := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO leaderboard
			(session_id, player, mode, score, words_used, top_word, top_word_score,
			 max_chain, duration_s, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.SessionID, sub.Player, string(sub.Mode), sub.Score, sub.WordsUsed, sub.TopWord,
		sub.TopWordScore, sub.MaxChain, sub.DurationSeconds, sub.Date, created.Format(timeLayout),
	); err != nil {
		return Result{}, fmt.Errorf("insert entry: %w", err)
	}

	// rank among the same board: the mode, narrowed to the date for daily
	scope, args := `mode=?`, []any{string(sub.Mode)}
	if sub.Mode == game.ModeDaily {
		scope, args = `mode=? AND date=?`, []any{string(sub.Mode), sub.Date}
	}
	var higher, total int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(CASE WHEN score > ? THEN 1 END), COUNT(1) FROM leaderboard WHERE `+scope,
		append([]any{sub.Score}, args...)...,
	).Scan(&higher, &total); err != nil {
		return Result{}, fmt.Errorf("rank entry: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Result{}, err
	}

	rank := higher + 1
	return Result{
		Entry:             Entry{Submission: sub, Rank: rank, CreatedAt: created},
		Rank:              rank,
		TotalParticipants: total,
	}, nil
}

// Top orders by score, earliest first on ties.
func (s *SQLiteStore) Top(ctx context.Context, mode game.Mode, limit int) ([]Entry, error) {
	return s.list(ctx, `WHERE mode=?`, []any{string(mode)}, limit)
}

func (s *SQLiteStore) Daily(ctx context.Context, date string, limit int) ([]Entry, error) {
	return s.list(ctx, `WHERE mode=? AND date=?`, []any{string(game.ModeDaily), date}, limit)
}

func (s *SQLiteStore) list(ctx context.Context, where string, args []any, limit int) ([]Entry, error) {
	limit = NormalizeLimit(limit)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM leaderboard `+where+`
		 ORDER BY score DESC, created_at ASC, id ASC LIMIT ?`,
		append(args, limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) PlayerBest(ctx context.Context, player string, mode game.Mode) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM leaderboard
		 WHERE lower(player)=? AND mode=?
		 ORDER BY score DESC, created_at ASC LIMIT 1`,
		playerKey(player), string(mode))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (s *SQLiteStore) Rank(ctx context.Context, score int, mode game.Mode) (int, error) {
	var higher int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM leaderboard WHERE mode=? AND score > ?`, string(mode), score,
	).Scan(&higher)
	return higher + 1, err
}

func (s *SQLiteStore) HasDailyAttempt(ctx context.Context, player, date string) (bool, error) {
	_, ok, err := s.DailyScore(ctx, player, date)
	return ok, err
}

func (s *SQLiteStore) DailyScore(ctx context.Context, player, date string) (int, bool, error) {
	var score int
	err := s.db.QueryRowContext(ctx,
		`SELECT score FROM daily_attempts WHERE player=? AND date=?`, playerKey(player), date,
	).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return score, true, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) Close() error { return s.db.Close() }

type scanner interface{ Scan(dest ...any) error }

func scanEntry(sc scanner) (Entry, error) {
	var e Entry
	var mode, created string
	if err := sc.Scan(&e.SessionID, &e.Player, &mode, &e.Score, &e.WordsUsed, &e.TopWord,
		&e.TopWordScore, &e.MaxChain, &e.DurationSeconds, &e.Date, &created); err != nil {
		return Entry{}, err
	}
	e.Mode = game.Mode(mode)
	e.CreatedAt, _ = time.Parse(timeLayout, created)
	return e, nil
}
