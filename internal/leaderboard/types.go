// internal/leaderboard/types.go
//
// Leaderboard contract shared by the SQLite and Redis backends.
// Defines:
//   - Submission / Entry: what a finished session reports and how it is listed.
//   - Result: rank feedback for a fresh submission.
//   - Store: persistence + ranking queries.
//
// Ranking:
//   - Higher score is better; rank = 1 + number of strictly higher scores.
//   - Daily submissions rank against the same date only.
//   - A player gets one daily attempt per UTC date (ErrAlreadyAttempted).
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/robalobadob/fallphabet/internal/daily"
	"github.com/robalobadob/fallphabet/internal/game"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

var (
	// ErrAlreadyAttempted is returned for a second daily submission.
	ErrAlreadyAttempted = errors.New("leaderboard: daily challenge already attempted")
	// ErrInvalid is returned for submissions missing required fields.
	ErrInvalid = errors.New("leaderboard: invalid submission")
)

// Submission is one finished session.
type Submission struct {
	SessionID       string    `json:"sessionId"`
	Player          string    `json:"player"`
	Mode            game.Mode `json:"mode"`
	Score           int       `json:"score"`
	WordsUsed       int       `json:"wordsUsed"`
	TopWord         string    `json:"topWord,omitempty"`
	TopWordScore    int       `json:"topWordScore"`
	MaxChain        int       `json:"maxChain"`
	DurationSeconds int       `json:"durationSeconds"`
	Date            string    `json:"date"` // YYYY-MM-DD (UTC)
}

// Entry is a stored submission as listed on a board.
type Entry struct {
	Submission
	Rank      int       `json:"rank,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Result is returned by Submit.
type Result struct {
	Entry             Entry `json:"entry"`
	Rank              int   `json:"rank"`
	TotalParticipants int   `json:"totalParticipants"`
}

// Store persists submissions and answers ranking queries.
type Store interface {
	Submit(ctx context.Context, s Submission) (Result, error)
	// Top lists the best entries of mode across all dates.
	Top(ctx context.Context, mode game.Mode, limit int) ([]Entry, error)
	// Daily lists the daily-challenge entries of date.
	Daily(ctx context.Context, date string, limit int) ([]Entry, error)
	PlayerBest(ctx context.Context, player string, mode game.Mode) (Entry, bool, error)
	// Rank returns 1 + the number of mode entries scoring above score.
	Rank(ctx context.Context, score int, mode game.Mode) (int, error)
	HasDailyAttempt(ctx context.Context, player, date string) (bool, error)
	DailyScore(ctx context.Context, player, date string) (int, bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// FromSummary turns a finished session into a Submission dated by its end.
func FromSummary(sum game.Summary) Submission {
	end := sum.EndedAt
	if end.IsZero() {
		end = time.Now()
	}
	return Submission{
		SessionID:       sum.SessionID,
		Player:          sum.Player,
		Mode:            sum.Mode,
		Score:           sum.Score,
		WordsUsed:       sum.WordsUsed,
		TopWord:         sum.TopWord,
		TopWordScore:    sum.TopWordScore,
		MaxChain:        sum.MaxChain,
		DurationSeconds: int(math.Round(sum.Duration.Seconds())),
		Date:            daily.DateKey(end),
	}
}

// Validate normalizes s and checks required fields.
func (s *Submission) Validate() error {
	s.Player = strings.TrimSpace(s.Player)
	switch {
	case s.SessionID == "":
		return fmt.Errorf("%w: session id is required", ErrInvalid)
	case s.Player == "":
		return fmt.Errorf("%w: player is required", ErrInvalid)
	case !s.Mode.Valid():
		return fmt.Errorf("%w: unknown mode %q", ErrInvalid, s.Mode)
	case s.Score < 0:
		return fmt.Errorf("%w: negative score", ErrInvalid)
	}
	if _, err := daily.ParseDate(s.Date); err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalid, s.Date)
	}
	if s.MaxChain < 1 {
		s.MaxChain = 1
	}
	return nil
}

// NormalizeLimit applies the default and the cap.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func playerKey(player string) string { return strings.ToLower(strings.TrimSpace(player)) }
