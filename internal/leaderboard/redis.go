// internal/leaderboard/redis.go
//
// Redis-backed Store.
//
// Key layout (prefix defaults to "fallphabet:"):
//   - entry:<session>                 JSON Entry
//   - board:<mode>                    ZSET member -> score (all time)
//   - daily:<date>                    ZSET member -> score (daily challenge)
//   - player:<mode>:<player>          ZSET member -> score (per-player best)
//   - attempt:<date>:<player>         daily score; SETNX is the attempt guard
//
// Members are "<age>:<session>", where age counts down with submission time.
// ZSETs order equal scores by member, so under ZREVRANGE the earlier
// submission of a tie lists first, as on the SQLite board.
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/fallphabet/internal/game"
)

const (
	DefaultPrefix = "fallphabet:"
	// AttemptTTL keeps daily attempt markers a little past their date.
	AttemptTTL = 8 * 24 * time.Hour
)

// RedisOptions configures Connect.
type RedisOptions struct {
	Host       string
	Port       string
	Password   string
	MaxRetries int
}

// Connect dials Redis and pings it with exponential backoff.
func Connect(ctx context.Context, o RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         o.Host + ":" + o.Port,
		Password:     o.Password,
		DB:           0,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	retries := o.MaxRetries
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(retries)), ctx)
	err := backoff.Retry(func() error {
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", o.Host+":"+o.Port).Msg("redis ping failed, retrying")
			return err
		}
		return nil
	}, policy)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s:%s: %w", o.Host, o.Port, err)
	}
	log.Info().Str("addr", o.Host+":"+o.Port).Msg("redis connected")
	return client, nil
}

// RedisStore implements Store on sorted sets.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis wraps a connected client. An empty prefix means DefaultPrefix.
func NewRedis(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) entryKey(id string) string { return s.prefix + "entry:" + id }
func (s *RedisStore) boardKey(m game.Mode) string { return s.prefix + "board:" + string(m) }
func (s *RedisStore) dailyKey(date string) string { return s.prefix + "daily:" + date }
func (s *RedisStore) playerBoardKey(p string, m game.Mode) string {
	return s.prefix + "player:" + string(m) + ":" + playerKey(p)
}
func (s *RedisStore) attemptKey(p, date string) string {
	return s.prefix + "attempt:" + date + ":" + playerKey(p)
}

// member is the ZSET member for a session submitted at t.
func member(session string, t time.Time) string {
	return fmt.Sprintf("%019d:%s", math.MaxInt64-t.UnixNano(), session)
}

func sessionOf(m string) string {
	_, id, ok := strings.Cut(m, ":")
	if !ok {
		return m
	}
	return id
}

func (s *RedisStore) Submit(ctx context.Context, sub Submission) (Result, error) {
	if err := sub.Validate(); err != nil {
		return Result{}, err
	}
	if sub.Mode == game.ModeDaily {
		ok, err := s.client.SetNX(ctx, s.attemptKey(sub.Player, sub.Date), sub.Score, AttemptTTL).Result()
		if err != nil {
			return Result{}, fmt.Errorf("claim daily attempt: %w", err)
		}
		if !ok {
			return Result{}, ErrAlreadyAttempted
		}
	}

	e := Entry{Submission: sub, CreatedAt: time.Now().UTC()}
	data, err := json.Marshal(e)
	if err != nil {
		return Result{}, fmt.Errorf("marshal entry: %w", err)
	}
	board := s.boardKey(sub.Mode)
	if sub.Mode == game.ModeDaily {
		board = s.dailyKey(sub.Date)
	}
	z := &redis.Z{Score: float64(sub.Score), Member: member(sub.SessionID, e.CreatedAt)}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.entryKey(sub.SessionID), data, 0)
		p.ZAdd(ctx, s.boardKey(sub.Mode), z)
		p.ZAdd(ctx, s.playerBoardKey(sub.Player, sub.Mode), z)
		if sub.Mode == game.ModeDaily {
			p.ZAdd(ctx, s.dailyKey(sub.Date), z)
		}
		return nil
	})
	if err != nil {
		if sub.Mode == game.ModeDaily {
			// give the attempt back: nothing was recorded
			if derr := s.client.Del(ctx, s.attemptKey(sub.Player, sub.Date)).Err(); derr != nil {
				log.Error().Err(derr).Str("player", sub.Player).Str("date", sub.Date).Msg("release daily attempt")
			}
		}
		return Result{}, fmt.Errorf("store entry: %w", err)
	}

	higher, err := s.client.ZCount(ctx, board, "("+strconv.Itoa(sub.Score), "+inf").Result()
	if err != nil {
		return Result{}, fmt.Errorf("rank entry: %w", err)
	}
	total, err := s.client.ZCard(ctx, board).Result()
	if err != nil {
		return Result{}, fmt.Errorf("count board: %w", err)
	}
	e.Rank = int(higher) + 1
	return Result{Entry: e, Rank: e.Rank, TotalParticipants: int(total)}, nil
}

func (s *RedisStore) Top(ctx context.Context, mode game.Mode, limit int) ([]Entry, error) {
	return s.list(ctx, s.boardKey(mode), limit)
}

func (s *RedisStore) Daily(ctx context.Context, date string, limit int) ([]Entry, error) {
	return s.list(ctx, s.dailyKey(date), limit)
}

func (s *RedisStore) list(ctx context.Context, board string, limit int) ([]Entry, error) {
	limit = NormalizeLimit(limit)
	ids, err := s.client.ZRevRange(ctx, board, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	entries, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// load fetches entries in board order, skipping any that vanished.
func (s *RedisStore) load(ctx context.Context, members []string) ([]Entry, error) {
	out := make([]Entry, 0, len(members))
	if len(members) == 0 {
		return out, nil
	}
	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = s.entryKey(sessionOf(m))
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *RedisStore) PlayerBest(ctx context.Context, player string, mode game.Mode) (Entry, bool, error) {
	ids, err := s.client.ZRevRange(ctx, s.playerBoardKey(player, mode), 0, 0).Result()
	if err != nil {
		return Entry{}, false, err
	}
	entries, err := s.load(ctx, ids)
	if err != nil || len(entries) == 0 {
		return Entry{}, false, err
	}
	return entries[0], true, nil
}

func (s *RedisStore) Rank(ctx context.Context, score int, mode game.Mode) (int, error) {
	higher, err := s.client.ZCount(ctx, s.boardKey(mode), "("+strconv.Itoa(score), "+inf").Result()
	if err != nil {
		return 0, err
	}
	return int(higher) + 1, nil
}

func (s *RedisStore) HasDailyAttempt(ctx context.Context, player, date string) (bool, error) {
	n, err := s.client.Exists(ctx, s.attemptKey(player, date)).Result()
	return n > 0, err
}

func (s *RedisStore) DailyScore(ctx context.Context, player, date string) (int, bool, error) {
	n, err := s.client.Get(ctx, s.attemptKey(player, date)).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

func (s *RedisStore) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *RedisStore) Close() error { return s.client.Close() }
