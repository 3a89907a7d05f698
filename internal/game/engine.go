// internal/game/engine.go
//
// Orchestrator for a single Fallphabet session.
// Responsibilities:
//   - Build the letter pool, spawner, chain tracker and score manager from Config.
//   - Tick: spawn/expire tiles, apply the missed-tile policy, poll chain timeout.
//   - Submit: catch up to now → validate → score at the current chain level →
//     advance chain → claim tiles → notify listeners and host.
//   - End: freeze the session and produce the leaderboard Summary.
//
// Notes:
//   - The multiplier for a word is the chain level *before* that word counts,
//     so the first word of a streak always scores x1.
//   - Submit first catches up to the clock like a Tick. Past that, a rejected
//     submission never mutates score, chain or tiles.
//   - A Session is single-writer: callers serialize Tick/Submit/End.
package game

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/fallphabet/internal/chain"
	"github.com/robalobadob/fallphabet/internal/clock"
	"github.com/robalobadob/fallphabet/internal/letters"
	"github.com/robalobadob/fallphabet/internal/score"
	"github.com/robalobadob/fallphabet/internal/spawner"
)

// ErrNoValidator is returned by New when no dictionary is supplied.
var ErrNoValidator = errors.New("game: validator is required")

// Options are the collaborators and settings of a new Session.
// Validator and Random are required; Config should start from DefaultConfig.
// A nil Host or Clock falls back to NopHost and the system clock.
type Options struct {
	ID        string
	Player    string
	Mode      Mode
	Config    Config
	Validator Validator
	Host      Host
	Clock     clock.Clock
	Random    letters.Random
	Listeners []Listener
}

// Session is one play-through from start to End.
type Session struct {
	id        string
	player    string
	mode      Mode
	cfg       Config
	validator Validator
	host      Host
	clock     clock.Clock
	listeners []Listener

	pool    *letters.Pool
	spawner *spawner.Spawner
	chain   *chain.Tracker
	score   *score.Manager

	wordsUsed    int
	topWord      string
	topWordScore int
	startedAt    time.Time
	endedAt      time.Time
	over         bool
	flashSeq     int
}

// TickResult reports what one Tick changed.
type TickResult struct {
	Spawned    []spawner.Tile
	Expired    []spawner.Tile
	Missed     int  // expired tiles counted against the chain
	ChainReset bool // chain dropped to 1 this tick
}

// New wires a Session and starts its clock. Configuration errors are fatal.
func New(opts Options) (*Session, error) {
	if opts.Validator == nil {
		return nil, ErrNoValidator
	}
	cfg := opts.Config
	if cfg.MissPolicy == "" {
		cfg.MissPolicy = MissWhileChained
	}
	if !cfg.MissPolicy.Valid() {
		return nil, fmt.Errorf("game: unknown miss policy %q", cfg.MissPolicy)
	}
	if cfg.FlashDuration <= 0 {
		cfg.FlashDuration = DefaultConfig().FlashDuration
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeTaptile
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("game: unknown mode %q", mode)
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}
	host := opts.Host
	if host == nil {
		host = NopHost{}
	}
	rng := opts.Random
	if rng == nil {
		return nil, fmt.Errorf("game: random source is required")
	}

	pool, err := letters.NewPool(cfg.Frequencies)
	if err != nil {
		return nil, fmt.Errorf("letter pool: %w", err)
	}
	now := clk.Now()
	sp, err := spawner.New(cfg.Spawner, pool, rng, now)
	if err != nil {
		return nil, err
	}
	tr, err := chain.New(cfg.Chain, clk)
	if err != nil {
		return nil, err
	}

	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	s := &Session{
		id:        id,
		player:    opts.Player,
		mode:      mode,
		cfg:       cfg,
		validator: opts.Validator,
		host:      host,
		clock:     clk,
		listeners: opts.Listeners,
		pool:      pool,
		spawner:   sp,
		chain:     tr,
		score:     score.New(),
		startedAt: now,
	}
	s.host.RequestWordInput()
	return s, nil
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Player() string       { return s.player }
func (s *Session) Mode() Mode           { return s.mode }
func (s *Session) Config() Config       { return s.cfg }
func (s *Session) StartedAt() time.Time { return s.startedAt }
func (s *Session) Over() bool           { return s.over }

// Tick runs one frame of game logic at the session clock's current time.
func (s *Session) Tick() TickResult {
	if s.over {
		return TickResult{}
	}
	return s.advance()
}

// advance brings tiles and the chain up to the clock's current time.
func (s *Session) advance() TickResult {
	now := s.clock.Now()
	spawned, expired := s.spawner.Update(now)

	res := TickResult{Spawned: spawned, Expired: expired}
	for _, t := range spawned {
		s.host.RenderTile(t)
	}
	for _, t := range expired {
		s.host.RemoveTile(t)
		if s.cfg.MissPolicy == MissWhileChained && s.chain.Level() <= 1 {
			continue
		}
		res.Missed++
		if s.chain.AddMissedTile() {
			res.ChainReset = true
		}
	}
	if s.chain.Update(now) {
		res.ChainReset = true
	}
	return res
}

// Submit routes a word submission through validation, scoring and the chain.
// The returned error is non-nil only for a finished session; every player
// mistake is reported as a rejected Outcome.
func (s *Session) Submit(sub Submission) (Outcome, error) {
	if s.over {
		return Outcome{}, ErrSessionOver
	}
	// callers may not have ticked since the last frame
	caught := s.advance()

	word := strings.ToUpper(strings.TrimSpace(sub.Word))
	if word == "" || len(sub.Tiles) == 0 {
		return s.reject(word, ReasonMalformed, caught), nil
	}
	if !s.validator.Validate(word) {
		return s.reject(word, ReasonInvalidWord, caught), nil
	}
	ids, ok := s.matchTiles(word, sub.Tiles)
	if !ok {
		return s.reject(word, ReasonMalformed, caught), nil
	}

	level := s.chain.Level()
	points := s.score.Calculate(word, level)
	total := s.score.Add(points)
	s.wordsUsed++
	s.chain.Increase()
	if points > s.topWordScore {
		s.topWord, s.topWordScore = word, points
	}

	for _, t := range s.spawner.Claim(ids) {
		s.host.RemoveTile(t)
	}

	ev := Accepted{Word: word, Score: points, ChainLevel: s.chain.Level()}
	for _, l := range s.listeners {
		l.WordAccepted(ev)
	}
	text := fmt.Sprintf("%q - %d pts", word, points)
	if level > 1 {
		text += fmt.Sprintf(" (x%d chain!)", level)
	}
	s.flash(Message{Text: text, Tone: ToneSuccess})
	s.host.RequestWordInput()

	return Outcome{
		Accepted:   true,
		Word:       word,
		Score:      points,
		ChainLevel: ev.ChainLevel,
		TotalScore: total,
		Missed:     caught.Missed,
		ChainReset: caught.ChainReset,
	}, nil
}

// matchTiles checks that refs spell word with live, claimable tiles, one per
// letter and in order. It returns the tile IDs to claim.
func (s *Session) matchTiles(word string, refs []TileRef) ([]uint64, bool) {
	runes := []rune(word)
	if len(refs) != len(runes) {
		return nil, false
	}
	ids := make([]uint64, 0, len(refs))
	seen := make(map[uint64]struct{}, len(refs))
	for i, ref := range refs {
		if _, dup := seen[ref.ID]; dup {
			return nil, false
		}
		column, err := s.spawner.TilesInColumn(ref.Column)
		if err != nil {
			return nil, false
		}
		found := false
		for _, t := range column {
			if t.ID == ref.ID {
				found = t.Letter == runes[i]
				break
			}
		}
		if !found {
			return nil, false
		}
		seen[ref.ID] = struct{}{}
		ids = append(ids, ref.ID)
	}
	return ids, true
}

func (s *Session) reject(word, reason string, caught TickResult) Outcome {
	ev := Rejected{Word: word, Reason: reason}
	for _, l := range s.listeners {
		l.WordRejected(ev)
	}
	text := fmt.Sprintf("%q - Invalid word!", word)
	if reason == ReasonMalformed {
		text = fmt.Sprintf("%q - Tiles don't match!", word)
	}
	s.flash(Message{Text: text, Tone: ToneError})
	s.host.RequestWordInput()
	return Outcome{
		Word:       word,
		ChainLevel: s.chain.Level(),
		TotalScore: s.score.Total(),
		Reason:     reason,
		Missed:     caught.Missed,
		ChainReset: caught.ChainReset,
	}
}

// flash shows m and clears it after FlashDuration unless a newer message
// replaced it first.
func (s *Session) flash(m Message) {
	s.flashSeq++
	seq := s.flashSeq
	s.host.DisplayMessage(m)
	s.host.Schedule(s.cfg.FlashDuration, func() {
		if s.flashSeq == seq {
			s.host.DisplayMessage(Message{})
		}
	})
}

// End finishes the session and returns its summary. Calling End again
// returns the same summary.
func (s *Session) End() Summary {
	if !s.over {
		s.over = true
		s.endedAt = s.clock.Now()
	}
	return Summary{
		SessionID:    s.id,
		Player:       s.player,
		Mode:         s.mode,
		Score:        s.score.Total(),
		WordsUsed:    s.wordsUsed,
		MaxChain:     s.chain.MaxLevel(),
		TopWord:      s.topWord,
		TopWordScore: s.topWordScore,
		StartedAt:    s.startedAt,
		EndedAt:      s.endedAt,
		Duration:     s.endedAt.Sub(s.startedAt),
	}
}

// Snapshot returns the current state for display.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Score:      s.score.Total(),
		ChainLevel: s.chain.Level(),
		MaxChain:   s.chain.MaxLevel(),
		Missed:     s.chain.Missed(),
		WordsUsed:  s.wordsUsed,
		Tiles:      s.spawner.Tiles(),
		Over:       s.over,
	}
}

// Pool exposes the session's letter pool (read-only).
func (s *Session) Pool() *letters.Pool { return s.pool }
