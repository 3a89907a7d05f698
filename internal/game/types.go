// internal/game/types.go
//
// Core type definitions for a Fallphabet session.
// Defines:
//   - Host / Listener / Validator: the collaborators a Session calls out to.
//   - Config: tuning for chain, spawner and letter pool.
//   - Submission / Outcome: the word-submission contract.
//   - Summary / Snapshot: what the session reports outward.

package game

import (
	"errors"
	"time"

	"github.com/robalobadob/fallphabet/internal/chain"
	"github.com/robalobadob/fallphabet/internal/letters"
	"github.com/robalobadob/fallphabet/internal/spawner"
)

// Mode selects the rule set and leaderboard a session belongs to.
type Mode string

const (
	ModeTaptile Mode = "fallphabet_taptile" // unlimited attempts, all-time board
	ModeDaily   Mode = "daily_challenge"    // one attempt per day, shared tile sequence
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m == ModeTaptile || m == ModeDaily }

// Rejection reasons carried by WordRejected.
const (
	ReasonInvalidWord = "invalid word"
	ReasonMalformed   = "malformed submission"
)

// ErrSessionOver is returned when a finished session receives input.
var ErrSessionOver = errors.New("game: session over")

// MissPolicy decides which expired tiles count against the chain.
type MissPolicy string

const (
	// MissWhileChained counts a missed tile only while the chain is above 1.
	MissWhileChained MissPolicy = "while_chained"
	// MissAlways counts every missed tile.
	MissAlways MissPolicy = "always"
)

// Valid reports whether p is a known policy.
func (p MissPolicy) Valid() bool { return p == MissWhileChained || p == MissAlways }

// Config bundles the tunables of one session.
type Config struct {
	Chain         chain.Config
	Spawner       spawner.Config
	Frequencies   map[rune]int
	MissPolicy    MissPolicy
	FlashDuration time.Duration // how long feedback messages stay up
}

// DefaultConfig returns the standard game.
func DefaultConfig() Config {
	return Config{
		Chain:         chain.DefaultConfig(),
		Spawner:       spawner.DefaultConfig(),
		Frequencies:   letters.DefaultFrequencies(),
		MissPolicy:    MissWhileChained,
		FlashDuration: 2 * time.Second,
	}
}

// Tone hints how a message should be styled.
type Tone string

const (
	ToneInfo    Tone = "info"
	ToneSuccess Tone = "success"
	ToneError   Tone = "error"
)

// Message is transient player feedback. An empty Text clears the display.
type Message struct {
	Text string `json:"text"`
	Tone Tone   `json:"tone"`
}

// Host is the presentation capability a Session drives. Implementations
// render however they like; the session never touches an engine directly.
type Host interface {
	RenderTile(t spawner.Tile)
	RemoveTile(t spawner.Tile)
	DisplayMessage(m Message)
	RequestWordInput()
	// Schedule runs fn after d. It must run fn on the same goroutine that
	// drives the session.
	Schedule(d time.Duration, fn func())
}

// NopHost discards all presentation calls.
type NopHost struct{}

func (NopHost) RenderTile(spawner.Tile) {}
func (NopHost) RemoveTile(spawner.Tile) {}
func (NopHost) DisplayMessage(Message) {}
func (NopHost) RequestWordInput() {}
func (NopHost) Schedule(time.Duration, func()) {}

// Accepted is emitted for every scored word.
type Accepted struct {
	Word       string `json:"word"`
	Score      int    `json:"score"`
	ChainLevel int    `json:"chainLevel"` // level after this word
}

// Rejected is emitted for every refused submission.
type Rejected struct {
	Word   string `json:"word"`
	Reason string `json:"reason"`
}

// Listener observes word outcomes (UI, metrics, leaderboard feeds).
type Listener interface {
	WordAccepted(Accepted)
	WordRejected(Rejected)
}

// Validator is the dictionary lookup.
type Validator interface {
	Validate(word string) bool
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(string) bool

func (f ValidatorFunc) Validate(w string) bool { return f(w) }

// TileRef names one physical tile claimed for a letter of the word.
type TileRef struct {
	ID     uint64 `json:"id"`
	Column int    `json:"column"`
}

// Submission is a word plus the tiles that spell it, in word order.
type Submission struct {
	Word  string    `json:"word"`
	Tiles []TileRef `json:"tiles"`
}

// Outcome is the result of one submission.
type Outcome struct {
	Accepted   bool   `json:"accepted"`
	Word       string `json:"word"`
	Score      int    `json:"score,omitempty"`
	ChainLevel int    `json:"chainLevel"`
	TotalScore int    `json:"totalScore"`
	Reason     string `json:"reason,omitempty"`
	// Missed and ChainReset report the catch-up that ran before the word.
	Missed     int    `json:"missed,omitempty"`
	ChainReset bool   `json:"chainReset,omitempty"`
}

// Summary is the finalized session report handed to the leaderboard.
type Summary struct {
	SessionID    string        `json:"sessionId"`
	Player       string        `json:"player"`
	Mode         Mode          `json:"mode"`
	Score        int           `json:"score"`
	WordsUsed    int           `json:"wordsUsed"`
	MaxChain     int           `json:"maxChain"`
	TopWord      string        `json:"topWord,omitempty"`
	TopWordScore int           `json:"topWordScore"`
	StartedAt    time.Time     `json:"startedAt"`
	EndedAt      time.Time     `json:"endedAt"`
	Duration     time.Duration `json:"-"`
}

// Snapshot is a read-only view of live session state.
type Snapshot struct {
	Score      int            `json:"score"`
	ChainLevel int            `json:"chainLevel"`
	MaxChain   int            `json:"maxChain"`
	Missed     int            `json:"missed"`
	WordsUsed  int            `json:"wordsUsed"`
	Tiles      []spawner.Tile `json:"-"`
	Over       bool           `json:"over"`
}
