// internal/chain/tracker.go
//
// Combo ("chain") state machine.
//
// Rules:
//   - Start at level 1, max 1, no missed tiles.
//   - Increase: level+1, raise the high-water mark, stamp the success time,
//     clear missed tiles.
//   - AddMissedTile: bump the missed count; at the threshold the chain resets.
//   - Update(now): polled once per tick; a chain above 1 resets when no word
//     has succeeded for longer than Timeout.
//   - Reset never lowers MaxLevel.
//
// A Tracker is not safe for concurrent use; the owning session serializes calls.

package chain

import (
	"errors"
	"fmt"
	"time"

	"github.com/robalobadob/fallphabet/internal/clock"
)

const (
	DefaultTimeout         = 3000 * time.Millisecond
	DefaultMissedThreshold = 5
)

// ErrBadConfig is returned by New for non-positive timeout or threshold.
var ErrBadConfig = errors.New("chain: invalid config")

// Config tunes chain decay.
type Config struct {
	Timeout         time.Duration // max gap between successes before reset
	MissedThreshold int           // missed tiles that break the chain
}

// DefaultConfig returns the standard chain rules.
func DefaultConfig() Config {
	return Config{Timeout: DefaultTimeout, MissedThreshold: DefaultMissedThreshold}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout %v must be positive", ErrBadConfig, c.Timeout)
	}
	if c.MissedThreshold <= 0 {
		return fmt.Errorf("%w: missed threshold %d must be positive", ErrBadConfig, c.MissedThreshold)
	}
	return nil
}

// Tracker holds the chain state for one session.
type Tracker struct {
	cfg   Config
	clock clock.Clock

	level       int
	maxLevel    int
	missed      int
	lastSuccess time.Time
}

// New returns a Tracker in its initial state.
func New(cfg Config, clk clock.Clock) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Tracker{cfg: cfg, clock: clk, level: 1, maxLevel: 1}, nil
}

// Level is the current multiplier.
func (t *Tracker) Level() int { return t.level }

// MaxLevel is the highest level reached this session.
func (t *Tracker) MaxLevel() int { return t.maxLevel }

// Missed is the number of tiles missed since the last success or reset.
func (t *Tracker) Missed() int { return t.missed }

// LastSuccess is the time of the most recent Increase (zero if none).
func (t *Tracker) LastSuccess() time.Time { return t.lastSuccess }

// Increase records a successful word.
func (t *Tracker) Increase() {
	t.level++
	if t.level > t.maxLevel {
		t.maxLevel = t.level
	}
	t.lastSuccess = t.clock.Now()
	t.missed = 0
}

// AddMissedTile records an unclaimed tile falling out of play.
// It reports whether the chain was reset as a result.
func (t *Tracker) AddMissedTile() bool {
	t.missed++
	if t.missed >= t.cfg.MissedThreshold {
		t.Reset()
		return true
	}
	return false
}

// Reset drops the chain back to 1 and clears missed tiles.
func (t *Tracker) Reset() {
	t.level = 1
	t.missed = 0
}

// Update applies the timeout rule and reports whether it reset the chain.
func (t *Tracker) Update(now time.Time) bool {
	if t.timedOut(now) {
		t.Reset()
		return true
	}
	return false
}

// ShouldReset reports whether either decay rule currently applies.
func (t *Tracker) ShouldReset(now time.Time) bool {
	return t.missed >= t.cfg.MissedThreshold || t.timedOut(now)
}

func (t *Tracker) timedOut(now time.Time) bool {
	return t.level > 1 && now.Sub(t.lastSuccess) > t.cfg.Timeout
}
