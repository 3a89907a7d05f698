// internal/spawner/spawner.go
//
// Timing-gated tile generator for a fixed-column playfield.
//
// Responsibilities:
//   - Spawn at most one tile per Update once SpawnInterval has elapsed,
//     in a uniformly random column, with a letter drawn from the pool.
//   - Move tiles down at FallSpeed (units/second) from their spawn height.
//   - Purge tiles that fall past the bottom bound and hand them back as
//     expired; reacting to the miss is the caller's job.
//   - Answer column queries for the in-bounds part of the playfield.
//
// Geometry (defaults match the reference playfield):
//
//	GridTop-SpawnOffset  spawn height
//	GridTop .. GridTop+GridHeight   visible / claimable
//	> GridTop+GridHeight+PurgeMargin   expired
//
// Not safe for concurrent use.

package spawner

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/robalobadob/fallphabet/internal/letters"
)

var (
	// ErrBadConfig is returned by New for unusable geometry or timing.
	ErrBadConfig = errors.New("spawner: invalid config")
	// ErrBadColumn is returned for a column outside 0..Columns-1.
	ErrBadColumn = errors.New("spawner: column out of range")
)

// Config describes the playfield and spawn cadence.
type Config struct {
	Columns       int
	SpawnInterval time.Duration
	FallSpeed     float64 // units per second
	GridTop       float64
	GridHeight    float64
	SpawnOffset   float64 // spawn this far above GridTop
	PurgeMargin   float64 // expire this far below the grid bottom
}

// DefaultConfig returns the standard four-column playfield.
func DefaultConfig() Config {
	return Config{
		Columns:       4,
		SpawnInterval: 1500 * time.Millisecond,
		FallSpeed:     100,
		GridTop:       120,
		GridHeight:    520,
		SpawnOffset:   50,
		PurgeMargin:   100,
	}
}

// Validate reports configuration errors.
func (c Config) Validate() error {
	switch {
	case c.Columns <= 0:
		return fmt.Errorf("%w: columns %d must be positive", ErrBadConfig, c.Columns)
	case c.SpawnInterval <= 0:
		return fmt.Errorf("%w: spawn interval %v must be positive", ErrBadConfig, c.SpawnInterval)
	case c.FallSpeed <= 0:
		return fmt.Errorf("%w: fall speed %v must be positive", ErrBadConfig, c.FallSpeed)
	case c.GridHeight <= 0:
		return fmt.Errorf("%w: grid height %v must be positive", ErrBadConfig, c.GridHeight)
	case c.SpawnOffset < 0 || c.PurgeMargin < 0:
		return fmt.Errorf("%w: spawn offset and purge margin must not be negative", ErrBadConfig)
	}
	return nil
}

func (c Config) bottom() float64 { return c.GridTop + c.GridHeight }

// Spawner owns every live tile on the board.
type Spawner struct {
	cfg       Config
	pool      *letters.Pool
	rng       letters.Random
	lastSpawn time.Time
	nextID    uint64
	tiles     []*Tile // spawn order
}

// New validates cfg and returns a Spawner whose spawn timer starts at start.
func New(cfg Config, pool *letters.Pool, rng letters.Random, start time.Time) (*Spawner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if pool == nil || pool.Len() == 0 {
		return nil, letters.ErrEmptyPool
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil random source", ErrBadConfig)
	}
	return &Spawner{cfg: cfg, pool: pool, rng: rng, lastSpawn: start}, nil
}

// Config returns the spawner configuration.
func (s *Spawner) Config() Config { return s.cfg }

// Columns returns the number of columns.
func (s *Spawner) Columns() int { return s.cfg.Columns }

// Update advances tile positions to now, spawns a tile if the interval has
// elapsed and purges tiles below the playfield. Expired tiles are returned
// with StateExpired and are no longer tracked.
func (s *Spawner) Update(now time.Time) (spawned, expired []Tile) {
	for _, t := range s.tiles {
		t.Y = s.heightAt(t.SpawnedAt, now)
	}

	if now.After(s.lastSpawn.Add(s.cfg.SpawnInterval)) {
		col := s.randomColumn()
		t, _ := s.Spawn(col, now)
		spawned = append(spawned, t)
		s.lastSpawn = now
	}

	limit := s.cfg.bottom() + s.cfg.PurgeMargin
	kept := s.tiles[:0]
	for _, t := range s.tiles {
		if t.Y > limit {
			t.State = StateExpired
			expired = append(expired, *t)
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(s.tiles); i++ {
		s.tiles[i] = nil
	}
	s.tiles = kept
	return spawned, expired
}

// Spawn places one new tile at the top of column.
func (s *Spawner) Spawn(column int, now time.Time) (Tile, error) {
	if err := s.checkColumn(column); err != nil {
		return Tile{}, err
	}
	s.nextID++
	t := &Tile{
		ID:        s.nextID,
		Letter:    s.pool.Draw(s.rng),
		Column:    column,
		Y:         s.cfg.GridTop - s.cfg.SpawnOffset,
		SpawnedAt: now,
		State:     StateFalling,
	}
	s.tiles = append(s.tiles, t)
	return *t, nil
}

// TilesInColumn returns the claimable tiles of column, bottom-most first.
func (s *Spawner) TilesInColumn(column int) ([]Tile, error) {
	if err := s.checkColumn(column); err != nil {
		return nil, err
	}
	var out []Tile
	for _, t := range s.tiles {
		if t.Column == column && t.Y >= s.cfg.GridTop && t.Y <= s.cfg.bottom() {
			out = append(out, *t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Y > out[j].Y })
	return out, nil
}

// Tile looks up a live tile by ID.
func (s *Spawner) Tile(id uint64) (Tile, bool) {
	for _, t := range s.tiles {
		if t.ID == id {
			return *t, true
		}
	}
	return Tile{}, false
}

// Tiles returns every live tile in spawn order.
func (s *Spawner) Tiles() []Tile {
	out := make([]Tile, len(s.tiles))
	for i, t := range s.tiles {
		out[i] = *t
	}
	return out
}

// Claim removes the given tiles from the board and returns them marked
// StateClaimed. Unknown IDs are skipped.
func (s *Spawner) Claim(ids []uint64) []Tile {
	want := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var claimed []Tile
	kept := s.tiles[:0]
	for _, t := range s.tiles {
		if _, ok := want[t.ID]; ok {
			t.State = StateClaimed
			claimed = append(claimed, *t)
			continue
		}
		kept = append(kept, t)
	}
	for i := len(kept); i < len(s.tiles); i++ {
		s.tiles[i] = nil
	}
	s.tiles = kept
	return claimed
}

// Clear drops every tile without reporting them as expired.
func (s *Spawner) Clear() {
	s.tiles = nil
}

func (s *Spawner) heightAt(spawned, now time.Time) float64 {
	elapsed := now.Sub(spawned).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return s.cfg.GridTop - s.cfg.SpawnOffset + s.cfg.FallSpeed*elapsed
}

func (s *Spawner) randomColumn() int {
	c := int(s.rng.Float64() * float64(s.cfg.Columns))
	if c >= s.cfg.Columns {
		c = s.cfg.Columns - 1
	}
	if c < 0 {
		c = 0
	}
	return c
}

func (s *Spawner) checkColumn(column int) error {
	if column < 0 || column >= s.cfg.Columns {
		return fmt.Errorf("%w: %d not in 0..%d", ErrBadColumn, column, s.cfg.Columns-1)
	}
	return nil
}
