package spawner

import (
	"errors"
	"testing"
	"time"

	"github.com/robalobadob/fallphabet/internal/letters"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// seq replays values in order, then repeats the last one.
type seq struct {
	vals []float64
	i    int
}

func (s *seq) Float64() float64 {
	if s.i >= len(s.vals) {
		return s.vals[len(s.vals)-1]
	}
	v := s.vals[s.i]
	s.i++
	return v
}

func newSpawner(t *testing.T, cfg Config, vals ...float64) *Spawner {
	t.Helper()
	pool, err := letters.NewPool(map[rune]int{'A': 1, 'B': 1})
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	if len(vals) == 0 {
		vals = []float64{0}
	}
	s, err := New(cfg, pool, &seq{vals: vals}, t0)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestNew_Validation(t *testing.T) {
	pool, _ := letters.NewPool(map[rune]int{'A': 1})
	rng := &seq{vals: []float64{0}}

	bad := []func(*Config){
		func(c *Config) { c.Columns = 0 },
		func(c *Config) { c.SpawnInterval = 0 },
		func(c *Config) { c.FallSpeed = -1 },
		func(c *Config) { c.GridHeight = 0 },
		func(c *Config) { c.PurgeMargin = -5 },
	}
	for i, mut := range bad {
		cfg := DefaultConfig()
		mut(&cfg)
		if _, err := New(cfg, pool, rng, t0); !errors.Is(err, ErrBadConfig) {
			t.Errorf("case %d: New() error = %v, want ErrBadConfig", i, err)
		}
	}
	if _, err := New(DefaultConfig(), nil, rng, t0); !errors.Is(err, letters.ErrEmptyPool) {
		t.Errorf("New(nil pool) error = %v, want ErrEmptyPool", err)
	}
	if _, err := New(DefaultConfig(), pool, nil, t0); !errors.Is(err, ErrBadConfig) {
		t.Errorf("New(nil rng) error = %v, want ErrBadConfig", err)
	}
}

func TestUpdate_SpawnInterval(t *testing.T) {
	s := newSpawner(t, DefaultConfig())

	if spawned, _ := s.Update(t0.Add(1500 * time.Millisecond)); len(spawned) != 0 {
		t.Fatal("spawned at exactly the interval; want strictly after")
	}
	spawned, _ := s.Update(t0.Add(1501 * time.Millisecond))
	if len(spawned) != 1 {
		t.Fatalf("spawned %d tiles, want 1", len(spawned))
	}
	// a long gap still spawns only one tile per update
	spawned, _ = s.Update(t0.Add(10 * time.Second))
	if len(spawned) != 1 {
		t.Fatalf("spawned %d tiles after long gap, want 1", len(spawned))
	}
	if spawned, _ := s.Update(t0.Add(10*time.Second + time.Second)); len(spawned) != 0 {
		t.Fatal("spawned before the interval elapsed since the last spawn")
	}
}

func TestUpdate_ColumnAndLetterDraw(t *testing.T) {
	cfg := DefaultConfig()
	// column draw then letter draw: column 3 with 'B', then column 0 with 'A'
	s := newSpawner(t, cfg, 0.99, 0.75, 0.1, 0.2)
	now := t0.Add(2 * time.Second)
	spawned, _ := s.Update(now)
	if spawned[0].Column != 3 || spawned[0].Letter != 'B' {
		t.Fatalf("first tile = col %d %q, want col 3 'B'", spawned[0].Column, spawned[0].Letter)
	}
	spawned, _ = s.Update(now.Add(2 * time.Second))
	if spawned[0].Column != 0 || spawned[0].Letter != 'A' {
		t.Fatalf("second tile = col %d %q, want col 0 'A'", spawned[0].Column, spawned[0].Letter)
	}
	if spawned[0].ID != 2 {
		t.Errorf("second tile ID = %d, want 2", spawned[0].ID)
	}
}

func TestTilesInColumn_BoundsAndOrder(t *testing.T) {
	s := newSpawner(t, DefaultConfig())
	old, _ := s.Spawn(1, t0)
	young, _ := s.Spawn(1, t0.Add(2*time.Second))
	other, _ := s.Spawn(2, t0)

	// spawn height is 70; the grid starts at 120, so nothing is claimable yet
	s.Update(t0.Add(100 * time.Millisecond))
	if got, _ := s.TilesInColumn(1); len(got) != 0 {
		t.Fatalf("TilesInColumn(1) = %d tiles before entering the grid, want 0", len(got))
	}

	s.Update(t0.Add(3 * time.Second)) // old at 370, young at 170
	got, err := s.TilesInColumn(1)
	if err != nil {
		t.Fatalf("TilesInColumn() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != old.ID || got[1].ID != young.ID {
		t.Fatalf("TilesInColumn(1) = %+v, want [old young]", got)
	}
	if got[0].Y != 370 {
		t.Errorf("old tile Y = %v, want 370", got[0].Y)
	}
	if got, _ := s.TilesInColumn(2); len(got) != 1 || got[0].ID != other.ID {
		t.Errorf("TilesInColumn(2) = %+v, want [other]", got)
	}
}

func TestTilesInColumn_BadColumn(t *testing.T) {
	s := newSpawner(t, DefaultConfig())
	for _, c := range []int{-1, 4} {
		if _, err := s.TilesInColumn(c); !errors.Is(err, ErrBadColumn) {
			t.Errorf("TilesInColumn(%d) error = %v, want ErrBadColumn", c, err)
		}
		if _, err := s.Spawn(c, t0); !errors.Is(err, ErrBadColumn) {
			t.Errorf("Spawn(%d) error = %v, want ErrBadColumn", c, err)
		}
	}
}

func TestUpdate_ExpiresPastBottom(t *testing.T) {
	cfg := DefaultConfig()
	s := newSpawner(t, cfg)
	tile, _ := s.Spawn(0, t0)

	// bottom bound 640, purge at 740: 670 units from the spawn height at 100/s
	if _, expired := s.Update(t0.Add(6650 * time.Millisecond)); len(expired) != 0 {
		t.Fatal("expired above the purge line")
	}
	if got, _ := s.TilesInColumn(0); len(got) != 0 {
		t.Fatal("tile below the grid is still claimable")
	}
	_, expired := s.Update(t0.Add(6800 * time.Millisecond))
	if len(expired) != 1 || expired[0].ID != tile.ID || expired[0].State != StateExpired {
		t.Fatalf("expired = %+v, want tile %d expired", expired, tile.ID)
	}
	if _, ok := s.Tile(tile.ID); ok {
		t.Error("expired tile still tracked")
	}
}

func TestClaim(t *testing.T) {
	s := newSpawner(t, DefaultConfig())
	a, _ := s.Spawn(0, t0)
	b, _ := s.Spawn(1, t0)
	claimed := s.Claim([]uint64{a.ID, 999})
	if len(claimed) != 1 || claimed[0].ID != a.ID || claimed[0].State != StateClaimed {
		t.Fatalf("Claim() = %+v, want only tile %d claimed", claimed, a.ID)
	}
	tiles := s.Tiles()
	if len(tiles) != 1 || tiles[0].ID != b.ID {
		t.Fatalf("Tiles() = %+v, want only tile %d", tiles, b.ID)
	}
}
