// internal/spawner/tile.go
//
// Tile: one falling letter and its lifecycle state.
package spawner

import "time"

// State is the lifecycle of a tile.
type State string

const (
	StateFalling State = "falling"
	StateClaimed State = "claimed"
	StateExpired State = "expired"
)

// Tile is one falling letter.
type Tile struct {
	ID        uint64    `json:"id"`
	Letter    rune      `json:"-"`
	Column    int       `json:"column"`
	Y         float64   `json:"y"`
	SpawnedAt time.Time `json:"spawnedAt"`
	State     State     `json:"state"`
}

// Char returns the tile letter as a one-character string.
func (t Tile) Char() string { return string(t.Letter) }
