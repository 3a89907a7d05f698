// internal/httpserver/recorder.go
//
// Per-session event buffer. The recorder is the game.Host and a
// game.Listener for one session; handlers drain it after every operation and
// ship the batch to the client (JSON response or WebSocket frame).
//
// Scheduled callbacks (message clears) run on the next tick or request after
// they fall due, always under the session lock.
package httpserver

import (
	"time"

	"github.com/robalobadob/fallphabet/internal/clock"
	"github.com/robalobadob/fallphabet/internal/game"
	"github.com/robalobadob/fallphabet/internal/spawner"
)

// Event types.
const (
	evTileSpawned  = "tile_spawned"
	evTileRemoved  = "tile_removed"
	evMessage      = "message"
	evAwaitWord    = "await_word"
	evWordAccepted = "word_accepted"
	evWordRejected = "word_rejected"
)

type event struct {
	Type     string         `json:"type"`
	Tile     *tileView      `json:"tile,omitempty"`
	Message  *game.Message  `json:"message,omitempty"`
	Accepted *game.Accepted `json:"accepted,omitempty"`
	Rejected *game.Rejected `json:"rejected,omitempty"`
}

// tileView is the wire form of a tile.
type tileView struct {
	ID     uint64  `json:"id"`
	Letter string  `json:"letter"`
	Column int     `json:"column"`
	Y      float64 `json:"y"`
	State  string  `json:"state"`
}

func viewTile(t spawner.Tile) tileView {
	return tileView{ID: t.ID, Letter: t.Char(), Column: t.Column, Y: t.Y, State: string(t.State)}
}

type scheduled struct {
	due time.Time
	fn  func()
}

type recorder struct {
	clock   clock.Clock
	events  []event
	pending []scheduled
	message game.Message // what the host is currently showing
}

func newRecorder(clk clock.Clock) *recorder { return &recorder{clock: clk} }

func (r *recorder) RenderTile(t spawner.Tile) {
	v := viewTile(t)
	r.events = append(r.events, event{Type: evTileSpawned, Tile: &v})
}

func (r *recorder) RemoveTile(t spawner.Tile) {
	v := viewTile(t)
	r.events = append(r.events, event{Type: evTileRemoved, Tile: &v})
}

func (r *recorder) DisplayMessage(m game.Message) {
	r.message = m
	r.events = append(r.events, event{Type: evMessage, Message: &m})
}

func (r *recorder) RequestWordInput() {
	r.events = append(r.events, event{Type: evAwaitWord})
}

func (r *recorder) Schedule(d time.Duration, fn func()) {
	r.pending = append(r.pending, scheduled{due: r.clock.Now().Add(d), fn: fn})
}

func (r *recorder) WordAccepted(e game.Accepted) {
	r.events = append(r.events, event{Type: evWordAccepted, Accepted: &e})
}

func (r *recorder) WordRejected(e game.Rejected) {
	r.events = append(r.events, event{Type: evWordRejected, Rejected: &e})
}

// runDue fires callbacks whose time has come, in scheduling order.
func (r *recorder) runDue(now time.Time) {
	var later []scheduled
	due := r.pending
	r.pending = nil
	for _, s := range due {
		if now.Before(s.due) {
			later = append(later, s)
			continue
		}
		s.fn()
	}
	// callbacks may schedule again
	r.pending = append(later, r.pending...)
}

// drain returns and clears the buffered events. Never nil, so JSON shows [].
func (r *recorder) drain() []event {
	out := r.events
	r.events = nil
	if out == nil {
		out = []event{}
	}
	return out
}
