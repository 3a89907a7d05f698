package game

import (
	"errors"
	"testing"
	"time"

	"github.com/robalobadob/fallphabet/internal/clock"
	"github.com/robalobadob/fallphabet/internal/letters"
	"github.com/robalobadob/fallphabet/internal/spawner"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// script hands out queued values, then 0.
type script struct {
	vals []float64
}

func (s *script) Float64() float64 {
	if len(s.vals) == 0 {
		return 0
	}
	v := s.vals[0]
	s.vals = s.vals[1:]
	return v
}

type fakeHost struct {
	rendered  []spawner.Tile
	removed   []spawner.Tile
	messages  []Message
	inputs    int
	scheduled []func()
}

func (h *fakeHost) RenderTile(t spawner.Tile) { h.rendered = append(h.rendered, t) }
func (h *fakeHost) RemoveTile(t spawner.Tile) { h.removed = append(h.removed, t) }
func (h *fakeHost) DisplayMessage(m Message) { h.messages = append(h.messages, m) }
func (h *fakeHost) RequestWordInput() { h.inputs++ }
func (h *fakeHost) Schedule(_ time.Duration, f func()) { h.scheduled = append(h.scheduled, f) }

func (h *fakeHost) lastMessage() Message {
	if len(h.messages) == 0 {
		return Message{}
	}
	return h.messages[len(h.messages)-1]
}

type fakeListener struct {
	accepted []Accepted
	rejected []Rejected
}

func (l *fakeListener) WordAccepted(a Accepted) { l.accepted = append(l.accepted, a) }
func (l *fakeListener) WordRejected(r Rejected) { l.rejected = append(l.rejected, r) }

var dictionary = ValidatorFunc(func(w string) bool {
	switch w {
	case "CAT", "DOG", "TEA", "QUIZ":
		return true
	}
	return false
})

type harness struct {
	t    *testing.T
	s    *Session
	clk  *clock.Manual
	rng  *script
	host *fakeHost
	lis  *fakeListener
}

// newHarness builds a session with a slow spawn timer and fast tiles so tests
// place tiles by hand: tiles enter the grid after 50ms and expire after 670ms.
func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Spawner.SpawnInterval = time.Hour
	cfg.Spawner.FallSpeed = 1000
	if mutate != nil {
		mutate(&cfg)
	}
	h := &harness{
		t:    t,
		clk:  clock.NewManual(t0),
		rng:  &script{},
		host: &fakeHost{},
		lis:  &fakeListener{},
	}
	s, err := New(Options{
		Player:    "tester",
		Config:    cfg,
		Validator: dictionary,
		Host:      h.host,
		Clock:     h.clk,
		Random:    h.rng,
		Listeners: []Listener{h.lis},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	h.s = s
	return h
}

// drawFor returns the random value that makes the pool draw r.
func (h *harness) drawFor(r rune) float64 {
	pool := h.s.Pool().Letters()
	for i, l := range pool {
		if l == r {
			return (float64(i) + 0.5) / float64(len(pool))
		}
	}
	h.t.Fatalf("letter %q not in pool", r)
	return 0
}

// place spawns word's letters in consecutive columns and returns refs in word order.
func (h *harness) place(word string) []TileRef {
	h.t.Helper()
	var refs []TileRef
	for i, r := range word {
		h.rng.vals = append(h.rng.vals, h.drawFor(r))
		col := i % h.s.spawner.Columns()
		tile, err := h.s.spawner.Spawn(col, h.clk.Now())
		if err != nil {
			h.t.Fatalf("Spawn() error = %v", err)
		}
		refs = append(refs, TileRef{ID: tile.ID, Column: col})
	}
	return refs
}

func (h *harness) fall(d time.Duration) TickResult {
	h.clk.Advance(d)
	return h.s.Tick()
}

func (h *harness) playable(word string) []TileRef {
	refs := h.place(word)
	h.fall(100 * time.Millisecond)
	return refs
}

func (h *harness) submit(word string, refs []TileRef) Outcome {
	h.t.Helper()
	out, err := h.s.Submit(Submission{Word: word, Tiles: refs})
	if err != nil {
		h.t.Fatalf("Submit(%q) error = %v", word, err)
	}
	return out
}

func TestNew_ConfigErrors(t *testing.T) {
	rng := &script{}
	tests := []struct {
		name   string
		opts   Options
		mutate func(*Config)
		want   error
	}{
		{"no validator", Options{Random: rng}, nil, ErrNoValidator},
		{"empty pool", Options{Validator: dictionary, Random: rng}, func(c *Config) { c.Frequencies = map[rune]int{} }, letters.ErrEmptyPool},
		{"zero columns", Options{Validator: dictionary, Random: rng}, func(c *Config) { c.Spawner.Columns = 0 }, spawner.ErrBadConfig},
		{"zero interval", Options{Validator: dictionary, Random: rng}, func(c *Config) { c.Spawner.SpawnInterval = 0 }, spawner.ErrBadConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			tt.opts.Config = cfg
			if _, err := New(tt.opts); !errors.Is(err, tt.want) {
				t.Fatalf("New() error = %v, want %v", err, tt.want)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Chain.MissedThreshold = 0
	if _, err := New(Options{Validator: dictionary, Random: rng, Config: cfg}); err == nil {
		t.Error("New() accepted a zero missed threshold")
	}
	cfg = DefaultConfig()
	cfg.MissPolicy = "sometimes"
	if _, err := New(Options{Validator: dictionary, Random: rng, Config: cfg}); err == nil {
		t.Error("New() accepted an unknown miss policy")
	}
	if _, err := New(Options{Validator: dictionary, Random: rng, Config: DefaultConfig(), Mode: "arcade"}); err == nil {
		t.Error("New() accepted an unknown mode")
	}
}

func TestNew_Defaults(t *testing.T) {
	h := newHarness(t, nil)
	if h.s.ID() == "" {
		t.Error("ID() is empty")
	}
	if h.s.Mode() != ModeTaptile {
		t.Errorf("Mode() = %q, want %q", h.s.Mode(), ModeTaptile)
	}
	if h.host.inputs != 1 {
		t.Errorf("RequestWordInput called %d times on start, want 1", h.host.inputs)
	}
	snap := h.s.Snapshot()
	if snap.Score != 0 || snap.ChainLevel != 1 || snap.MaxChain != 1 || snap.Missed != 0 {
		t.Errorf("initial snapshot = %+v", snap)
	}
}

func TestSubmit_ChainScenario(t *testing.T) {
	h := newHarness(t, nil)

	out := h.submit("CAT", h.playable("CAT"))
	if !out.Accepted || out.Score != 5 || out.TotalScore != 5 || out.ChainLevel != 2 {
		t.Fatalf("CAT outcome = %+v, want accepted score 5 total 5 chain 2", out)
	}

	out = h.submit("dog", h.playable("DOG"))
	if !out.Accepted || out.Score != 10 || out.TotalScore != 15 || out.ChainLevel != 3 {
		t.Fatalf("DOG outcome = %+v, want accepted score 10 total 15 chain 3", out)
	}
	if got := h.lastMessageText(); got != `"DOG" - 10 pts (x2 chain!)` {
		t.Errorf("flash = %q", got)
	}

	if len(h.lis.accepted) != 2 {
		t.Fatalf("listener saw %d acceptances, want 2", len(h.lis.accepted))
	}
	if a := h.lis.accepted[1]; a.Word != "DOG" || a.Score != 10 || a.ChainLevel != 3 {
		t.Errorf("second acceptance = %+v", a)
	}
	if len(h.host.removed) != 6 {
		t.Errorf("host removed %d tiles, want 6", len(h.host.removed))
	}
	for _, tile := range h.host.removed {
		if tile.State != spawner.StateClaimed {
			t.Errorf("removed tile %d state = %q, want claimed", tile.ID, tile.State)
		}
	}
	if n := len(h.s.Snapshot().Tiles); n != 0 {
		t.Errorf("%d tiles left on the board, want 0", n)
	}
}

func (h *harness) lastMessageText() string { return h.host.lastMessage().Text }

func TestSubmit_InvalidWordChangesNothing(t *testing.T) {
	h := newHarness(t, nil)
	h.submit("CAT", h.playable("CAT"))
	h.place("ZZZZ")
	h.fall(100 * time.Millisecond)
	before := h.s.Snapshot()

	out := h.submit("ZZZZ", nil)
	if out.Accepted || out.Reason != ReasonMalformed {
		t.Fatalf("ZZZZ without tiles = %+v, want malformed", out)
	}

	refs := make([]TileRef, 0, 4)
	for _, tile := range before.Tiles {
		refs = append(refs, TileRef{ID: tile.ID, Column: tile.Column})
	}
	out = h.submit("ZZZZ", refs)
	if out.Accepted || out.Reason != ReasonInvalidWord {
		t.Fatalf("ZZZZ = %+v, want rejected as invalid word", out)
	}

	after := h.s.Snapshot()
	if after.Score != before.Score || after.ChainLevel != before.ChainLevel || after.Missed != before.Missed || after.WordsUsed != before.WordsUsed {
		t.Errorf("state changed: before %+v after %+v", before, after)
	}
	if len(after.Tiles) != len(before.Tiles) {
		t.Errorf("tiles changed: %d → %d", len(before.Tiles), len(after.Tiles))
	}
	last := h.lis.rejected[len(h.lis.rejected)-1]
	if last.Word != "ZZZZ" || last.Reason != ReasonInvalidWord {
		t.Errorf("rejection = %+v", last)
	}
	if m := h.host.lastMessage(); m.Tone != ToneError {
		t.Errorf("flash tone = %q, want error", m.Tone)
	}
}

func TestSubmit_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		word  string
		build func(refs []TileRef) []TileRef
	}{
		{"empty word", "", func(r []TileRef) []TileRef { return r }},
		{"no tiles", "CAT", func([]TileRef) []TileRef { return nil }},
		{"too few tiles", "CAT", func(r []TileRef) []TileRef { return r[:2] }},
		{"letters out of order", "CAT", func(r []TileRef) []TileRef { return []TileRef{r[1], r[0], r[2]} }},
		{"duplicate tile", "CAT", func(r []TileRef) []TileRef { return []TileRef{r[0], r[1], r[1]} }},
		{"wrong column", "CAT", func(r []TileRef) []TileRef {
			return []TileRef{r[0], {ID: r[1].ID, Column: 3}, r[2]}
		}},
		{"bad column", "CAT", func(r []TileRef) []TileRef {
			return []TileRef{r[0], {ID: r[1].ID, Column: 9}, r[2]}
		}},
		{"unknown tile", "CAT", func(r []TileRef) []TileRef {
			return []TileRef{r[0], r[1], {ID: 999, Column: 2}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			refs := h.playable("CAT")
			out := h.submit(tt.word, tt.build(refs))
			if out.Accepted || out.Reason != ReasonMalformed {
				t.Fatalf("outcome = %+v, want malformed", out)
			}
			snap := h.s.Snapshot()
			if snap.Score != 0 || snap.ChainLevel != 1 || len(snap.Tiles) != 3 {
				t.Errorf("state changed after malformed submission: %+v", snap)
			}
		})
	}
}

func TestSubmit_TileNotYetInGrid(t *testing.T) {
	h := newHarness(t, nil)
	refs := h.place("CAT") // still above the grid
	if out := h.submit("CAT", refs); out.Reason != ReasonMalformed {
		t.Fatalf("outcome = %+v, want malformed", out)
	}
}

func TestTick_MissWhileChained(t *testing.T) {
	h := newHarness(t, nil)

	h.place("E")
	res := h.fall(700 * time.Millisecond)
	if len(res.Expired) != 1 || res.Missed != 0 {
		t.Fatalf("tick at chain 1 = %+v, want one expiry not counted", res)
	}
	if h.s.Snapshot().Missed != 0 {
		t.Fatalf("Missed = %d at chain 1, want 0", h.s.Snapshot().Missed)
	}

	h.submit("CAT", h.playable("CAT"))
	h.place("E")
	res = h.fall(700 * time.Millisecond)
	if res.Missed != 1 || h.s.Snapshot().Missed != 1 {
		t.Fatalf("tick at chain 2 = %+v missed=%d, want counted", res, h.s.Snapshot().Missed)
	}
	if h.host.removed[len(h.host.removed)-1].State != spawner.StateExpired {
		t.Error("expired tile not passed to host as expired")
	}
}

func TestTick_MissAlways(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.MissPolicy = MissAlways })
	h.place("EE")
	res := h.fall(700 * time.Millisecond)
	if res.Missed != 2 || h.s.Snapshot().Missed != 2 {
		t.Fatalf("tick = %+v missed=%d, want 2 counted at chain 1", res, h.s.Snapshot().Missed)
	}
}

func TestTick_MissedThresholdResetsChain(t *testing.T) {
	h := newHarness(t, nil)
	h.submit("CAT", h.playable("CAT"))

	h.place("EEEE")
	res := h.fall(700 * time.Millisecond)
	if res.ChainReset || h.s.Snapshot().ChainLevel != 2 {
		t.Fatalf("4 misses reset the chain: %+v", res)
	}

	h.place("E")
	res = h.fall(700 * time.Millisecond)
	snap := h.s.Snapshot()
	if !res.ChainReset || snap.ChainLevel != 1 || snap.Missed != 0 || snap.MaxChain != 2 {
		t.Fatalf("5th miss: res=%+v snap=%+v, want reset to 1 with max 2", res, snap)
	}
}

func TestTick_ChainTimeout(t *testing.T) {
	h := newHarness(t, nil)
	h.submit("CAT", h.playable("CAT"))

	if res := h.fall(3 * time.Second); res.ChainReset {
		t.Fatal("chain reset at exactly the timeout")
	}
	res := h.fall(time.Millisecond)
	if !res.ChainReset || h.s.Snapshot().ChainLevel != 1 {
		t.Fatalf("chain not reset after timeout: %+v", res)
	}

	// the next word scores at x1 again
	out := h.submit("TEA", h.playable("TEA"))
	if out.Score != 3 || out.ChainLevel != 2 {
		t.Errorf("TEA after timeout = %+v, want score 3 chain 2", out)
	}
}

func TestTick_AutoSpawnRenders(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.Spawner.SpawnInterval = 10 * time.Millisecond })
	res := h.fall(11 * time.Millisecond)
	if len(res.Spawned) != 1 || len(h.host.rendered) != 1 {
		t.Fatalf("spawned %d rendered %d, want 1 and 1", len(res.Spawned), len(h.host.rendered))
	}
}

func TestFlash_ClearsOnlyLatest(t *testing.T) {
	h := newHarness(t, nil)
	h.submit("XYZ", []TileRef{{ID: 1}})
	h.submit("QQQ", []TileRef{{ID: 1}})
	if len(h.host.scheduled) != 2 {
		t.Fatalf("scheduled %d clears, want 2", len(h.host.scheduled))
	}

	h.host.scheduled[0]()
	if h.lastMessageText() == "" {
		t.Fatal("stale clear wiped the newer message")
	}
	h.host.scheduled[1]()
	if h.lastMessageText() != "" {
		t.Fatalf("message %q not cleared", h.lastMessageText())
	}
}

func TestEnd(t *testing.T) {
	h := newHarness(t, nil)
	h.submit("CAT", h.playable("CAT"))
	h.submit("QUIZ", h.playable("QUIZ"))
	h.clk.Advance(5 * time.Second)

	sum := h.s.End()
	if sum.Score != 5+44 || sum.WordsUsed != 2 || sum.MaxChain != 3 {
		t.Fatalf("summary = %+v", sum)
	}
	if sum.TopWord != "QUIZ" || sum.TopWordScore != 44 {
		t.Errorf("top word = %q/%d, want QUIZ/44", sum.TopWord, sum.TopWordScore)
	}
	if sum.Player != "tester" || sum.Mode != ModeTaptile {
		t.Errorf("summary identity = %q/%q", sum.Player, sum.Mode)
	}
	if sum.Duration != 5200*time.Millisecond {
		t.Errorf("Duration = %v, want 5.2s", sum.Duration)
	}

	if _, err := h.s.Submit(Submission{Word: "DOG"}); !errors.Is(err, ErrSessionOver) {
		t.Errorf("Submit after End error = %v, want ErrSessionOver", err)
	}
	if res := h.fall(time.Hour); len(res.Spawned)+len(res.Expired) != 0 {
		t.Error("Tick after End changed the board")
	}
	h.clk.Advance(time.Minute)
	if again := h.s.End(); again.Duration != sum.Duration {
		t.Errorf("second End duration = %v, want %v", again.Duration, sum.Duration)
	}
}

func TestInvariant_MaxChainAtLeastChain(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.MissPolicy = MissAlways })
	words := []string{"CAT", "DOG", "TEA"}
	for i := 0; i < 30; i++ {
		switch i % 3 {
		case 0:
			w := words[i%len(words)]
			h.submit(w, h.playable(w))
		case 1:
			h.place("EE")
			h.fall(700 * time.Millisecond)
		case 2:
			h.fall(time.Duration(i*200) * time.Millisecond)
		}
		if snap := h.s.Snapshot(); snap.MaxChain < snap.ChainLevel {
			t.Fatalf("step %d: max %d < level %d", i, snap.MaxChain, snap.ChainLevel)
		}
	}
}

func TestSubmit_CatchesUpWithoutTick(t *testing.T) {
	// tiles enter the grid after 0.5s and are purged after 6.7s
	h := newHarness(t, func(c *Config) { c.Spawner.FallSpeed = 100 })
	refs := h.place("CAT")
	h.fall(600 * time.Millisecond)
	if out := h.submit("CAT", refs); !out.Accepted || out.ChainLevel != 2 {
		t.Fatalf("CAT = %+v, want accepted at chain 2", out)
	}

	// past the chain timeout with no tick in between
	refs = h.place("DOG")
	h.clk.Advance(3500 * time.Millisecond)
	out := h.submit("DOG", refs)
	if !out.Accepted || out.Score != 5 || out.ChainLevel != 2 || !out.ChainReset {
		t.Fatalf("DOG after idle = %+v, want 5 at x1 with the chain reset", out)
	}
	if got := h.lastMessageText(); got != `"DOG" - 5 pts` {
		t.Errorf("flash = %q", got)
	}
}

func TestSubmit_ExpiredTilesNotClaimable(t *testing.T) {
	h := newHarness(t, nil)
	h.submit("CAT", h.playable("CAT"))
	refs := h.playable("DOG")

	h.clk.Advance(10 * time.Second)
	out := h.submit("DOG", refs)
	if out.Accepted || out.Reason != ReasonMalformed {
		t.Fatalf("DOG on purged tiles = %+v, want malformed", out)
	}
	if out.Missed != 3 {
		t.Errorf("Missed = %d, want the 3 purged tiles counted", out.Missed)
	}
	snap := h.s.Snapshot()
	if len(snap.Tiles) != 0 || snap.Score != 5 || snap.ChainLevel != 1 {
		t.Errorf("snapshot = %+v, want empty board, score 5, chain 1", snap)
	}
	last := h.host.removed[len(h.host.removed)-1]
	if last.State != spawner.StateExpired {
		t.Errorf("last removed tile state = %q, want expired", last.State)
	}
}
