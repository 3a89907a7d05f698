// internal/httpserver/server.go
//
// HTTP server wiring for the Fallphabet backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/metrics".
//   - Game endpoints (optional auth): POST /game/new|tick|word|end,
//     GET /game/{id}, GET /game/{id}/ws.
//   - Leaderboard + Daily Challenge queries (routes_leaderboard.go).
//   - Auth endpoints (auth.go).
//
// Notes:
//   - Live sessions are held in memory. Each has its own mutex and every
//     Tick/Submit/End runs under it, so a session only ever has one writer.
//   - Sessions idle for SessionTTL are dropped by a sweeper.
//   - The WebSocket route sits outside the request timeout.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/fallphabet/internal/auth"
	"github.com/robalobadob/fallphabet/internal/clock"
	"github.com/robalobadob/fallphabet/internal/daily"
	"github.com/robalobadob/fallphabet/internal/game"
	"github.com/robalobadob/fallphabet/internal/leaderboard"
	"github.com/robalobadob/fallphabet/internal/letters"
	"github.com/robalobadob/fallphabet/internal/metrics"
	"github.com/robalobadob/fallphabet/internal/store"
)

// Dictionary is the word list the server validates against.
type Dictionary interface {
	game.Validator
	Len() int
}

// Deps are the server's collaborators and settings.
type Deps struct {
	Leaderboard  leaderboard.Store
	Auth         *auth.Service
	Words        Dictionary
	Metrics      *metrics.Metrics // nil: a private registry
	Game         game.Config
	DailySalt    string
	ClientOrigin string
	Secure       bool          // production cookies
	TickInterval time.Duration // WebSocket tick cadence
	SessionTTL   time.Duration // idle sessions are dropped after this
	Clock        clock.Clock   // nil: system clock
}

// Server bundles router, live sessions and collaborators.
type Server struct {
	r        *chi.Mux
	deps     Deps
	clock    clock.Clock
	metrics  *metrics.Metrics
	sessions *store.Memory[*live]
}

// live is one in-memory session plus its transport state.
type live struct {
	mu       sync.Mutex
	game     *game.Session
	rec      *recorder
	date     string // daily challenge date
	lastSeen time.Time
	ended    *endRes
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.TickInterval <= 0 {
		d.TickInterval = 50 * time.Millisecond
	}
	if d.SessionTTL <= 0 {
		d.SessionTTL = 30 * time.Minute
	}
	if d.Game.Spawner.Columns == 0 {
		d.Game = game.DefaultConfig()
	}
	s := &Server{
		r:        chi.NewRouter(),
		deps:     d,
		clock:    d.Clock,
		metrics:  d.Metrics,
		sessions: store.NewMemory[*live](),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)         // add X-Request-ID
	s.r.Use(chimw.RealIP)            // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)         // recover from panics
	s.r.Use(corsFor(d.ClientOrigin)) // credentials-friendly CORS
	s.r.Use(s.withOptionalAuth())    // guests can play everywhere

	// live play stream: no request timeout
	s.r.Get("/game/{id}/ws", s.handleWS)
	s.r.Handle("/metrics", s.metrics.Handler())

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
		r.Use(jsonContentType)                 // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"service": "fallphabet",
				"endpoints": []string{
					"/health", "/metrics", "POST /game/new", "POST /game/tick", "POST /game/word",
					"POST /game/end", "GET /game/{id}", "GET /game/{id}/ws", "/leaderboard",
					"/daily/leaderboard", "/auth/*",
				},
			})
		})
		r.Get("/health", s.handleHealth)
		r.Get("/debug/words", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]int{"words": s.deps.Words.Len()})
		})

		// --- game ---
		r.Post("/game/new", s.handleNewGame)
		r.Post("/game/tick", s.handleTick)
		r.Post("/game/word", s.handleWord)
		r.Post("/game/end", s.handleEnd)
		r.Get("/game/{id}", s.handleSnapshot)

		s.mountLeaderboard(r)
		s.mountAuthRoutes(r)

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
		})
	})

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Run serves on addr until ctx is cancelled, sweeping idle sessions meanwhile.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if n := s.sweep(); n > 0 {
					log.Info().Int("dropped", n).Msg("swept idle sessions")
				}
			}
		}
	}()

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// sweep drops sessions idle longer than SessionTTL and returns how many.
func (s *Server) sweep() int {
	cutoff := s.clock.Now().Add(-s.deps.SessionTTL)
	all := map[string]*live{}
	s.sessions.Range(func(id string, l *live) bool {
		all[id] = l
		return true
	})
	// session locks are taken outside Range: end holds one while deleting
	dropped := 0
	for id, l := range all {
		l.mu.Lock()
		stale := l.lastSeen.Before(cutoff)
		l.mu.Unlock()
		if stale {
			s.dropSession(id)
			dropped++
		}
	}
	return dropped
}

func (s *Server) dropSession(id string) {
	if err := s.sessions.Delete(context.Background(), id); err == nil {
		s.metrics.SessionDropped()
	}
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFor enables credentialed CORS for a single origin.
func corsFor(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ------------------------------ helpers ------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Leaderboard.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.sessions.Len()})
}

// ------------------------------ GAME ---------------------------------------

type newGameReq struct {
	Mode   game.Mode `json:"mode"`   // "fallphabet_taptile" (default) | "daily_challenge"
	Player string    `json:"player"` // guests only; accounts play under their name
}

type newGameRes struct {
	GameID  string    `json:"gameId"`
	Mode    game.Mode `json:"mode"`
	Player  string    `json:"player"`
	Columns int       `json:"columns"`
	Date    string    `json:"date,omitempty"`
}

// snapshotView is game.Snapshot with wire-form tiles.
type snapshotView struct {
	game.Snapshot
	Tiles   []tileView   `json:"tiles"`
	Message game.Message `json:"message"`
}

func (l *live) snapshot() snapshotView {
	snap := l.game.Snapshot()
	tiles := make([]tileView, len(snap.Tiles))
	for i, t := range snap.Tiles {
		tiles[i] = viewTile(t)
	}
	return snapshotView{Snapshot: snap, Tiles: tiles, Message: l.rec.message}
}

// handleNewGame starts a session. Daily players who already attempted today
// get 409 with their recorded score.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	if req.Mode == "" {
		req.Mode = game.ModeTaptile
	}
	if !req.Mode.Valid() {
		writeError(w, http.StatusBadRequest, "unknown_mode")
		return
	}
	player, err := s.playerName(w, r, req.Player)
	switch {
	case errors.Is(err, errNameReserved):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, errInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}

	now := s.clock.Now()
	var rng letters.Random
	date := ""
	if req.Mode == game.ModeDaily {
		date = daily.DateKey(now)
		score, played, err := s.deps.Leaderboard.DailyScore(r.Context(), player, date)
		if err != nil {
			log.Error().Err(err).Str("player", player).Msg("daily attempt lookup")
			writeError(w, http.StatusInternalServerError, "leaderboard_unavailable")
			return
		}
		if played {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error": "already_attempted", "date": date, "score": score,
			})
			return
		}
		rng = daily.Random(now, s.deps.DailySalt)
	} else {
		rng = rand.New(rand.NewSource(now.UnixNano()))
	}

	rec := newRecorder(s.clock)
	g, err := game.New(game.Options{
		Player:    player,
		Mode:      req.Mode,
		Config:    s.deps.Game,
		Validator: s.deps.Words,
		Host:      rec,
		Clock:     s.clock,
		Random:    rng,
		Listeners: []game.Listener{rec, s.metrics},
	})
	if err != nil {
		log.Error().Err(err).Msg("create session")
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}
	l := &live{game: g, rec: rec, date: date, lastSeen: now}
	if err := s.sessions.Save(r.Context(), g.ID(), l); err != nil {
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	s.metrics.SessionStarted(req.Mode)
	log.Info().Str("gameId", g.ID()).Str("player", player).Str("mode", string(req.Mode)).Msg("session started")

	writeJSON(w, http.StatusOK, newGameRes{
		GameID:  g.ID(),
		Mode:    req.Mode,
		Player:  player,
		Columns: g.Config().Spawner.Columns,
		Date:    date,
	})
}

var (
	errInvalidName  = errors.New("invalid_player_name")
	errNameReserved = errors.New("player_name_reserved")
)

// playerName picks the account name, then a valid requested name, then a
// stable anonymous one. Guests may not borrow a registered name.
func (s *Server) playerName(w http.ResponseWriter, r *http.Request, requested string) (string, error) {
	if me := currentPlayer(r); me != nil {
		return me.Name, nil
	}
	if requested = strings.TrimSpace(requested); requested != "" {
		if err := auth.ValidateName(requested); err != nil {
			return "", errInvalidName
		}
		if s.deps.Auth != nil {
			_, err := s.deps.Auth.FindByName(r.Context(), requested)
			switch {
			case err == nil:
				return "", errNameReserved
			case !errors.Is(err, auth.ErrNotFound):
				log.Error().Err(err).Str("player", requested).Msg("player name lookup")
				return "", err
			}
		}
		return requested, nil
	}
	anon := s.ensureAnonID(w, r)
	return "player_" + anon[:8], nil
}

// lookup loads a live session or writes 404.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request, id string) (*live, bool) {
	l, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return nil, false
	}
	return l, true
}

type gameReq struct {
	GameID string `json:"gameId"`
}

type tickRes struct {
	Events     []event      `json:"events"`
	Snapshot   snapshotView `json:"snapshot"`
	Missed     int          `json:"missed"`
	ChainReset bool         `json:"chainReset"`
}

// tick runs one frame under the session lock.
func (s *Server) tick(l *live) tickRes {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := s.clock.Now()
	l.lastSeen = now
	l.rec.runDue(now)
	res := l.game.Tick()
	s.metrics.Missed(res.Missed)
	return tickRes{
		Events:     l.rec.drain(),
		Snapshot:   l.snapshot(),
		Missed:     res.Missed,
		ChainReset: res.ChainReset,
	}
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	var req gameReq
	if !decode(w, r, &req) {
		return
	}
	l, ok := s.lookup(w, r, req.GameID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.tick(l))
}

type wordReq struct {
	GameID string         `json:"gameId"`
	Word   string         `json:"word"`
	Tiles  []game.TileRef `json:"tiles"`
}

type wordRes struct {
	Outcome  game.Outcome `json:"outcome"`
	Events   []event      `json:"events"`
	Snapshot snapshotView `json:"snapshot"`
}

// submit routes a word through the session under its lock.
func (s *Server) submit(l *live, sub game.Submission) (wordRes, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := s.clock.Now()
	l.lastSeen = now
	l.rec.runDue(now)
	out, err := l.game.Submit(sub)
	if err != nil {
		return wordRes{}, err
	}
	s.metrics.Missed(out.Missed)
	return wordRes{Outcome: out, Events: l.rec.drain(), Snapshot: l.snapshot()}, nil
}

func (s *Server) handleWord(w http.ResponseWriter, r *http.Request) {
	var req wordReq
	if !decode(w, r, &req) {
		return
	}
	l, ok := s.lookup(w, r, req.GameID)
	if !ok {
		return
	}
	res, err := s.submit(l, game.Submission{Word: req.Word, Tiles: req.Tiles})
	if errors.Is(err, game.ErrSessionOver) {
		writeError(w, http.StatusConflict, "session_over")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type endRes struct {
	Summary           game.Summary `json:"summary"`
	DurationSeconds   int          `json:"durationSeconds"`
	Rank              int          `json:"rank,omitempty"`
	TotalParticipants int          `json:"totalParticipants,omitempty"`
	LeaderboardError  string       `json:"leaderboardError,omitempty"`
}

// end finishes the session, submits it and drops it from memory. Repeated
// calls return the first result. Leaderboard failures are reported, never
// fatal.
func (s *Server) end(ctx context.Context, id string, l *live) endRes {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ended != nil {
		return *l.ended
	}
	sum := l.game.End()
	s.dropSession(id)
	s.metrics.SessionEnded(sum)

	sub := leaderboard.FromSummary(sum)
	if l.date != "" {
		sub.Date = l.date // the day the challenge was dealt
	}
	res := endRes{Summary: sum, DurationSeconds: sub.DurationSeconds}
	result, err := s.deps.Leaderboard.Submit(ctx, sub)
	switch {
	case err == nil:
		s.metrics.Submission("ok")
		res.Rank, res.TotalParticipants = result.Rank, result.TotalParticipants
	case errors.Is(err, leaderboard.ErrAlreadyAttempted):
		s.metrics.Submission("duplicate")
		res.LeaderboardError = "already_attempted"
	default:
		s.metrics.Submission("error")
		log.Warn().Err(err).Str("gameId", id).Msg("leaderboard submission failed")
		res.LeaderboardError = "submission_failed"
	}
	log.Info().Str("gameId", id).Str("player", sum.Player).Int("score", sum.Score).
		Int("maxChain", sum.MaxChain).Msg("session ended")
	l.ended = &res
	return res
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	var req gameReq
	if !decode(w, r, &req) {
		return
	}
	l, ok := s.lookup(w, r, req.GameID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.end(r.Context(), req.GameID, l))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	l, ok := s.lookup(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	l.mu.Lock()
	snap := l.snapshot()
	l.mu.Unlock()
	writeJSON(w, http.StatusOK, snap)
}
