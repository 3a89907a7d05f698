// internal/httpserver/routes_leaderboard.go
//
// Read-only leaderboard routes.
//   - GET /leaderboard?mode=&limit=           top entries for a mode (all time)
//   - GET /leaderboard/player/{name}?mode=    a player's best entry
//   - GET /leaderboard/rank?score=&mode=      rank a score would get
//   - GET /daily/leaderboard?date=&limit=     one day's challenge board
//   - GET /daily/attempt?player=              has the player played today?
//
// Limits default to 10 and are capped at 100; dates are YYYY-MM-DD (UTC).
package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/fallphabet/internal/daily"
	"github.com/robalobadob/fallphabet/internal/game"
	"github.com/robalobadob/fallphabet/internal/leaderboard"
)

func (s *Server) mountLeaderboard(r chi.Router) {
	r.Route("/leaderboard", func(r chi.Router) {
		r.Get("/", s.handleTop)
		r.Get("/player/{name}", s.handlePlayerBest)
		r.Get("/rank", s.handleRank)
	})
	r.Route("/daily", func(r chi.Router) {
		r.Get("/leaderboard", s.handleDailyBoard)
		r.Get("/attempt", s.handleDailyAttempt)
	})
}

type boardRes struct {
	Mode    game.Mode           `json:"mode,omitempty"`
	Date    string              `json:"date,omitempty"`
	Entries []leaderboard.Entry `json:"entries"`
}

// queryMode reads ?mode=, defaulting to taptile. It writes 400 when unknown.
func queryMode(w http.ResponseWriter, r *http.Request) (game.Mode, bool) {
	m := game.Mode(r.URL.Query().Get("mode"))
	if m == "" {
		return game.ModeTaptile, true
	}
	if !m.Valid() {
		writeError(w, http.StatusBadRequest, "unknown_mode")
		return "", false
	}
	return m, true
}

// queryLimit reads ?limit=; bad values fall back to the default.
func queryLimit(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return leaderboard.NormalizeLimit(n)
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	mode, ok := queryMode(w, r)
	if !ok {
		return
	}
	entries, err := s.deps.Leaderboard.Top(r.Context(), mode, queryLimit(r))
	if err != nil {
		log.Error().Err(err).Msg("leaderboard top")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, boardRes{Mode: mode, Entries: nonNil(entries)})
}

func (s *Server) handlePlayerBest(w http.ResponseWriter, r *http.Request) {
	mode, ok := queryMode(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "name")
	best, found, err := s.deps.Leaderboard.PlayerBest(r.Context(), name, mode)
	if err != nil {
		log.Error().Err(err).Str("player", name).Msg("leaderboard player best")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, best)
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	mode, ok := queryMode(w, r)
	if !ok {
		return
	}
	score, err := strconv.Atoi(r.URL.Query().Get("score"))
	if err != nil || score < 0 {
		writeError(w, http.StatusBadRequest, "invalid_score")
		return
	}
	rank, err := s.deps.Leaderboard.Rank(r.Context(), score, mode)
	if err != nil {
		log.Error().Err(err).Msg("leaderboard rank")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mode": mode, "score": score, "rank": rank})
}

func (s *Server) handleDailyBoard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(s.clock.Now())
	} else if d, err := daily.ParseDate(date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	} else {
		date = d
	}
	entries, err := s.deps.Leaderboard.Daily(r.Context(), date, queryLimit(r))
	if err != nil {
		log.Error().Err(err).Str("date", date).Msg("daily leaderboard")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, boardRes{Date: date, Entries: nonNil(entries)})
}

type attemptRes struct {
	Date      string `json:"date"`
	Player    string `json:"player"`
	Attempted bool   `json:"attempted"`
	Score     *int   `json:"score,omitempty"`
}

// handleDailyAttempt answers for the logged-in player, else ?player=.
func (s *Server) handleDailyAttempt(w http.ResponseWriter, r *http.Request) {
	player := r.URL.Query().Get("player")
	if me := currentPlayer(r); me != nil {
		player = me.Name
	}
	if player == "" {
		writeError(w, http.StatusBadRequest, "player_required")
		return
	}
	date := daily.DateKey(s.clock.Now())
	score, played, err := s.deps.Leaderboard.DailyScore(r.Context(), player, date)
	if err != nil {
		log.Error().Err(err).Str("player", player).Msg("daily attempt")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	res := attemptRes{Date: date, Player: player, Attempted: played}
	if played {
		res.Score = &score
	}
	writeJSON(w, http.StatusOK, res)
}

func nonNil(e []leaderboard.Entry) []leaderboard.Entry {
	if e == nil {
		return []leaderboard.Entry{}
	}
	return e
}
