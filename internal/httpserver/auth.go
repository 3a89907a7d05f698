// internal/httpserver/auth.go
//
// Auth endpoints and middleware.
//   - POST /auth/signup, POST /auth/login, POST /auth/logout, GET /auth/me
//   - withOptionalAuth decorates requests with the player when a valid token
//     is present; requireAuth rejects requests without one.
//   - Guests get a stable anonymous cookie used for their fallback name.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/fallphabet/internal/auth"
)

const anonCookieName = "fallphabet_anon"

// ctxPlayerKey is the context key type for the authenticated player.
type ctxPlayerKey struct{}

type credentialsReq struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *Server) mountAuthRoutes(r chi.Router) {
	r.Post("/auth/signup", s.handleSignup)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", s.handleLogout)
	r.With(s.requireAuth()).Get("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, currentPlayer(r))
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if !decode(w, r, &body) {
		return
	}
	p, err := s.deps.Auth.Signup(r.Context(), body.Name, body.Password)
	switch {
	case errors.Is(err, auth.ErrNameTaken):
		writeError(w, http.StatusConflict, "Name taken")
		return
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), auth.ErrInvalidInput.Error()+": "))
		return
	case err != nil:
		log.Error().Err(err).Msg("signup")
		writeError(w, http.StatusInternalServerError, "signup_failed")
		return
	}
	if !s.issueToken(w, p) {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentialsReq
	if !decode(w, r, &body) {
		return
	}
	p, err := s.deps.Auth.Login(r.Context(), body.Name, body.Password)
	if errors.Is(err, auth.ErrBadCredentials) {
		writeError(w, http.StatusUnauthorized, "Invalid name or password")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("login")
		writeError(w, http.StatusInternalServerError, "login_failed")
		return
	}
	if !s.issueToken(w, p) {
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// issueToken signs a JWT for p and sets the auth cookie.
func (s *Server) issueToken(w http.ResponseWriter, p *auth.Player) bool {
	tok, exp, err := s.deps.Auth.Sign(p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return false
	}
	s.deps.Auth.SetCookie(w, tok, exp)
	return true
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.deps.Auth.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// playerFromToken resolves the request's token to a live account.
func (s *Server) playerFromToken(r *http.Request) (*auth.Player, error) {
	tok := s.deps.Auth.TokenFromRequest(r)
	if tok == "" {
		return nil, auth.ErrInvalidToken
	}
	c, err := s.deps.Auth.Verify(tok)
	if err != nil {
		return nil, err
	}
	// ensure the account still exists
	return s.deps.Auth.FindByID(r.Context(), c.ID)
}

// withOptionalAuth never rejects; it only adds the player when known.
func (s *Server) withOptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.deps.Auth != nil {
				if p, err := s.playerFromToken(r); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), ctxPlayerKey{}, p))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireAuth enforces a valid token for the wrapped routes.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if currentPlayer(r) == nil {
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func currentPlayer(r *http.Request) *auth.Player {
	p, _ := r.Context().Value(ctxPlayerKey{}).(*auth.Player)
	return p
}

// ensureAnonID returns an existing anon cookie or sets a new one.
func (s *Server) ensureAnonID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(anonCookieName); err == nil && len(c.Value) >= 8 {
		return c.Value
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	sameSite := http.SameSiteLaxMode
	if s.deps.Secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     anonCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.deps.Secure,
		SameSite: sameSite,
		Expires:  time.Now().Add(180 * 24 * time.Hour),
	})
	return id
}
