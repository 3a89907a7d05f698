// internal/auth/auth.go
//
// Player accounts and session tokens.
// Responsibilities:
//   - Signup / Login with bcrypt-hashed passwords (players table).
//   - HS256 JWTs carrying id + name, with a configurable expiry.
//   - Auth cookie helpers and bearer-or-cookie token extraction.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNameTaken      = errors.New("auth: name taken")
	ErrBadCredentials = errors.New("auth: invalid name or password")
	ErrInvalidToken   = errors.New("auth: invalid token")
	ErrNotFound       = errors.New("auth: player not found")
	// ErrInvalidInput wraps signup validation failures.
	ErrInvalidInput = errors.New("auth: invalid input")
)

// Player is a registered account.
type Player struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Claims is what a verified token says about its bearer.
type Claims struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Options configures a Service.
type Options struct {
	Secret      string
	ExpiresDays int
	CookieName  string
	Secure      bool // production cookies: Secure + SameSite=None
}

// Service issues and checks credentials.
type Service struct {
	db   *sql.DB
	opts Options
	now  func() time.Time
}

// New returns a Service over a migrated database.
func New(db *sql.DB, opts Options) *Service {
	if opts.ExpiresDays <= 0 {
		opts.ExpiresDays = 14
	}
	if opts.CookieName == "" {
		opts.CookieName = "fallphabet_token"
	}
	return &Service{db: db, opts: opts, now: time.Now}
}

// CookieName returns the auth cookie name.
func (s *Service) CookieName() string { return s.opts.CookieName }

// ValidateName enforces 3-20 characters of letters, digits or underscore.
func ValidateName(name string) error {
	if len(name) < 3 || len(name) > 20 {
		return fmt.Errorf("%w: name must be 3-20 chars", ErrInvalidInput)
	}
	for _, r := range name {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return fmt.Errorf("%w: name: letters, numbers, underscore only", ErrInvalidInput)
		}
	}
	return nil
}

func validatePassword(p string) error {
	if len(p) < 8 || len(p) > 100 {
		return fmt.Errorf("%w: password must be 8-100 chars", ErrInvalidInput)
	}
	return nil
}

// Signup creates an account. Names are unique case-insensitively.
func (s *Service) Signup(ctx context.Context, name, password string) (*Player, error) {
	name = strings.TrimSpace(name)
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM players WHERE lower(name)=lower(?)`, name).Scan(&exists)
	if err == nil {
		return nil, ErrNameTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	p := &Player{
		ID:           uuid.NewString(),
		Name:         name,
		PasswordHash: string(h),
		CreatedAt:    s.now().UTC().Truncate(time.Second),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO players (id, name, password_hash, created_at) VALUES (?,?,?,?)`,
		p.ID, p.Name, p.PasswordHash, p.CreatedAt.Format(time.RFC3339)); err != nil {
		return nil, err
	}
	return p, nil
}

// Login checks name and password.
func (s *Service) Login(ctx context.Context, name, password string) (*Player, error) {
	p, err := s.FindByName(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return p, nil
}

// FindByName loads an account by case-insensitive name.
func (s *Service) FindByName(ctx context.Context, name string) (*Player, error) {
	return s.find(ctx, `lower(name)=lower(?)`, strings.TrimSpace(name))
}

// FindByID loads an account.
func (s *Service) FindByID(ctx context.Context, id string) (*Player, error) {
	return s.find(ctx, `id=?`, id)
}

func (s *Service) find(ctx context.Context, where string, arg any) (*Player, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, password_hash, created_at FROM players WHERE `+where, arg)
	var p Player
	var created string
	if err := row.Scan(&p.ID, &p.Name, &p.PasswordHash, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &p, nil
}

// Sign creates a token for p and returns it with its expiry.
func (s *Service) Sign(p *Player) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(time.Duration(s.opts.ExpiresDays) * 24 * time.Hour)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   p.ID,
		"name": p.Name,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	})
	ss, err := t.SignedString([]byte(s.opts.Secret))
	return ss, exp, err
}

// Verify parses and checks a token.
func (s *Service) Verify(token string) (Claims, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.opts.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || !t.Valid {
		return Claims{}, ErrInvalidToken
	}
	id, _ := claims["id"].(string)
	name, _ := claims["name"].(string)
	if id == "" || name == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{ID: id, Name: name}, nil
}

// ------------------------------ cookies ------------------------------------

// SetCookie writes the auth token cookie.
func (s *Service) SetCookie(w http.ResponseWriter, token string, exp time.Time) {
	c := s.cookie()
	c.Value = token
	c.Expires = exp
	http.SetCookie(w, c)
}

// ClearCookie deletes the auth token cookie.
func (s *Service) ClearCookie(w http.ResponseWriter) {
	c := s.cookie()
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func (s *Service) cookie() *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if s.opts.Secure {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     s.opts.CookieName,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.Secure,
		SameSite: sameSite,
	}
}

// TokenFromRequest extracts a bearer token or the auth cookie.
func (s *Service) TokenFromRequest(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	if c, err := r.Cookie(s.opts.CookieName); err == nil {
		return c.Value
	}
	return ""
}
