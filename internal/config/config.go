// internal/config/config.go
//
// Process configuration, parsed from the environment with
// github.com/caarlos0/env. A .env file is loaded first when present.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Leaderboard backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds all server settings.
type Config struct {
	// Server
	Port         int    `env:"PORT" envDefault:"5175"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
	Environment  string `env:"ENVIRONMENT" envDefault:"dev"`
	ClientOrigin string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`

	// Storage
	DatabasePath       string `env:"DATABASE_PATH" envDefault:"./data/fallphabet.db"`
	LeaderboardBackend string `env:"LEADERBOARD_BACKEND" envDefault:"sqlite"`

	// Redis (LEADERBOARD_BACKEND=redis)
	RedisHost       string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort       string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword   string `env:"REDIS_PASSWORD"`
	RedisMaxRetries int    `env:"REDIS_MAX_RETRIES" envDefault:"5"`

	// Auth
	JWTSecret      string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpiresDays int    `env:"JWT_EXPIRES_DAYS" envDefault:"14"`
	CookieName     string `env:"COOKIE_NAME" envDefault:"fallphabet_token"`

	// Gameplay
	DailySalt      string        `env:"DAILY_SALT" envDefault:"local_dev_salt"`
	WordsFile      string        `env:"WORDS_FILE"`
	WordsMinLength int           `env:"WORDS_MIN_LENGTH" envDefault:"3"`
	TuningFile     string        `env:"GAME_TUNING_FILE"`
	TickInterval   time.Duration `env:"WS_TICK_INTERVAL" envDefault:"50ms"`
}

// Load reads .env (if any) and parses the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	} else {
		log.Info().Msg("loaded environment from .env")
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config from environment: %w", err)
	}
	cfg.LeaderboardBackend = strings.ToLower(strings.TrimSpace(cfg.LeaderboardBackend))
	return cfg, nil
}

// Production reports whether cookies should be Secure.
func (c *Config) Production() bool { return c.Environment == "production" }

// Addr is the listen address.
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d (must be 1-65535)", c.Port)
	}
	switch c.LeaderboardBackend {
	case BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("invalid LEADERBOARD_BACKEND: %q (sqlite|redis)", c.LeaderboardBackend)
	}
	if c.RedisMaxRetries < 0 {
		return fmt.Errorf("invalid REDIS_MAX_RETRIES: %d", c.RedisMaxRetries)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Production() && c.JWTSecret == "dev_secret_change_me" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	if c.JWTExpiresDays < 1 {
		return fmt.Errorf("invalid JWT_EXPIRES_DAYS: %d", c.JWTExpiresDays)
	}
	if c.WordsMinLength < 1 {
		return fmt.Errorf("invalid WORDS_MIN_LENGTH: %d", c.WordsMinLength)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("invalid WS_TICK_INTERVAL: %v", c.TickInterval)
	}
	return nil
}
