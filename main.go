// main.go
//
// Fallphabet backend entrypoint.
//   - Load config from the environment (.env honored), set the log level.
//   - Open SQLite (accounts, and the leaderboard unless Redis is selected).
//   - Load the dictionary and optional gameplay tuning.
//   - Serve HTTP + WebSocket until SIGINT/SIGTERM.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/fallphabet/internal/auth"
	"github.com/robalobadob/fallphabet/internal/config"
	"github.com/robalobadob/fallphabet/internal/game"
	"github.com/robalobadob/fallphabet/internal/httpserver"
	"github.com/robalobadob/fallphabet/internal/leaderboard"
	"github.com/robalobadob/fallphabet/internal/metrics"
	"github.com/robalobadob/fallphabet/internal/store"
	"github.com/robalobadob/fallphabet/internal/words"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.Production() {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to open database")
	}
	defer db.Close()
	if err := store.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	var board leaderboard.Store
	switch cfg.LeaderboardBackend {
	case config.BackendRedis:
		client, err := leaderboard.Connect(ctx, leaderboard.RedisOptions{
			Host:       cfg.RedisHost,
			Port:       cfg.RedisPort,
			Password:   cfg.RedisPassword,
			MaxRetries: cfg.RedisMaxRetries,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		board = leaderboard.NewRedis(client, leaderboard.DefaultPrefix)
	default:
		board = leaderboard.NewSQLite(db)
	}
	defer board.Close()

	if err := words.Init(cfg.WordsFile, cfg.WordsMinLength); err != nil {
		log.Fatal().Err(err).Msg("failed to load word list")
	}

	gameCfg := game.DefaultConfig()
	if cfg.TuningFile != "" {
		t, err := config.LoadTuning(cfg.TuningFile)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load tuning")
		}
		if gameCfg, err = t.GameConfig(); err != nil {
			log.Fatal().Err(err).Str("file", cfg.TuningFile).Msg("invalid tuning")
		}
	}

	srv := httpserver.New(httpserver.Deps{
		Leaderboard: board,
		Auth: auth.New(db, auth.Options{
			Secret:      cfg.JWTSecret,
			ExpiresDays: cfg.JWTExpiresDays,
			CookieName:  cfg.CookieName,
			Secure:      cfg.Production(),
		}),
		Words:        words.Shared(),
		Metrics:      metrics.New(),
		Game:         gameCfg,
		DailySalt:    cfg.DailySalt,
		ClientOrigin: cfg.ClientOrigin,
		Secure:       cfg.Production(),
		TickInterval: cfg.TickInterval,
	})

	log.Info().
		Str("addr", cfg.Addr()).
		Str("leaderboard", cfg.LeaderboardBackend).
		Int("words", words.Stats()).
		Msg("starting fallphabet server")
	if err := srv.Run(ctx, cfg.Addr()); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}
