// internal/config/tuning.go
//
// Optional YAML gameplay tuning (GAME_TUNING_FILE). Every field is optional;
// omitted fields keep game.DefaultConfig values.
//
//	columns: 5
//	spawn_interval: 1200ms
//	fall_speed: 120
//	chain:
//	  timeout: 2500ms
//	  missed_threshold: 4
//	miss_policy: always
//	frequencies: {E: 14, Q: 1}
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robalobadob/fallphabet/internal/game"
	"github.com/robalobadob/fallphabet/internal/letters"
)

// Tuning mirrors the tunable parts of game.Config.
type Tuning struct {
	Columns       *int           `yaml:"columns"`
	SpawnInterval *time.Duration `yaml:"spawn_interval"`
	FallSpeed     *float64       `yaml:"fall_speed"`
	Grid          struct {
		Top         *float64 `yaml:"top"`
		Height      *float64 `yaml:"height"`
		SpawnOffset *float64 `yaml:"spawn_offset"`
		PurgeMargin *float64 `yaml:"purge_margin"`
	} `yaml:"grid"`
	Chain struct {
		Timeout         *time.Duration `yaml:"timeout"`
		MissedThreshold *int           `yaml:"missed_threshold"`
	} `yaml:"chain"`
	MissPolicy    string         `yaml:"miss_policy"`
	FlashDuration *time.Duration `yaml:"flash_duration"`
	Frequencies   map[string]int `yaml:"frequencies"`
}

// LoadTuning reads a YAML tuning file.
func LoadTuning(path string) (*Tuning, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tuning %s: %w", path, err)
	}
	var t Tuning
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("parse tuning %s: %w", path, err)
	}
	return &t, nil
}

// GameConfig overlays t on game.DefaultConfig and validates the result.
// A nil Tuning yields the defaults.
func (t *Tuning) GameConfig() (game.Config, error) {
	cfg := game.DefaultConfig()
	if t == nil {
		return cfg, nil
	}
	setInt(&cfg.Spawner.Columns, t.Columns)
	setDur(&cfg.Spawner.SpawnInterval, t.SpawnInterval)
	setFloat(&cfg.Spawner.FallSpeed, t.FallSpeed)
	setFloat(&cfg.Spawner.GridTop, t.Grid.Top)
	setFloat(&cfg.Spawner.GridHeight, t.Grid.Height)
	setFloat(&cfg.Spawner.SpawnOffset, t.Grid.SpawnOffset)
	setFloat(&cfg.Spawner.PurgeMargin, t.Grid.PurgeMargin)
	setDur(&cfg.Chain.Timeout, t.Chain.Timeout)
	setInt(&cfg.Chain.MissedThreshold, t.Chain.MissedThreshold)
	setDur(&cfg.FlashDuration, t.FlashDuration)

	if t.MissPolicy != "" {
		cfg.MissPolicy = game.MissPolicy(t.MissPolicy)
		if !cfg.MissPolicy.Valid() {
			return game.Config{}, fmt.Errorf("tuning: unknown miss_policy %q", t.MissPolicy)
		}
	}
	if len(t.Frequencies) > 0 {
		freq := make(map[rune]int, len(t.Frequencies))
		for k, v := range t.Frequencies {
			r := []rune(k)
			if len(r) != 1 {
				return game.Config{}, fmt.Errorf("tuning: frequency key %q is not a single letter", k)
			}
			freq[r[0]] = v
		}
		if _, err := letters.NewPool(freq); err != nil {
			return game.Config{}, fmt.Errorf("tuning: %w", err)
		}
		cfg.Frequencies = freq
	}

	if err := cfg.Spawner.Validate(); err != nil {
		return game.Config{}, fmt.Errorf("tuning: %w", err)
	}
	if err := cfg.Chain.Validate(); err != nil {
		return game.Config{}, fmt.Errorf("tuning: %w", err)
	}
	return cfg, nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setDur(dst *time.Duration, v *time.Duration) {
	if v != nil {
		*dst = *v
	}
}
