// Package config holds application configuration and the model alias
// table.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config holds application configuration. Environment-backed fields are
// parsed from the process environment; the remainder is filled from
// command-line flags.
type Config struct {
	BaseURL     string        `env:"DUCKCHAT_BASE_URL" envDefault:"https://duckduckgo.com/duckchat/v1"`
	DBPath      string        `env:"DUCKCHAT_DB" envDefault:"duckchat.db"`
	HistoryFile string        `env:"DUCKCHAT_HISTORY_FILE"`
	HTTPTimeout time.Duration `env:"DUCKCHAT_HTTP_TIMEOUT" envDefault:"60s"`

	// Flag-driven settings.
	Model      string
	ListModels bool
	File       string
	Debug      bool
	OneShot    string
	TTS        bool
	TTSLang    string
	TTSRate    float64
	PrintFile  bool
	SessionID  string
}

// Load parses the environment-backed configuration fields.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing env config: %w", err)
	}

	if cfg.HistoryFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolving home directory: %w", err)
		}
		cfg.HistoryFile = filepath.Join(home, ".duckchat-history")
	}

	return cfg, nil
}
