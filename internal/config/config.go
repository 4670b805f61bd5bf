package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every recognized option. Defaults mirror a local dev server.
type Config struct {
	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8000/api"`
	WSBaseURL  string `env:"WS_BASE_URL" envDefault:"ws://localhost:8000/ws/game"`

	MaxReconnectAttempts int           `env:"MAX_RECONNECT_ATTEMPTS" envDefault:"5"`
	BaseReconnectDelay   time.Duration `env:"BASE_RECONNECT_DELAY" envDefault:"2s"`
	BattleRemovalGrace   time.Duration `env:"BATTLE_REMOVAL_GRACE" envDefault:"3s"`

	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8000"`
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return parse()
}

func parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.MaxReconnectAttempts < 0 {
		return Config{}, fmt.Errorf("MAX_RECONNECT_ATTEMPTS must be >= 0, got %d", cfg.MaxReconnectAttempts)
	}
	if cfg.BaseReconnectDelay <= 0 {
		return Config{}, fmt.Errorf("BASE_RECONNECT_DELAY must be > 0, got %s", cfg.BaseReconnectDelay)
	}
	if cfg.BattleRemovalGrace < 0 {
		return Config{}, fmt.Errorf("BATTLE_REMOVAL_GRACE must be >= 0, got %s", cfg.BattleRemovalGrace)
	}
	return cfg, nil
}

// SessionURL derives the websocket address for a session: the fixed base
// path plus the session id. Reconnects reuse the same address.
func (c Config) SessionURL(sessionID string) string {
	return fmt.Sprintf("%s/%s", c.WSBaseURL, sessionID)
}
