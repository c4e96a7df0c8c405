package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the marketd daemon configuration.
type Config struct {
	ListenAddress      string   `toml:"ListenAddress"`
	DataDir            string   `toml:"DataDir"`
	Environment        string   `toml:"Environment"`
	VaultAddress       string   `toml:"VaultAddress"`
	FeeScheduleFile    string   `toml:"FeeScheduleFile"`
	AuthToken          string   `toml:"AuthToken"`
	JWTSecret          string   `toml:"JWTSecret"`
	RateLimitPerMinute float64  `toml:"RateLimitPerMinute"`
	RateLimitBurst     int      `toml:"RateLimitBurst"`
	FaucetEnabled      bool     `toml:"FaucetEnabled"`
	HistoryDriver      string   `toml:"HistoryDriver"`
	HistoryDSN         string   `toml:"HistoryDSN"`
	LogFile            string   `toml:"LogFile"`
	LogMaxSizeMB       int      `toml:"LogMaxSizeMB"`
	LogMaxBackups      int      `toml:"LogMaxBackups"`
	LogMaxAgeDays      int      `toml:"LogMaxAgeDays"`
	PausedModules      []string `toml:"PausedModules"`
}

// Load loads the configuration from the given path, writing a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./marketdata"
	}
	if strings.TrimSpace(cfg.Environment) == "" {
		cfg.Environment = "local"
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 600
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 20
	}
	if strings.TrimSpace(cfg.HistoryDriver) == "" {
		cfg.HistoryDriver = "sqlite"
	}
	if strings.TrimSpace(cfg.HistoryDSN) == "" {
		cfg.HistoryDSN = filepath.Join(cfg.DataDir, "history.db")
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create default config: %w", err)
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encode default config: %w", err)
	}
	return cfg, nil
}

// PauseSet is a config-driven pause switchboard satisfying common.PauseView.
type PauseSet map[string]struct{}

// Pauses builds the pause view from the configured module names.
func (c *Config) Pauses() PauseSet {
	set := make(PauseSet, len(c.PausedModules))
	for _, module := range c.PausedModules {
		trimmed := strings.ToLower(strings.TrimSpace(module))
		if trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}

// IsPaused implements the common.PauseView interface.
func (p PauseSet) IsPaused(module string) bool {
	_, ok := p[strings.ToLower(strings.TrimSpace(module))]
	return ok
}
