package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8645" {
		t.Fatalf("listen address = %q", cfg.ListenAddress)
	}
	if cfg.RateLimitPerMinute != 600 || cfg.RateLimitBurst != 20 {
		t.Fatalf("rate limits = %v/%v", cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	}
	if cfg.HistoryDriver != "sqlite" {
		t.Fatalf("history driver = %q", cfg.HistoryDriver)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default file not written: %v", err)
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
ListenAddress = ":9999"
DataDir = "/tmp/marketdata"
VaultAddress = "nft1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqq40u2p0"
FaucetEnabled = true
PausedModules = ["Market"]
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":9999" {
		t.Fatalf("listen address = %q", cfg.ListenAddress)
	}
	if !cfg.FaucetEnabled {
		t.Fatalf("faucet not enabled")
	}
	// Unset fields fall back to defaults.
	if cfg.RateLimitPerMinute != 600 {
		t.Fatalf("rate limit = %v, want default", cfg.RateLimitPerMinute)
	}
	if cfg.HistoryDSN == "" {
		t.Fatalf("history DSN default not derived from data dir")
	}
}

func TestPauseSet(t *testing.T) {
	cfg := &Config{PausedModules: []string{" Market ", "", "token"}}
	pauses := cfg.Pauses()

	if !pauses.IsPaused("market") {
		t.Fatalf("market should be paused")
	}
	if !pauses.IsPaused("TOKEN") {
		t.Fatalf("pause lookup should be case-insensitive")
	}
	if pauses.IsPaused("history") {
		t.Fatalf("history should not be paused")
	}
}
