package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"nftmarket/config"
	"nftmarket/core/events"
	"nftmarket/crypto"
	"nftmarket/history"
	"nftmarket/native/fees"
	"nftmarket/native/market"
	"nftmarket/native/token"
	"nftmarket/observability/logging"
	"nftmarket/rpc"
	"nftmarket/state"
	"nftmarket/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger := logging.Setup("marketd", cfg.Environment, logging.FileRotation{
		Path:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		panic(fmt.Sprintf("Failed to prepare data directory: %v", err))
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	manager := state.NewManager(db)

	vaultAddr, err := crypto.DecodeAddress(cfg.VaultAddress)
	if err != nil {
		logger.Error("Invalid vault address", slog.Any("error", err))
		os.Exit(1)
	}

	var hist *history.Store
	if strings.TrimSpace(cfg.HistoryDSN) != "" {
		hist, err = history.Open(cfg.HistoryDriver, cfg.HistoryDSN, logger)
		if err != nil {
			logger.Error("Failed to open history store", slog.Any("error", err))
			os.Exit(1)
		}
		defer hist.Close()
	}

	var emitter events.Emitter = events.NoopEmitter{}
	if hist != nil {
		emitter = events.NewMulti(hist)
	}

	registry := token.NewRegistry()
	registry.SetState(manager)
	registry.SetEmitter(emitter)

	// The vault must accept custody of every standard directly, otherwise
	// escrowed legacy tokens would park in its pickup container.
	if err := registry.SetDirectReceive(vaultAddr.Raw(), true); err != nil {
		logger.Error("Failed to register vault direct receive", slog.Any("error", err))
		os.Exit(1)
	}

	engine := market.NewEngine()
	engine.SetState(manager)
	engine.SetCustody(registry)
	engine.SetEmitter(emitter)
	engine.SetVault(vaultAddr.Raw())
	engine.SetPauses(cfg.Pauses())

	if strings.TrimSpace(cfg.FeeScheduleFile) != "" {
		schedules, err := fees.LoadFile(cfg.FeeScheduleFile)
		if err != nil {
			logger.Error("Failed to load fee schedules", slog.Any("error", err))
			os.Exit(1)
		}
		for id, schedule := range schedules {
			engine.RegisterSchedule(id, schedule)
		}
		logger.Info("Loaded fee schedules", "count", len(schedules))
	} else {
		logger.Warn("No fee schedule file configured; listings will be rejected until schedules are registered")
	}

	server := rpc.NewServer(rpc.Config{
		Engine:        engine,
		Registry:      registry,
		State:         manager,
		History:       hist,
		Logger:        logger,
		AuthToken:     cfg.AuthToken,
		JWTSecret:     cfg.JWTSecret,
		RatePerMinute: cfg.RateLimitPerMinute,
		RateBurst:     cfg.RateLimitBurst,
		FaucetEnabled: cfg.FaucetEnabled,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.ListenAddress)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	case sig := <-sigCh:
		logger.Info("Shutting down", "signal", sig.String())
	}
}
