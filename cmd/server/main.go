package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/sirily11/bybit-backtest/internal/config"
	"github.com/sirily11/bybit-backtest/internal/logger"
	"github.com/sirily11/bybit-backtest/internal/market/bybit"
	"github.com/sirily11/bybit-backtest/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLogger.Sync()

	baseURL := bybit.MainnetBaseURL
	if cfg.BybitTestnet {
		baseURL = bybit.TestnetBaseURL
	}

	client := bybit.NewClient(bybit.ClientOptions{
		BaseURL:        baseURL,
		Timeout:        cfg.RequestTimeout,
		RequestsPerSec: cfg.RequestsPerSec,
		CacheTTL:       cfg.CacheTTL,
	}, appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiServer := server.NewServer(appLogger, client)
	if err := apiServer.Start(ctx, cfg.ServerAddr); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
