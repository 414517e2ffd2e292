package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/powertrader/powertrader/internal/config"
	"github.com/powertrader/powertrader/internal/events"
	"github.com/powertrader/powertrader/internal/exchange"
	"github.com/powertrader/powertrader/internal/logger"
	"github.com/powertrader/powertrader/internal/monitoring"
	"github.com/powertrader/powertrader/internal/paths"
	"github.com/powertrader/powertrader/internal/trader"
)

func main() {
	var (
		baseDir     = flag.String("base-dir", ".", "Base directory holding coin folders and settings")
		paper       = flag.Bool("paper", false, "Paper trading: simulated fills against live prices")
		testnet     = flag.Bool("testnet", false, "Use the Binance testnet")
		metricsAddr = flag.String("metrics-addr", "", "Prometheus metrics listen address (empty = disabled)")
	)
	flag.Parse()

	settings := config.Load(filepath.Join(*baseDir, paths.SettingsFilename))

	appLog, err := logger.NewLogger(paths.LogsDir(*baseDir), "trader")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLog.Close()

	for _, warn := range settings.Validate() {
		appLog.Warning("Settings: %s", warn)
	}

	creds := exchange.LoadCredentials(*baseDir)

	var client exchange.TradingClient
	if *paper {
		market := exchange.NewBinanceClient("", "", *testnet)
		client = exchange.NewPaperClient(market)
		appLog.Info("Paper trading: starting balance $%.2f", exchange.PaperStartUSDT)
	} else {
		if !creds.IsValid() {
			log.Fatal("Live trading requires Binance API credentials (BINANCE_API_KEY/BINANCE_API_SECRET or b_key.txt/b_secret.txt)")
		}
		binance := exchange.NewBinanceClient(creds.APIKey, creds.APISecret, *testnet)
		ctx, cancel := context.WithTimeout(context.Background(), trader.PostTradeSleep)
		err := binance.Connect(ctx)
		cancel()
		if err != nil {
			log.Fatalf("Binance connection check failed: %v", err)
		}
		client = binance
		appLog.Info("Live trading on Binance (credentials from %s)", creds.Source)
	}

	health := monitoring.NewHealthChecker()
	bus := events.NewBus()
	if *metricsAddr != "" {
		monitoring.Serve(*metricsAddr, health)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		appLog.Info("Shutdown signal received")
		cancel()
	}()

	runner := trader.NewRunner(*baseDir, client, settings, appLog, bus, health)
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Trader failed: %v", err)
	}
}
