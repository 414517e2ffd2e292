package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/powertrader/powertrader/internal/config"
	"github.com/powertrader/powertrader/internal/events"
	"github.com/powertrader/powertrader/internal/exchange"
	"github.com/powertrader/powertrader/internal/logger"
	"github.com/powertrader/powertrader/internal/monitoring"
	"github.com/powertrader/powertrader/internal/paths"
	"github.com/powertrader/powertrader/internal/thinker"
)

func main() {
	var (
		baseDir     = flag.String("base-dir", ".", "Base directory holding coin folders and settings")
		marketName  = flag.String("market", "binance", "Market data source: binance or bybit")
		testnet     = flag.Bool("testnet", false, "Use the venue testnet")
		metricsAddr = flag.String("metrics-addr", "", "Prometheus metrics listen address (empty = disabled)")
	)
	flag.Parse()

	settings := config.Load(filepath.Join(*baseDir, paths.SettingsFilename))

	appLog, err := logger.NewLogger(paths.LogsDir(*baseDir), "thinker")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLog.Close()

	for _, warn := range settings.Validate() {
		appLog.Warning("Settings: %s", warn)
	}

	market, err := newMarketClient(*marketName, *testnet)
	if err != nil {
		log.Fatalf("Market client: %v", err)
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

	runner := thinker.NewRunner(*baseDir, market, settings, appLog, bus, health)
	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Thinker failed: %v", err)
	}
}

func newMarketClient(name string, testnet bool) (exchange.MarketDataClient, error) {
	switch strings.ToLower(name) {
	case "binance":
		return exchange.NewBinanceClient("", "", testnet), nil
	case "bybit":
		return exchange.NewBybitMarketClient(testnet), nil
	}
	return nil, fmt.Errorf("unknown market %q", name)
}
