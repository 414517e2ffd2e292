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
	"github.com/powertrader/powertrader/internal/trainer"
)

func main() {
	var (
		baseDir     = flag.String("base-dir", ".", "Base directory holding coin folders and settings")
		coinsFlag   = flag.String("coins", "", "Comma-separated coin list (overrides gui_settings.json)")
		marketName  = flag.String("market", "binance", "Market data source: binance or bybit")
		testnet     = flag.Bool("testnet", false, "Use the venue testnet")
		force       = flag.Bool("force", false, "Delete all trained memories and retrain from scratch")
		metricsAddr = flag.String("metrics-addr", "", "Prometheus metrics listen address (empty = disabled)")
	)
	flag.Parse()

	settings := config.Load(filepath.Join(*baseDir, paths.SettingsFilename))
	coins := settings.Coins
	if *coinsFlag != "" {
		coins = splitCoins(*coinsFlag)
	}
	forceRetrain := *force

	// Legacy invocation: pt-trainer [COIN] [reprocess_yes|reprocess_no].
	if args := flag.Args(); len(args) > 0 {
		legacyCoins, legacyForce, err := parseLegacyArgs(args)
		if err != nil {
			log.Fatalf("Bad arguments: %v", err)
		}
		coins = legacyCoins
		forceRetrain = forceRetrain || legacyForce
	}
	if len(coins) == 0 {
		log.Fatal("No coins configured")
	}

	appLog, err := logger.NewLogger(paths.LogsDir(*baseDir), "trainer")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer appLog.Close()

	if forceRetrain {
		trainer.ForceRetrain(*baseDir, coins)
		appLog.Info("Force retrain: cleared all training artifacts")
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

	runner := trainer.NewRunner(*baseDir, market, appLog, bus, health)
	if err := runner.Run(ctx, coins); err != nil {
		if errors.Is(err, trainer.ErrKilled) || errors.Is(err, context.Canceled) {
			appLog.Info("Training interrupted: %v", err)
			return
		}
		log.Fatalf("Training failed: %v", err)
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

// parseLegacyArgs handles the positional form `[COIN]
// [reprocess_yes|reprocess_no]`. The coin defaults to BTC, so a lone
// reprocess token is also accepted.
func parseLegacyArgs(args []string) (coins []string, force bool, err error) {
	coin := "BTC"
	reprocess := "reprocess_no"

	switch len(args) {
	case 1:
		if isReprocessToken(args[0]) {
			reprocess = args[0]
		} else {
			coin = args[0]
		}
	case 2:
		coin = args[0]
		reprocess = args[1]
	default:
		return nil, false, fmt.Errorf("expected [COIN] [reprocess_yes|reprocess_no], got %d arguments", len(args))
	}

	if !isReprocessToken(reprocess) {
		return nil, false, fmt.Errorf("expected reprocess_yes or reprocess_no, got %q", reprocess)
	}
	return []string{strings.ToUpper(strings.TrimSpace(coin))}, strings.EqualFold(reprocess, "reprocess_yes"), nil
}

func isReprocessToken(s string) bool {
	return strings.EqualFold(s, "reprocess_yes") || strings.EqualFold(s, "reprocess_no")
}

func splitCoins(raw string) []string {
	var coins []string
	for _, c := range strings.Split(raw, ",") {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			coins = append(coins, c)
		}
	}
	return coins
}
