package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"cryptoSignalBot/config"
	"cryptoSignalBot/internal/adapters/binanceclient"
	"cryptoSignalBot/internal/adapters/logger"
	"cryptoSignalBot/internal/backtest"
)

func main() {
	symbolFlag := flag.String("symbol", "", "symbol to backtest (default: first configured symbol)")
	lookback := flag.Int("lookback", 180, "bars to evaluate after warm-up")
	lookahead := flag.Int("lookahead", 20, "bars a position may stay open")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	symbol := *symbolFlag
	if symbol == "" {
		symbol = cfg.Symbols[0]
	}

	// 2. Fetch history
	client, err := binanceclient.New(binanceclient.Config{
		APIKey:    cfg.APIKey,
		SecretKey: cfg.SecretKey,
		Logger:    appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	ctx := context.Background()
	limit := backtest.Warmup + *lookback + *lookahead + 10
	klines, err := client.GetKlines(ctx, symbol, cfg.Interval, limit)
	if err != nil {
		appLogger.Error(ctx, err, "Failed to fetch klines", map[string]interface{}{"symbol": symbol, "limit": limit})
		log.Fatalf("FATAL: Failed to fetch klines: %v", err)
	}
	appLogger.Info(ctx, "Loaded klines", map[string]interface{}{"symbol": symbol, "interval": cfg.Interval, "count": len(klines)})

	// 3. Run the backtest
	btCfg := backtest.DefaultConfig(symbol, cfg.Interval)
	btCfg.LookbackBars = *lookback
	btCfg.Lookahead = *lookahead

	engine, err := backtest.NewEngine(btCfg, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to create backtest engine: %v", err)
	}
	result, err := engine.Run(ctx, klines)
	if err != nil {
		log.Fatalf("FATAL: Backtest failed: %v", err)
	}

	// 4. Print the report
	s := result.Summary
	fmt.Printf("\nBacktest %s %s (%d bars, %d bar exit window)\n", s.Symbol, s.Timeframe, btCfg.LookbackBars, btCfg.Lookahead)
	fmt.Printf("Trades:   %d (%d wins / %d losses)\n", s.Trades, s.Wins, s.Losses)
	fmt.Printf("Win rate: %.1f%%\n", s.WinRatePct)
	fmt.Printf("Avg PnL:  %.2f%%\n", s.AvgPNLPct)
	fmt.Printf("TP hits:  %d | SL hits: %d\n\n", s.TPHits, s.SLHits)

	for _, tr := range result.Trades {
		fmt.Printf("%s  %-4s entry %.4f  stop %.4f  exit %.4f (%s)  %+.2f%%\n",
			tr.Time.Format("2006-01-02 15:04"), tr.Action, tr.Entry, tr.Stop, tr.Exit, tr.ExitReason, tr.PNLPercent)
	}
}
