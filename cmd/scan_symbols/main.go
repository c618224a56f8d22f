package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"cryptoSignalBot/config"
	"cryptoSignalBot/internal/adapters/binanceclient"
	"cryptoSignalBot/internal/adapters/logger"
	"cryptoSignalBot/internal/app"
	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/risk"
)

// The screener evaluates every configured symbol once and ranks the results
// by confidence. Nothing is persisted or alerted.

type discardRepo struct{}

func (discardRepo) SaveEvaluation(ctx context.Context, eval *domain.Evaluation) (int64, error) {
	return 0, nil
}

func (discardRepo) RecentEvaluations(ctx context.Context, symbol string, limit int) ([]*domain.Evaluation, error) {
	return nil, nil
}

type discardNotifier struct{}

func (discardNotifier) Send(ctx context.Context, message string) map[string]bool { return nil }
func (discardNotifier) EnabledChannels() map[string]bool                         { return nil }

func main() {
	workers := flag.Int("workers", 4, "concurrent symbol evaluations")
	symbolsFlag := flag.String("symbols", "", "comma-separated symbols (default: configured SYMBOLS)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	if *symbolsFlag != "" {
		cfg.Symbols = nil
		for _, s := range strings.Split(*symbolsFlag, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.Symbols = append(cfg.Symbols, strings.ToUpper(s))
			}
		}
	}

	appLogger, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	client, err := binanceclient.New(binanceclient.Config{
		APIKey:    cfg.APIKey,
		SecretKey: cfg.SecretKey,
		Logger:    appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}

	riskMgr, err := risk.NewManager(risk.DefaultProfile(cfg.AccountBalance))
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize risk manager: %v", err)
	}

	svc, err := app.NewAnalysisService(cfg, appLogger, client, discardRepo{}, discardNotifier{}, riskMgr, nil, nil)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize analysis service: %v", err)
	}

	ctx := context.Background()

	// Bounded worker pool over the symbol list.
	type row struct {
		symbol string
		eval   *domain.Evaluation
		err    error
	}
	jobs := make(chan string)
	results := make(chan row, len(cfg.Symbols))

	var wg sync.WaitGroup
	for i := 0; i < *workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				eval, err := svc.EvaluateSymbol(ctx, symbol)
				results <- row{symbol: symbol, eval: eval, err: err}
			}
		}()
	}
	for _, symbol := range cfg.Symbols {
		jobs <- symbol
	}
	close(jobs)
	wg.Wait()
	close(results)

	var rows []row
	for r := range results {
		if r.err != nil {
			appLogger.Error(ctx, r.err, "Scan failed", map[string]interface{}{"symbol": r.symbol})
			continue
		}
		rows = append(rows, r)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].eval.Signal.Confidence > rows[j].eval.Signal.Confidence
	})

	fmt.Printf("\n%-10s %-5s %5s %9s %5s %5s  %s\n", "SYMBOL", "SIG", "CONF", "WEIGHTED", "MTF", "RISK", "PRICE")
	for _, r := range rows {
		sig := r.eval.Signal
		price := 0.0
		if r.eval.Analysis != nil {
			price = r.eval.Analysis.Price
		}
		fmt.Printf("%-10s %-5s %4d%% %9.2f %5v %5v  %.4f\n",
			r.symbol, sig.Action, sig.Confidence, r.eval.WeightedConfidence.Total,
			r.eval.MTF.Approved, r.eval.RiskApproved, price)
	}
}
