package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up

	"cryptoSignalBot/config"
	"cryptoSignalBot/internal/adapters/binanceclient"
	"cryptoSignalBot/internal/adapters/logger"
	"cryptoSignalBot/internal/adapters/notify"
	"cryptoSignalBot/internal/adapters/paperexec"
	"cryptoSignalBot/internal/adapters/sqlite"
	"cryptoSignalBot/internal/app"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/risk"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger, err := logger.NewZapLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()
	appLogger.Info(context.Background(), "Database repository initialized")

	// 4. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:    cfg.APIKey,
		SecretKey: cfg.SecretKey,
		Logger:    appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(context.Background(), "Binance client initialized")

	// 5. Initialize Notifier
	notifier, err := notify.NewNotifier(notify.Config{
		TelegramBotToken:  cfg.TelegramBotToken,
		TelegramChatID:    cfg.TelegramChatID,
		DiscordWebhookURL: cfg.DiscordWebhookURL,
		SlackWebhookURL:   cfg.SlackWebhookURL,
		Logger:            appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize notifier")
		log.Fatalf("FATAL: Failed to initialize notifier: %v", err)
	}
	appLogger.Info(context.Background(), "Notifier initialized", map[string]interface{}{"channels": notifier.EnabledChannels()})

	// 6. Initialize Risk Manager
	riskMgr, err := risk.NewManager(risk.Profile{
		AccountBalance:      cfg.AccountBalance,
		MaxRiskPerTrade:     cfg.MaxRiskPerTrade,
		MaxPortfolioHeat:    cfg.MaxPortfolioHeat,
		MaxDrawdown:         cfg.MaxDrawdown,
		ConfidenceThreshold: float64(cfg.MinConfidence),
		WinRate:             cfg.WinRate,
		AvgWinLossRatio:     cfg.AvgWinLossRatio,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize risk manager")
		log.Fatalf("FATAL: Failed to initialize risk manager: %v", err)
	}
	appLogger.Info(context.Background(), "Risk manager initialized")

	// 7. Initialize Paper Executor (optional)
	var executor ports.OrderExecutor
	var tradeRepo ports.TradeRepository
	if cfg.PaperTrading {
		exec, err := paperexec.NewExecutor(paperexec.Config{
			SlippagePct: cfg.SlippagePct,
			Logger:      appLogger,
		})
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to initialize paper executor")
			log.Fatalf("FATAL: Failed to initialize paper executor: %v", err)
		}
		executor = exec
		tradeRepo = repo
		appLogger.Info(context.Background(), "Paper trading enabled", map[string]interface{}{"slippagePct": cfg.SlippagePct})
	}

	// 8. Initialize Application Service
	analysisService, err := app.NewAnalysisService(
		cfg,
		appLogger,
		binanceClient, // Pass the concrete implementation, service expects the interface
		repo,          // Pass the concrete implementation, service expects the interface
		notifier,
		riskMgr,
		executor,
		tradeRepo,
	)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize analysis service")
		log.Fatalf("FATAL: Failed to initialize analysis service: %v", err)
	}
	appLogger.Info(context.Background(), "Analysis service initialized")

	// 9. Start the Service
	// Use context.Background() as the base context for the application run
	if err := analysisService.Start(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "Analysis service exited with error")
		log.Fatalf("FATAL: Analysis service exited with error: %v", err)
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
