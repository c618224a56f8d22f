package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Binance API. Keys are optional: public market data endpoints work
	// without authentication.
	APIKey    string
	SecretKey string

	// Analysis Parameters
	Symbols       []string // Symbols scanned each cycle
	Interval      string   // Base kline interval (e.g., "1h")
	KlineLimit    int      // Bars fetched per symbol per cycle
	PollInterval  time.Duration
	MinConfidence int // Simple-score confidence needed to notify

	// Risk Parameters
	AccountBalance   float64
	MaxRiskPerTrade  float64 // e.g., 0.02 for 2%
	MaxPortfolioHeat float64 // e.g., 0.06 for 6%
	MaxDrawdown      float64 // e.g., 0.20 for 20%
	WinRate          float64 // Historical win rate for Kelly sizing
	AvgWinLossRatio  float64 // Historical payoff ratio for Kelly sizing

	// Execution
	PaperTrading bool
	SlippagePct  float64

	// Notifications
	TelegramBotToken  string
	TelegramChatID    string
	DiscordWebhookURL string
	SlackWebhookURL   string

	// Database
	DBPath string

	// Logging
	LogLevel string
}

// LoadConfig loads configuration from environment variables and sibling .env
// files. Validation errors are collected and reported together.
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")

	// Analysis Parameters
	symbolsStr := getEnv("SYMBOLS", "ETHUSDT")
	for _, s := range strings.Split(symbolsStr, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			cfg.Symbols = append(cfg.Symbols, strings.ToUpper(s))
		}
	}
	if len(cfg.Symbols) == 0 {
		errs = append(errs, "SYMBOLS must list at least one symbol")
	}

	cfg.Interval = getEnv("INTERVAL", "1h")
	if cfg.Interval == "" {
		errs = append(errs, "INTERVAL must be set")
	}

	cfg.KlineLimit, err = getEnvAsIntRequired("KLINE_LIMIT", 300)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid KLINE_LIMIT: %v", err))
	} else if cfg.KlineLimit < 250 {
		errs = append(errs, "KLINE_LIMIT must be at least 250 for indicator warm-up")
	}

	pollSeconds := getEnvAsInt("POLL_INTERVAL_SECONDS", 300)
	if pollSeconds <= 0 {
		errs = append(errs, "POLL_INTERVAL_SECONDS must be positive")
	}
	cfg.PollInterval = time.Duration(pollSeconds) * time.Second

	cfg.MinConfidence = getEnvAsInt("MIN_CONFIDENCE", 75)
	if cfg.MinConfidence < 0 || cfg.MinConfidence > 100 {
		errs = append(errs, "MIN_CONFIDENCE must be between 0 and 100")
	}

	// Risk Parameters
	cfg.AccountBalance, err = getEnvAsFloatRequired("ACCOUNT_BALANCE", 10000.0)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid ACCOUNT_BALANCE: %v", err))
	} else if cfg.AccountBalance <= 0 {
		errs = append(errs, "ACCOUNT_BALANCE must be positive")
	}

	cfg.MaxRiskPerTrade, err = getEnvAsFloatRequired("MAX_RISK_PER_TRADE", 0.02)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_RISK_PER_TRADE: %v", err))
	} else if cfg.MaxRiskPerTrade <= 0 || cfg.MaxRiskPerTrade >= 1.0 {
		errs = append(errs, "MAX_RISK_PER_TRADE must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.MaxPortfolioHeat, err = getEnvAsFloatRequired("MAX_PORTFOLIO_HEAT", 0.06)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_PORTFOLIO_HEAT: %v", err))
	} else if cfg.MaxPortfolioHeat <= 0 || cfg.MaxPortfolioHeat >= 1.0 {
		errs = append(errs, "MAX_PORTFOLIO_HEAT must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.MaxDrawdown, err = getEnvAsFloatRequired("MAX_DRAWDOWN", 0.20)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MAX_DRAWDOWN: %v", err))
	} else if cfg.MaxDrawdown <= 0 || cfg.MaxDrawdown >= 1.0 {
		errs = append(errs, "MAX_DRAWDOWN must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.WinRate, err = getEnvAsFloatRequired("WIN_RATE", 0.55)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid WIN_RATE: %v", err))
	} else if cfg.WinRate <= 0 || cfg.WinRate >= 1.0 {
		errs = append(errs, "WIN_RATE must be between 0.0 and 1.0 (exclusive)")
	}

	cfg.AvgWinLossRatio, err = getEnvAsFloatRequired("AVG_WIN_LOSS_RATIO", 1.5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid AVG_WIN_LOSS_RATIO: %v", err))
	} else if cfg.AvgWinLossRatio <= 0 {
		errs = append(errs, "AVG_WIN_LOSS_RATIO must be positive")
	}

	// Execution
	cfg.PaperTrading = getEnvAsBool("PAPER_TRADING", true)
	cfg.SlippagePct, err = getEnvAsFloatRequired("SLIPPAGE_PCT", 0.0005)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid SLIPPAGE_PCT: %v", err))
	} else if cfg.SlippagePct < 0 || cfg.SlippagePct >= 0.05 {
		errs = append(errs, "SLIPPAGE_PCT must be between 0.0 and 0.05")
	}

	// Notifications (all optional; a channel is active when fully configured)
	cfg.TelegramBotToken = getEnv("TELEGRAM_BOT_TOKEN", "")
	cfg.TelegramChatID = getEnv("TELEGRAM_CHAT_ID", "")
	cfg.DiscordWebhookURL = getEnv("DISCORD_WEBHOOK_URL", "")
	cfg.SlackWebhookURL = getEnv("SLACK_WEBHOOK_URL", "")

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/signal_bot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
