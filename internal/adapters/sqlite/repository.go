package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.SignalRepository and ports.TradeRepository interfaces using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/signal_bot.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Open database connection
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000") // WAL mode for better concurrency
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Set connection pool settings (important for SQLite)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS signals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		timeframe TEXT NOT NULL,
		evaluated_at TIMESTAMP NOT NULL,
		action TEXT NOT NULL,
		confidence INTEGER NOT NULL,
		weighted_confidence REAL NOT NULL,
		reasons TEXT NOT NULL,
		entry REAL NOT NULL,
		stop_loss REAL NOT NULL,
		take_profit_1 REAL NOT NULL,
		take_profit_2 REAL NOT NULL,
		risk_reward REAL NOT NULL,
		mtf_approved INTEGER NOT NULL,
		mtf_confirmations INTEGER NOT NULL,
		mtf_strength REAL NOT NULL,
		risk_approved INTEGER NOT NULL,
		risk_score INTEGER NOT NULL,
		position_size REAL NOT NULL,
		risk_dollars REAL NOT NULL,
		kelly_fraction REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS trade_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		position_id TEXT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		quantity REAL NOT NULL,
		pnl REAL NOT NULL,
		pnl_percent REAL NOT NULL,
		entry_time TIMESTAMP NOT NULL,
		exit_time TIMESTAMP NOT NULL,
		close_reason TEXT NULL
	);
	-- Add indexes for common lookups
	CREATE INDEX IF NOT EXISTS idx_signals_symbol_time ON signals (symbol, evaluated_at);
	CREATE INDEX IF NOT EXISTS idx_trade_history_symbol ON trade_history (symbol);
	CREATE INDEX IF NOT EXISTS idx_trade_history_exit_time ON trade_history (exit_time);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- SignalRepository Implementation ---

// SaveEvaluation stores a completed pipeline evaluation as a flat record and returns its assigned ID.
func (r *Repository) SaveEvaluation(ctx context.Context, eval *domain.Evaluation) (int64, error) {
	const query = `
	INSERT INTO signals (symbol, timeframe, evaluated_at, action, confidence, weighted_confidence,
	                     reasons, entry, stop_loss, take_profit_1, take_profit_2, risk_reward,
	                     mtf_approved, mtf_confirmations, mtf_strength,
	                     risk_approved, risk_score, position_size, risk_dollars, kelly_fraction)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sig := eval.Signal
	if sig == nil {
		return 0, fmt.Errorf("evaluation for symbol %s has no signal: %w", eval.Symbol, ports.ErrInvalidRequest)
	}

	result, err := r.db.ExecContext(ctx, query,
		eval.Symbol, eval.Timeframe, eval.EvaluatedAt, string(sig.Action), sig.Confidence, eval.WeightedConfidence.Total,
		strings.Join(sig.Reasons, "; "), sig.Entry, sig.StopLoss, sig.TakeProfit1, sig.TakeProfit2, sig.RiskReward,
		eval.MTF.Approved, eval.MTF.Confirmations, eval.MTF.Strength,
		eval.RiskApproved, eval.RiskScore, eval.PositionSize, eval.RiskDollars, eval.KellyFraction)
	if err != nil {
		return 0, fmt.Errorf("failed to insert evaluation for symbol %s: %w", eval.Symbol, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for evaluation %s: %w", eval.Symbol, err)
	}
	r.logger.Debug(ctx, "Evaluation saved", map[string]interface{}{"evaluationID": id, "symbol": eval.Symbol, "action": sig.Action})
	return id, nil
}

// RecentEvaluations returns the latest stored evaluations for a symbol, newest first.
func (r *Repository) RecentEvaluations(ctx context.Context, symbol string, limit int) ([]*domain.Evaluation, error) {
	const query = `
	SELECT symbol, timeframe, evaluated_at, action, confidence, weighted_confidence,
	       reasons, entry, stop_loss, take_profit_1, take_profit_2, risk_reward,
	       mtf_approved, mtf_confirmations, mtf_strength,
	       risk_approved, risk_score, position_size, risk_dollars, kelly_fraction
	FROM signals
	WHERE symbol = ? ORDER BY evaluated_at DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query evaluations for symbol %s: %w", symbol, err)
	}
	defer rows.Close()

	evals := make([]*domain.Evaluation, 0)
	for rows.Next() {
		eval, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation during RecentEvaluations: %w", err)
		}
		evals = append(evals, eval)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evaluation rows: %w", err)
	}
	return evals, nil
}

// --- TradeRepository Implementation ---

// SaveTrade stores a completed trade and returns its assigned ID.
func (r *Repository) SaveTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	const query = `
	INSERT INTO trade_history (position_id, symbol, side, entry_price, exit_price, quantity,
	                           pnl, pnl_percent, entry_time, exit_time, close_reason)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var positionID sql.NullString
	if trade.PositionID != "" {
		positionID = sql.NullString{String: trade.PositionID, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		positionID, trade.Symbol, string(trade.Side), trade.EntryPrice, trade.ExitPrice, trade.Quantity,
		trade.PNL, trade.PNLPercent, trade.EntryTime, trade.ExitTime, string(trade.CloseReason))
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade history for symbol %s: %w", trade.Symbol, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for trade history %s: %w", trade.Symbol, err)
	}
	trade.ID = id // Update domain object
	r.logger.Debug(ctx, "Trade history saved", map[string]interface{}{"tradeID": id, "symbol": trade.Symbol, "pnl": trade.PNL})
	return id, nil
}

// TradesSince returns trades closed at or after the given time, oldest first.
func (r *Repository) TradesSince(ctx context.Context, since time.Time) ([]*domain.Trade, error) {
	const query = `
	SELECT id, position_id, symbol, side, entry_price, exit_price, quantity,
	       pnl, pnl_percent, entry_time, exit_time, close_reason
	FROM trade_history
	WHERE exit_time >= ? ORDER BY exit_time ASC`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade history since %s: %w", since, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade history during TradesSince: %w", err)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade history rows: %w", err)
	}
	return trades, nil
}

// scanner covers both *sql.Row and *sql.Rows for the scan helpers.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvaluation(s scanner) (*domain.Evaluation, error) {
	var (
		eval    domain.Evaluation
		sig     domain.Signal
		action  string
		reasons string
	)
	err := s.Scan(
		&eval.Symbol, &eval.Timeframe, &eval.EvaluatedAt, &action, &sig.Confidence, &eval.WeightedConfidence.Total,
		&reasons, &sig.Entry, &sig.StopLoss, &sig.TakeProfit1, &sig.TakeProfit2, &sig.RiskReward,
		&eval.MTF.Approved, &eval.MTF.Confirmations, &eval.MTF.Strength,
		&eval.RiskApproved, &eval.RiskScore, &eval.PositionSize, &eval.RiskDollars, &eval.KellyFraction)
	if err != nil {
		return nil, err
	}
	sig.Action = domain.Action(action)
	if reasons != "" {
		sig.Reasons = strings.Split(reasons, "; ")
	}
	eval.Signal = &sig
	return &eval, nil
}

func scanTrade(s scanner) (*domain.Trade, error) {
	var (
		trade       domain.Trade
		positionID  sql.NullString
		side        string
		closeReason sql.NullString
	)
	err := s.Scan(
		&trade.ID, &positionID, &trade.Symbol, &side, &trade.EntryPrice, &trade.ExitPrice, &trade.Quantity,
		&trade.PNL, &trade.PNLPercent, &trade.EntryTime, &trade.ExitTime, &closeReason)
	if err != nil {
		return nil, err
	}
	trade.PositionID = positionID.String
	trade.Side = domain.OrderSide(side)
	trade.CloseReason = domain.CloseReason(closeReason.String)
	return &trade, nil
}
