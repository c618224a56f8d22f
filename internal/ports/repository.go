package ports

import (
	"context"
	"time"

	"cryptoSignalBot/internal/domain"
)

// SignalRepository persists evaluation results for later tracking.
type SignalRepository interface {
	// SaveEvaluation stores a completed pipeline evaluation as a flat record.
	SaveEvaluation(ctx context.Context, eval *domain.Evaluation) (int64, error)

	// RecentEvaluations returns the latest evaluations for a symbol, newest first.
	RecentEvaluations(ctx context.Context, symbol string, limit int) ([]*domain.Evaluation, error)
}

// TradeRepository persists completed trades.
type TradeRepository interface {
	// SaveTrade stores a completed trade and returns its assigned ID.
	SaveTrade(ctx context.Context, trade *domain.Trade) (int64, error)

	// TradesSince returns trades closed at or after the given time.
	TradesSince(ctx context.Context, since time.Time) ([]*domain.Trade, error)
}
