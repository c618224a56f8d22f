package ports

import (
	"context"

	"cryptoSignalBot/internal/domain"
)

// MarketDataProvider defines the interface for fetching historical candle data.
// This abstraction decouples the signal pipeline from any specific exchange or
// data vendor; the pipeline only ever sees an ordered, immutable bar series.
type MarketDataProvider interface {
	// GetKlines retrieves up to `limit` historical klines for a symbol and
	// interval, ordered oldest to newest. Implementations must wrap an
	// undersized response in ErrInsufficientData.
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error)

	// GetTickerPrice retrieves the last traded price for a symbol.
	GetTickerPrice(ctx context.Context, symbol string) (float64, error)
}
