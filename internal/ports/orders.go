package ports

import (
	"context"

	"cryptoSignalBot/internal/domain"
)

// OrderExecutor defines the interface for opening and closing positions.
// The core pipeline only needs sizing and approval; routing (paper simulation
// or a live exchange) lives behind this port.
type OrderExecutor interface {
	// OpenPosition opens a position and returns it with an assigned ID, or an
	// error wrapping ErrOrderPlacementFailed / ErrInsufficientFunds.
	OpenPosition(ctx context.Context, symbol string, side domain.OrderSide, quantity, entry, stopLoss, takeProfit float64) (*domain.Position, error)

	// ClosePosition closes an open position at exitPrice and returns the
	// realized PnL. Unknown IDs map to ErrPositionNotFound.
	ClosePosition(ctx context.Context, positionID string, exitPrice float64, reason domain.CloseReason) (float64, error)

	// OpenPositions returns a snapshot of currently open positions.
	OpenPositions() []*domain.Position
}
