// Package paperexec simulates order execution in memory. Fills are immediate
// with a configurable slippage, and realized results feed the win/loss stats
// used for Kelly calibration.
package paperexec

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"

	"github.com/google/uuid"
)

// Stats summarizes closed-trade performance of the simulated account.
type Stats struct {
	Trades      int
	Wins        int
	Losses      int
	WinRate     float64 // 0-1, zero until the first close
	TotalPNL    float64
	AvgWin      float64
	AvgLoss     float64 // positive magnitude
	PayoffRatio float64 // AvgWin / AvgLoss, zero until both sides exist
}

// Config holds configuration for the paper executor.
type Config struct {
	// SlippagePct is applied against the trader on every fill, e.g. 0.0005
	// moves a buy entry up by 0.05%. Zero disables slippage.
	SlippagePct float64
	Logger      ports.Logger
}

// Executor implements ports.OrderExecutor against an in-memory book.
type Executor struct {
	mu       sync.Mutex
	slippage float64
	logger   ports.Logger
	open     map[string]*domain.Position
	closed   []*domain.Position
}

// NewExecutor creates a paper executor.
func NewExecutor(cfg Config) (*Executor, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for paper executor: %w", ports.ErrConfigurationError)
	}
	if cfg.SlippagePct < 0 || cfg.SlippagePct >= 0.05 {
		return nil, fmt.Errorf("slippage %.4f out of range [0, 0.05): %w", cfg.SlippagePct, ports.ErrConfigurationError)
	}
	return &Executor{
		slippage: cfg.SlippagePct,
		logger:   cfg.Logger,
		open:     make(map[string]*domain.Position),
	}, nil
}

// OpenPosition opens a simulated position at entry adjusted for slippage.
func (e *Executor) OpenPosition(ctx context.Context, symbol string, side domain.OrderSide, quantity, entry, stopLoss, takeProfit float64) (*domain.Position, error) {
	if quantity <= 0 || entry <= 0 {
		return nil, fmt.Errorf("quantity %.8f and entry %.8f must be positive: %w", quantity, entry, ports.ErrOrderPlacementFailed)
	}

	fill := entry
	switch side {
	case domain.Buy:
		fill = entry * (1 + e.slippage)
	case domain.Sell:
		fill = entry * (1 - e.slippage)
	default:
		return nil, fmt.Errorf("unsupported order side %q: %w", side, ports.ErrOrderPlacementFailed)
	}

	pos := &domain.Position{
		ID:         uuid.NewString(),
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		EntryPrice: fill,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		EntryTime:  time.Now(),
		Status:     domain.StatusOpen,
	}

	e.mu.Lock()
	e.open[pos.ID] = pos
	e.mu.Unlock()

	e.logger.Info(ctx, "Paper position opened", map[string]interface{}{
		"positionID": pos.ID,
		"symbol":     symbol,
		"side":       side,
		"quantity":   quantity,
		"fill":       fill,
	})
	return pos, nil
}

// ClosePosition closes an open position at exitPrice adjusted for slippage and
// returns the realized PnL.
func (e *Executor) ClosePosition(ctx context.Context, positionID string, exitPrice float64, reason domain.CloseReason) (float64, error) {
	e.mu.Lock()
	pos, ok := e.open[positionID]
	if !ok {
		e.mu.Unlock()
		return 0, fmt.Errorf("position %s: %w", positionID, ports.ErrPositionNotFound)
	}
	delete(e.open, positionID)

	fill := exitPrice
	if pos.Side == domain.Buy {
		fill = exitPrice * (1 - e.slippage)
	} else {
		fill = exitPrice * (1 + e.slippage)
	}

	pnl := (fill - pos.EntryPrice) * pos.Quantity
	if pos.Side == domain.Sell {
		pnl = -pnl
	}

	pos.ExitPrice = fill
	pos.ExitTime = time.Now()
	pos.Status = domain.StatusClosed
	pos.PNL = pnl
	if cost := pos.EntryPrice * pos.Quantity; cost > 0 {
		pos.PNLPercent = pnl / cost * 100
	}
	pos.Reason = reason
	e.closed = append(e.closed, pos)
	e.mu.Unlock()

	e.logger.Info(ctx, "Paper position closed", map[string]interface{}{
		"positionID": positionID,
		"symbol":     pos.Symbol,
		"reason":     reason,
		"pnl":        pnl,
	})
	return pnl, nil
}

// OpenPositions returns a snapshot of currently open positions.
func (e *Executor) OpenPositions() []*domain.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*domain.Position, 0, len(e.open))
	for _, pos := range e.open {
		cp := *pos
		out = append(out, &cp)
	}
	return out
}

// Stats computes closed-trade performance. Break-even closes count as losses.
func (e *Executor) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	var s Stats
	var winSum, lossSum float64
	for _, pos := range e.closed {
		s.Trades++
		s.TotalPNL += pos.PNL
		if pos.PNL > 0 {
			s.Wins++
			winSum += pos.PNL
		} else {
			s.Losses++
			lossSum += -pos.PNL
		}
	}
	if s.Trades > 0 {
		s.WinRate = float64(s.Wins) / float64(s.Trades)
	}
	if s.Wins > 0 {
		s.AvgWin = winSum / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = lossSum / float64(s.Losses)
	}
	if s.AvgLoss > 0 {
		s.PayoffRatio = s.AvgWin / s.AvgLoss
	}
	return s
}
