package domain

import "time"

// Position represents a simulated (paper) trading position.
type Position struct {
	ID         string // Executor-assigned position ID
	Symbol     string
	Side       OrderSide
	Quantity   float64
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	EntryTime  time.Time
	ExitPrice  float64   // 0 while open
	ExitTime   time.Time // zero value while open
	Status     PositionStatus
	PNL        float64 // Realized on close
	PNLPercent float64
	Reason     CloseReason
}

// IsOpen checks if the position status is open.
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen
}
