package domain

import "time"

// Trade represents a completed trade event, persisted by the repository.
type Trade struct {
	ID          int64 // Unique identifier (usually from DB)
	PositionID  string
	Symbol      string
	Side        OrderSide
	EntryPrice  float64
	ExitPrice   float64
	Quantity    float64
	PNL         float64
	PNLPercent  float64
	EntryTime   time.Time
	ExitTime    time.Time
	CloseReason CloseReason
}
