package domain

// Action is the trade recommendation emitted by the signal generators.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionWait Action = "WAIT"
)

// Direction is the directional state of a trend-stop indicator.
type Direction int

const (
	DirectionUp   Direction = 1
	DirectionDown Direction = -1
)

// String returns the trend label used in analysis output and persistence.
func (d Direction) String() string {
	if d == DirectionUp {
		return "UPTREND"
	}
	return "DOWNTREND"
}

// StructureTrend is the market-structure label produced by the SMC detector.
type StructureTrend string

const (
	TrendBullish StructureTrend = "bullish"
	TrendBearish StructureTrend = "bearish"
	TrendUnknown StructureTrend = "unknown"
)

// OrderSide represents the side of an order (BUY or SELL).
type OrderSide string

const (
	Buy  OrderSide = "BUY"
	Sell OrderSide = "SELL"
)

// PositionStatus represents the status of a trading position.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "open"
	StatusClosed PositionStatus = "closed"
)

// CloseReason indicates why a position was closed.
type CloseReason string

const (
	CloseReasonStopLoss   CloseReason = "SL"
	CloseReasonTakeProfit CloseReason = "TP"
	CloseReasonManual     CloseReason = "MANUAL"
	CloseReasonReversal   CloseReason = "TREND_REVERSAL"
	CloseReasonTime       CloseReason = "TIME"
	CloseReasonUnknown    CloseReason = "Unknown"
)
