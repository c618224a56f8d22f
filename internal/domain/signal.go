package domain

import "time"

// Signal is an actionable trade recommendation. It is recomputed on every
// evaluation cycle and never mutated after creation.
type Signal struct {
	Action      Action
	Confidence  int // 0-100
	Reasons     []string
	Entry       float64
	StopLoss    float64
	TakeProfit1 float64
	TakeProfit2 float64
	RiskReward  float64
}

// Actionable reports whether the signal recommends entering a trade.
func (s *Signal) Actionable() bool {
	return s.Action == ActionBuy || s.Action == ActionSell
}

// ConfidenceBreakdown is the weighted-aggregator output: the clamped total
// plus the contribution of each indicator group and the matching reasons.
type ConfidenceBreakdown struct {
	Total         float64 // 0-100
	Contributions map[string]float64
	Reasons       []string
}

// Divergence is an advisory warning raised when indicators disagree. It never
// alters the confidence score.
type Divergence struct {
	Type        string
	Severity    string
	Description string
}

// MTFValidation is the multi-timeframe confirmation tally for a base signal.
type MTFValidation struct {
	Approved          bool
	Confirmations     int     // 0-3
	Strength          float64 // 0-100
	TimeframesAligned []string
	Reasoning         []string
}

// TimeframeTrend is the independently computed trend label of one coarser
// timeframe, fed to the multi-timeframe validator.
type TimeframeTrend struct {
	Timeframe string
	Trend     Direction
	// Whether the higher-timeframe momentum filter agrees with an uptrend.
	HTFBullish bool
}

// Evaluation is the consolidated output of one full pipeline pass for a
// symbol/timeframe: signal, weighted confidence, multi-timeframe validation
// and the risk decision, serialized as a flat record by the repository.
type Evaluation struct {
	Symbol             string
	Timeframe          string
	EvaluatedAt        time.Time
	Analysis           *Analysis
	Signal             *Signal
	WeightedConfidence ConfidenceBreakdown
	Divergences        []Divergence
	MTF                MTFValidation
	RiskApproved       bool
	RiskReasons        []string
	RiskWarnings       []string
	RiskScore          int
	PositionSize       float64
	RiskDollars        float64
	KellyFraction      float64
}
