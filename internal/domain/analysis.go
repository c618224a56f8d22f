package domain

import "time"

// Analysis is the flattened per-bar indicator snapshot for one symbol and
// timeframe. It is assembled by the orchestrator from the individual indicator
// outputs and consumed by both signal generators; every field is explicit so a
// missing value can never be confused with a present one.
type Analysis struct {
	Symbol    string
	Timeframe string
	Timestamp time.Time
	Price     float64

	// Price momentum over the last five bars, in percent.
	PriceChange5 float64
	// Whether the latest close is the highest of the last 20 bars.
	PriceNewHigh bool

	// SuperBuySellTrend, level 1 (tight multiplier) and level 2 (loose).
	Trend          Direction
	TrendConfirmed Direction
	TrendAligned   bool
	BuySignal      bool
	SellSignal     bool
	BuyConfirm     bool
	SellConfirm    bool
	RecentBuy      bool
	RecentSell     bool
	RecentBuyConf  bool
	RecentSellConf bool
	UpLevel        float64
	DnLevel        float64
	UpxLevel       float64
	DnxLevel       float64

	// Companion trend-stop indicators.
	HalfTrendDir      Direction
	HalfTrendValue    float64
	HalfTrendBuy      bool
	HalfTrendSell     bool
	PSARDir           Direction
	PSARValue         float64
	PSARReversal      bool
	NRTRDir           Direction
	NRTRValue         float64
	NRTRReversal      bool
	ChandelierDir     Direction
	ChandelierStop    float64
	ChandelierBuy     bool
	ChandelierSell    bool
	HalfTrendReversal bool

	// Oscillator snapshot.
	RSI        float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64
	ADX        float64
	EMA10      float64
	EMA20      float64
	SMA50      float64
	ATR        float64

	// Structure snapshot.
	SMC SMCResult
}

// SMCResult is the output of the Smart Money Concepts detector for the most
// recent bars of a series. A Trend of TrendUnknown means the detector did not
// have enough history; every other field is then false/zero.
type SMCResult struct {
	Trend            StructureTrend
	CHoCHBullish     bool
	CHoCHBearish     bool
	BullishOB        bool
	BullishOBPrice   float64
	BearishOB        bool
	BearishOBPrice   float64
	BullishFVG       bool
	BullishFVGTop    float64
	BullishFVGBottom float64
	BearishFVG       bool
	BearishFVGTop    float64
	BearishFVGBottom float64
	LiqSweepBull     bool
	LiqSweepBear     bool
	ConfirmationBull bool
	ConfirmationBear bool
	LongSetup        bool
	ShortSetup       bool
	ATR              float64
}

// Known reports whether the detector had enough history to classify structure.
func (r SMCResult) Known() bool {
	return r.Trend != TrendUnknown && r.Trend != ""
}
