package signal

import (
	"cryptoSignalBot/internal/domain"
)

// Inputs are the boolean conditions the weighted aggregator scores, all
// expressed relative to one proposed direction. Explicit fields instead of a
// keyed map: a misspelled condition cannot silently score zero.
type Inputs struct {
	SBSTAligned      bool
	SBSTSignal       bool
	HalfTrendMatch   bool
	HalfTrendSignal  bool
	PSARMatch        bool
	SwiftStrong      bool
	ChandelierSignal bool
	NRTRMatch        bool
	SMCSetup         bool
	RSIExtreme       bool
	MACDBullish      bool
	ADXStrong        bool
}

// InputsFromAnalysis derives the scoring conditions for a proposed action.
func InputsFromAnalysis(a *domain.Analysis, action domain.Action) Inputs {
	if action == domain.ActionBuy {
		return Inputs{
			SBSTAligned:      a.TrendAligned && a.Trend == domain.DirectionUp,
			SBSTSignal:       a.BuySignal || a.RecentBuy,
			HalfTrendMatch:   a.HalfTrendDir == domain.DirectionUp,
			HalfTrendSignal:  a.HalfTrendBuy,
			PSARMatch:        a.PSARDir == domain.DirectionUp,
			SwiftStrong:      a.PriceChange5 > 1.0 && a.EMA10 > a.EMA20,
			ChandelierSignal: a.ChandelierBuy,
			NRTRMatch:        a.NRTRDir == domain.DirectionUp,
			SMCSetup:         a.SMC.LongSetup,
			RSIExtreme:       a.RSI < 30,
			MACDBullish:      a.MACDHist > 0,
			ADXStrong:        a.ADX > 25,
		}
	}
	return Inputs{
		SBSTAligned:      a.TrendAligned && a.Trend == domain.DirectionDown,
		SBSTSignal:       a.SellSignal || a.RecentSell,
		HalfTrendMatch:   a.HalfTrendDir == domain.DirectionDown,
		HalfTrendSignal:  a.HalfTrendSell,
		PSARMatch:        a.PSARDir == domain.DirectionDown,
		SwiftStrong:      a.PriceChange5 < -1.0 && a.EMA10 < a.EMA20,
		ChandelierSignal: a.ChandelierSell,
		NRTRMatch:        a.NRTRDir == domain.DirectionDown,
		SMCSetup:         a.SMC.ShortSetup,
		RSIExtreme:       a.RSI > 70,
		MACDBullish:      a.MACDHist < 0,
		ADXStrong:        a.ADX > 25,
	}
}

// Aggregator scores the conditions against a validated weight table.
type Aggregator struct {
	weights Weights
}

// NewAggregator validates the table once so every later call can trust it.
func NewAggregator(w Weights) (*Aggregator, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{weights: w}, nil
}

// Weights returns a copy of the table the aggregator was built with.
func (g *Aggregator) Weights() Weights { return g.weights }

// Aggregate computes the weighted confidence for one set of conditions. Each
// group's sub-score is its condition points times its table share; the total
// is clamped to [0, 100].
func (g *Aggregator) Aggregate(in Inputs) domain.ConfidenceBreakdown {
	bd := domain.ConfidenceBreakdown{Contributions: make(map[string]float64, 10)}

	add := func(group string, points float64, weight float64, reason string) {
		contribution := points * weight
		bd.Contributions[group] = contribution
		bd.Total += contribution
		if contribution > 0 {
			bd.Reasons = append(bd.Reasons, reason)
		}
	}

	add("sbst", b2f(in.SBSTAligned)*15+b2f(in.SBSTSignal)*5, g.weights.SBST,
		"SBST trend backing the direction")
	add("halftrend", b2f(in.HalfTrendMatch)*10+b2f(in.HalfTrendSignal)*2, g.weights.HalfTrend,
		"HalfTrend agrees")
	add("psar", b2f(in.PSARMatch)*10, g.weights.PSAR,
		"Parabolic SAR agrees")
	add("swift", b2f(in.SwiftStrong)*15, g.weights.Swift,
		"momentum strongly aligned")
	add("chandelier", b2f(in.ChandelierSignal)*8, g.weights.Chandelier,
		"Chandelier Exit flipped this way")
	add("nrtr", b2f(in.NRTRMatch)*10, g.weights.NRTR,
		"NRTR agrees")
	add("smc", b2f(in.SMCSetup)*12, g.weights.SMC,
		"SMC setup present")
	add("rsi", b2f(in.RSIExtreme)*5, g.weights.RSI,
		"RSI at an extreme")
	add("macd", b2f(in.MACDBullish)*5, g.weights.MACD,
		"MACD histogram supports the direction")
	add("adx", b2f(in.ADXStrong)*3, g.weights.ADX,
		"ADX marks a trending market")

	if bd.Total > 100 {
		bd.Total = 100
	}
	if bd.Total < 0 {
		bd.Total = 0
	}
	return bd
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
