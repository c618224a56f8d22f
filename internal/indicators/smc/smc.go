// Package smc implements a Smart Money Concepts structure detector: break of
// structure, change of character, order blocks, fair value gaps, liquidity
// zones and confirmation candles, evaluated against the most recent bars of a
// series.
package smc

import (
	"fmt"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

const bosLookback = 20

// Config holds the detector thresholds. All percentages are in percent, not
// fractions.
type Config struct {
	OBLookback      int
	VolMultiplier   float64
	DisplacementPct float64
	FVGMinGapPct    float64
	LiqTolerancePct float64
	ATRPeriod       int
}

func DefaultConfig() Config {
	return Config{
		OBLookback:      14,
		VolMultiplier:   2.0,
		DisplacementPct: 0.5,
		FVGMinGapPct:    0.5,
		LiqTolerancePct: 1.0,
		ATRPeriod:       14,
	}
}

func (c Config) validate() error {
	if c.OBLookback <= 0 || c.ATRPeriod <= 0 {
		return fmt.Errorf("smc: lookback and atr period must be positive: %w", ports.ErrInvalidRequest)
	}
	if c.VolMultiplier <= 0 || c.DisplacementPct <= 0 || c.FVGMinGapPct <= 0 || c.LiqTolerancePct <= 0 {
		return fmt.Errorf("smc: thresholds must be positive: %w", ports.ErrInvalidRequest)
	}
	return nil
}

// Detector classifies market structure. It keeps the last established trend
// across calls so that a change of character can be reported on the call where
// the trend actually flips.
type Detector struct {
	cfg       Config
	lastTrend domain.StructureTrend
}

func NewDetector(cfg Config) (*Detector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Detector{cfg: cfg, lastTrend: domain.TrendUnknown}, nil
}

func (d *Detector) minBars() int {
	min := bosLookback
	if d.cfg.OBLookback > min {
		min = d.cfg.OBLookback
	}
	if d.cfg.ATRPeriod > min {
		min = d.cfg.ATRPeriod
	}
	return min
}

// Analyze evaluates the series. With fewer bars than the largest lookback it
// returns an unknown result rather than an error, so callers can feed short
// histories without special-casing.
func (d *Detector) Analyze(klines []*domain.Kline) domain.SMCResult {
	if len(klines) < d.minBars() {
		return domain.SMCResult{Trend: domain.TrendUnknown}
	}

	res := domain.SMCResult{}
	res.Trend = d.detectTrend(klines)

	if d.lastTrend != domain.TrendUnknown && res.Trend != d.lastTrend {
		res.CHoCHBullish = res.Trend == domain.TrendBullish
		res.CHoCHBearish = res.Trend == domain.TrendBearish
	}
	d.lastTrend = res.Trend

	d.detectOrderBlocks(klines, &res)
	d.detectFairValueGaps(klines, &res)
	d.detectLiquiditySweeps(klines, &res)
	d.detectConfirmations(klines, &res)
	res.ATR = rollingATR(klines, d.cfg.ATRPeriod)

	// FVG and liquidity context are advisory: they shape confidence scoring
	// but do not gate the setup itself.
	res.LongSetup = res.Trend == domain.TrendBullish && res.BullishOB && res.ConfirmationBull
	res.ShortSetup = res.Trend == domain.TrendBearish && res.BearishOB && res.ConfirmationBear
	return res
}

// detectTrend checks whether the latest close breaks the high or low of the
// 20 bars before it, carrying the prior trend when neither side breaks.
func (d *Detector) detectTrend(klines []*domain.Kline) domain.StructureTrend {
	last := len(klines) - 1
	start := last - bosLookback
	if start < 0 {
		start = 0
	}

	window := klines[start:last]
	highest := window[0].High
	lowest := window[0].Low
	for _, k := range window[1:] {
		if k.High > highest {
			highest = k.High
		}
		if k.Low < lowest {
			lowest = k.Low
		}
	}

	close := klines[last].Close
	switch {
	case close > highest:
		return domain.TrendBullish
	case close < lowest:
		return domain.TrendBearish
	case d.lastTrend != domain.TrendUnknown:
		return d.lastTrend
	default:
		return domain.TrendBullish
	}
}

// detectOrderBlocks looks one lookback period behind the latest bar for a
// candle against the move with a volume spike and a displacement behind it,
// then requires the current bar to have retested its zone.
func (d *Detector) detectOrderBlocks(klines []*domain.Kline, res *domain.SMCResult) {
	idx := len(klines) - 1 - d.cfg.OBLookback
	if idx < 0 {
		return
	}

	candle := klines[idx]
	current := klines[len(klines)-1]
	spike := volumeSpike(klines, idx, d.cfg.VolMultiplier)
	disp := displacement(klines, idx)

	if candle.IsBearish() && spike && disp > d.cfg.DisplacementPct {
		if current.Low <= candle.High {
			res.BullishOB = true
			res.BullishOBPrice = candle.High
		}
	}
	if candle.IsBullish() && spike && disp < -d.cfg.DisplacementPct {
		if current.High >= candle.Low {
			res.BearishOB = true
			res.BearishOBPrice = candle.Low
		}
	}
}

// volumeSpike reports whether volume at idx exceeds the multiplier times its
// trailing 20 bar average. With fewer than 20 bars there is no average to
// compare against.
func volumeSpike(klines []*domain.Kline, idx int, mult float64) bool {
	start := idx - 19
	if start < 0 {
		return false
	}
	sum := 0.0
	for _, v := range domain.Volumes(klines[start : idx+1]) {
		sum += v
	}
	avg := sum / 20
	return klines[idx].Volume > avg*mult
}

// displacement is the percent move of the close at idx over three bars.
func displacement(klines []*domain.Kline, idx int) float64 {
	if idx < 3 {
		return 0
	}
	ref := klines[idx-3].Close
	if ref == 0 {
		return 0
	}
	return (klines[idx].Close - ref) / ref * 100
}

// detectFairValueGaps compares the latest bar against the bar two before it:
// a gap the middle candle never filled, wide enough to matter.
func (d *Detector) detectFairValueGaps(klines []*domain.Kline, res *domain.SMCResult) {
	if len(klines) < 3 {
		return
	}
	last := klines[len(klines)-1]
	third := klines[len(klines)-3]

	if last.Low > third.High {
		gapPct := (last.Low - third.High) / third.High * 100
		if gapPct >= d.cfg.FVGMinGapPct {
			res.BullishFVG = true
			res.BullishFVGTop = last.Low
			res.BullishFVGBottom = third.High
		}
	}
	if last.High < third.Low {
		gapPct := (third.Low - last.High) / third.Low * 100
		if gapPct >= d.cfg.FVGMinGapPct {
			res.BearishFVG = true
			res.BearishFVGTop = third.Low
			res.BearishFVGBottom = last.High
		}
	}
}

// detectLiquiditySweeps flags equal highs or equal lows on the latest two
// bars, within the tolerance.
func (d *Detector) detectLiquiditySweeps(klines []*domain.Kline, res *domain.SMCResult) {
	if len(klines) < 2 {
		return
	}
	last := klines[len(klines)-1]
	prev := klines[len(klines)-2]

	if last.High != 0 {
		res.LiqSweepBear = abs(last.High-prev.High)/last.High*100 < d.cfg.LiqTolerancePct
	}
	if last.Low != 0 {
		res.LiqSweepBull = abs(last.Low-prev.Low)/last.Low*100 < d.cfg.LiqTolerancePct
	}
}

func (d *Detector) detectConfirmations(klines []*domain.Kline, res *domain.SMCResult) {
	last := klines[len(klines)-1]
	var prev *domain.Kline
	if len(klines) >= 2 {
		prev = klines[len(klines)-2]
	}

	res.ConfirmationBull = bullishEngulf(last, prev) || hammer(last)
	res.ConfirmationBear = bearishEngulf(last, prev) || shootingStar(last)
}

func bullishEngulf(curr, prev *domain.Kline) bool {
	if prev == nil {
		return false
	}
	return curr.IsBullish() && prev.IsBearish() &&
		curr.Close > prev.Open && curr.Open < prev.Close
}

func bearishEngulf(curr, prev *domain.Kline) bool {
	if prev == nil {
		return false
	}
	return curr.IsBearish() && prev.IsBullish() &&
		curr.Close < prev.Open && curr.Open > prev.Close
}

func hammer(k *domain.Kline) bool {
	body := k.Body()
	upperWick := k.High - maxF(k.Close, k.Open)
	lowerWick := minF(k.Close, k.Open) - k.Low
	return k.IsBullish() && upperWick < body*0.3 && lowerWick > body*2
}

func shootingStar(k *domain.Kline) bool {
	body := k.Body()
	upperWick := k.High - maxF(k.Close, k.Open)
	lowerWick := minF(k.Close, k.Open) - k.Low
	return k.IsBearish() && lowerWick < body*0.3 && upperWick > body*2
}

// rollingATR is the simple mean of the last period true ranges.
func rollingATR(klines []*domain.Kline, period int) float64 {
	if len(klines) < period+1 {
		return 0
	}
	sum := 0.0
	for i := len(klines) - period; i < len(klines); i++ {
		sum += klines[i].TrueRange(klines[i-1].Close)
	}
	return sum / float64(period)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
