package trendstop

import (
	"fmt"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// SBSTConfig holds the Super Buy Sell Trend parameters. The two multipliers
// produce a fast and a slow band from the same ATR; a trend is "confirmed"
// only when both bands agree.
type SBSTConfig struct {
	Periods     int
	Multiplier1 float64
	Multiplier2 float64
}

// DefaultSBSTConfig returns the stock parameters: ATR(10) with 0.8 and 1.6
// band multipliers.
func DefaultSBSTConfig() SBSTConfig {
	return SBSTConfig{Periods: 10, Multiplier1: 0.8, Multiplier2: 1.6}
}

func (c SBSTConfig) validate() error {
	if c.Periods <= 0 {
		return fmt.Errorf("sbst: periods must be positive, got %d: %w", c.Periods, ports.ErrInvalidRequest)
	}
	if c.Multiplier1 <= 0 || c.Multiplier2 <= 0 {
		return fmt.Errorf("sbst: multipliers must be positive: %w", ports.ErrInvalidRequest)
	}
	return nil
}

// SBSTPoint is the per-bar output of the fast band plus the slow band's
// confirmation state. Up/Dn are the fast band levels, Upx/Dnx the slow ones.
type SBSTPoint struct {
	Trend       domain.Direction
	TrendX      domain.Direction
	Confirmed   bool
	Up, Dn      float64
	Upx, Dnx    float64
	ATR         float64
	Buy, Sell   bool
	BuyConfirm  bool
	SellConfirm bool
}

// sbstBand is one supertrend band pair: the recurrence ratchets the support
// band upward while closes hold above it, and the resistance band downward
// while closes hold below it. The trend flips when the close crosses the
// opposing band's previous value.
type sbstBand struct {
	trend  domain.Direction
	up, dn float64
}

func (b *sbstBand) step(seeded bool, prevClose, close, src, atr, mult float64) (buy, sell bool) {
	rawUp := src - mult*atr
	rawDn := src + mult*atr
	if !seeded {
		b.trend = domain.DirectionUp
		b.up, b.dn = rawUp, rawDn
		return false, false
	}

	prevUp, prevDn := b.up, b.dn
	if prevClose > prevUp {
		b.up = maxF(rawUp, prevUp)
	} else {
		b.up = rawUp
	}
	if prevClose < prevDn {
		b.dn = minF(rawDn, prevDn)
	} else {
		b.dn = rawDn
	}

	prevTrend := b.trend
	switch {
	case prevTrend == domain.DirectionDown && close > prevDn:
		b.trend = domain.DirectionUp
	case prevTrend == domain.DirectionUp && close < prevUp:
		b.trend = domain.DirectionDown
	}
	return prevTrend == domain.DirectionDown && b.trend == domain.DirectionUp,
		prevTrend == domain.DirectionUp && b.trend == domain.DirectionDown
}

// SBST is the streaming Super Buy Sell Trend indicator.
type SBST struct {
	cfg       SBSTConfig
	atr       *atrState
	fast      sbstBand
	slow      sbstBand
	count     int
	prevClose float64
}

func NewSBST(cfg SBSTConfig) (*SBST, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &SBST{cfg: cfg, atr: newATRState(cfg.Periods)}, nil
}

// MinBars reports the minimum series length Compute accepts.
func (s *SBST) MinBars() int { return s.cfg.Periods + 1 }

// Update advances the indicator by one bar and returns its state after the bar.
func (s *SBST) Update(k *domain.Kline) SBSTPoint {
	atr := s.atr.update(k)
	src := k.HL2()
	seeded := s.count > 0

	buy, sell := s.fast.step(seeded, s.prevClose, k.Close, src, atr, s.cfg.Multiplier1)
	buyX, sellX := s.slow.step(seeded, s.prevClose, k.Close, src, atr, s.cfg.Multiplier2)

	s.count++
	s.prevClose = k.Close

	return SBSTPoint{
		Trend:       s.fast.trend,
		TrendX:      s.slow.trend,
		Confirmed:   s.fast.trend == s.slow.trend,
		Up:          s.fast.up,
		Dn:          s.fast.dn,
		Upx:         s.slow.up,
		Dnx:         s.slow.dn,
		ATR:         atr,
		Buy:         buy,
		Sell:        sell,
		BuyConfirm:  buyX,
		SellConfirm: sellX,
	}
}

// ComputeSBST runs the indicator over a full series. It is exactly equivalent
// to feeding a fresh instance one bar at a time.
func ComputeSBST(cfg SBSTConfig, klines []*domain.Kline) ([]SBSTPoint, error) {
	s, err := NewSBST(cfg)
	if err != nil {
		return nil, err
	}
	if len(klines) < s.MinBars() {
		return nil, fmt.Errorf("sbst: need at least %d bars, got %d: %w", s.MinBars(), len(klines), ports.ErrInsufficientData)
	}
	points := make([]SBSTPoint, len(klines))
	for i, k := range klines {
		points[i] = s.Update(k)
	}
	return points, nil
}
