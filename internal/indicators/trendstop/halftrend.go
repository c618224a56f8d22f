package trendstop

import (
	"fmt"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// HalfTrendConfig holds the HalfTrend parameters: the extremum lookback and
// the ATR channel width multiplier.
type HalfTrendConfig struct {
	Amplitude        int
	ChannelDeviation float64
}

func DefaultHalfTrendConfig() HalfTrendConfig {
	return HalfTrendConfig{Amplitude: 2, ChannelDeviation: 2}
}

func (c HalfTrendConfig) validate() error {
	if c.Amplitude <= 0 {
		return fmt.Errorf("halftrend: amplitude must be positive, got %d: %w", c.Amplitude, ports.ErrInvalidRequest)
	}
	if c.ChannelDeviation <= 0 {
		return fmt.Errorf("halftrend: channel deviation must be positive: %w", ports.ErrInvalidRequest)
	}
	return nil
}

// HalfTrendPoint is the per-bar output. Value is the trend line itself,
// ATRHigh/ATRLow the channel around it. ReversalPrice is set only on a flip
// bar: the suggested entry level one half-ATR beyond the line.
type HalfTrendPoint struct {
	Direction     domain.Direction
	Value         float64
	ATRHigh       float64
	ATRLow        float64
	ReversalPrice float64
	Buy           bool
	Sell          bool
}

// HalfTrend tracks two moving extremes and flips only when the average price
// crosses the tracked extreme AND the close breaks the prior bar's range.
// Requiring both keeps it quiet through ordinary pullbacks.
type HalfTrend struct {
	cfg    HalfTrendConfig
	atr100 *atrState
	win    *window

	// internal trend encoding follows the indicator's convention:
	// 0 is up, 1 is down; watching flags which side is being tracked.
	trend    int
	watching int
	maxLow   float64
	minHigh  float64
	up       float64
	down     float64
	downSet  bool
	prev     *domain.Kline
}

func NewHalfTrend(cfg HalfTrendConfig) (*HalfTrend, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &HalfTrend{
		cfg:    cfg,
		atr100: newATRState(100),
		win:    newWindow(cfg.Amplitude + 1),
	}, nil
}

func (h *HalfTrend) MinBars() int { return h.cfg.Amplitude + 10 }

func (h *HalfTrend) Update(k *domain.Kline) HalfTrendPoint {
	halfATR := h.atr100.update(k) / 2
	dev := h.cfg.ChannelDeviation * halfATR
	h.win.push(k)

	if h.prev == nil {
		h.trend = 0
		h.watching = 0
		h.maxLow = k.Low
		h.minHigh = k.High
		h.up = k.Low
		h.prev = k
		return HalfTrendPoint{
			Direction: domain.DirectionUp,
			Value:     h.up,
			ATRHigh:   h.up + dev,
			ATRLow:    h.up - dev,
		}
	}

	highPrice := h.win.highestHigh()
	lowPrice := h.win.lowestLow()
	highma := h.win.meanHigh()
	lowma := h.win.meanLow()

	prevTrend := h.trend
	if h.watching == 1 {
		// In an uptrend: the ratcheted low floor gates the down flip but is
		// only persisted when the flip actually fires.
		floor := maxF(lowPrice, h.maxLow)
		if highma < floor && k.Close < h.prev.Low {
			h.trend = 1
			h.watching = 0
			h.maxLow = floor
			h.minHigh = highPrice
		}
	} else {
		ceil := minF(highPrice, h.minHigh)
		if lowma > ceil && k.Close > h.prev.High {
			h.trend = 0
			h.watching = 1
			h.minHigh = ceil
			h.maxLow = lowPrice
		}
	}

	p := HalfTrendPoint{}
	if h.trend == 0 {
		if prevTrend != 0 {
			h.up = h.down
			p.ReversalPrice = h.up - halfATR
			p.Buy = true
		} else {
			h.up = maxF(h.maxLow, h.up)
		}
		p.Direction = domain.DirectionUp
		p.Value = h.up
		p.ATRHigh = h.up + dev
		p.ATRLow = h.up - dev
	} else {
		if prevTrend != 1 {
			h.down = h.up
			h.downSet = true
			p.ReversalPrice = h.down + halfATR
			p.Sell = true
		} else {
			if !h.downSet {
				h.down = h.minHigh
				h.downSet = true
			} else {
				h.down = minF(h.minHigh, h.down)
			}
		}
		p.Direction = domain.DirectionDown
		p.Value = h.down
		p.ATRHigh = h.down + dev
		p.ATRLow = h.down - dev
	}

	h.prev = k
	return p
}

// ComputeHalfTrend runs the indicator over a full series, bar by bar.
func ComputeHalfTrend(cfg HalfTrendConfig, klines []*domain.Kline) ([]HalfTrendPoint, error) {
	h, err := NewHalfTrend(cfg)
	if err != nil {
		return nil, err
	}
	if len(klines) < h.MinBars() {
		return nil, fmt.Errorf("halftrend: need at least %d bars, got %d: %w", h.MinBars(), len(klines), ports.ErrInsufficientData)
	}
	points := make([]HalfTrendPoint, len(klines))
	for i, k := range klines {
		points[i] = h.Update(k)
	}
	return points, nil
}
