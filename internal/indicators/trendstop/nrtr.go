package trendstop

import (
	"fmt"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// NRTRConfig holds the Nick Rypock Trailing Reverse parameter: the trailing
// distance as a fraction of the tracked extreme close.
type NRTRConfig struct {
	Percentage float64
}

func DefaultNRTRConfig() NRTRConfig {
	return NRTRConfig{Percentage: 0.02}
}

func (c NRTRConfig) validate() error {
	if c.Percentage <= 0 || c.Percentage >= 1 {
		return fmt.Errorf("nrtr: percentage must be in (0, 1), got %.4f: %w", c.Percentage, ports.ErrInvalidRequest)
	}
	return nil
}

// NRTRPoint is the per-bar output. HighPoint/LowPoint are the tracked extreme
// closes the stop trails behind.
type NRTRPoint struct {
	Direction domain.Direction
	Stop      float64
	HighPoint float64
	LowPoint  float64
	Buy       bool
	Sell      bool
}

// NRTR trails the highest close down by a fixed percentage in an uptrend and
// the lowest close up by the same percentage in a downtrend. Unlike the ATR
// based stops it reverses on the same bar the close crosses the stop.
type NRTR struct {
	cfg NRTRConfig

	// trend uses the indicator's tri-state encoding: 0 established uptrend,
	// 1 the up flip bar itself, -1 downtrend.
	trend int
	hp    float64
	lp    float64
	count int
}

func NewNRTR(cfg NRTRConfig) (*NRTR, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &NRTR{cfg: cfg}, nil
}

func (n *NRTR) MinBars() int { return 10 }

func (n *NRTR) Update(k *domain.Kline) NRTRPoint {
	if n.count == 0 {
		n.trend = 0
		n.hp = k.Close
		n.lp = k.Close
		n.count++
		return NRTRPoint{Direction: domain.DirectionUp, Stop: k.Close, HighPoint: n.hp, LowPoint: n.lp}
	}

	close := k.Close
	prevTrend := n.trend
	var stop float64

	if prevTrend >= 0 {
		if close > n.hp {
			n.hp = close
		}
		stop = n.hp * (1 - n.cfg.Percentage)
		if close <= stop {
			n.trend = -1
			n.lp = close
			stop = n.lp * (1 + n.cfg.Percentage)
		} else {
			n.trend = 0
		}
	} else {
		if close < n.lp {
			n.lp = close
		}
		stop = n.lp * (1 + n.cfg.Percentage)
		if close > stop {
			n.trend = 1
			n.hp = close
			stop = n.hp * (1 - n.cfg.Percentage)
		} else {
			n.trend = -1
		}
	}

	n.count++
	p := NRTRPoint{
		Stop:      stop,
		HighPoint: n.hp,
		LowPoint:  n.lp,
		Buy:       n.trend == 1 && prevTrend == -1,
		Sell:      n.trend == -1 && prevTrend >= 0,
	}
	if n.trend >= 0 {
		p.Direction = domain.DirectionUp
	} else {
		p.Direction = domain.DirectionDown
	}
	return p
}

// ComputeNRTR runs the indicator over a full series, bar by bar.
func ComputeNRTR(cfg NRTRConfig, klines []*domain.Kline) ([]NRTRPoint, error) {
	n, err := NewNRTR(cfg)
	if err != nil {
		return nil, err
	}
	if len(klines) < n.MinBars() {
		return nil, fmt.Errorf("nrtr: need at least %d bars, got %d: %w", n.MinBars(), len(klines), ports.ErrInsufficientData)
	}
	points := make([]NRTRPoint, len(klines))
	for i, k := range klines {
		points[i] = n.Update(k)
	}
	return points, nil
}
