package trendstop

import (
	"fmt"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// PSARConfig holds the Parabolic SAR acceleration parameters.
type PSARConfig struct {
	Start     float64
	Increment float64
	Maximum   float64
}

func DefaultPSARConfig() PSARConfig {
	return PSARConfig{Start: 0.02, Increment: 0.02, Maximum: 0.2}
}

func (c PSARConfig) validate() error {
	if c.Start <= 0 || c.Increment <= 0 || c.Maximum <= 0 {
		return fmt.Errorf("psar: acceleration parameters must be positive: %w", ports.ErrInvalidRequest)
	}
	if c.Maximum < c.Start {
		return fmt.Errorf("psar: maximum %.4f below start %.4f: %w", c.Maximum, c.Start, ports.ErrInvalidRequest)
	}
	return nil
}

// PSARPoint is the per-bar output: the SAR level, the acceleration factor and
// the reversal events.
type PSARPoint struct {
	Direction domain.Direction
	SAR       float64
	AF        float64
	Buy       bool
	Sell      bool
}

// PSAR is the streaming Parabolic SAR. The SAR accelerates toward price while
// the trend makes new extremes, is clamped by the prior two bars' range, and
// jumps to the opposite extreme on reversal.
type PSAR struct {
	cfg  PSARConfig
	bull bool
	sarL float64
	sarS float64
	hp   float64
	lp   float64
	af   float64

	prev1 *domain.Kline
	prev2 *domain.Kline
	count int
}

func NewPSAR(cfg PSARConfig) (*PSAR, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &PSAR{cfg: cfg}, nil
}

func (p *PSAR) MinBars() int { return 10 }

func (p *PSAR) Update(k *domain.Kline) PSARPoint {
	if p.count == 0 {
		p.bull = true
		p.sarL = k.Low
		p.sarS = k.High
		p.hp = k.High
		p.lp = k.Low
		p.af = p.cfg.Start
		p.prev1 = k
		p.count++
		return PSARPoint{Direction: domain.DirectionUp, SAR: k.Low, AF: p.af}
	}

	low2 := p.prev1.Low
	high2 := p.prev1.High
	if p.prev2 != nil {
		low2 = p.prev2.Low
		high2 = p.prev2.High
	}

	out := PSARPoint{}
	if p.bull {
		sar := p.sarL + p.af*(p.hp-p.sarL)
		// SAR may not rise above the prior two lows.
		sar = minF(sar, minF(p.prev1.Low, low2))
		p.sarL = sar

		prevHP := p.hp
		if k.High > p.hp {
			p.hp = k.High
			p.af = minF(p.af+p.cfg.Increment, p.cfg.Maximum)
		}

		if k.Low < sar {
			p.bull = false
			sar = prevHP
			p.sarS = prevHP
			p.lp = k.Low
			p.af = p.cfg.Start
			out.Sell = true
		}
		out.SAR = sar
	} else {
		sar := p.sarS - p.af*(p.sarS-p.lp)
		// SAR may not fall below the prior two highs.
		sar = maxF(sar, maxF(p.prev1.High, high2))
		p.sarS = sar

		prevLP := p.lp
		if k.Low < p.lp {
			p.lp = k.Low
			p.af = minF(p.af+p.cfg.Increment, p.cfg.Maximum)
		}

		if k.High > sar {
			p.bull = true
			sar = prevLP
			p.sarL = prevLP
			p.hp = k.High
			p.af = p.cfg.Start
			out.Buy = true
		}
		out.SAR = sar
	}

	if p.bull {
		out.Direction = domain.DirectionUp
	} else {
		out.Direction = domain.DirectionDown
	}
	out.AF = p.af

	p.prev2 = p.prev1
	p.prev1 = k
	p.count++
	return out
}

// ComputePSAR runs the indicator over a full series, bar by bar.
func ComputePSAR(cfg PSARConfig, klines []*domain.Kline) ([]PSARPoint, error) {
	p, err := NewPSAR(cfg)
	if err != nil {
		return nil, err
	}
	if len(klines) < p.MinBars() {
		return nil, fmt.Errorf("psar: need at least %d bars, got %d: %w", p.MinBars(), len(klines), ports.ErrInsufficientData)
	}
	points := make([]PSARPoint, len(klines))
	for i, k := range klines {
		points[i] = p.Update(k)
	}
	return points, nil
}
