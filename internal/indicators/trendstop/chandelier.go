package trendstop

import (
	"fmt"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// ChandelierConfig holds the Chandelier Exit parameters. With UseClose the
// extremes are taken over closes instead of highs/lows.
type ChandelierConfig struct {
	Length   int
	Mult     float64
	UseClose bool
}

func DefaultChandelierConfig() ChandelierConfig {
	return ChandelierConfig{Length: 22, Mult: 3.0, UseClose: true}
}

func (c ChandelierConfig) validate() error {
	if c.Length <= 0 {
		return fmt.Errorf("chandelier: length must be positive, got %d: %w", c.Length, ports.ErrInvalidRequest)
	}
	if c.Mult <= 0 {
		return fmt.Errorf("chandelier: mult must be positive: %w", ports.ErrInvalidRequest)
	}
	return nil
}

// ChandelierPoint carries both trailing stops plus the active direction.
type ChandelierPoint struct {
	Direction domain.Direction
	LongStop  float64
	ShortStop float64
	Buy       bool
	Sell      bool
}

// Chandelier hangs a stop a multiple of ATR below the rolling extreme. Both
// stops ratchet while price stays on their side, and the direction flips when
// the close crosses the opposite stop's previous value.
type Chandelier struct {
	cfg ChandelierConfig
	atr *atrState
	win *window

	dir       domain.Direction
	longStop  float64
	shortStop float64
	prevClose float64
	count     int
}

func NewChandelier(cfg ChandelierConfig) (*Chandelier, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Chandelier{
		cfg: cfg,
		atr: newATRState(cfg.Length),
		win: newWindow(cfg.Length),
	}, nil
}

func (c *Chandelier) MinBars() int { return c.cfg.Length + 10 }

func (c *Chandelier) Update(k *domain.Kline) ChandelierPoint {
	band := c.cfg.Mult * c.atr.update(k)
	c.win.push(k)

	var highest, lowest float64
	if c.cfg.UseClose {
		highest = c.win.highestClose()
		lowest = c.win.lowestClose()
	} else {
		highest = c.win.highestHigh()
		lowest = c.win.lowestLow()
	}

	longTemp := highest - band
	shortTemp := lowest + band

	if c.count == 0 {
		c.dir = domain.DirectionUp
		c.longStop = longTemp
		c.shortStop = shortTemp
		c.prevClose = k.Close
		c.count++
		return ChandelierPoint{Direction: c.dir, LongStop: c.longStop, ShortStop: c.shortStop}
	}

	prevLong, prevShort := c.longStop, c.shortStop
	if c.prevClose > prevLong {
		c.longStop = maxF(longTemp, prevLong)
	} else {
		c.longStop = longTemp
	}
	if c.prevClose < prevShort {
		c.shortStop = minF(shortTemp, prevShort)
	} else {
		c.shortStop = shortTemp
	}

	prevDir := c.dir
	switch {
	case k.Close > prevShort:
		c.dir = domain.DirectionUp
	case k.Close < prevLong:
		c.dir = domain.DirectionDown
	}

	c.prevClose = k.Close
	c.count++
	return ChandelierPoint{
		Direction: c.dir,
		LongStop:  c.longStop,
		ShortStop: c.shortStop,
		Buy:       c.dir == domain.DirectionUp && prevDir == domain.DirectionDown,
		Sell:      c.dir == domain.DirectionDown && prevDir == domain.DirectionUp,
	}
}

// ComputeChandelier runs the indicator over a full series, bar by bar.
func ComputeChandelier(cfg ChandelierConfig, klines []*domain.Kline) ([]ChandelierPoint, error) {
	c, err := NewChandelier(cfg)
	if err != nil {
		return nil, err
	}
	if len(klines) < c.MinBars() {
		return nil, fmt.Errorf("chandelier: need at least %d bars, got %d: %w", c.MinBars(), len(klines), ports.ErrInsufficientData)
	}
	points := make([]ChandelierPoint, len(klines))
	for i, k := range klines {
		points[i] = c.Update(k)
	}
	return points, nil
}
