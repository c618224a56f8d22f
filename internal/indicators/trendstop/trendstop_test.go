package trendstop

import (
	"errors"
	"testing"
	"time"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

func barAt(i int, open, high, low, close float64) *domain.Kline {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &domain.Kline{
		OpenTime:  base.Add(time.Duration(i) * time.Hour),
		CloseTime: base.Add(time.Duration(i+1) * time.Hour),
		Symbol:    "BTCUSDT",
		Interval:  "1h",
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    1000,
		IsFinal:   true,
	}
}

func closeBar(i int, close float64) *domain.Kline {
	return barAt(i, close, close+0.5, close-0.5, close)
}

// walkBars builds a deterministic pseudo-random series so that the
// batch-vs-incremental comparisons exercise flips in both directions.
func walkBars(n int) []*domain.Kline {
	bars := make([]*domain.Kline, n)
	price := 100.0
	seed := uint64(42)
	for i := 0; i < n; i++ {
		seed = seed*6364136223846793005 + 1442695040888963407
		step := float64(int64(seed>>33)%200-100) / 50.0
		open := price
		price += step
		high := maxF(open, price) + 0.8
		low := minF(open, price) - 0.8
		bars[i] = barAt(i, open, high, low, price)
	}
	return bars
}

func TestBatchMatchesIncremental(t *testing.T) {
	bars := walkBars(150)

	t.Run("sbst", func(t *testing.T) {
		batch, err := ComputeSBST(DefaultSBSTConfig(), bars)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		s, _ := NewSBST(DefaultSBSTConfig())
		for i, k := range bars {
			if got := s.Update(k); got != batch[i] {
				t.Fatalf("bar %d: incremental %+v != batch %+v", i, got, batch[i])
			}
		}
	})

	t.Run("halftrend", func(t *testing.T) {
		batch, err := ComputeHalfTrend(DefaultHalfTrendConfig(), bars)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		h, _ := NewHalfTrend(DefaultHalfTrendConfig())
		for i, k := range bars {
			if got := h.Update(k); got != batch[i] {
				t.Fatalf("bar %d: incremental %+v != batch %+v", i, got, batch[i])
			}
		}
	})

	t.Run("psar", func(t *testing.T) {
		batch, err := ComputePSAR(DefaultPSARConfig(), bars)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		p, _ := NewPSAR(DefaultPSARConfig())
		for i, k := range bars {
			if got := p.Update(k); got != batch[i] {
				t.Fatalf("bar %d: incremental %+v != batch %+v", i, got, batch[i])
			}
		}
	})

	t.Run("nrtr", func(t *testing.T) {
		batch, err := ComputeNRTR(DefaultNRTRConfig(), bars)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		n, _ := NewNRTR(DefaultNRTRConfig())
		for i, k := range bars {
			if got := n.Update(k); got != batch[i] {
				t.Fatalf("bar %d: incremental %+v != batch %+v", i, got, batch[i])
			}
		}
	})

	t.Run("chandelier", func(t *testing.T) {
		batch, err := ComputeChandelier(DefaultChandelierConfig(), bars)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c, _ := NewChandelier(DefaultChandelierConfig())
		for i, k := range bars {
			if got := c.Update(k); got != batch[i] {
				t.Fatalf("bar %d: incremental %+v != batch %+v", i, got, batch[i])
			}
		}
	})
}

func TestSBSTRisingSeries(t *testing.T) {
	bars := make([]*domain.Kline, 30)
	for i := range bars {
		bars[i] = closeBar(i, 100+float64(i))
	}

	points, err := ComputeSBST(DefaultSBSTConfig(), bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prevUp := points[1].Up
	for i, p := range points {
		if p.Trend != domain.DirectionUp {
			t.Fatalf("bar %d: expected uptrend, got %v", i, p.Trend)
		}
		if p.Sell || p.SellConfirm {
			t.Fatalf("bar %d: unexpected sell on rising series", i)
		}
		if i >= 2 {
			if p.Up <= prevUp {
				t.Fatalf("bar %d: support band %.4f did not rise above %.4f", i, p.Up, prevUp)
			}
			prevUp = p.Up
		}
	}
	last := points[len(points)-1]
	if !last.Confirmed {
		t.Fatalf("expected both bands aligned on rising series")
	}
}

func TestSBSTInsufficientData(t *testing.T) {
	bars := make([]*domain.Kline, 5)
	for i := range bars {
		bars[i] = closeBar(i, 100)
	}
	_, err := ComputeSBST(DefaultSBSTConfig(), bars)
	if !errors.Is(err, ports.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestSBSTInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  SBSTConfig
	}{
		{"zero periods", SBSTConfig{Periods: 0, Multiplier1: 0.8, Multiplier2: 1.6}},
		{"negative multiplier", SBSTConfig{Periods: 10, Multiplier1: -1, Multiplier2: 1.6}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSBST(tt.cfg); !errors.Is(err, ports.ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestNRTRReversals(t *testing.T) {
	closes := []float64{100, 101, 102, 103, 104, 99, 103, 103.5, 103.5, 103.5}
	bars := make([]*domain.Kline, len(closes))
	for i, c := range closes {
		bars[i] = closeBar(i, c)
	}

	points, err := ComputeNRTR(DefaultNRTRConfig(), bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Bar 5 closes more than 2% below the highest close, flipping down.
	if !points[5].Sell {
		t.Fatalf("expected sell on bar 5, got %+v", points[5])
	}
	if points[5].Direction != domain.DirectionDown {
		t.Fatalf("expected downtrend on bar 5")
	}
	if got, want := points[5].Stop, 99*1.02; got != want {
		t.Fatalf("bar 5 stop = %.4f, want %.4f", got, want)
	}

	// Bar 6 closes above the short stop, flipping straight back up.
	if !points[6].Buy {
		t.Fatalf("expected buy on bar 6, got %+v", points[6])
	}
	if got, want := points[6].Stop, 103*0.98; got != want {
		t.Fatalf("bar 6 stop = %.4f, want %.4f", got, want)
	}
	if points[7].Buy || points[7].Sell {
		t.Fatalf("flip events must fire on the flip bar only")
	}
}

func TestPSARReversalJumpsToHighPoint(t *testing.T) {
	bars := []*domain.Kline{
		barAt(0, 10, 10.5, 9.5, 10),
		barAt(1, 10, 11.5, 10.5, 11),
		barAt(2, 11, 12.5, 11.5, 12),
		barAt(3, 12, 13.5, 12.5, 13),
		barAt(4, 13, 14.5, 13.5, 14),
		barAt(5, 14, 6, 5, 5.5),
	}

	p, err := NewPSAR(DefaultPSARConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var last PSARPoint
	for i, k := range bars[:5] {
		last = p.Update(k)
		if last.Direction != domain.DirectionUp {
			t.Fatalf("bar %d: expected uptrend", i)
		}
		if last.Sell {
			t.Fatalf("bar %d: unexpected sell", i)
		}
	}

	crash := p.Update(bars[5])
	if !crash.Sell {
		t.Fatalf("expected reversal on crash bar, got %+v", crash)
	}
	if crash.Direction != domain.DirectionDown {
		t.Fatalf("expected downtrend after crash")
	}
	// On reversal the SAR jumps to the prior high point.
	if crash.SAR != 14.5 {
		t.Fatalf("SAR = %.4f, want 14.5", crash.SAR)
	}
	if crash.AF != DefaultPSARConfig().Start {
		t.Fatalf("AF = %.4f, want reset to start", crash.AF)
	}
}

func TestChandelierLongStopRatchets(t *testing.T) {
	cfg := DefaultChandelierConfig()
	bars := make([]*domain.Kline, cfg.Length+15)
	for i := range bars {
		bars[i] = closeBar(i, 100+float64(i))
	}

	points, err := ComputeChandelier(cfg, bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prev := points[0].LongStop
	for i, p := range points {
		if p.Direction != domain.DirectionUp {
			t.Fatalf("bar %d: expected uptrend", i)
		}
		if p.Sell {
			t.Fatalf("bar %d: unexpected sell on rising series", i)
		}
		if i > 0 && p.LongStop < prev {
			t.Fatalf("bar %d: long stop %.4f fell below %.4f", i, p.LongStop, prev)
		}
		prev = p.LongStop
	}
}

func TestHalfTrendRisingSeriesStaysUp(t *testing.T) {
	bars := make([]*domain.Kline, 40)
	for i := range bars {
		bars[i] = closeBar(i, 100+float64(i))
	}

	points, err := ComputeHalfTrend(DefaultHalfTrendConfig(), bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, p := range points {
		if p.Direction != domain.DirectionUp {
			t.Fatalf("bar %d: expected uptrend, got %v", i, p.Direction)
		}
		if p.Sell {
			t.Fatalf("bar %d: unexpected sell", i)
		}
		if p.Value > bars[i].Close {
			t.Fatalf("bar %d: trend line %.4f above close %.4f", i, p.Value, bars[i].Close)
		}
	}
}

func TestMinBarsErrors(t *testing.T) {
	bars := walkBars(5)

	if _, err := ComputeHalfTrend(DefaultHalfTrendConfig(), bars); !errors.Is(err, ports.ErrInsufficientData) {
		t.Fatalf("halftrend: expected ErrInsufficientData, got %v", err)
	}
	if _, err := ComputePSAR(DefaultPSARConfig(), bars); !errors.Is(err, ports.ErrInsufficientData) {
		t.Fatalf("psar: expected ErrInsufficientData, got %v", err)
	}
	if _, err := ComputeNRTR(DefaultNRTRConfig(), bars); !errors.Is(err, ports.ErrInsufficientData) {
		t.Fatalf("nrtr: expected ErrInsufficientData, got %v", err)
	}
	if _, err := ComputeChandelier(DefaultChandelierConfig(), bars); !errors.Is(err, ports.ErrInsufficientData) {
		t.Fatalf("chandelier: expected ErrInsufficientData, got %v", err)
	}
}
