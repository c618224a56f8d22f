// Package oscillators computes the momentum snapshot used by the signal
// scorers: RSI, MACD, ADX, the moving averages and ATR, all taken at the most
// recent closed bar.
package oscillators

import (
	"fmt"

	"github.com/markcheno/go-talib"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// MinBars is the shortest series a Snapshot can be computed from. The SMA(50)
// and the MACD signal line are the binding constraints.
const MinBars = 60

// Snapshot holds the latest value of each oscillator.
type Snapshot struct {
	RSI          float64
	MACD         float64
	MACDSignal   float64
	MACDHist     float64
	ADX          float64
	EMA10        float64
	EMA20        float64
	SMA50        float64
	ATR          float64
	PriceChange5 float64
}

// Compute evaluates the full oscillator set over the series and returns the
// values at the final bar.
func Compute(klines []*domain.Kline) (*Snapshot, error) {
	if len(klines) < MinBars {
		return nil, fmt.Errorf("oscillators: need at least %d bars, got %d: %w", MinBars, len(klines), ports.ErrInsufficientData)
	}

	closes := domain.Closes(klines)
	highs := domain.Highs(klines)
	lows := domain.Lows(klines)
	last := len(closes) - 1

	rsi := talib.Rsi(closes, 14)
	macd, macdSignal, macdHist := talib.Macd(closes, 12, 26, 9)
	adx := talib.Adx(highs, lows, closes, 14)
	ema10 := talib.Ema(closes, 10)
	ema20 := talib.Ema(closes, 20)
	sma50 := talib.Sma(closes, 50)
	atr := talib.Atr(highs, lows, closes, 14)

	ref := closes[last-5]
	change := 0.0
	if ref != 0 {
		change = (closes[last] - ref) / ref * 100
	}

	return &Snapshot{
		RSI:          rsi[last],
		MACD:         macd[last],
		MACDSignal:   macdSignal[last],
		MACDHist:     macdHist[last],
		ADX:          adx[last],
		EMA10:        ema10[last],
		EMA20:        ema20[last],
		SMA50:        sma50[last],
		ATR:          atr[last],
		PriceChange5: change,
	}, nil
}
