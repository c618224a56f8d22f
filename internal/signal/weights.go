// Package signal turns the indicator substrate into trade decisions. Two
// independent decision functions live here: the weighted confidence aggregator
// used by the live pipeline, and the cheaper point-score generator used by the
// backtester. They are deliberately kept separate.
package signal

import (
	"fmt"
	"math"

	"cryptoSignalBot/internal/ports"
)

// Weights is the fixed share of each indicator group in the weighted
// confidence score. It is a value type: hand copies around freely, a validated
// table can never change under a holder.
type Weights struct {
	SBST       float64
	HalfTrend  float64
	PSAR       float64
	Swift      float64
	Chandelier float64
	NRTR       float64
	SMC        float64
	RSI        float64
	MACD       float64
	ADX        float64
}

// DefaultWeights returns the production weight table.
func DefaultWeights() Weights {
	return Weights{
		SBST:       0.20,
		HalfTrend:  0.12,
		PSAR:       0.10,
		Swift:      0.15,
		Chandelier: 0.08,
		NRTR:       0.10,
		SMC:        0.12,
		RSI:        0.05,
		MACD:       0.05,
		ADX:        0.03,
	}
}

// Validate rejects tables that do not distribute exactly 100% across the
// groups, or that carry a negative share.
func (w Weights) Validate() error {
	parts := []float64{w.SBST, w.HalfTrend, w.PSAR, w.Swift, w.Chandelier, w.NRTR, w.SMC, w.RSI, w.MACD, w.ADX}
	sum := 0.0
	for _, p := range parts {
		if p < 0 {
			return fmt.Errorf("signal: negative weight in table: %w", ports.ErrConfigurationError)
		}
		sum += p
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("signal: weights sum to %.6f, want 1.0: %w", sum, ports.ErrConfigurationError)
	}
	return nil
}
