package signal

import (
	"fmt"

	"cryptoSignalBot/internal/domain"
)

// DetectDivergences flags conditions where the indicators disagree with each
// other. The warnings are advisory: they are surfaced on the evaluation but
// never change the confidence score.
func DetectDivergences(a *domain.Analysis) []domain.Divergence {
	var out []domain.Divergence

	// Price pushing a new high without RSI backing it.
	if a.PriceNewHigh && a.RSI <= 70 {
		out = append(out, domain.Divergence{
			Type:        "Bearish Divergence",
			Severity:    "High",
			Description: "price made a new high but RSI is not confirming",
		})
	}

	// SBST and SMC disagreeing on the trend. An unknown structure is not a
	// disagreement.
	if a.SMC.Known() {
		sbstUp := a.Trend == domain.DirectionUp
		smcUp := a.SMC.Trend == domain.TrendBullish
		if sbstUp != smcUp {
			out = append(out, domain.Divergence{
				Type:        "Structure Divergence",
				Severity:    "Medium",
				Description: "SBST and SMC disagree on trend direction",
			})
		}
	}

	reversals := 0
	if a.HalfTrendReversal {
		reversals++
	}
	if a.PSARReversal {
		reversals++
	}
	if a.NRTRReversal {
		reversals++
	}
	if reversals >= 2 {
		out = append(out, domain.Divergence{
			Type:        "Multi-Reversal Signal",
			Severity:    "High",
			Description: fmt.Sprintf("%d indicators signaling reversal", reversals),
		})
	}

	return out
}
