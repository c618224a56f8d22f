package signal

import (
	"fmt"

	"cryptoSignalBot/internal/domain"
)

// ValidateMTF tallies how many coarser timeframes back the base signal's
// direction: the 15m and 1h trend labels directly, and the 4h view through the
// 1h higher-timeframe momentum bit. Two of three confirmations approve the
// signal.
func ValidateMTF(action domain.Action, tf15m, tf1h domain.TimeframeTrend) domain.MTFValidation {
	res := domain.MTFValidation{}
	if action != domain.ActionBuy && action != domain.ActionSell {
		res.Reasoning = append(res.Reasoning, "no directional signal to confirm")
		return res
	}

	want := domain.DirectionUp
	if action == domain.ActionSell {
		want = domain.DirectionDown
	}

	check := func(label string, trend domain.Direction) {
		if trend == want {
			res.Confirmations++
			res.TimeframesAligned = append(res.TimeframesAligned, label)
			res.Reasoning = append(res.Reasoning, fmt.Sprintf("%s confirms direction", label))
		} else {
			res.Reasoning = append(res.Reasoning, fmt.Sprintf("%s does not confirm", label))
		}
	}
	check("15m", tf15m.Trend)
	check("1h", tf1h.Trend)

	if tf1h.HTFBullish == (want == domain.DirectionUp) {
		res.Confirmations++
		res.TimeframesAligned = append(res.TimeframesAligned, "4h")
		res.Reasoning = append(res.Reasoning, "4h higher-timeframe bias confirms")
	}

	res.Strength = float64(res.Confirmations) / 3 * 100
	res.Approved = res.Confirmations >= 2
	return res
}
