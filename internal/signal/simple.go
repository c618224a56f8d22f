package signal

import (
	"fmt"

	"cryptoSignalBot/internal/domain"
)

// Point totals required before the simple scorer commits to a direction,
// and the cap keeping its confidence below certainty.
const (
	simpleEntryScore    = 6
	simpleVetoScore     = 3
	simpleMaxConfidence = 95
)

// GenerateSimple is the cheap decision function: a raw point tally over the
// analysis with no weighting. A direction needs a strong score of its own and
// a weak opposing score; anything else is a WAIT. The backtester runs on this
// path, so it must stay independent of the weighted aggregator.
func GenerateSimple(a *domain.Analysis) *domain.Signal {
	sig := &domain.Signal{Action: domain.ActionWait}

	buyScore := 0
	if a.TrendAligned && a.Trend == domain.DirectionUp {
		buyScore += 3
		sig.Reasons = append(sig.Reasons, "confirmed uptrend on both SBST levels")
	}
	if a.BuySignal || a.RecentBuy {
		buyScore += 2
		sig.Reasons = append(sig.Reasons, "SBST buy signal triggered")
	}
	if a.BuyConfirm || a.RecentBuyConf {
		buyScore += 2
		sig.Reasons = append(sig.Reasons, "SBST buy confirmed on level 2")
	}
	if a.RSI > 40 && a.RSI < 70 {
		buyScore++
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("RSI healthy (%.1f)", a.RSI))
	} else if a.RSI > 0 && a.RSI < 30 {
		buyScore++
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("RSI oversold (%.1f), potential bounce", a.RSI))
	}
	if a.MACDHist > 0 {
		buyScore++
		sig.Reasons = append(sig.Reasons, "MACD bullish")
	}
	if a.ADX > 20 {
		buyScore++
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("strong trend (ADX %.1f)", a.ADX))
	}
	if a.PriceChange5 > 0 {
		buyScore++
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("positive momentum (%.2f%%)", a.PriceChange5))
	}

	sellScore := 0
	if a.TrendAligned && a.Trend == domain.DirectionDown {
		sellScore += 3
		sig.Reasons = append(sig.Reasons, "confirmed downtrend on both SBST levels")
	}
	if a.SellSignal || a.RecentSell {
		sellScore += 2
		sig.Reasons = append(sig.Reasons, "SBST sell signal triggered")
	}
	if a.SellConfirm || a.RecentSellConf {
		sellScore += 2
		sig.Reasons = append(sig.Reasons, "SBST sell confirmed on level 2")
	}
	if a.RSI > 75 {
		sellScore++
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("RSI overbought (%.1f)", a.RSI))
	}
	if a.MACDHist < 0 {
		sellScore++
		sig.Reasons = append(sig.Reasons, "MACD bearish")
	}
	if a.PriceChange5 < -2 {
		sellScore++
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("negative momentum (%.2f%%)", a.PriceChange5))
	}

	switch {
	case buyScore >= simpleEntryScore && sellScore < simpleVetoScore:
		sig.Action = domain.ActionBuy
		sig.Confidence = capConfidence(buyScore * 10)
		sig.Entry = a.Price
		sig.StopLoss = a.UpLevel
		sig.TakeProfit1 = a.Price + a.ATR*1.5
		sig.TakeProfit2 = a.Price + a.ATR*3.0
		if risk := a.Price - sig.StopLoss; risk > 0 {
			sig.RiskReward = (sig.TakeProfit1 - a.Price) / risk
		}
	case sellScore >= simpleEntryScore && buyScore < simpleVetoScore:
		sig.Action = domain.ActionSell
		sig.Confidence = capConfidence(sellScore * 10)
		sig.Entry = a.Price
		sig.StopLoss = a.DnLevel
		sig.TakeProfit1 = a.Price - a.ATR*1.5
		sig.TakeProfit2 = a.Price - a.ATR*3.0
		if risk := sig.StopLoss - a.Price; risk > 0 {
			sig.RiskReward = (a.Price - sig.TakeProfit1) / risk
		}
	default:
		sig.Reasons = append(sig.Reasons, fmt.Sprintf("buy score %d, sell score %d: staying out", buyScore, sellScore))
	}

	return sig
}

func capConfidence(v int) int {
	if v > simpleMaxConfidence {
		return simpleMaxConfidence
	}
	return v
}
