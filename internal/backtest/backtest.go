// Package backtest replays historical bars through the simple signal path and
// simulates trade outcomes with a bounded lookahead window. Indicators are
// computed once over the whole series, then each bar is evaluated as if it
// were the latest.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/markcheno/go-talib"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/indicators/trendstop"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/signal"
)

// Warmup is the number of leading bars reserved for indicator settling before
// any signal is evaluated.
const Warmup = 200

// Config controls one backtest run.
type Config struct {
	Symbol       string
	Timeframe    string
	LookbackBars int // bars to evaluate after warmup
	Lookahead    int // bars a position may stay open
	SBST         trendstop.SBSTConfig
}

// DefaultConfig backtests 180 bars with a 20 bar exit window.
func DefaultConfig(symbol, timeframe string) Config {
	return Config{
		Symbol:       symbol,
		Timeframe:    timeframe,
		LookbackBars: 180,
		Lookahead:    20,
		SBST:         trendstop.DefaultSBSTConfig(),
	}
}

// Trade is one simulated entry and its outcome.
type Trade struct {
	Index      int
	Time       time.Time
	Action     domain.Action
	Entry      float64
	Stop       float64
	TP1        float64
	Exit       float64
	ExitReason domain.CloseReason
	PNL        float64
	PNLPercent float64
}

// Summary aggregates a run's trades.
type Summary struct {
	Symbol     string
	Timeframe  string
	Trades     int
	Wins       int
	Losses     int
	WinRatePct float64
	AvgPNLPct  float64
	TPHits     int
	SLHits     int
}

// Result is the full output of one run.
type Result struct {
	Trades  []Trade
	Summary Summary
}

// Engine runs backtests. It is stateless across runs.
type Engine struct {
	cfg    Config
	logger ports.Logger
}

func NewEngine(cfg Config, logger ports.Logger) (*Engine, error) {
	if logger == nil {
		return nil, fmt.Errorf("backtest: logger is required: %w", ports.ErrConfigurationError)
	}
	if cfg.LookbackBars <= 0 || cfg.Lookahead <= 0 {
		return nil, fmt.Errorf("backtest: lookback and lookahead must be positive: %w", ports.ErrConfigurationError)
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

// Run evaluates the series bar by bar. The series should include Warmup bars
// ahead of the window being tested.
func (e *Engine) Run(ctx context.Context, klines []*domain.Kline) (*Result, error) {
	if len(klines) < Warmup {
		return nil, fmt.Errorf("backtest: need at least %d bars, got %d: %w", Warmup, len(klines), ports.ErrInsufficientData)
	}

	points, err := trendstop.ComputeSBST(e.cfg.SBST, klines)
	if err != nil {
		return nil, fmt.Errorf("backtest: computing trend stops: %w", err)
	}

	closes := domain.Closes(klines)
	highs := domain.Highs(klines)
	lows := domain.Lows(klines)

	rsi := talib.Rsi(closes, 14)
	_, _, macdHist := talib.Macd(closes, 12, 26, 9)
	adx := talib.Adx(highs, lows, closes, 14)
	ema10 := talib.Ema(closes, 10)
	ema20 := talib.Ema(closes, 20)
	sma50 := talib.Sma(closes, 50)

	start := len(klines) - e.cfg.LookbackBars
	if start < Warmup {
		start = Warmup
	}

	res := &Result{}
	for i := start; i < len(klines)-1; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest: %w: %v", ports.ErrContextCanceled, err)
		}

		a := analysisAt(e.cfg.Symbol, e.cfg.Timeframe, klines, points, i)
		a.RSI = rsi[i]
		a.MACDHist = macdHist[i]
		a.ADX = adx[i]
		a.EMA10 = ema10[i]
		a.EMA20 = ema20[i]
		a.SMA50 = sma50[i]

		sig := signal.GenerateSimple(a)
		if !sig.Actionable() {
			continue
		}
		res.Trades = append(res.Trades, simulate(klines, i, sig, e.cfg.Lookahead))
	}

	res.Summary = summarize(e.cfg.Symbol, e.cfg.Timeframe, res.Trades)
	e.logger.Info(ctx, "backtest complete", map[string]interface{}{
		"symbol":  res.Summary.Symbol,
		"trades":  res.Summary.Trades,
		"winRate": res.Summary.WinRatePct,
		"avgPnl":  res.Summary.AvgPNLPct,
		"tpHits":  res.Summary.TPHits,
		"slHits":  res.Summary.SLHits,
	})
	return res, nil
}

// analysisAt rebuilds the per-bar view the live pipeline would have seen at
// bar i, including the 5-bar recent-signal windows.
func analysisAt(symbol, timeframe string, klines []*domain.Kline, points []trendstop.SBSTPoint, i int) *domain.Analysis {
	p := points[i]
	a := &domain.Analysis{
		Symbol:         symbol,
		Timeframe:      timeframe,
		Timestamp:      klines[i].CloseTime,
		Price:          klines[i].Close,
		Trend:          p.Trend,
		TrendConfirmed: p.TrendX,
		TrendAligned:   p.Confirmed,
		BuySignal:      p.Buy,
		SellSignal:     p.Sell,
		BuyConfirm:     p.BuyConfirm,
		SellConfirm:    p.SellConfirm,
		UpLevel:        p.Up,
		DnLevel:        p.Dn,
		UpxLevel:       p.Upx,
		DnxLevel:       p.Dnx,
		ATR:            p.ATR,
	}

	ref := klines[i-5].Close
	if ref != 0 {
		a.PriceChange5 = (klines[i].Close - ref) / ref * 100
	}

	for j := i - 4; j <= i; j++ {
		if j < 0 {
			continue
		}
		a.RecentBuy = a.RecentBuy || points[j].Buy
		a.RecentSell = a.RecentSell || points[j].Sell
		a.RecentBuyConf = a.RecentBuyConf || points[j].BuyConfirm
		a.RecentSellConf = a.RecentSellConf || points[j].SellConfirm
	}
	return a
}

// simulate walks forward through the lookahead window. The stop is checked
// before the target within each bar, which makes ambiguous bars count as
// losses.
func simulate(klines []*domain.Kline, i int, sig *domain.Signal, lookahead int) Trade {
	end := len(klines) - 1
	if i+lookahead < end {
		end = i + lookahead
	}

	exit := sig.Entry
	reason := domain.CloseReasonTime

	for j := i + 1; j <= end; j++ {
		high, low := klines[j].High, klines[j].Low
		if sig.Action == domain.ActionBuy {
			if low <= sig.StopLoss {
				exit, reason = sig.StopLoss, domain.CloseReasonStopLoss
				break
			}
			if high >= sig.TakeProfit1 {
				exit, reason = sig.TakeProfit1, domain.CloseReasonTakeProfit
				break
			}
		} else {
			if high >= sig.StopLoss {
				exit, reason = sig.StopLoss, domain.CloseReasonStopLoss
				break
			}
			if low <= sig.TakeProfit1 {
				exit, reason = sig.TakeProfit1, domain.CloseReasonTakeProfit
				break
			}
		}
	}
	if reason == domain.CloseReasonTime {
		exit = klines[end].Close
	}

	pnl := exit - sig.Entry
	if sig.Action == domain.ActionSell {
		pnl = sig.Entry - exit
	}
	pnlPct := 0.0
	if sig.Entry != 0 {
		pnlPct = pnl / sig.Entry * 100
	}

	return Trade{
		Index:      i,
		Time:       klines[i].CloseTime,
		Action:     sig.Action,
		Entry:      sig.Entry,
		Stop:       sig.StopLoss,
		TP1:        sig.TakeProfit1,
		Exit:       exit,
		ExitReason: reason,
		PNL:        pnl,
		PNLPercent: pnlPct,
	}
}

func summarize(symbol, timeframe string, trades []Trade) Summary {
	s := Summary{Symbol: symbol, Timeframe: timeframe, Trades: len(trades)}
	sumPct := 0.0
	for _, t := range trades {
		switch {
		case t.PNL > 0:
			s.Wins++
		case t.PNL < 0:
			s.Losses++
		}
		switch t.ExitReason {
		case domain.CloseReasonTakeProfit:
			s.TPHits++
		case domain.CloseReasonStopLoss:
			s.SLHits++
		}
		sumPct += t.PNLPercent
	}
	if s.Trades > 0 {
		s.WinRatePct = float64(s.Wins) / float64(s.Trades) * 100
		s.AvgPNLPct = sumPct / float64(s.Trades)
	}
	return s
}
