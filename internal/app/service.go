package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cryptoSignalBot/config"
	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/indicators/oscillators"
	"cryptoSignalBot/internal/indicators/smc"
	"cryptoSignalBot/internal/indicators/trendstop"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/risk"
	signalgen "cryptoSignalBot/internal/signal"
)

const (
	mtfFastTimeframe = "15m"
	mtfSlowTimeframe = "1h"
	newHighLookback  = 20
	recentWindow     = 5
)

// AnalysisService orchestrates the full evaluation pipeline: market data in,
// indicators, signal generation, multi-timeframe validation, risk checks,
// persistence and notifications out.
type AnalysisService struct {
	cfg        *config.Config
	logger     ports.Logger
	market     ports.MarketDataProvider
	signalRepo ports.SignalRepository
	notifier   ports.Notifier
	riskMgr    *risk.Manager
	aggregator *signalgen.Aggregator

	// Optional paper-trading loop. When executor and tradeRepo are set,
	// approved signals open simulated positions and each cycle's bar data
	// closes them against their stops and targets.
	executor  ports.OrderExecutor
	tradeRepo ports.TradeRepository

	// Structure detectors are stateful (they track the last classified trend
	// for change-of-character detection), so each symbol gets its own.
	mu        sync.Mutex
	structure map[string]*smc.Detector
}

// NewAnalysisService creates the application service instance.
func NewAnalysisService(
	cfg *config.Config,
	logger ports.Logger,
	market ports.MarketDataProvider,
	signalRepo ports.SignalRepository,
	notifier ports.Notifier,
	riskMgr *risk.Manager,
	executor ports.OrderExecutor,
	tradeRepo ports.TradeRepository,
) (*AnalysisService, error) {
	if cfg == nil || logger == nil || market == nil || signalRepo == nil || notifier == nil || riskMgr == nil {
		return nil, fmt.Errorf("missing required dependencies for AnalysisService")
	}
	if (executor == nil) != (tradeRepo == nil) {
		return nil, fmt.Errorf("paper trading needs both an executor and a trade repository")
	}

	aggregator, err := signalgen.NewAggregator(signalgen.DefaultWeights())
	if err != nil {
		return nil, fmt.Errorf("failed to build confidence aggregator: %w", err)
	}

	return &AnalysisService{
		cfg:        cfg,
		logger:     logger,
		market:     market,
		signalRepo: signalRepo,
		notifier:   notifier,
		riskMgr:    riskMgr,
		aggregator: aggregator,
		executor:   executor,
		tradeRepo:  tradeRepo,
		structure:  make(map[string]*smc.Detector),
	}, nil
}

// Start begins the evaluation loop and blocks until the context is canceled
// or a shutdown signal arrives.
func (s *AnalysisService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Analysis Service...", map[string]interface{}{
		"symbols":  s.cfg.Symbols,
		"interval": s.cfg.Interval,
		"poll":     s.cfg.PollInterval.String(),
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
		cancel()
	}()

	// Evaluate once immediately, then on every tick.
	s.runCycle(ctx)

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Analysis Service stopped.")
			return nil
		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

// runCycle evaluates every configured symbol. A failing symbol is logged and
// skipped; it never aborts the cycle.
func (s *AnalysisService) runCycle(ctx context.Context) {
	for _, symbol := range s.cfg.Symbols {
		if ctx.Err() != nil {
			return
		}
		eval, err := s.EvaluateSymbol(ctx, symbol)
		if err != nil {
			s.logger.Error(ctx, err, "Symbol evaluation failed", map[string]interface{}{"symbol": symbol})
			continue
		}
		s.logger.Info(ctx, "Symbol evaluated", map[string]interface{}{
			"symbol":     symbol,
			"action":     eval.Signal.Action,
			"confidence": eval.Signal.Confidence,
			"weighted":   eval.WeightedConfidence.Total,
			"mtf":        eval.MTF.Approved,
			"risk":       eval.RiskApproved,
		})
	}
}

// EvaluateSymbol runs the full pipeline for one symbol. Insufficient history
// produces a WAIT evaluation rather than an error.
func (s *AnalysisService) EvaluateSymbol(ctx context.Context, symbol string) (*domain.Evaluation, error) {
	klines, err := s.market.GetKlines(ctx, symbol, s.cfg.Interval, s.cfg.KlineLimit)
	if err != nil {
		if errors.Is(err, ports.ErrInsufficientData) {
			return s.waitEvaluation(ctx, symbol, "insufficient history returned by exchange"), nil
		}
		return nil, fmt.Errorf("failed to fetch klines for %s: %w", symbol, err)
	}

	// Resolve open paper positions against the newest bar before looking for
	// a fresh entry.
	s.manageOpenPositions(ctx, symbol, klines[len(klines)-1])

	a, err := s.buildAnalysis(symbol, klines)
	if err != nil {
		if errors.Is(err, ports.ErrInsufficientData) {
			return s.waitEvaluation(ctx, symbol, "insufficient history for indicator warm-up"), nil
		}
		return nil, fmt.Errorf("failed to build analysis for %s: %w", symbol, err)
	}

	sig := signalgen.GenerateSimple(a)
	breakdown := s.aggregator.Aggregate(signalgen.InputsFromAnalysis(a, sig.Action))
	divergences := signalgen.DetectDivergences(a)
	mtf := s.validateTimeframes(ctx, symbol, sig)

	eval := &domain.Evaluation{
		Symbol:             symbol,
		Timeframe:          s.cfg.Interval,
		EvaluatedAt:        time.Now(),
		Analysis:           a,
		Signal:             sig,
		WeightedConfidence: breakdown,
		Divergences:        divergences,
		MTF:                mtf,
	}

	if sig.Actionable() {
		validation := s.riskMgr.ValidateTrade(sig.Entry, sig.StopLoss, float64(sig.Confidence))
		eval.RiskApproved = validation.Approved
		eval.RiskReasons = validation.Reasons
		eval.RiskWarnings = validation.Warnings
		eval.RiskScore = validation.RiskScore

		sizing, err := s.riskMgr.PositionSize(sig.Entry, sig.StopLoss, float64(sig.Confidence))
		if err != nil {
			s.logger.Warn(ctx, "Position sizing failed", map[string]interface{}{"symbol": symbol, "error": err.Error()})
			eval.RiskApproved = false
		} else {
			eval.PositionSize = sizing.Recommended
			eval.RiskDollars = sizing.RiskDollars
			eval.KellyFraction = sizing.KellyFraction
		}
	}

	s.persist(ctx, eval)

	if s.shouldNotify(eval) {
		s.notifier.Send(ctx, formatAlert(eval))
		s.maybeEnterTrade(ctx, eval)
	}
	return eval, nil
}

// maybeEnterTrade opens a paper position for an approved signal, at most one
// per symbol.
func (s *AnalysisService) maybeEnterTrade(ctx context.Context, eval *domain.Evaluation) {
	if s.executor == nil || eval.PositionSize <= 0 {
		return
	}
	for _, pos := range s.executor.OpenPositions() {
		if pos.Symbol == eval.Symbol {
			return
		}
	}

	sig := eval.Signal
	side := domain.Buy
	if sig.Action == domain.ActionSell {
		side = domain.Sell
	}
	pos, err := s.executor.OpenPosition(ctx, eval.Symbol, side, eval.PositionSize, sig.Entry, sig.StopLoss, sig.TakeProfit1)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to open paper position", map[string]interface{}{"symbol": eval.Symbol})
		return
	}
	s.riskMgr.AddTrade(eval.Symbol, side, pos.EntryPrice, sig.StopLoss, eval.PositionSize, float64(sig.Confidence))
	s.logger.Info(ctx, "Paper position opened", map[string]interface{}{
		"symbol": eval.Symbol,
		"side":   side,
		"size":   eval.PositionSize,
		"entry":  pos.EntryPrice,
	})
}

// manageOpenPositions checks this symbol's open paper positions against the
// newest bar. The stop is checked before the target within the bar.
func (s *AnalysisService) manageOpenPositions(ctx context.Context, symbol string, bar *domain.Kline) {
	if s.executor == nil {
		return
	}
	for _, pos := range s.executor.OpenPositions() {
		if pos.Symbol != symbol {
			continue
		}

		var exit float64
		var reason domain.CloseReason
		if pos.Side == domain.Buy {
			switch {
			case bar.Low <= pos.StopLoss:
				exit, reason = pos.StopLoss, domain.CloseReasonStopLoss
			case bar.High >= pos.TakeProfit:
				exit, reason = pos.TakeProfit, domain.CloseReasonTakeProfit
			}
		} else {
			switch {
			case bar.High >= pos.StopLoss:
				exit, reason = pos.StopLoss, domain.CloseReasonStopLoss
			case bar.Low <= pos.TakeProfit:
				exit, reason = pos.TakeProfit, domain.CloseReasonTakeProfit
			}
		}
		if reason == "" {
			continue
		}
		s.closePosition(ctx, pos, exit, reason)
	}
}

// closePosition realizes the exit through the executor, updates the risk
// ledger and records the trade.
func (s *AnalysisService) closePosition(ctx context.Context, pos *domain.Position, exit float64, reason domain.CloseReason) {
	pnl, err := s.executor.ClosePosition(ctx, pos.ID, exit, reason)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to close paper position", map[string]interface{}{"positionID": pos.ID})
		return
	}
	if _, err := s.riskMgr.CloseTrade(pos.Symbol, exit); err != nil {
		s.logger.Warn(ctx, "Risk ledger had no entry for closed position", map[string]interface{}{"symbol": pos.Symbol, "error": err.Error()})
	}

	trade := &domain.Trade{
		PositionID:  pos.ID,
		Symbol:      pos.Symbol,
		Side:        pos.Side,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exit,
		Quantity:    pos.Quantity,
		PNL:         pnl,
		EntryTime:   pos.EntryTime,
		ExitTime:    time.Now(),
		CloseReason: reason,
	}
	if cost := pos.EntryPrice * pos.Quantity; cost > 0 {
		trade.PNLPercent = pnl / cost * 100
	}
	if _, err := s.tradeRepo.SaveTrade(ctx, trade); err != nil {
		s.logger.Warn(ctx, "Failed to persist trade", map[string]interface{}{"symbol": pos.Symbol, "error": err.Error()})
	}

	s.logger.Info(ctx, "Paper position closed", map[string]interface{}{
		"symbol": pos.Symbol,
		"reason": reason,
		"pnl":    pnl,
	})
	s.notifier.Send(ctx, formatClose(trade))
}

// formatClose renders a closed trade as a notification message.
func formatClose(trade *domain.Trade) string {
	return fmt.Sprintf("%s %s closed (%s)\nEntry %.4f -> Exit %.4f\nPnL: %+.2f (%+.2f%%)",
		trade.Side, trade.Symbol, trade.CloseReason, trade.EntryPrice, trade.ExitPrice, trade.PNL, trade.PNLPercent)
}

// buildAnalysis runs every indicator over the bar series and flattens the
// latest values into one snapshot.
func (s *AnalysisService) buildAnalysis(symbol string, klines []*domain.Kline) (*domain.Analysis, error) {
	sbst, err := trendstop.ComputeSBST(trendstop.DefaultSBSTConfig(), klines)
	if err != nil {
		return nil, err
	}
	halftrend, err := trendstop.ComputeHalfTrend(trendstop.DefaultHalfTrendConfig(), klines)
	if err != nil {
		return nil, err
	}
	psar, err := trendstop.ComputePSAR(trendstop.DefaultPSARConfig(), klines)
	if err != nil {
		return nil, err
	}
	nrtr, err := trendstop.ComputeNRTR(trendstop.DefaultNRTRConfig(), klines)
	if err != nil {
		return nil, err
	}
	chandelier, err := trendstop.ComputeChandelier(trendstop.DefaultChandelierConfig(), klines)
	if err != nil {
		return nil, err
	}
	osc, err := oscillators.Compute(klines)
	if err != nil {
		return nil, err
	}

	last := len(klines) - 1
	p := sbst[last]
	ht := halftrend[last]
	ps := psar[last]
	nr := nrtr[last]
	ch := chandelier[last]

	a := &domain.Analysis{
		Symbol:    symbol,
		Timeframe: s.cfg.Interval,
		Timestamp: klines[last].CloseTime,
		Price:     klines[last].Close,

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

		HalfTrendDir:      ht.Direction,
		HalfTrendValue:    ht.Value,
		HalfTrendBuy:      ht.Buy,
		HalfTrendSell:     ht.Sell,
		HalfTrendReversal: ht.Buy || ht.Sell,
		PSARDir:           ps.Direction,
		PSARValue:         ps.SAR,
		PSARReversal:      ps.Buy || ps.Sell,
		NRTRDir:           nr.Direction,
		NRTRValue:         nr.Stop,
		NRTRReversal:      nr.Buy || nr.Sell,
		ChandelierDir:     ch.Direction,
		ChandelierStop:    ch.LongStop,
		ChandelierBuy:     ch.Buy,
		ChandelierSell:    ch.Sell,

		RSI:        osc.RSI,
		MACD:       osc.MACD,
		MACDSignal: osc.MACDSignal,
		MACDHist:   osc.MACDHist,
		ADX:        osc.ADX,
		EMA10:      osc.EMA10,
		EMA20:      osc.EMA20,
		SMA50:      osc.SMA50,
		ATR:        osc.ATR,

		PriceChange5: osc.PriceChange5,
	}
	if ch.Direction == domain.DirectionDown {
		a.ChandelierStop = ch.ShortStop
	}

	for j := last - recentWindow + 1; j <= last; j++ {
		if j < 0 {
			continue
		}
		a.RecentBuy = a.RecentBuy || sbst[j].Buy
		a.RecentSell = a.RecentSell || sbst[j].Sell
		a.RecentBuyConf = a.RecentBuyConf || sbst[j].BuyConfirm
		a.RecentSellConf = a.RecentSellConf || sbst[j].SellConfirm
	}

	a.PriceNewHigh = true
	for j := last - newHighLookback + 1; j < last; j++ {
		if j >= 0 && klines[j].Close >= klines[last].Close {
			a.PriceNewHigh = false
			break
		}
	}

	a.SMC = s.detectorFor(symbol).Analyze(klines)
	return a, nil
}

// detectorFor returns the symbol's structure detector, creating it on first
// use.
func (s *AnalysisService) detectorFor(symbol string) *smc.Detector {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.structure[symbol]
	if !ok {
		// DefaultConfig always validates.
		d, _ = smc.NewDetector(smc.DefaultConfig())
		s.structure[symbol] = d
	}
	return d
}

// validateTimeframes fetches the two coarser timeframes and runs the
// multi-timeframe tally. Missing higher-timeframe data degrades to an
// unapproved result instead of failing the evaluation.
func (s *AnalysisService) validateTimeframes(ctx context.Context, symbol string, sig *domain.Signal) domain.MTFValidation {
	if !sig.Actionable() {
		return signalgen.ValidateMTF(sig.Action,
			domain.TimeframeTrend{Timeframe: mtfFastTimeframe},
			domain.TimeframeTrend{Timeframe: mtfSlowTimeframe})
	}

	tfFast, err := s.timeframeTrend(ctx, symbol, mtfFastTimeframe)
	if err != nil {
		s.logger.Warn(ctx, "Higher timeframe data unavailable", map[string]interface{}{"symbol": symbol, "timeframe": mtfFastTimeframe, "error": err.Error()})
		return domain.MTFValidation{Reasoning: []string{fmt.Sprintf("%s data unavailable", mtfFastTimeframe)}}
	}
	tfSlow, err := s.timeframeTrend(ctx, symbol, mtfSlowTimeframe)
	if err != nil {
		s.logger.Warn(ctx, "Higher timeframe data unavailable", map[string]interface{}{"symbol": symbol, "timeframe": mtfSlowTimeframe, "error": err.Error()})
		return domain.MTFValidation{Reasoning: []string{fmt.Sprintf("%s data unavailable", mtfSlowTimeframe)}}
	}

	return signalgen.ValidateMTF(sig.Action, tfFast, tfSlow)
}

// timeframeTrend computes one coarser timeframe's trend label.
func (s *AnalysisService) timeframeTrend(ctx context.Context, symbol, interval string) (domain.TimeframeTrend, error) {
	klines, err := s.market.GetKlines(ctx, symbol, interval, s.cfg.KlineLimit)
	if err != nil {
		return domain.TimeframeTrend{}, err
	}
	points, err := trendstop.ComputeSBST(trendstop.DefaultSBSTConfig(), klines)
	if err != nil {
		return domain.TimeframeTrend{}, err
	}
	osc, err := oscillators.Compute(klines)
	if err != nil {
		return domain.TimeframeTrend{}, err
	}
	return domain.TimeframeTrend{
		Timeframe:  interval,
		Trend:      points[len(points)-1].Trend,
		HTFBullish: osc.EMA10 > osc.EMA20,
	}, nil
}

// waitEvaluation is the stand-in result while history is still warming up.
func (s *AnalysisService) waitEvaluation(ctx context.Context, symbol, reason string) *domain.Evaluation {
	s.logger.Warn(ctx, "Waiting for indicator warm-up", map[string]interface{}{"symbol": symbol, "reason": reason})
	return &domain.Evaluation{
		Symbol:      symbol,
		Timeframe:   s.cfg.Interval,
		EvaluatedAt: time.Now(),
		Signal: &domain.Signal{
			Action:  domain.ActionWait,
			Reasons: []string{reason},
		},
	}
}

// persist writes the evaluation; storage failures are logged, never fatal.
func (s *AnalysisService) persist(ctx context.Context, eval *domain.Evaluation) {
	if _, err := s.signalRepo.SaveEvaluation(ctx, eval); err != nil {
		s.logger.Warn(ctx, "Failed to persist evaluation", map[string]interface{}{"symbol": eval.Symbol, "error": err.Error()})
	}
}

// shouldNotify gates outbound alerts: a directional signal that cleared the
// confidence bar, the higher timeframes and the risk checks.
func (s *AnalysisService) shouldNotify(eval *domain.Evaluation) bool {
	return eval.Signal.Actionable() &&
		eval.Signal.Confidence >= s.cfg.MinConfidence &&
		eval.MTF.Approved &&
		eval.RiskApproved
}

// formatAlert renders the evaluation as a notification message.
func formatAlert(eval *domain.Evaluation) string {
	sig := eval.Signal
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", sig.Action, eval.Symbol, eval.Timeframe)
	fmt.Fprintf(&b, "Confidence: %d%% (weighted %.2f)\n", sig.Confidence, eval.WeightedConfidence.Total)
	fmt.Fprintf(&b, "Entry: %.4f | SL: %.4f\n", sig.Entry, sig.StopLoss)
	fmt.Fprintf(&b, "TP1: %.4f | TP2: %.4f | R:R %.1f\n", sig.TakeProfit1, sig.TakeProfit2, sig.RiskReward)
	fmt.Fprintf(&b, "MTF: %d/3 confirmations | Risk score: %d\n", eval.MTF.Confirmations, eval.RiskScore)
	if eval.PositionSize > 0 {
		fmt.Fprintf(&b, "Size: %.6f (risk $%.2f)\n", eval.PositionSize, eval.RiskDollars)
	}
	for _, d := range eval.Divergences {
		fmt.Fprintf(&b, "⚠ %s: %s\n", d.Type, d.Description)
	}
	if len(sig.Reasons) > 0 {
		fmt.Fprintf(&b, "Reasons: %s", strings.Join(sig.Reasons, "; "))
	}
	return b.String()
}
