package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoSignalBot/config"
	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
	"cryptoSignalBot/internal/risk"
)

// Mock implementations
type mockLogger struct {
	warnMsgs  []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.warnMsgs = append(m.warnMsgs, msg)
}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

type mockMarket struct {
	klines map[string][]*domain.Kline // keyed by interval
	err    error
}

func (m *mockMarket) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	if m.err != nil {
		return nil, m.err
	}
	ks, ok := m.klines[interval]
	if !ok {
		return nil, ports.ErrInsufficientData
	}
	return ks, nil
}

func (m *mockMarket) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	return 0, nil
}

type mockRepo struct {
	saved []*domain.Evaluation
	err   error
}

func (m *mockRepo) SaveEvaluation(ctx context.Context, eval *domain.Evaluation) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.saved = append(m.saved, eval)
	return int64(len(m.saved)), nil
}

func (m *mockRepo) RecentEvaluations(ctx context.Context, symbol string, limit int) ([]*domain.Evaluation, error) {
	return nil, nil
}

type mockNotifier struct {
	sent []string
}

func (m *mockNotifier) Send(ctx context.Context, message string) map[string]bool {
	m.sent = append(m.sent, message)
	return map[string]bool{"telegram": true}
}

func (m *mockNotifier) EnabledChannels() map[string]bool {
	return map[string]bool{"telegram": true}
}

type mockExecutor struct {
	open   []*domain.Position
	closed []*domain.Position
}

func (m *mockExecutor) OpenPosition(ctx context.Context, symbol string, side domain.OrderSide, quantity, entry, stopLoss, takeProfit float64) (*domain.Position, error) {
	pos := &domain.Position{
		ID:         fmt.Sprintf("pos-%d", len(m.open)+len(m.closed)+1),
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		EntryPrice: entry,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
		EntryTime:  time.Now(),
		Status:     domain.StatusOpen,
	}
	m.open = append(m.open, pos)
	return pos, nil
}

func (m *mockExecutor) ClosePosition(ctx context.Context, positionID string, exitPrice float64, reason domain.CloseReason) (float64, error) {
	for i, pos := range m.open {
		if pos.ID != positionID {
			continue
		}
		pnl := (exitPrice - pos.EntryPrice) * pos.Quantity
		if pos.Side == domain.Sell {
			pnl = -pnl
		}
		pos.ExitPrice = exitPrice
		pos.Status = domain.StatusClosed
		pos.Reason = reason
		m.open = append(m.open[:i], m.open[i+1:]...)
		m.closed = append(m.closed, pos)
		return pnl, nil
	}
	return 0, ports.ErrPositionNotFound
}

func (m *mockExecutor) OpenPositions() []*domain.Position {
	return append([]*domain.Position(nil), m.open...)
}

type mockTradeRepo struct {
	trades []*domain.Trade
}

func (m *mockTradeRepo) SaveTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	m.trades = append(m.trades, trade)
	return int64(len(m.trades)), nil
}

func (m *mockTradeRepo) TradesSince(ctx context.Context, since time.Time) ([]*domain.Trade, error) {
	return m.trades, nil
}

// seriesBars builds a deterministic drifting series long enough for every
// indicator to warm up.
func seriesBars(n int, start, step float64) []*domain.Kline {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]*domain.Kline, n)
	for i := 0; i < n; i++ {
		c := start + float64(i)*step
		// Shallow zig-zag keeps ranges non-degenerate.
		wiggle := 0.3
		if i%2 == 0 {
			wiggle = 0.6
		}
		out[i] = &domain.Kline{
			OpenTime:  base.Add(time.Duration(i) * time.Hour),
			CloseTime: base.Add(time.Duration(i+1) * time.Hour),
			Symbol:    "ETHUSDT",
			Interval:  "1h",
			Open:      c - step/2,
			High:      c + wiggle,
			Low:       c - wiggle,
			Close:     c,
			Volume:    100 + float64(i%7)*10,
			IsFinal:   true,
		}
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		Symbols:       []string{"ETHUSDT"},
		Interval:      "1h",
		KlineLimit:    300,
		PollInterval:  time.Minute,
		MinConfidence: 75,
	}
}

func newTestService(t *testing.T, market ports.MarketDataProvider, repo ports.SignalRepository, notifier ports.Notifier) (*AnalysisService, *mockLogger) {
	t.Helper()
	logger := &mockLogger{}
	mgr, err := risk.NewManager(risk.DefaultProfile(10000))
	require.NoError(t, err)
	svc, err := NewAnalysisService(testConfig(), logger, market, repo, notifier, mgr, nil, nil)
	require.NoError(t, err)
	return svc, logger
}

func TestNewAnalysisServiceValidatesDependencies(t *testing.T) {
	mgr, err := risk.NewManager(risk.DefaultProfile(10000))
	require.NoError(t, err)

	_, err = NewAnalysisService(nil, &mockLogger{}, &mockMarket{}, &mockRepo{}, &mockNotifier{}, mgr, nil, nil)
	require.Error(t, err)

	_, err = NewAnalysisService(testConfig(), &mockLogger{}, nil, &mockRepo{}, &mockNotifier{}, mgr, nil, nil)
	require.Error(t, err)

	exec := &mockExecutor{}
	_, err = NewAnalysisService(testConfig(), &mockLogger{}, &mockMarket{}, &mockRepo{}, &mockNotifier{}, mgr, exec, nil)
	require.Error(t, err)
}

func TestEvaluateSymbolFullPipeline(t *testing.T) {
	bars := seriesBars(300, 100, 0.2)
	market := &mockMarket{klines: map[string][]*domain.Kline{
		"1h":  bars,
		"15m": seriesBars(300, 100, 0.05),
	}}
	repo := &mockRepo{}
	notifier := &mockNotifier{}
	svc, _ := newTestService(t, market, repo, notifier)

	eval, err := svc.EvaluateSymbol(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	require.NotNil(t, eval)

	assert.Equal(t, "ETHUSDT", eval.Symbol)
	assert.Equal(t, "1h", eval.Timeframe)
	require.NotNil(t, eval.Analysis)
	require.NotNil(t, eval.Signal)
	assert.Equal(t, bars[len(bars)-1].Close, eval.Analysis.Price)
	assert.Equal(t, domain.DirectionUp, eval.Analysis.Trend)
	assert.True(t, eval.Analysis.PriceNewHigh)
	assert.GreaterOrEqual(t, eval.Signal.Confidence, 0)
	assert.LessOrEqual(t, eval.Signal.Confidence, 95)
	assert.GreaterOrEqual(t, eval.WeightedConfidence.Total, 0.0)

	// The evaluation was persisted exactly once.
	require.Len(t, repo.saved, 1)
	assert.Same(t, eval, repo.saved[0])
}

func TestEvaluateSymbolWaitsOnShortHistory(t *testing.T) {
	market := &mockMarket{klines: map[string][]*domain.Kline{
		"1h": seriesBars(30, 100, 0.2),
	}}
	repo := &mockRepo{}
	notifier := &mockNotifier{}
	svc, logger := newTestService(t, market, repo, notifier)

	eval, err := svc.EvaluateSymbol(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionWait, eval.Signal.Action)
	assert.Empty(t, notifier.sent)
	assert.NotEmpty(t, logger.warnMsgs)
}

func TestEvaluateSymbolPropagatesExchangeErrors(t *testing.T) {
	market := &mockMarket{err: ports.ErrExchangeUnavailable}
	svc, _ := newTestService(t, market, &mockRepo{}, &mockNotifier{})

	_, err := svc.EvaluateSymbol(context.Background(), "ETHUSDT")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ports.ErrExchangeUnavailable))
}

func TestPersistFailureIsNotFatal(t *testing.T) {
	market := &mockMarket{klines: map[string][]*domain.Kline{
		"1h":  seriesBars(300, 100, 0.2),
		"15m": seriesBars(300, 100, 0.05),
	}}
	repo := &mockRepo{err: errors.New("disk full")}
	svc, logger := newTestService(t, market, repo, &mockNotifier{})

	eval, err := svc.EvaluateSymbol(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	require.NotNil(t, eval)
	assert.Contains(t, logger.warnMsgs, "Failed to persist evaluation")
}

func TestShouldNotifyGating(t *testing.T) {
	svc, _ := newTestService(t, &mockMarket{}, &mockRepo{}, &mockNotifier{})

	eval := &domain.Evaluation{
		Signal:       &domain.Signal{Action: domain.ActionBuy, Confidence: 80},
		MTF:          domain.MTFValidation{Approved: true},
		RiskApproved: true,
	}
	assert.True(t, svc.shouldNotify(eval))

	low := *eval
	low.Signal = &domain.Signal{Action: domain.ActionBuy, Confidence: 60}
	assert.False(t, svc.shouldNotify(&low))

	noMTF := *eval
	noMTF.MTF = domain.MTFValidation{}
	assert.False(t, svc.shouldNotify(&noMTF))

	noRisk := *eval
	noRisk.RiskApproved = false
	assert.False(t, svc.shouldNotify(&noRisk))

	wait := *eval
	wait.Signal = &domain.Signal{Action: domain.ActionWait, Confidence: 90}
	assert.False(t, svc.shouldNotify(&wait))
}

func TestFormatAlertIncludesLevels(t *testing.T) {
	eval := &domain.Evaluation{
		Symbol:    "ETHUSDT",
		Timeframe: "1h",
		Signal: &domain.Signal{
			Action:      domain.ActionBuy,
			Confidence:  82,
			Reasons:     []string{"MACD bullish"},
			Entry:       2000,
			StopLoss:    1960,
			TakeProfit1: 2060,
			TakeProfit2: 2120,
			RiskReward:  1.5,
		},
		WeightedConfidence: domain.ConfidenceBreakdown{Total: 7.2},
		MTF:                domain.MTFValidation{Approved: true, Confirmations: 3},
		RiskScore:          80,
		PositionSize:       0.5,
		RiskDollars:        20,
		Divergences: []domain.Divergence{
			{Type: "Bearish Divergence", Severity: "High", Description: "price high not confirmed"},
		},
	}

	msg := formatAlert(eval)
	assert.Contains(t, msg, "BUY ETHUSDT 1h")
	assert.Contains(t, msg, "Confidence: 82%")
	assert.Contains(t, msg, "SL: 1960.0000")
	assert.Contains(t, msg, "3/3 confirmations")
	assert.Contains(t, msg, "Bearish Divergence")
	assert.Contains(t, msg, "MACD bullish")
}

func TestPaperTradingLifecycle(t *testing.T) {
	logger := &mockLogger{}
	mgr, err := risk.NewManager(risk.DefaultProfile(10000))
	require.NoError(t, err)
	exec := &mockExecutor{}
	trades := &mockTradeRepo{}
	notifier := &mockNotifier{}
	svc, err := NewAnalysisService(testConfig(), logger, &mockMarket{}, &mockRepo{}, notifier, mgr, exec, trades)
	require.NoError(t, err)

	ctx := context.Background()
	eval := &domain.Evaluation{
		Symbol: "ETHUSDT",
		Signal: &domain.Signal{
			Action:      domain.ActionBuy,
			Confidence:  85,
			Entry:       100,
			StopLoss:    95,
			TakeProfit1: 110,
		},
		PositionSize: 2,
	}

	svc.maybeEnterTrade(ctx, eval)
	require.Len(t, exec.open, 1)
	assert.Equal(t, domain.Buy, exec.open[0].Side)

	// Second signal for the same symbol must not stack a position.
	svc.maybeEnterTrade(ctx, eval)
	require.Len(t, exec.open, 1)

	// A bar that never touches stop or target leaves the position open.
	svc.manageOpenPositions(ctx, "ETHUSDT", &domain.Kline{Low: 98, High: 104})
	require.Len(t, exec.open, 1)

	// A bar that pierces both resolves at the stop first.
	svc.manageOpenPositions(ctx, "ETHUSDT", &domain.Kline{Low: 94, High: 111})
	require.Empty(t, exec.open)
	require.Len(t, trades.trades, 1)

	trade := trades.trades[0]
	assert.Equal(t, domain.CloseReasonStopLoss, trade.CloseReason)
	assert.InDelta(t, -10.0, trade.PNL, 1e-9)
	assert.InDelta(t, -5.0, trade.PNLPercent, 1e-9)
	require.Len(t, notifier.sent, 1)
	assert.Contains(t, notifier.sent[0], "closed (SL)")
}

func TestPaperTradingShortExit(t *testing.T) {
	logger := &mockLogger{}
	mgr, err := risk.NewManager(risk.DefaultProfile(10000))
	require.NoError(t, err)
	exec := &mockExecutor{}
	trades := &mockTradeRepo{}
	svc, err := NewAnalysisService(testConfig(), logger, &mockMarket{}, &mockRepo{}, &mockNotifier{}, mgr, exec, trades)
	require.NoError(t, err)

	ctx := context.Background()
	svc.maybeEnterTrade(ctx, &domain.Evaluation{
		Symbol: "ETHUSDT",
		Signal: &domain.Signal{
			Action:      domain.ActionSell,
			Confidence:  85,
			Entry:       100,
			StopLoss:    105,
			TakeProfit1: 90,
		},
		PositionSize: 1,
	})
	require.Len(t, exec.open, 1)
	assert.Equal(t, domain.Sell, exec.open[0].Side)

	// Short target is below entry.
	svc.manageOpenPositions(ctx, "ETHUSDT", &domain.Kline{Low: 89, High: 101})
	require.Empty(t, exec.open)
	require.Len(t, trades.trades, 1)
	assert.Equal(t, domain.CloseReasonTakeProfit, trades.trades[0].CloseReason)
	assert.InDelta(t, 10.0, trades.trades[0].PNL, 1e-9)

	// The risk ledger must book the short's profit, not its mirror image.
	assert.InDelta(t, 10010.0, mgr.Balance(), 1e-9)
}
