package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cryptoSignalBot/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "signal-bot-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewRepository(Config{
		DBPath: dbPath,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

func testEvaluation(symbol string, at time.Time, action domain.Action, confidence int) *domain.Evaluation {
	return &domain.Evaluation{
		Symbol:      symbol,
		Timeframe:   "1h",
		EvaluatedAt: at,
		Signal: &domain.Signal{
			Action:      action,
			Confidence:  confidence,
			Reasons:     []string{"RSI healthy (52.0)", "MACD bullish"},
			Entry:       2000.0,
			StopLoss:    1960.0,
			TakeProfit1: 2060.0,
			TakeProfit2: 2120.0,
			RiskReward:  1.5,
		},
		WeightedConfidence: domain.ConfidenceBreakdown{Total: 8.4},
		MTF: domain.MTFValidation{
			Approved:      true,
			Confirmations: 2,
			Strength:      66.7,
		},
		RiskApproved:  true,
		RiskScore:     72,
		PositionSize:  0.5,
		RiskDollars:   20.0,
		KellyFraction: 0.0625,
	}
}

func TestRepository_RequiresLogger(t *testing.T) {
	_, err := NewRepository(Config{DBPath: "ignored.db"})
	require.Error(t, err)
}

func TestRepository_SaveAndRecentEvaluations(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// Three evaluations for the symbol, one for another symbol.
	for i := 0; i < 3; i++ {
		eval := testEvaluation("ETHUSDT", base.Add(time.Duration(i)*time.Hour), domain.ActionBuy, 80+i)
		id, err := repo.SaveEvaluation(ctx, eval)
		require.NoError(t, err)
		assert.Greater(t, id, int64(0))
	}
	_, err := repo.SaveEvaluation(ctx, testEvaluation("BTCUSDT", base, domain.ActionWait, 30))
	require.NoError(t, err)

	evals, err := repo.RecentEvaluations(ctx, "ETHUSDT", 2)
	require.NoError(t, err)
	require.Len(t, evals, 2)

	// Newest first.
	assert.Equal(t, 82, evals[0].Signal.Confidence)
	assert.Equal(t, 81, evals[1].Signal.Confidence)
	assert.Equal(t, "ETHUSDT", evals[0].Symbol)
	assert.Equal(t, domain.ActionBuy, evals[0].Signal.Action)
	assert.Equal(t, []string{"RSI healthy (52.0)", "MACD bullish"}, evals[0].Signal.Reasons)
	assert.InDelta(t, 8.4, evals[0].WeightedConfidence.Total, 1e-9)
	assert.True(t, evals[0].MTF.Approved)
	assert.Equal(t, 2, evals[0].MTF.Confirmations)
	assert.True(t, evals[0].RiskApproved)
	assert.InDelta(t, 0.0625, evals[0].KellyFraction, 1e-9)
}

func TestRepository_SaveEvaluationWithoutSignal(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	eval := testEvaluation("ETHUSDT", time.Now(), domain.ActionBuy, 80)
	eval.Signal = nil
	_, err := repo.SaveEvaluation(context.Background(), eval)
	require.Error(t, err)
}

func TestRepository_SaveAndQueryTrades(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	trades := []*domain.Trade{
		{
			PositionID:  "a1b2",
			Symbol:      "ETHUSDT",
			Side:        domain.Buy,
			EntryPrice:  2000.0,
			ExitPrice:   2060.0,
			Quantity:    0.5,
			PNL:         30.0,
			PNLPercent:  3.0,
			EntryTime:   base,
			ExitTime:    base.Add(4 * time.Hour),
			CloseReason: domain.CloseReasonTakeProfit,
		},
		{
			PositionID:  "c3d4",
			Symbol:      "BTCUSDT",
			Side:        domain.Sell,
			EntryPrice:  65000.0,
			ExitPrice:   65800.0,
			Quantity:    0.01,
			PNL:         -8.0,
			PNLPercent:  -1.23,
			EntryTime:   base.Add(24 * time.Hour),
			ExitTime:    base.Add(30 * time.Hour),
			CloseReason: domain.CloseReasonStopLoss,
		},
	}
	for _, tr := range trades {
		id, err := repo.SaveTrade(ctx, tr)
		require.NoError(t, err)
		assert.Equal(t, id, tr.ID)
	}

	// Cutoff excludes the first trade.
	got, err := repo.TradesSince(ctx, base.Add(12*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "BTCUSDT", got[0].Symbol)
	assert.Equal(t, domain.Sell, got[0].Side)
	assert.Equal(t, domain.CloseReasonStopLoss, got[0].CloseReason)
	assert.InDelta(t, -8.0, got[0].PNL, 1e-9)
	assert.Equal(t, "c3d4", got[0].PositionID)

	// Zero time returns everything, oldest first.
	all, err := repo.TradesSince(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ETHUSDT", all[0].Symbol)
}
