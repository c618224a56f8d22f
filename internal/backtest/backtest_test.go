package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

func risingBars(n int) []*domain.Kline {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]*domain.Kline, n)
	for i := range bars {
		c := 100 + float64(i)
		bars[i] = &domain.Kline{
			OpenTime:  base.Add(time.Duration(i) * time.Hour),
			CloseTime: base.Add(time.Duration(i+1) * time.Hour),
			Symbol:    "BTCUSDT",
			Interval:  "1h",
			Open:      c - 1,
			High:      c + 0.5,
			Low:       c - 0.5,
			Close:     c,
			Volume:    1000,
			IsFinal:   true,
		}
	}
	return bars
}

func TestRunInsufficientData(t *testing.T) {
	e, err := NewEngine(DefaultConfig("BTCUSDT", "1h"), nopLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = e.Run(context.Background(), risingBars(50))
	if !errors.Is(err, ports.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}

func TestRunRisingMarket(t *testing.T) {
	e, err := NewEngine(DefaultConfig("BTCUSDT", "1h"), nopLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := e.Run(context.Background(), risingBars(250))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Bars 200 through 248 each qualify for a long entry.
	if res.Summary.Trades != 49 {
		t.Fatalf("trades = %d, want 49", res.Summary.Trades)
	}
	if res.Summary.SLHits != 0 {
		t.Fatalf("no stop should be hit in a monotone rise, got %d", res.Summary.SLHits)
	}
	if res.Summary.Wins != res.Summary.Trades {
		t.Fatalf("wins = %d of %d", res.Summary.Wins, res.Summary.Trades)
	}
	if res.Summary.WinRatePct != 100 {
		t.Fatalf("win rate = %.2f, want 100", res.Summary.WinRatePct)
	}
	if res.Summary.TPHits == 0 {
		t.Fatalf("expected take-profit exits")
	}

	first := res.Trades[0]
	if first.Action != domain.ActionBuy {
		t.Fatalf("action = %v, want BUY", first.Action)
	}
	if first.Stop >= first.Entry {
		t.Fatalf("long stop %.2f must sit below entry %.2f", first.Stop, first.Entry)
	}
	if first.TP1 <= first.Entry {
		t.Fatalf("target %.2f must sit above entry %.2f", first.TP1, first.Entry)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	e, err := NewEngine(DefaultConfig("BTCUSDT", "1h"), nopLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Run(ctx, risingBars(250)); !errors.Is(err, ports.ErrContextCanceled) {
		t.Fatalf("expected ErrContextCanceled, got %v", err)
	}
}

func TestStopCheckedBeforeTarget(t *testing.T) {
	bars := risingBars(250)
	// Bar 202 spans both the stop and the target of a bar-201 entry; the
	// ambiguous bar must resolve as a stop-out.
	bars[202].High = bars[201].Close + 10
	bars[202].Low = bars[201].Close - 10

	e, err := NewEngine(DefaultConfig("BTCUSDT", "1h"), nopLogger{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, err := e.Run(context.Background(), bars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var found bool
	for _, tr := range res.Trades {
		if tr.Index == 201 {
			found = true
			if tr.ExitReason != domain.CloseReasonStopLoss {
				t.Fatalf("ambiguous bar resolved as %s, want SL", tr.ExitReason)
			}
			if tr.Exit != tr.Stop {
				t.Fatalf("exit %.2f should equal stop %.2f", tr.Exit, tr.Stop)
			}
		}
	}
	if !found {
		t.Fatalf("no trade entered at bar 201")
	}
}
