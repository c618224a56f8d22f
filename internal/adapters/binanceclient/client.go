// Package binanceclient implements the ports.MarketDataProvider interface
// using the go-binance library against the spot API.
package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"

	"cryptoSignalBot/internal/domain"
	"cryptoSignalBot/internal/ports"
)

// Client wraps the Binance spot client behind the market data port.
type Client struct {
	api    *binance.Client
	logger ports.Logger
}

// Config holds configuration specific to the Binance adapter. API keys are
// optional: kline and ticker endpoints are public.
type Config struct {
	APIKey    string
	SecretKey string
	Logger    ports.Logger
}

// New creates a new Binance market data adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Debug(context.Background(), "no API keys configured, public endpoints only")
	}
	return &Client{
		api:    binance.NewClient(cfg.APIKey, cfg.SecretKey),
		logger: cfg.Logger,
	}, nil
}

// handleError translates Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var mappedErr error
	var apiErr *common.APIError
	switch {
	case errors.As(err, &apiErr):
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message
		switch apiErr.Code {
		case -1003:
			mappedErr = ports.ErrRateLimited
		case -1021:
			mappedErr = ports.ErrTimeout
		case -1022, -2014, -2015:
			mappedErr = ports.ErrAuthenticationFailed
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1120, -1121:
			mappedErr = ports.ErrInvalidRequest
		default:
			if apiErr.Code <= -5000 || (apiErr.Code <= -1000 && apiErr.Code > -1099) {
				mappedErr = ports.ErrExchangeUnavailable
			} else {
				mappedErr = ports.ErrUnknown
			}
		}
	case errors.Is(err, context.Canceled):
		mappedErr = ports.ErrContextCanceled
	case errors.Is(err, context.DeadlineExceeded):
		mappedErr = ports.ErrTimeout
	case strings.Contains(err.Error(), "connection refused"),
		strings.Contains(err.Error(), "connection reset by peer"),
		strings.Contains(err.Error(), "no such host"):
		mappedErr = ports.ErrConnectionFailed
	default:
		mappedErr = ports.ErrUnknown
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
}

// GetKlines retrieves the most recent closed and current klines for a symbol.
// A response with fewer bars than requested is treated as insufficient data so
// callers never run indicators over a short history unaware.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]*domain.Kline, error) {
	op := "GetKlines"
	raw, err := c.api.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}
	if len(raw) < limit {
		return nil, fmt.Errorf("%s: got %d of %d requested bars for %s: %w", op, len(raw), limit, symbol, ports.ErrInsufficientData)
	}

	klines := make([]*domain.Kline, 0, len(raw))
	for _, rk := range raw {
		dk, err := translateKline(rk, symbol, interval)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate kline: %w", err), op)
		}
		klines = append(klines, dk)
	}
	return klines, nil
}

// GetTickerPrice retrieves the last traded price for a symbol.
func (c *Client) GetTickerPrice(ctx context.Context, symbol string) (float64, error) {
	op := "GetTickerPrice"
	prices, err := c.api.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}
	if len(prices) == 0 {
		return 0, c.handleError(ctx, fmt.Errorf("no price data returned for symbol %s", symbol), op)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, c.handleError(ctx, fmt.Errorf("could not parse price '%s': %w", prices[0].Price, err), op)
	}
	return price, nil
}

func translateKline(rk *binance.Kline, symbol, interval string) (*domain.Kline, error) {
	if rk == nil {
		return nil, errors.New("received nil kline")
	}

	open, err := strconv.ParseFloat(rk.Open, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing open '%s': %w", rk.Open, err)
	}
	high, err := strconv.ParseFloat(rk.High, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing high '%s': %w", rk.High, err)
	}
	low, err := strconv.ParseFloat(rk.Low, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing low '%s': %w", rk.Low, err)
	}
	closePrice, err := strconv.ParseFloat(rk.Close, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing close '%s': %w", rk.Close, err)
	}
	volume, err := strconv.ParseFloat(rk.Volume, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing volume '%s': %w", rk.Volume, err)
	}

	return &domain.Kline{
		OpenTime:  time.UnixMilli(rk.OpenTime),
		CloseTime: time.UnixMilli(rk.CloseTime),
		Symbol:    symbol,
		Interval:  interval,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
		IsFinal:   true,
	}, nil
}
