// Package logger implements ports.Logger on top of zap.
package logger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger implements the ports.Logger interface using a structured zap
// logger.
type ZapLogger struct {
	zl *zap.Logger
}

// NewZapLogger builds a production-configured logger at the given level.
// Unknown level strings default to info.
func NewZapLogger(level string) (*ZapLogger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zl, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("building zap logger: %w", err)
	}
	return &ZapLogger{zl: zl}, nil
}

// NewNop returns a logger that discards everything. Useful in tests.
func NewNop() *ZapLogger {
	return &ZapLogger{zl: zap.NewNop()}
}

// Sync flushes any buffered log entries.
func (l *ZapLogger) Sync() error {
	return l.zl.Sync()
}

// Debug logs a message at Debug level.
func (l *ZapLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.zl.Debug(msg, toZapFields(fields)...)
}

// Info logs a message at Info level.
func (l *ZapLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.zl.Info(msg, toZapFields(fields)...)
}

// Warn logs a message at Warning level.
func (l *ZapLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	l.zl.Warn(msg, toZapFields(fields)...)
}

// Error logs an error message at Error level.
func (l *ZapLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	l.zl.Error(msg, append(toZapFields(fields), zap.Error(err))...)
}

func toZapFields(fields []map[string]interface{}) []zap.Field {
	if len(fields) == 0 || fields[0] == nil {
		return nil
	}
	out := make([]zap.Field, 0, len(fields[0]))
	for k, v := range fields[0] {
		out = append(out, zap.Any(k, v))
	}
	return out
}
