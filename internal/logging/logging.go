// Package logging provides the process-wide structured logger. It wraps zap's
// sugared logger behind the small leveled interface the services consume, so
// tests can swap in a silent implementation.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the leveled key/value logging surface used across the services.
// Args are alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ZapLogger adapts a zap.SugaredLogger to Logger.
type ZapLogger struct {
	sugar *zap.SugaredLogger
}

var _ Logger = (*ZapLogger)(nil)

// New builds a production zap logger at the given level ("debug", "info",
// "warn", "error"; empty means info). Output is JSON on stderr.
func New(level string) (*ZapLogger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.Set(strings.ToLower(level)); err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", level, err)
		}
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{sugar: logger.Sugar()}, nil
}

// NewFromEnv builds a logger from BUNDLEINDEX_LOG_LEVEL.
func NewFromEnv() (*ZapLogger, error) {
	return New(os.Getenv("BUNDLEINDEX_LOG_LEVEL"))
}

// Sync flushes buffered log entries. Call on shutdown.
func (l *ZapLogger) Sync() {
	_ = l.sugar.Sync()
}

func (l *ZapLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l *ZapLogger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l *ZapLogger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l *ZapLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }

// NopLogger discards everything. It is the default for services constructed
// without an explicit logger.
type NopLogger struct{}

var _ Logger = NopLogger{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
