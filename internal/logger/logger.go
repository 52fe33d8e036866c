package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the interface for structured logging
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
}

// NoopLogger implements a no-op logger
type NoopLogger struct{}

func (NoopLogger) Info(string, ...zap.Field)  {}
func (NoopLogger) Warn(string, ...zap.Field)  {}
func (NoopLogger) Error(string, ...zap.Field) {}
func (NoopLogger) Debug(string, ...zap.Field) {}

// DefaultLogger is the default logger instance
var DefaultLogger Logger = NoopLogger{}

// SetLogger sets the default logger
func SetLogger(l Logger) {
	if l == nil {
		l = NoopLogger{}
	}
	DefaultLogger = l
}

// New builds a zap logger. level is one of debug, info, warn, error; json
// selects the production encoder instead of the console one.
func New(level string, json bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewDevelopmentConfig()
	if json {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}
