// Package obslog wraps zap for the simulator's structured logging.
//
// The method shape (Debug/Info/Warn/Error, each accepting a printf-style
// format) mirrors the plain logger the rest of the retrieved pack uses;
// this one is backed by a real structured-logging library instead of
// fmt.Fprintf so fields stay parseable in production deployments of the
// same coordinator code.
package obslog

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger is a thin façade over a zap.SugaredLogger.
type Logger struct {
	sugar *zap.SugaredLogger
}

// New builds a Logger at the given level ("debug", "info", "warn", "error").
func New(level string) (*Logger, error) {
	zapLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("obslog: %w", err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zapLevel
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = "ts"

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("obslog: building logger: %w", err)
	}

	return &Logger{sugar: logger.Sugar()}, nil
}

// Default returns an info-level Logger, panicking only if zap's own
// defaults somehow fail to construct (never observed in practice).
func Default() *Logger {
	l, err := New("info")
	if err != nil {
		panic(err)
	}
	return l
}

// Nop returns a Logger that discards everything, for tests that don't
// want coordinator noise on stderr.
func Nop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// Sync flushes any buffered log entries. Call before process exit.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
