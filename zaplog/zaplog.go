// Package zaplog adapts go.uber.org/zap to joboutbox.Logger.
package zaplog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/velmie/joboutbox"
)

const (
	// ProductionMode builds a JSON logger with ISO8601 timestamps.
	ProductionMode = "production"
	// DevelopmentMode builds a console logger with colored levels.
	DevelopmentMode = "development"
)

// Logger forwards key/value logging calls to a sugared zap logger.
type Logger struct {
	sugar *zap.SugaredLogger
}

var _ joboutbox.Logger = (*Logger)(nil)

// Wrap adapts an existing zap logger. A nil logger yields a no-op logger.
func Wrap(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}

	return &Logger{sugar: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// New builds a zap logger for mode at the given level ("debug", "info", ...).
func New(mode, level string) (*zap.Logger, error) {
	var config zap.Config
	if mode == ProductionMode {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		config.Level = lvl
	}

	return config.Build()
}

// Debug implements joboutbox.Logger.
func (l *Logger) Debug(msg string, args ...any) {
	l.sugar.Debugw(msg, args...)
}

// Info implements joboutbox.Logger.
func (l *Logger) Info(msg string, args ...any) {
	l.sugar.Infow(msg, args...)
}

// Warn implements joboutbox.Logger.
func (l *Logger) Warn(msg string, args ...any) {
	l.sugar.Warnw(msg, args...)
}

// Error implements joboutbox.Logger.
func (l *Logger) Error(msg string, args ...any) {
	l.sugar.Errorw(msg, args...)
}
