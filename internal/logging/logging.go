// Package logging builds the zap logger used across mission control.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger pairs a zap logger with the level that controls it, so the level
// can change while the logger is in use.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// New builds a logger. development selects the console encoder and
// development stack traces.
func New(level string, development bool) (*Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return &Logger{Logger: l, level: cfg.Level}, nil
}

// Wrap adapts an existing logger. Its level cannot be changed.
func Wrap(l *zap.Logger) *Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return &Logger{Logger: l}
}

// Level returns the current level name.
func (l *Logger) Level() string {
	if l.level == (zap.AtomicLevel{}) {
		return l.Logger.Level().String()
	}
	return l.level.String()
}

// SetLevel changes the level of a logger built by New.
func (l *Logger) SetLevel(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	if l.level == (zap.AtomicLevel{}) {
		return fmt.Errorf("logger level is fixed")
	}
	l.level.SetLevel(lvl)
	return nil
}

// ParseLevel parses debug, info, warn or error.
func ParseLevel(level string) (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}
