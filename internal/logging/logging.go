// Package logging builds the process logger.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a sugared logger at level ("debug", "info", "warn", "error").
// Debug uses the human-readable development encoder; other levels emit
// production JSON. The standard library logger is redirected into the
// returned logger so third-party output is unified.
func New(level string) (*zap.SugaredLogger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var cfg zap.Config
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	_ = zap.RedirectStdLog(logger)
	return logger.Sugar(), nil
}

// ParseLevel maps a level name to a zap level. An empty name means info.
func ParseLevel(level string) (zapcore.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", level)
	}
	return lvl, nil
}

// Badger adapts a sugared logger to badger's logger interface. Badger's
// info and debug chatter is dropped.
type Badger struct {
	L *zap.SugaredLogger
}

func (b Badger) Errorf(f string, v ...any)   { b.L.Errorf("badger: "+strings.TrimSpace(f), v...) }
func (b Badger) Warningf(f string, v ...any) { b.L.Warnf("badger: "+strings.TrimSpace(f), v...) }
func (Badger) Infof(string, ...any)          {}
func (Badger) Debugf(string, ...any)         {}
