// Package logging builds the zap logger shared by every component.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Zate/remote-agent-memory/internal/config"
)

// New builds a production logger from cfg. Output always goes to stderr:
// stdout belongs to the MCP stdio transport.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	logger, _, err := NewWithLevel(cfg)
	return logger, err
}

// NewWithLevel is New, also returning the logger's level so it can be
// changed at runtime.
func NewWithLevel(cfg config.LoggingConfig) (*zap.Logger, zap.AtomicLevel, error) {
	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}

	level, err := Level(cfg)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	switch strings.ToLower(cfg.Format) {
	case "", "json":
	case "console", "text":
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	default:
		return nil, zap.AtomicLevel{}, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("logging: build: %w", err)
	}
	return logger, zc.Level, nil
}

// Level resolves the configured level. Debug overrides Level.
func Level(cfg config.LoggingConfig) (zapcore.Level, error) {
	if cfg.Debug {
		return zapcore.DebugLevel, nil
	}
	if cfg.Level == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("logging: %w", err)
	}
	return level, nil
}
