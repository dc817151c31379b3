package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/Zate/remote-agent-memory/internal/config"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LoggingConfig
		want zapcore.Level
	}{
		{"default", config.LoggingConfig{}, zapcore.InfoLevel},
		{"warn", config.LoggingConfig{Level: "warn"}, zapcore.WarnLevel},
		{"debug flag wins", config.LoggingConfig{Level: "error", Debug: true}, zapcore.DebugLevel},
		{"console", config.LoggingConfig{Format: "console"}, zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer func() { _ = logger.Sync() }()
			if !logger.Core().Enabled(tt.want) {
				t.Errorf("level %s should be enabled", tt.want)
			}
			if tt.want > zapcore.DebugLevel && logger.Core().Enabled(tt.want-1) {
				t.Errorf("level %s should be disabled", tt.want-1)
			}
		})
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(config.LoggingConfig{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNewWithLevel_RuntimeChange(t *testing.T) {
	logger, level, err := NewWithLevel(config.LoggingConfig{Level: "error"})
	if err != nil {
		t.Fatalf("NewWithLevel: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatal("info should start disabled")
	}
	level.SetLevel(zapcore.InfoLevel)
	if !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be enabled after SetLevel")
	}
}
