package main

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"", zapcore.InfoLevel},
		{"nonsense", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := levelFromString(tt.in); got != tt.want {
			t.Errorf("levelFromString(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerModes(t *testing.T) {
	t.Setenv("LOG_DEV", "")
	logger, err := newLogger()
	if err != nil {
		t.Fatalf("production logger failed: %v", err)
	}
	logger.Sync()

	t.Setenv("LOG_DEV", "1")
	dev, err := newLogger()
	if err != nil {
		t.Fatalf("development logger failed: %v", err)
	}
	dev.Sync()
}
