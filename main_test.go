package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rocketscienceinc/memorymatch-backend/internal/config"
)

func TestInitLogger(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() {
		slog.SetDefault(previous)
	})

	tests := []struct {
		name     string
		level    string
		enabled  slog.Level
		disabled slog.Level
	}{
		{name: "Debug", level: "debug", enabled: slog.LevelDebug, disabled: slog.LevelDebug - 1},
		{name: "Info", level: "info", enabled: slog.LevelInfo, disabled: slog.LevelDebug},
		{name: "Warn", level: "warn", enabled: slog.LevelWarn, disabled: slog.LevelInfo},
		{name: "Error", level: "error", enabled: slog.LevelError, disabled: slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := initLogger(&config.Config{LogLevel: tt.level})

			assert.True(t, logger.Enabled(context.Background(), tt.enabled))
			assert.False(t, logger.Enabled(context.Background(), tt.disabled))

			// the panic handler in main logs through the default logger
			assert.Same(t, logger, slog.Default())
		})
	}
}
