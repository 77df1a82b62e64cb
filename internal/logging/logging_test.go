package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/goodbase/goodbase/internal/config"
)

func TestNewBootstrap(t *testing.T) {
	logger, err := NewBootstrap()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger == nil {
		t.Fatalf("expected logger instance")
	}
	_ = logger.Sync()
}

func TestNewHonoursLevel(t *testing.T) {
	t.Parallel()

	logger, _, err := New(config.LoggingConfig{Level: "warn"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger.Core().Enabled(zap.InfoLevel) {
		t.Fatalf("expected info to be disabled at warn level")
	}
	if !logger.Core().Enabled(zap.WarnLevel) {
		t.Fatalf("expected warn to be enabled")
	}

	if _, _, err := New(config.LoggingConfig{Level: "loud"}, false); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewNoneDisablesLogging(t *testing.T) {
	t.Parallel()

	logger, _, err := New(config.LoggingConfig{Level: "none"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger.Core().Enabled(zap.FatalLevel) {
		t.Fatalf("expected every level to be disabled")
	}
}

func TestNewLevelCanChange(t *testing.T) {
	t.Parallel()

	logger, level, err := New(config.LoggingConfig{Level: "error"}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger.Core().Enabled(zap.InfoLevel) {
		t.Fatalf("expected info to be disabled at error level")
	}
	level.SetLevel(zap.DebugLevel)
	if !logger.Core().Enabled(zap.DebugLevel) {
		t.Fatalf("expected debug to be enabled after the level changed")
	}
}

func TestSwappable(t *testing.T) {
	t.Parallel()

	first := zap.NewNop()
	s := NewSwappable(first)
	if s.Logger() != first {
		t.Fatalf("expected initial logger")
	}
	second := zap.NewExample()
	s.Swap(second)
	if s.Logger() != second {
		t.Fatalf("expected swapped logger")
	}
}

func TestNewWritesLogFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "logs")
	logger, _, err := New(config.LoggingConfig{
		Level:             "info",
		EnableFileLogging: true,
		LogDirectory:      dir,
		MaxLogFileSize:    1,
		MaxLogFiles:       1,
	}, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("hello file")
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(dir, MainLogFile))
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello file"`) {
		t.Fatalf("unexpected log content %q", data)
	}
}

func TestCommandLogger(t *testing.T) {
	t.Parallel()

	if NewCommandLogger(config.LoggingConfig{LogDirectory: t.TempDir()}).Core().Enabled(zap.InfoLevel) {
		t.Fatalf("expected disabled command logger to be a no-op")
	}

	dir := t.TempDir()
	logger := NewCommandLogger(config.LoggingConfig{
		EnableCommandLogging: true,
		LogDirectory:         dir,
		MaxLogFileSize:       1,
		MaxLogFiles:          1,
	})
	logger.Info("command", zap.String("name", "echo"))
	_ = logger.Sync()

	data, err := os.ReadFile(filepath.Join(dir, CommandLogFile))
	if err != nil {
		t.Fatalf("expected command log: %v", err)
	}
	if !strings.Contains(string(data), `"name":"echo"`) {
		t.Fatalf("unexpected command log %q", data)
	}
}

func TestRequestLoggerFallsBack(t *testing.T) {
	t.Parallel()

	fallback := zap.NewExample()
	if got := NewRequestLogger(config.LoggingConfig{EnableRequestLogging: true}, fallback); got != fallback {
		t.Fatalf("expected fallback logger")
	}
	if NewRequestLogger(config.LoggingConfig{}, fallback).Core().Enabled(zap.InfoLevel) {
		t.Fatalf("expected disabled request logger to be a no-op")
	}
}
