package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/goodbase/goodbase/internal/config"
)

// Log file names inside logging.logDirectory.
const (
	MainLogFile    = "goodbase.log"
	CommandLogFile = "commands.log"
	RequestLogFile = "requests.log"
)

// NewBootstrap creates the logger used before the configuration is known:
// production JSON on stderr at info level.
func NewBootstrap() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.DisableStacktrace = false

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}

// levelOff is above every level zap logs at.
const levelOff = zapcore.FatalLevel + 1

// ParseLevel maps a logging.level value to a zap level. "none" disables
// logging entirely.
func ParseLevel(name string) (zapcore.Level, error) {
	if strings.EqualFold(name, "none") {
		return levelOff, nil
	}
	level, err := zapcore.ParseLevel(name)
	if err != nil {
		return 0, fmt.Errorf("parse log level %q: %w", name, err)
	}
	return level, nil
}

// New creates the process logger for a resolved logging section. With file
// logging enabled JSON lines go to goodbase.log in the log directory,
// rotated by size; otherwise to stderr. tee adds a human readable copy on
// stdout. The returned level gates every core and may be changed later.
func New(cfg config.LoggingConfig, tee bool) (*zap.Logger, zap.AtomicLevel, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	level := zap.NewAtomicLevelAt(lvl)

	var cores []zapcore.Core
	if cfg.EnableFileLogging && cfg.LogDirectory != "" {
		core, err := fileCore(cfg, MainLogFile, level)
		if err != nil {
			return nil, zap.AtomicLevel{}, err
		}
		cores = append(cores, core)
	} else {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig()),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	if tee {
		console := encoderConfig()
		console.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(console),
			zapcore.Lock(os.Stdout),
			level,
		))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)), level, nil
}

// Swappable holds a logger that can be replaced while others log through it.
type Swappable struct {
	current atomic.Pointer[zap.Logger]
}

// NewSwappable creates a Swappable holding logger.
func NewSwappable(logger *zap.Logger) *Swappable {
	s := &Swappable{}
	s.current.Store(logger)
	return s
}

// Logger returns the current logger.
func (s *Swappable) Logger() *zap.Logger {
	return s.current.Load()
}

// Swap installs logger and flushes the one it replaces.
func (s *Swappable) Swap(logger *zap.Logger) {
	if old := s.current.Swap(logger); old != nil {
		_ = old.Sync()
	}
}

// NewCommandLogger returns the audit logger for executed commands: JSON
// lines in commands.log when command logging is enabled, a no-op logger
// otherwise or when the log file cannot be opened.
func NewCommandLogger(cfg config.LoggingConfig) *zap.Logger {
	if !cfg.EnableCommandLogging || cfg.LogDirectory == "" {
		return zap.NewNop()
	}
	core, err := fileCore(cfg, CommandLogFile, zap.InfoLevel)
	if err != nil {
		return zap.NewNop()
	}
	return zap.New(core)
}

// NewRequestLogger returns the access logger of the HTTP API. Requests go
// to requests.log when file logging has a directory, to fallback when it
// does not, and nowhere when request logging is disabled.
func NewRequestLogger(cfg config.LoggingConfig, fallback *zap.Logger) *zap.Logger {
	if !cfg.EnableRequestLogging {
		return zap.NewNop()
	}
	if cfg.EnableFileLogging && cfg.LogDirectory != "" {
		if core, err := fileCore(cfg, RequestLogFile, zap.InfoLevel); err == nil {
			return zap.New(core)
		}
	}
	if fallback == nil {
		return zap.NewNop()
	}
	return fallback
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func fileCore(cfg config.LoggingConfig, name string, level zapcore.LevelEnabler) (zapcore.Core, error) {
	if err := os.MkdirAll(cfg.LogDirectory, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	sink := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDirectory, name),
		MaxSize:    cfg.MaxLogFileSize,
		MaxBackups: cfg.MaxLogFiles,
	}
	return zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(sink), level), nil
}

func encoderConfig() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.StacktraceKey = "stacktrace"
	return enc
}
