// Package logging builds the zap loggers used by all three processes.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 14
)

// Config controls where and how much a process logs.
type Config struct {
	Process  string // used as the "process" field on every entry
	FilePath string // empty disables the file core
	Level    string
	Console  bool

	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger wraps a zap logger together with its adjustable level.
type Logger struct {
	*zap.Logger
	level zap.AtomicLevel
}

// New builds a logger with a rotating JSON file core and an optional
// console core.
func New(cfg Config) (*Logger, error) {
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = DefaultMaxSizeMB
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = DefaultMaxBackups
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = DefaultMaxAgeDays
	}

	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	level := zap.NewAtomicLevelAt(lvl)

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var cores []zapcore.Core

	if cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", filepath.Dir(cfg.FilePath), err)
		}
		writer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), writer, level))
	}

	if cfg.Console || len(cores) == 0 {
		consoleConfig := encoderConfig
		consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleConfig),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	z := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	if cfg.Process != "" {
		z = z.With(zap.String("process", cfg.Process))
	}
	return &Logger{Logger: z, level: level}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop(), level: zap.NewAtomicLevel()}
}

// SetLevel changes the minimum enabled level at runtime.
func (l *Logger) SetLevel(name string) error {
	lvl, err := ParseLevel(name)
	if err != nil {
		return err
	}
	l.level.SetLevel(lvl)
	return nil
}

// Level returns the current minimum level.
func (l *Logger) Level() zapcore.Level {
	return l.level.Level()
}

// Close flushes buffered entries.
func (l *Logger) Close() {
	_ = l.Sync()
}

// ParseLevel maps a settings level name to a zap level. Empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	return zapcore.ParseLevel(name)
}
