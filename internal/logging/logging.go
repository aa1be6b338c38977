// Package logging provides structured logging with file rotation.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/usestring/flowschema/internal/config"
)

// Config selects the handler, level and destination of the process logger.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text or json

	// FilePath enables a lumberjack-rotated log file; the Max* and Compress
	// fields only apply to it.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Writer replaces stderr when FilePath is empty.
	Writer io.Writer
}

// FromConfig maps the LOG_* settings of the application config.
func FromConfig(cfg *config.Config) Config {
	return Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		FilePath:   cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	}
}

// Setup installs the logger described by cfg as the slog default. The
// returned function closes the log file, if any.
func Setup(cfg Config) (func() error, error) {
	logger, closeFn, err := New(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return closeFn, nil
}

// New builds a logger without installing it.
func New(cfg Config) (*slog.Logger, func() error, error) {
	w, closeFn, err := sink(cfg)
	if err != nil {
		return nil, nil, err
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), closeFn, nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), closeFn, nil
}

func sink(cfg Config) (io.Writer, func() error, error) {
	noop := func() error { return nil }
	if cfg.FilePath == "" {
		if cfg.Writer != nil {
			return cfg.Writer, noop, nil
		}
		return os.Stderr, noop, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	lj := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
	return lj, lj.Close, nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
