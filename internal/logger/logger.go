// Package logger builds the process-wide slog logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hgbot/hgbot/internal/config"
)

// L is the process logger. It is usable before Init and writes text to stderr.
var L = slog.New(slog.NewTextHandler(os.Stderr, nil))

var (
	mu      sync.Mutex
	rotator *lumberjack.Logger
)

// Init replaces L according to cfg. When cfg.File is set, records are written
// to stderr and to a size-rotated file.
func Init(cfg config.LogConfig) *slog.Logger {
	mu.Lock()
	defer mu.Unlock()

	var out io.Writer = os.Stderr
	if path := strings.TrimSpace(cfg.File); path != "" {
		if rotator != nil {
			_ = rotator.Close()
		}
		rotator = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   cfg.Compress,
		}
		out = io.MultiWriter(os.Stderr, rotator)
	}

	L = slog.New(newHandler(out, cfg.Level, cfg.Format))
	slog.SetDefault(L)
	return L
}

// Close flushes and closes the rotating file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if rotator == nil {
		return nil
	}
	err := rotator.Close()
	rotator = nil
	return err
}

func newHandler(out io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(out, opts)
	}
	return slog.NewTextHandler(out, opts)
}

// ParseLevel maps a config string to a slog level; unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
