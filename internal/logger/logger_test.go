package logger

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/hgbot/hgbot/internal/config"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")
	log := Init(config.LogConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1})
	log.Info("hello", slog.String("k", "v"))
	if err := Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected log output in file")
	}
}
