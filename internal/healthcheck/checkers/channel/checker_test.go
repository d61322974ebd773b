package channelchecker

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

type fakeConnectionObserver struct {
	running bool
}

func (f *fakeConnectionObserver) Running() bool {
	return f.running
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCheckerListChecks(t *testing.T) {
	t.Parallel()

	observer := &fakeConnectionObserver{running: true}
	checker := NewChecker(newTestLogger(), "telegram", observer)

	items := checker.ListChecks(context.Background())
	if len(items) != 1 {
		t.Fatalf("expected 1 check, got %d", len(items))
	}
	if items[0].ID != "channel.connection.telegram" || items[0].Status != "ok" {
		t.Fatalf("unexpected item: %+v", items[0])
	}

	observer.running = false
	items = checker.ListChecks(context.Background())
	if items[0].Status != "error" {
		t.Fatalf("expected error for stopped connection, got %s", items[0].Status)
	}
}

func TestCheckerNilObserver(t *testing.T) {
	t.Parallel()

	checker := NewChecker(newTestLogger(), "telegram", nil)
	items := checker.ListChecks(context.Background())
	if len(items) != 1 {
		t.Fatalf("expected service warning check, got %d", len(items))
	}
	if items[0].Status != "warn" {
		t.Fatalf("expected warn status, got %s", items[0].Status)
	}
}

func TestCheckerCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if items := NewChecker(nil, "", &fakeConnectionObserver{}).ListChecks(ctx); len(items) != 0 {
		t.Fatalf("expected no checks after cancel, got %+v", items)
	}
}
