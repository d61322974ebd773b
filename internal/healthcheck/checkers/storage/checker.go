package storagechecker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hgbot/hgbot/internal/healthcheck"
)

const (
	checkTypeStoragePing = "storage.ping"
	pingTimeout          = 3 * time.Second
)

// Pinger verifies that the backing database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker evaluates storage reachability.
type Checker struct {
	logger *slog.Logger
	pinger Pinger
	driver string
}

// NewChecker creates a storage health checker. driver only labels the result.
func NewChecker(log *slog.Logger, driver string, pinger Pinger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{
		logger: log.With(slog.String("checker", "healthcheck_storage")),
		pinger: pinger,
		driver: driver,
	}
}

// ListChecks pings the store once.
func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	item := healthcheck.CheckResult{
		ID:       checkTypeStoragePing,
		Type:     checkTypeStoragePing,
		Metadata: map[string]any{"driver": c.driver},
	}
	if c.pinger == nil {
		item.Status = healthcheck.StatusWarn
		item.Summary = "Storage is not configured."
		return []healthcheck.CheckResult{item}
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	started := time.Now()
	if err := c.pinger.Ping(pingCtx); err != nil {
		c.logger.Warn("storage ping failed", slog.Any("error", err))
		item.Status = healthcheck.StatusError
		item.Summary = "Storage is unreachable."
		item.Detail = err.Error()
		return []healthcheck.CheckResult{item}
	}
	item.Status = healthcheck.StatusOK
	item.Summary = "Storage is reachable."
	item.Metadata["latency_ms"] = time.Since(started).Milliseconds()
	return []healthcheck.CheckResult{item}
}
