package channelchecker

import (
	"context"
	"log/slog"

	"github.com/hgbot/hgbot/internal/healthcheck"
)

const checkTypeChannelConnection = "channel.connection"

// ConnectionObserver reads the runtime state of the chat connection.
type ConnectionObserver interface {
	Running() bool
}

// Checker evaluates channel connection health.
type Checker struct {
	logger   *slog.Logger
	observer ConnectionObserver
	platform string
}

// NewChecker creates a channel health checker for one platform connection.
func NewChecker(log *slog.Logger, platform string, observer ConnectionObserver) *Checker {
	if log == nil {
		log = slog.Default()
	}
	if platform == "" {
		platform = "unknown"
	}
	return &Checker{
		logger:   log.With(slog.String("checker", "healthcheck_channel")),
		observer: observer,
		platform: platform,
	}
}

// ListChecks returns one item for the connection.
func (c *Checker) ListChecks(ctx context.Context) []healthcheck.CheckResult {
	if err := ctx.Err(); err != nil {
		return []healthcheck.CheckResult{}
	}
	item := healthcheck.CheckResult{
		ID:       checkTypeChannelConnection + "." + c.platform,
		Type:     checkTypeChannelConnection,
		Metadata: map[string]any{"platform": c.platform},
	}
	switch {
	case c.observer == nil:
		c.logger.Warn("channel healthcheck dependency is unavailable")
		item.Status = healthcheck.StatusWarn
		item.Summary = "Channel checker service is not available."
		item.Detail = "connection observer is nil"
	case c.observer.Running():
		item.Status = healthcheck.StatusOK
		item.Summary = "Channel " + c.platform + " is connected."
	default:
		item.Status = healthcheck.StatusError
		item.Summary = "Channel " + c.platform + " connection is down."
	}
	return []healthcheck.CheckResult{item}
}
