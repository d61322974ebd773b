package handlers

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hgbot/hgbot/internal/healthcheck"
)

type PingHandler struct {
	logger   *slog.Logger
	checkers []healthcheck.Checker
}

// NewPingHandler serves liveness and the aggregated health of checkers.
func NewPingHandler(log *slog.Logger, checkers ...healthcheck.Checker) *PingHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PingHandler{
		logger:   log.With(slog.String("handler", "ping")),
		checkers: checkers,
	}
}

func (h *PingHandler) Register(e *echo.Echo) {
	e.GET("/ping", h.Ping)
	e.HEAD("/health", h.HealthHead)
	e.GET("/health", h.Health)
}

func (h *PingHandler) Ping(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *PingHandler) HealthHead(c echo.Context) error {
	report := healthcheck.Run(c.Request().Context(), h.checkers...)
	return c.NoContent(statusCode(report))
}

// Health godoc
// @Summary Runtime health
// @Description Storage reachability and chat connection state
// @Tags system
// @Success 200 {object} healthcheck.Report
// @Failure 503 {object} healthcheck.Report
// @Router /health [get]
func (h *PingHandler) Health(c echo.Context) error {
	report := healthcheck.Run(c.Request().Context(), h.checkers...)
	if !report.Healthy() {
		h.logger.Warn("health check failed", slog.String("status", report.Status))
	}
	return c.JSON(statusCode(report), report)
}

func statusCode(report healthcheck.Report) int {
	if report.Healthy() {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}
