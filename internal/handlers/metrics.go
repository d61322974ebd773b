package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type MetricsHandler struct {
	handler http.Handler
}

// NewMetricsHandler exposes a Prometheus exposition handler at /metrics.
func NewMetricsHandler(handler http.Handler) *MetricsHandler {
	return &MetricsHandler{handler: handler}
}

func (h *MetricsHandler) Register(e *echo.Echo) {
	if h.handler == nil {
		return
	}
	e.GET("/metrics", echo.WrapHandler(h.handler))
}
