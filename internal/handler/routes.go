package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hskang9/turbo-s/internal/config"
	"github.com/hskang9/turbo-s/internal/metrics"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
// Reserved paths are matched exactly; everything else is proxied.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, m *metrics.Metrics, proxy *ProxyHandler, status *StatusHandler) {
	e.Any(config.HealthzPath, status.Healthz)
	e.Any(config.StatusPath, status.Status)

	if cfg.Metrics.Enabled && m != nil {
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	e.Any("/*", proxy.Handle)
}
