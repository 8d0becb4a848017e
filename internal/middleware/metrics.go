package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hskang9/turbo-s/internal/config"
	"github.com/hskang9/turbo-s/internal/metrics"
)

// MetricsMiddleware records request count, latency and concurrency.
// Requests are labeled by route (a reserved path or "proxy") and by the
// cache outcome the proxy reported in its X-Cache header.
func MetricsMiddleware(m *metrics.Metrics, cfg *config.Config) echo.MiddlewareFunc {
	routes := metrics.NewRouteLabeler(reservedPaths(cfg)...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			err := next(c)

			labels := prometheus.Labels{
				"method":      metrics.NormalizeMethod(c.Request().Method),
				"status_code": strconv.Itoa(responseStatus(c, err)),
				"route":       routes.Label(c.Request().URL.Path),
				"cache":       metrics.CacheLabel(c.Response().Header().Get("X-Cache")),
			}
			m.RequestsTotal.With(labels).Inc()
			m.RequestDuration.With(labels).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// reservedPaths lists the routes that are answered locally.
func reservedPaths(cfg *config.Config) []string {
	paths := []string{config.StatusPath, config.HealthzPath}
	if cfg.Metrics.Enabled {
		paths = append(paths, cfg.Metrics.Path)
	}
	return paths
}

// responseStatus predicts the status echo's error handler will write when
// the handler returned an error without committing a response.
func responseStatus(c echo.Context, err error) int {
	res := c.Response()
	if err == nil || res.Committed {
		return res.Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}
