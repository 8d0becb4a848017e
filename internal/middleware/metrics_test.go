package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/hskang9/turbo-s/internal/config"
	"github.com/hskang9/turbo-s/internal/metrics"
)

// newMetricsServer routes the reserved paths and a proxy catch-all that
// echoes the X-Cache value requested by the test through ?cache=.
func newMetricsServer(cfg *config.Config) (*echo.Echo, *metrics.Metrics) {
	m := metrics.New()
	e := echo.New()
	e.Use(MetricsMiddleware(m, cfg))

	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.Any(config.StatusPath, ok)
	e.Any(config.HealthzPath, ok)
	e.GET(cfg.Metrics.Path, ok)
	e.Any("/*", func(c echo.Context) error {
		switch c.QueryParam("fail") {
		case "http":
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge)
		case "plain":
			return errors.New("boom")
		}
		if v := c.QueryParam("cache"); v != "" {
			c.Response().Header().Set("X-Cache", v)
		}
		return c.String(http.StatusOK, "proxied")
	})
	return e, m
}

func requestCount(m *metrics.Metrics, method, status, route, cache string) float64 {
	return testutil.ToFloat64(m.RequestsTotal.With(prometheus.Labels{
		"method": method, "status_code": status, "route": route, "cache": cache,
	}))
}

func TestMetricsMiddleware_Labels(t *testing.T) {
	cfg := &config.Config{Metrics: config.MetricsConfig{Enabled: true, Path: "/prom"}}

	tests := []struct {
		name   string
		method string
		target string
		status string
		route  string
		cache  string
	}{
		{"cache hit", http.MethodGet, "/items/42?cache=HIT", "200", metrics.RouteProxy, metrics.CacheHit},
		{"cache miss", http.MethodPost, "/items?cache=MISS", "200", metrics.RouteProxy, metrics.CacheMiss},
		{"status", http.MethodGet, "/status", "200", "/status", metrics.CacheNone},
		{"healthz", http.MethodPost, "/healthz", "200", "/healthz", metrics.CacheNone},
		{"configured metrics path", http.MethodGet, "/prom", "200", "/prom", metrics.CacheNone},
		{"default metrics path is proxied", http.MethodGet, "/metrics", "200", metrics.RouteProxy, metrics.CacheNone},
		{"http error", http.MethodGet, "/upload?fail=http", "413", metrics.RouteProxy, metrics.CacheNone},
		{"plain error", http.MethodGet, "/upload?fail=plain", "500", metrics.RouteProxy, metrics.CacheNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, m := newMetricsServer(cfg)
			e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tt.method, tt.target, http.NoBody))

			method := metrics.NormalizeMethod(tt.method)
			if got := requestCount(m, method, tt.status, tt.route, tt.cache); got != 1 {
				t.Errorf("requests{%s,%s,%s,%s} = %v, want 1", method, tt.status, tt.route, tt.cache, got)
			}
			if got := testutil.CollectAndCount(m.RequestsTotal); got != 1 {
				t.Errorf("series = %d, want 1", got)
			}
		})
	}
}

func TestMetricsMiddleware_MetricsPathIgnoredWhenDisabled(t *testing.T) {
	cfg := &config.Config{Metrics: config.MetricsConfig{Enabled: false, Path: "/prom"}}
	e, m := newMetricsServer(cfg)

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/prom", http.NoBody))

	if got := requestCount(m, "GET", "200", metrics.RouteProxy, metrics.CacheNone); got != 1 {
		t.Errorf("requests{route=proxy} = %v, want 1", got)
	}
}

func TestMetricsMiddleware_DurationAndInFlight(t *testing.T) {
	cfg := &config.Config{Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"}}
	e, m := newMetricsServer(cfg)

	for range 3 {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/a?cache=HIT", http.NoBody))
	}

	if got := testutil.CollectAndCount(m.RequestDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
	if got := requestCount(m, "GET", "200", metrics.RouteProxy, metrics.CacheHit); got != 3 {
		t.Errorf("hit requests = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.RequestsInFlight); got != 0 {
		t.Errorf("in flight = %v, want 0", got)
	}
}
