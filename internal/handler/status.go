// Package handler provides the HTTP handlers and route table.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hskang9/turbo-s/internal/config"
	"github.com/hskang9/turbo-s/internal/stats"
)

// Version is a string type for dependency injection of the build version.
type Version string

// StatusHandler serves the status and health endpoints.
type StatusHandler struct {
	cfg     *config.Config
	stats   *stats.Counter
	version Version
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(cfg *config.Config, counter *stats.Counter, v Version) *StatusHandler {
	return &StatusHandler{cfg: cfg, stats: counter, version: v}
}

// StatusResponse is the body of the status endpoint.
type StatusResponse struct {
	Proxied      uint64 `json:"proxied"`
	Summary      string `json:"summary"`
	Version      string `json:"version"`
	UpstreamURL  string `json:"upstream_url"`
	CacheBackend string `json:"cache_backend"`
}

// Healthz returns a simple OK response for liveness probes.
func (h *StatusHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Status reports how many requests have been proxied. It never touches the
// upstream or the counters.
func (h *StatusHandler) Status(c echo.Context) error {
	snap := h.stats.Snapshot()
	return c.JSONPretty(http.StatusOK, StatusResponse{
		Proxied:      snap.Proxied,
		Summary:      snap.String(),
		Version:      string(h.version),
		UpstreamURL:  h.cfg.Upstream.BaseURL,
		CacheBackend: h.cfg.Cache.Backend,
	}, "  ")
}
