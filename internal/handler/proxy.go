package handler

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hskang9/turbo-s/internal/cache"
	"github.com/hskang9/turbo-s/internal/client"
	"github.com/hskang9/turbo-s/internal/message"
	"github.com/hskang9/turbo-s/internal/model"
	"github.com/hskang9/turbo-s/internal/service"
)

// ProxyHandler serves every non-reserved path through the caching proxy.
type ProxyHandler struct {
	service *service.ProxyService
	logger  *slog.Logger
}

// NewProxyHandler creates a ProxyHandler.
func NewProxyHandler(svc *service.ProxyService, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{
		service: svc,
		logger:  logger.With("component", "proxy_handler"),
	}
}

// Handle answers the request from the cache or the upstream origin.
// The body is fully materialized before anything is written, so the client
// never sees a truncated response.
func (h *ProxyHandler) Handle(c echo.Context) error {
	req := c.Request()

	res, err := h.service.Handle(&model.ProxyRequest{
		Ctx:      req.Context(),
		Method:   req.Method,
		Path:     req.URL.Path,
		RawPath:  req.URL.EscapedPath(),
		RawQuery: req.URL.RawQuery,
		Header:   req.Header,
		Body:     req.Body,
	})
	if err != nil {
		return h.mapError(c, err)
	}

	header := c.Response().Header()
	for key, vals := range res.Header {
		for _, v := range vals {
			header.Add(key, v)
		}
	}

	contentType := res.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = echo.MIMEOctetStream
	}
	return c.Blob(res.StatusCode, contentType, res.Body)
}

func (h *ProxyHandler) mapError(c echo.Context, err error) error {
	h.logger.Error("proxy error",
		"err", err,
		"method", c.Request().Method,
		"path", c.Request().URL.Path,
	)

	// Errors raised by echo middleware (e.g. BodyLimit) keep their status.
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return c.JSON(he.Code, map[string]string{
			"error": http.StatusText(he.Code),
		})
	}

	var bodyErr *message.BodyReadError
	if errors.As(err, &bodyErr) {
		switch {
		case bodyErr.Kind == message.KindRequest && errors.Is(err, message.ErrBodyTooLarge):
			return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
				"error": "request body too large",
			})
		case bodyErr.Kind == message.KindRequest:
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "failed to read request body",
			})
		case errors.Is(err, message.ErrBodyTooLarge):
			return c.JSON(http.StatusBadGateway, map[string]string{
				"error": "upstream response too large",
			})
		default:
			return c.JSON(http.StatusBadGateway, map[string]string{
				"error": "failed to read upstream response",
			})
		}
	}

	if errors.Is(err, cache.ErrInvalidKey) {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "internal error",
		})
	}

	if errors.Is(err, context.Canceled) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "client disconnected",
		})
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return c.JSON(http.StatusGatewayTimeout, map[string]string{
			"error": "upstream request timed out",
		})
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "upstream host unreachable",
		})
	}

	var upErr *client.UpstreamError
	if errors.As(err, &upErr) {
		return c.JSON(http.StatusBadGateway, map[string]string{
			"error": "upstream connection failed",
		})
	}

	return c.JSON(http.StatusInternalServerError, map[string]string{
		"error": "internal error",
	})
}
