// Package service implements the request routing and caching decisions of the proxy.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hskang9/turbo-s/internal/cache"
	"github.com/hskang9/turbo-s/internal/config"
	"github.com/hskang9/turbo-s/internal/message"
	"github.com/hskang9/turbo-s/internal/metrics"
	"github.com/hskang9/turbo-s/internal/model"
	"github.com/hskang9/turbo-s/internal/stats"
)

// Forwarder performs one round trip to the upstream origin.
type Forwarder interface {
	Do(ctx context.Context, req *model.UpstreamRequest) (*model.ProxyResponse, error)
}

// forwardableRequestHeaders are the only request headers forwarded upstream.
var forwardableRequestHeaders = []string{
	"Accept",
	"Accept-Language",
	"Content-Type",
}

// forwardableResponseHeaders are the only response headers relayed and cached.
var forwardableResponseHeaders = map[string]bool{
	"Content-Type":     true,
	"Content-Language": true,
	"Cache-Control":    true,
	"Etag":             true,
	"Last-Modified":    true,
	"Expires":          true,
}

const userAgent = "turbo-s/1.0"

// HeaderXCache reports whether a response came from the cache.
const HeaderXCache = "X-Cache"

// ProxyService decides for each proxyable request whether to serve it from
// the cache or forward it upstream, and keeps the cache and stats current.
type ProxyService struct {
	forwarder Forwarder
	cache     cache.Store
	stats     *stats.Counter
	metrics   *metrics.Metrics
	logger    *slog.Logger

	baseURL       *url.URL
	keyScope      cache.KeyScope
	ttl           time.Duration
	freshness     string
	bodyLimit     int64
	responseLimit int64
}

// NewProxyService creates a ProxyService for the configured upstream origin.
func NewProxyService(fwd Forwarder, store cache.Store, counter *stats.Counter, cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*ProxyService, error) {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base_url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream base_url %q must be absolute", cfg.Upstream.BaseURL)
	}

	scope, err := cache.ParseKeyScope(cfg.Cache.KeyScope)
	if err != nil {
		return nil, err
	}

	ttl := cfg.Cache.TTL()
	return &ProxyService{
		forwarder:     fwd,
		cache:         store,
		stats:         counter,
		metrics:       m,
		logger:        logger.With("component", "proxy_service"),
		baseURL:       u,
		keyScope:      scope,
		ttl:           ttl,
		freshness:     "max-age=" + strconv.Itoa(int(ttl.Seconds())),
		bodyLimit:     cfg.Server.BodyMaxBytes,
		responseLimit: cfg.Upstream.ResponseMaxBytes,
	}, nil
}

// Handle answers a proxyable request from the cache or the upstream.
//
// Stages run strictly in order: rewrite, duplicate, lookup, then either
// serve the cached entry or forward, duplicate the response, store it,
// count it and relay it. Any error fails only this request; nothing is
// stored and stats are untouched.
func (s *ProxyService) Handle(pr *model.ProxyRequest) (*model.Result, error) {
	target := s.rewrite(pr.Path, pr.RawPath, pr.RawQuery)

	send, keyed, err := message.DuplicateRequest(pr, target, s.filterRequestHeaders(pr.Header), s.bodyLimit)
	if err != nil {
		return nil, err
	}

	key, err := s.keyScope.Key(keyed.Method, keyed.URL.EscapedPath(), keyed.URL.RawQuery)
	if err != nil {
		return nil, err
	}

	if cached, ok := s.lookup(pr.Ctx, key); ok {
		s.logger.Debug("cache hit", "key", key)
		return s.serveCached(cached), nil
	}
	s.logger.Debug("cache miss", "key", key)

	resp, err := s.forwarder.Do(pr.Ctx, send)
	if err != nil {
		return nil, err
	}
	resp.Header = s.filterResponseHeaders(resp.Header)

	relay, stored, err := message.DuplicateResponse(resp, s.responseLimit)
	if err != nil {
		return nil, err
	}

	// The entry outlives the inbound request, so a client disconnect must
	// not abort the store.
	s.save(context.WithoutCancel(pr.Ctx), key, stored)
	s.stats.Increment()

	header := relay.Header
	header.Set(HeaderXCache, string(model.SourceUpstream))
	return &model.Result{
		StatusCode: relay.StatusCode,
		Header:     header,
		Body:       relay.Body,
		Source:     model.SourceUpstream,
	}, nil
}

// BaseURL returns the upstream origin.
func (s *ProxyService) BaseURL() string {
	return s.baseURL.String()
}

// rewrite points the inbound path and query at the upstream origin. The
// path keeps the encoding it arrived with; an empty or inconsistent rawPath
// falls back to the canonical encoding of path.
func (s *ProxyService) rewrite(path, rawPath, rawQuery string) *url.URL {
	u := *s.baseURL
	u.Path = path
	u.RawPath = rawPath
	u.RawQuery = rawQuery
	u.Fragment = ""
	return &u
}

// lookup treats a failing backend as a miss.
func (s *ProxyService) lookup(ctx context.Context, key string) (*model.CachedResponse, bool) {
	cached, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.logger.Warn("cache lookup failed", "key", key, "err", err)
		s.metrics.ObserveCacheLookup(metrics.LookupError)
		return nil, false
	case ok:
		s.metrics.ObserveCacheLookup(metrics.LookupHit)
		return cached, true
	default:
		s.metrics.ObserveCacheLookup(metrics.LookupMiss)
		return nil, false
	}
}

func (s *ProxyService) save(ctx context.Context, key string, resp *model.CachedResponse) {
	if err := s.cache.Set(ctx, key, resp, s.ttl); err != nil {
		s.logger.Warn("cache store failed", "key", key, "err", err)
		s.metrics.ObserveCacheStore(metrics.StoreError)
		return
	}
	s.metrics.ObserveCacheStore(metrics.StoreOK)
}

// serveCached builds a hit response. The freshness directive is fixed and is
// not adjusted to the entry's remaining lifetime.
func (s *ProxyService) serveCached(cached *model.CachedResponse) *model.Result {
	header := cached.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set("Cache-Control", s.freshness)
	header.Set(HeaderXCache, string(model.SourceCache))

	status := cached.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	return &model.Result{
		StatusCode: status,
		Header:     header,
		Body:       cached.Body,
		Source:     model.SourceCache,
	}
}

func (s *ProxyService) filterRequestHeaders(src http.Header) http.Header {
	dst := make(http.Header)
	for _, key := range forwardableRequestHeaders {
		if vals := src.Values(key); len(vals) > 0 {
			dst[http.CanonicalHeaderKey(key)] = vals
		}
	}
	dst.Set("User-Agent", userAgent)
	return dst
}

func (s *ProxyService) filterResponseHeaders(src http.Header) http.Header {
	dst := make(http.Header)
	for key, vals := range src {
		if forwardableResponseHeaders[http.CanonicalHeaderKey(key)] {
			dst[http.CanonicalHeaderKey(key)] = vals
		}
	}
	return dst
}
