// Package model defines shared types for the proxy.
package model

import (
	"context"
	"io"
	"net/http"
	"net/url"
)

// ProxyRequest represents an inbound client request before it is materialized.
// Body is a one-shot stream owned by the transport. RawPath is the path as
// received on the wire; Path is its decoded form.
type ProxyRequest struct {
	Ctx      context.Context
	Method   string
	Path     string
	RawPath  string
	RawQuery string
	Header   http.Header
	Body     io.ReadCloser
}

// UpstreamRequest is a fully materialized request aimed at the upstream origin.
type UpstreamRequest struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// ProxyResponse is the raw upstream response as returned by the forwarder.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// CachedResponse is a materialized response, as stored in and served from the cache.
type CachedResponse struct {
	StatusCode int         `json:"status_code"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
}

// Source tells where a Result was produced.
type Source string

const (
	SourceCache    Source = "HIT"
	SourceUpstream Source = "MISS"
)

// Result is the outcome of handling a proxyable request.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Source     Source
}
