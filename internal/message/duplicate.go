// Package message materializes one-shot HTTP bodies and produces independent
// copies of requests and responses from the materialized buffer.
package message

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hskang9/turbo-s/internal/model"
)

// ErrBodyTooLarge is returned when a body exceeds the configured size bound.
var ErrBodyTooLarge = errors.New("body exceeds size limit")

// Body kinds reported by BodyReadError.
const (
	KindRequest  = "request"
	KindResponse = "response"
)

// BodyReadError reports that a request or response body could not be fully drained.
type BodyReadError struct {
	Kind string
	Err  error
}

func (e *BodyReadError) Error() string {
	return fmt.Sprintf("read %s body: %v", e.Kind, e.Err)
}

func (e *BodyReadError) Unwrap() error { return e.Err }

// ReadBody drains r completely. A limit <= 0 disables the size bound.
// The reader is always closed.
func ReadBody(r io.ReadCloser, limit int64, kind string) ([]byte, error) {
	if r == nil || r == http.NoBody {
		return nil, nil
	}
	defer func() { _ = r.Close() }()

	src := io.Reader(r)
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}

	buf, err := io.ReadAll(src)
	if err != nil {
		return nil, &BodyReadError{Kind: kind, Err: err}
	}
	if limit > 0 && int64(len(buf)) > limit {
		return nil, &BodyReadError{Kind: kind, Err: ErrBodyTooLarge}
	}
	return buf, nil
}

// DuplicateRequest drains the inbound body and returns two upstream requests
// for target. Both carry the same method, URL and body; each owns its own
// URL, header and body buffer.
func DuplicateRequest(pr *model.ProxyRequest, target *url.URL, header http.Header, limit int64) (*model.UpstreamRequest, *model.UpstreamRequest, error) {
	body, err := ReadBody(pr.Body, limit, KindRequest)
	if err != nil {
		return nil, nil, err
	}

	build := func(body []byte) *model.UpstreamRequest {
		u := *target
		return &model.UpstreamRequest{
			Method: pr.Method,
			URL:    &u,
			Header: header.Clone(),
			Body:   body,
		}
	}
	return build(body), build(bytes.Clone(body)), nil
}

// DuplicateResponse drains the upstream body and returns two materialized
// copies of the response: one to relay and one to store. The copies share no
// header map or body buffer.
func DuplicateResponse(resp *model.ProxyResponse, limit int64) (*model.CachedResponse, *model.CachedResponse, error) {
	body, err := ReadBody(resp.Body, limit, KindResponse)
	if err != nil {
		return nil, nil, err
	}

	build := func(body []byte) *model.CachedResponse {
		return &model.CachedResponse{
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       body,
		}
	}
	return build(body), build(bytes.Clone(body)), nil
}

// NewReader returns an independent reader over a materialized body.
func NewReader(body []byte) io.Reader {
	if len(body) == 0 {
		return http.NoBody
	}
	return bytes.NewReader(body)
}
